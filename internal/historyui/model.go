// Package historyui provides the Bubble Tea session history browser.
package historyui

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/sarge/internal/model"
	"github.com/verte-zerg/sarge/internal/report"
)

const (
	tabOverview = iota
	tabSessions
	tabJudgments
)

const plotHeight = 10

var (
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8C8C8C")).
			Padding(0, 2).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			MarginRight(1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	tableStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source reads the recorded history.
type Source interface {
	ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.HistoryEntry, error)
	ListJudgments(ctx context.Context, sessionID int64) ([]model.JudgmentEntry, error)
	CountJudgments(ctx context.Context, sessionID int64) (map[string]int, error)
}

// Config holds the browser filters.
type Config struct {
	Filter      model.HistoryFilter
	CurveWindow int
}

// Model implements the Bubble Tea history browser.
type Model struct {
	src Source
	cfg Config

	// newest first
	entries []model.HistoryEntry
	errMsg  string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	sessions  table.Model

	width  int
	height int

	keys       browseKeys
	filterKeys filterKeys
	help       help.Model

	filter filterForm
}

// NewModel constructs a history browser and loads the first page.
func NewModel(src Source, cfg Config) *Model {
	if cfg.CurveWindow < 1 {
		cfg.CurveWindow = 1
	}
	m := &Model{
		src:        src,
		cfg:        cfg,
		tabs:       []string{"Overview", "Sessions", "Judgments"},
		keys:       defaultBrowseKeys(),
		filterKeys: defaultFilterKeys(),
		help:       help.New(),
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.filter = newFilterForm()
	m.sessions = table.New(
		table.WithColumns(sessionColumns()),
		table.WithHeight(1),
	)
	m.sessions.SetStyles(sessionTableStyles())
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.updateLayout()
		m.renderTabContents()
	case tea.KeyMsg:
		if m.filter.open {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	onSessions := m.activeTab == tabSessions
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.PrevTab):
		m.moveTab(-1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.NextTab):
		m.moveTab(1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.WiderAvg):
		m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
		m.renderTabContents()
	case key.Matches(msg, m.keys.NarrowAvg):
		m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
		m.renderTabContents()
	case key.Matches(msg, m.keys.Filter):
		return m, m.filter.show(m.cfg)
	case key.Matches(msg, m.keys.Open):
		if onSessions && len(m.entries) > 0 {
			m.activeTab = tabJudgments
			m.sessions.Blur()
			m.renderTabContents()
			return m, tea.ClearScreen
		}
	case key.Matches(msg, m.keys.Top) && onSessions:
		m.sessions.GotoTop()
	case key.Matches(msg, m.keys.Top):
		m.viewports[m.activeTab].GotoTop()
	case key.Matches(msg, m.keys.Bottom) && onSessions:
		m.sessions.GotoBottom()
	case key.Matches(msg, m.keys.Bottom):
		m.viewports[m.activeTab].GotoBottom()
	default:
		var cmd tea.Cmd
		if onSessions {
			m.sessions, cmd = m.sessions.Update(msg)
		} else {
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fit(m.renderHeader(), m.width, headerHeight)
	body := fit(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fit(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Selected returns the session highlighted in the sessions table.
func (m *Model) Selected() (model.HistoryEntry, bool) {
	idx := m.sessions.Cursor()
	if idx < 0 || idx >= len(m.entries) {
		return model.HistoryEntry{}, false
	}
	return m.entries[idx], true
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeTabStyle.Render("X"))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filter.open && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.sessions.SetWidth(m.width)
	m.sessions.SetHeight(max(bodyHeight-1, 1))
	m.filter.setWidth(m.width)
}

func (m *Model) moveTab(delta int) {
	m.activeTab = (m.activeTab + delta + len(m.tabs)) % len(m.tabs)
	if m.activeTab == tabSessions {
		m.sessions.Focus()
	} else {
		m.sessions.Blur()
	}
	m.renderTabContents()
}

func (m *Model) refresh() {
	entries, err := m.src.ListSessions(context.Background(), m.cfg.Filter)
	if err != nil {
		m.errMsg = err.Error()
		m.entries = nil
	} else {
		m.errMsg = ""
		m.entries = make([]model.HistoryEntry, len(entries))
		for i, e := range entries {
			m.entries[len(entries)-1-i] = e
		}
	}
	m.sessions.SetRows(sessionRows(m.entries))
	m.sessions.GotoTop()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load history.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(m.renderOverview(width))
	m.viewports[tabJudgments].SetContent(m.renderJudgments())
}

func (m *Model) renderOverview(width int) string {
	if len(m.entries) == 0 {
		return "No sessions found."
	}
	chrono := make([]model.HistoryEntry, len(m.entries))
	for i, e := range m.entries {
		chrono[len(m.entries)-1-i] = e
	}
	cards := renderSummaryCards(chrono, width)
	var buf bytes.Buffer
	if err := report.RenderTrends(&buf, chrono, m.cfg.CurveWindow, width, plotHeight, true); err != nil {
		return cards + "\n\n" + fmt.Sprintf("Failed to render trends: %v", err)
	}
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(entries []model.HistoryEntry, width int) string {
	var focus, xp, early, penalty int
	for _, e := range entries {
		focus += e.FocusMinutes
		xp += e.SessionXP
		if e.EndedEarly {
			early++
			penalty += e.EstimatedPenalty
		}
	}
	cards := []string{
		metricCard("Sessions", strconv.Itoa(len(entries))),
		metricCard("Focus", fmt.Sprintf("%d min", focus)),
		metricCard("Avg Focus", fmt.Sprintf("%.1f min", float64(focus)/float64(len(entries)))),
		metricCard("Session XP", strconv.Itoa(xp)),
		metricCard("Ended Early", fmt.Sprintf("%d (-%d XP)", early, penalty)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func (m *Model) renderJudgments() string {
	entry, ok := m.Selected()
	if !ok {
		return "No sessions found."
	}
	ctx := context.Background()
	counts, err := m.src.CountJudgments(ctx, entry.ID)
	if err != nil {
		return fmt.Sprintf("Failed to load judgments: %v", err)
	}
	log, err := m.src.ListJudgments(ctx, entry.ID)
	if err != nil {
		return fmt.Sprintf("Failed to load judgments: %v", err)
	}

	goal := entry.Goal
	if goal == "" {
		goal = "(no goal)"
	}
	lines := []string{
		headerStyle.Render(fmt.Sprintf("Session %s  %s", entry.StartedAt.Local().Format("2006-01-02 15:04"), goal)),
	}
	if len(log) == 0 {
		return strings.Join(append(lines, "No judgments recorded."), "\n")
	}

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		if counts[classes[i]] == counts[classes[j]] {
			return classes[i] < classes[j]
		}
		return counts[classes[i]] > counts[classes[j]]
	})
	parts := make([]string, 0, len(classes))
	for _, class := range classes {
		parts = append(parts, fmt.Sprintf("%s %d", class, counts[class]))
	}
	lines = append(lines, "Counts: "+strings.Join(parts, "  "), "")
	for _, j := range log {
		line := j.ObservedAt.Local().Format("15:04:05") + "  " + j.Classification
		if j.Reason != "" {
			line += "  " + j.Reason
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "Started", Width: 16},
		{Title: "Length", Width: 7},
		{Title: "Work/Break", Width: 10},
		{Title: "Focus", Width: 6},
		{Title: "XP", Width: 5},
		{Title: "Early", Width: 5},
		{Title: "Goal", Width: 30},
	}
}

func sessionRows(entries []model.HistoryEntry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		length := "running"
		if e.EndedAt != nil {
			length = fmt.Sprintf("%dm", int(e.EndedAt.Sub(e.StartedAt).Round(time.Minute)/time.Minute))
		}
		early := ""
		if e.EndedEarly {
			early = "yes"
		}
		rows = append(rows, table.Row{
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			length,
			fmt.Sprintf("%d/%d", e.WorkMinutes, e.BreakMinutes),
			strconv.Itoa(e.FocusMinutes),
			strconv.Itoa(e.SessionXP),
			early,
			e.Goal,
		})
	}
	return rows
}

func sessionTableStyles() table.Styles {
	base := lipgloss.NewStyle().PaddingRight(1)
	return table.Styles{
		Header: base.
			Bold(true).
			Foreground(lipgloss.Color("#C89A3A")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#4A4A4A")),
		Cell:     base,
		Selected: lipgloss.NewStyle().Reverse(true),
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeTabStyle.Render(tab))
		} else {
			parts = append(parts, tabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return m.renderTabs() + "\n" + m.renderFilterSummary()
}

func (m *Model) renderFilterSummary() string {
	since := "any"
	if m.cfg.Filter.Since != nil {
		since = m.cfg.Filter.Since.Format(dateLayout)
	}
	last := "all"
	if m.cfg.Filter.Last > 0 {
		last = strconv.Itoa(m.cfg.Filter.Last)
	}
	summary := fmt.Sprintf("Filters: since=%s  last=%s  window=%d", since, last, m.cfg.CurveWindow)
	if m.width > 0 {
		summary = runewidth.Truncate(summary, m.width, "...")
	}
	return headerStyle.Render(summary)
}

func (m *Model) renderFooter() string {
	if m.filter.open {
		return m.help.View(m.filterKeys)
	}
	m.keys.sessionTab = m.activeTab == tabSessions
	footer := m.help.View(m.keys)
	if m.errMsg != "" {
		footer += "\n" + errorStyle.Render(m.errMsg)
	}
	return footer
}

func (m *Model) renderBody(height int) string {
	if m.filter.open {
		return fit(m.filter.view(), m.width, height)
	}
	if m.activeTab == tabSessions {
		if len(m.entries) == 0 {
			return fit("No sessions found.", m.width, height)
		}
		return fit(tableStyle.Render(m.sessions.View()), m.width, height)
	}
	return fit(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.filterKeys.Cancel):
		m.filter.hide()
	case key.Matches(msg, m.filterKeys.Apply):
		cfg, err := m.filter.config()
		if err != nil {
			m.filter.err = err
			return m, nil
		}
		m.cfg = cfg
		m.filter.hide()
		m.refresh()
		m.updateLayout()
	case key.Matches(msg, m.filterKeys.Next):
		return m, m.filter.focusField(m.filter.focus + 1)
	case key.Matches(msg, m.filterKeys.Prev):
		return m, m.filter.focusField(m.filter.focus - 1)
	default:
		return m, m.filter.input(msg)
	}
	return m, nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

// fit cuts s to height lines and pads it to a width x height block.
func fit(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, strings.Join(lines, "\n"))
}
