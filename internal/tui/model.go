// Package tui provides the Bubble Tea dashboard.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/dispatch"
	"github.com/verte-zerg/sarge/internal/logging"
	"github.com/verte-zerg/sarge/internal/model"
	"github.com/verte-zerg/sarge/internal/poller"
	"github.com/verte-zerg/sarge/internal/session"
	"github.com/verte-zerg/sarge/internal/store"
)

const (
	minMinutes      = 1
	maxWorkMinutes  = 180
	maxBreakMinutes = 60
	workStep        = 5
	defaultToast    = 4 * time.Second
	offlineMessage  = "Backend offline"
)

// History is the local session log. *store.Store implements it.
type History interface {
	InsertSessionStart(ctx context.Context, startedAt time.Time, goal string, workMinutes, breakMinutes int) (int64, error)
	FinishSession(ctx context.Context, id int64, f store.Finish) error
	OpenSession(ctx context.Context) (int64, bool, error)
	InsertJudgment(ctx context.Context, sessionID int64, j model.JudgmentEntry) error
}

// Options configures a Model.
type Options struct {
	Config     model.Config
	Poller     *poller.Poller
	Dispatcher *dispatch.Dispatcher
	// History is optional.
	History History
}

type toastExpiredMsg struct {
	id int
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	cfg      model.Config
	state    session.State
	poll     *poller.Poller
	dispatch *dispatch.Dispatcher
	history  History

	keys     keyMap
	help     help.Model
	timerBar progress.Model
	xpBar    progress.Model

	width  int
	height int

	goal         string
	workMinutes  int
	breakMinutes int

	modal *form

	toast      string
	toastError bool
	toastID    int

	lastInconsistency string
	personality       model.Personality
	remote            bridge.RemoteConfig

	historyID  int64
	adopted    bool
	seenActive bool
}

// NewModel constructs the dashboard model.
func NewModel(opts Options) *Model {
	cfg := opts.Config
	if cfg.ToastDuration <= 0 {
		cfg.ToastDuration = defaultToast
	}
	m := &Model{
		cfg:          cfg,
		poll:         opts.Poller,
		dispatch:     opts.Dispatcher,
		history:      opts.History,
		keys:         defaultKeys(),
		help:         help.New(),
		timerBar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(30)),
		xpBar:        progress.New(progress.WithGradient("#C89A3A", "#F0F0F0"), progress.WithoutPercentage(), progress.WithWidth(30)),
		goal:         cfg.Goal,
		workMinutes:  clamp(orDefault(cfg.WorkMinutes, 25), minMinutes, maxWorkMinutes),
		breakMinutes: clamp(orDefault(cfg.BreakMinutes, 5), minMinutes, maxBreakMinutes),
	}
	m.adoptOpenSession()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.poll.Start(), m.dispatch.GetPersonality())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		barWidth := clamp(msg.Width-24, 30, 60)
		m.timerBar.Width = barWidth
		m.xpBar.Width = barWidth
		return m, nil
	case poller.TickMsg:
		return m, m.poll.Tick(msg)
	case poller.HealthTickMsg:
		return m, m.poll.HealthTick(msg)
	case poller.HealthMsg:
		if poller.ApplyHealth(&m.state, msg) {
			m.logOffline()
		}
		return m, nil
	case poller.FetchedMsg:
		cmd := m.poll.Done(msg)
		m.applyFetched(msg)
		return m, cmd
	case dispatch.ResultMsg:
		return m, m.handleResult(msg)
	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = ""
			m.toastError = false
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) applyFetched(msg poller.FetchedMsg) {
	out := poller.Apply(&m.state, msg)
	if out.OfflineChanged {
		m.logOffline()
	}
	if msg.Record == session.RecordTimer && out.Applied {
		m.noteInconsistency(out.Inconsistent)
	}
	if msg.Record == session.RecordSession && out.Applied {
		m.trackRemoteSession()
	}
	if out.JudgmentChanged && m.historyID > 0 && m.history != nil {
		j := m.state.Judgment()
		entry := model.JudgmentEntry{ObservedAt: msg.At, Classification: j.Raw, Reason: j.Reason}
		if err := m.history.InsertJudgment(context.Background(), m.historyID, entry); err != nil {
			logging.Error("failed to record judgment: %v", err)
		}
	}
}

// noteInconsistency logs a timer disagreement once until it changes.
func (m *Model) noteInconsistency(err error) {
	if err == nil {
		m.lastInconsistency = ""
		return
	}
	if err.Error() == m.lastInconsistency {
		return
	}
	m.lastInconsistency = err.Error()
	logging.Warn("inconsistent timer status: %v", err)
}

func (m *Model) logOffline() {
	if m.state.Offline() {
		logging.Warn("session service unreachable")
		return
	}
	logging.Info("session service reachable again")
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	case key.Matches(msg, m.keys.Refresh):
		return m.poll.RefreshSlow()
	case key.Matches(msg, m.keys.WorkUp):
		m.workMinutes = clamp(m.workMinutes+workStep, minMinutes, maxWorkMinutes)
		return nil
	case key.Matches(msg, m.keys.WorkDown):
		m.workMinutes = clamp(m.workMinutes-workStep, minMinutes, maxWorkMinutes)
		return nil
	case key.Matches(msg, m.keys.BreakUp):
		m.breakMinutes = clamp(m.breakMinutes+1, minMinutes, maxBreakMinutes)
		return nil
	case key.Matches(msg, m.keys.BreakDown):
		m.breakMinutes = clamp(m.breakMinutes-1, minMinutes, maxBreakMinutes)
		return nil
	}

	if m.isWriteKey(msg) && m.state.Offline() {
		return m.showToast(offlineMessage, true)
	}
	switch {
	case key.Matches(msg, m.keys.Start):
		m.modal = newStartForm(m.goal, m.workMinutes, m.breakMinutes)
	case key.Matches(msg, m.keys.End):
		return m.dispatch.EndSession(false)
	case key.Matches(msg, m.keys.EndEarly):
		m.modal = newConfirmEndForm(m.state.EstimatedPenalty(), m.state.PenaltyPercent())
	case key.Matches(msg, m.keys.Pause):
		return m.dispatch.TogglePause(m.state.Paused())
	case key.Matches(msg, m.keys.SkipBreak):
		return m.dispatch.SkipBreak()
	case key.Matches(msg, m.keys.Screen):
		enabled := !m.state.Screen().Enabled
		m.state.SetScreenMonitoring(enabled)
		return m.dispatch.ToggleScreenMonitoring(enabled)
	case key.Matches(msg, m.keys.APIKey):
		m.modal = newAPIKeyForm()
	case key.Matches(msg, m.keys.XPSettings):
		m.modal = newXPForm()
		if m.remote != nil {
			m.fillXPForm()
		}
		return m.dispatch.GetConfig()
	case key.Matches(msg, m.keys.Speak):
		m.modal = newSpeakForm()
	case key.Matches(msg, m.keys.Hush):
		return m.dispatch.StopSpeaking()
	case key.Matches(msg, m.keys.Personality):
		return m.cyclePersonality()
	}
	return nil
}

func (m *Model) isWriteKey(msg tea.KeyMsg) bool {
	k := m.keys
	for _, b := range []key.Binding{k.Start, k.End, k.EndEarly, k.Pause, k.SkipBreak, k.Screen, k.APIKey, k.XPSettings, k.Speak, k.Hush, k.Personality} {
		if key.Matches(msg, b) {
			return true
		}
	}
	return false
}

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	action, cmd := m.modal.update(msg)
	switch action {
	case formCancel:
		m.modal = nil
		return nil
	case formSubmit:
		return m.submitModal()
	}
	return cmd
}

func (m *Model) submitModal() tea.Cmd {
	f := m.modal
	if m.state.Offline() {
		m.modal = nil
		return m.showToast(offlineMessage, true)
	}
	switch f.kind {
	case modalStart:
		m.modal = nil
		m.goal = f.value(0)
		return m.dispatch.StartSession(m.goal, m.workMinutes, m.breakMinutes)
	case modalConfirmEnd:
		m.modal = nil
		return m.dispatch.EndSession(true)
	case modalAPIKey:
		if f.value(0) == "" {
			f.err = "API key is required"
			return nil
		}
		m.modal = nil
		return m.dispatch.SetOpenAIKey(f.value(0))
	case modalXP:
		perMinute, penalty, err := parseXPForm(f.value(0), f.value(1))
		if err != nil {
			f.err = err.Error()
			return nil
		}
		m.modal = nil
		return m.dispatch.UpdateConfig(bridge.XPPatch(perMinute, penalty))
	case modalSpeak:
		if f.value(0) == "" {
			f.err = "Nothing to say"
			return nil
		}
		m.modal = nil
		return m.dispatch.Speak(f.value(0))
	}
	m.modal = nil
	return nil
}

func (m *Model) handleResult(r dispatch.ResultMsg) tea.Cmd {
	switch r.Command {
	case dispatch.CmdGetPersonality:
		if r.Err != nil {
			logging.Debug("personality fetch failed: %v", r.Err)
			return nil
		}
		m.personality = r.Personality
		return nil
	case dispatch.CmdGetConfig:
		if r.Err != nil {
			return m.showToast(r.Text(), true)
		}
		m.remote = r.Config
		if m.modal != nil && m.modal.kind == modalXP {
			m.fillXPForm()
		}
		return nil
	case dispatch.CmdToggleScreenMonitoring:
		return tea.Batch(m.showToast(r.Text(), !r.OK()), m.poll.RefreshSlow())
	}

	if r.Err != nil {
		logging.Error("%s failed: %v", r.Command, r.Err)
		return m.showToast(r.Text(), true)
	}
	switch r.Command {
	case dispatch.CmdStartSession:
		m.state.MarkStarted()
		m.recordStart(r)
	case dispatch.CmdEndSession:
		m.state.MarkEnded()
		m.recordEnd(r.Early, r.Summary.FocusMinutes)
		return m.showToast(fmt.Sprintf("Session ended: %d focus min, %d distractions",
			r.Summary.FocusMinutes, r.Summary.Distractions), false)
	case dispatch.CmdSetOpenAIKey:
		return tea.Batch(m.showToast(r.Text(), false), m.poll.RefreshSlow())
	case dispatch.CmdUpdateConfig:
		m.remote = nil
	case dispatch.CmdSetPersonality:
		m.personality.Name = r.Personality.Name
	}
	return m.showToast(r.Text(), false)
}

func (m *Model) fillXPForm() {
	xp := m.remote.XP()
	m.modal.setDefaults(fmt.Sprint(xp.XPPerMinute), fmt.Sprint(xp.EarlyEndPenaltyPercent))
}

func (m *Model) cyclePersonality() tea.Cmd {
	current := m.state.Session().Personality
	if current == "" {
		current = m.personality.Name
	}
	next := dispatch.NextPersonality(current, m.personality.Available)
	if next == "" {
		return tea.Batch(m.showToast("No personalities available", true), m.dispatch.GetPersonality())
	}
	return m.dispatch.SetPersonality(next)
}

func (m *Model) showToast(text string, isErr bool) tea.Cmd {
	m.toastID++
	id := m.toastID
	m.toast = text
	m.toastError = isErr
	return tea.Tick(m.cfg.ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m *Model) quit() tea.Cmd {
	m.poll.Stop()
	return tea.Quit
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
