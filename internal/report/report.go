package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/verte-zerg/sarge/internal/bridge"
	"github.com/verte-zerg/sarge/internal/model"
	"github.com/verte-zerg/sarge/internal/session"
)

const (
	sparkChars   = " .:-=+*#%@"
	goalMaxWidth = 40
)

// ShouldUseColor reports whether w is a terminal and NO_COLOR is unset.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

type palette struct {
	green, yellow, red, dim, bold *color.Color
}

func newPalette(useColor bool) palette {
	p := palette{
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		dim:    color.New(color.Faint),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.green, p.yellow, p.red, p.dim, p.bold} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) warning(level model.WarningLevel) *color.Color {
	switch level {
	case model.WarningGreen:
		return p.green
	case model.WarningRed:
		return p.red
	default:
		return p.yellow
	}
}

// RenderStatus prints a snapshot of the session state.
func RenderStatus(w io.Writer, st *session.State, useColor bool) error {
	p := newPalette(useColor)
	var b strings.Builder

	if st.Offline() {
		fmt.Fprintln(&b, p.red.Sprint("Backend offline"))
	}
	sess := st.Session()
	goal := sess.Goal
	if goal == "" {
		goal = p.dim.Sprint("(none)")
	}
	active := "no"
	if st.Active() {
		active = "yes"
	}
	fmt.Fprintf(&b, "Session:   %s\n", active)
	fmt.Fprintf(&b, "Goal:      %s\n", goal)

	phase := st.PhaseLabel()
	if countdown, ok := st.Countdown(); ok {
		phase += "  " + p.bold.Sprint(countdown)
	}
	fmt.Fprintf(&b, "Timer:     %s\n", phase)
	fmt.Fprintf(&b, "Focus:     %d min\n", sess.FocusMinutes)

	if st.Fetched(session.RecordXP) {
		xp := st.XP()
		fmt.Fprintf(&b, "XP:        %d total, %d this session\n", xp.TotalXP, xp.SessionXP)
		rank := xp.CurrentRank
		if xp.NextRankName != "" {
			rank += fmt.Sprintf(" → %s in %d XP", xp.NextRankName, xp.XPToNextRank)
		}
		fmt.Fprintf(&b, "Rank:      %s [%s] %3.0f%%\n", rank, progressBar(st.RankProgress(), 20), st.RankProgress()*100)
	}

	j := st.Judgment()
	label := j.Raw
	if label == "" {
		label = j.Classification.String()
	}
	line := p.warning(st.WarningLevel()).Sprint(label)
	if j.Reason != "" {
		line += p.dim.Sprint(" - " + j.Reason)
	}
	fmt.Fprintf(&b, "Judgment:  %s\n", line)

	if st.Fetched(session.RecordAI) {
		ai := st.AI()
		fmt.Fprintf(&b, "AI:        %s (openai %s, ollama %s)\n", ai.PrimaryBackend, yesNo(ai.OpenAIAvailable), yesNo(ai.OllamaAvailable))
	}
	if st.Fetched(session.RecordScreen) {
		sm := st.Screen()
		state := "off"
		if sm.Enabled {
			state = "on"
		}
		fmt.Fprintf(&b, "Screen:    %s (%s)\n", state, sm.Backend)
	}
	if sess.Personality != "" {
		fmt.Fprintf(&b, "Sergeant:  %s\n", sess.Personality)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderEndSummary prints the summary returned when a session ends.
func RenderEndSummary(w io.Writer, s model.EndSummary) error {
	_, err := fmt.Fprintf(w, "Session ended: %d focus min, %d distractions, %d pomodoros\n",
		s.FocusMinutes, s.Distractions, s.PomodorosCompleted)
	return err
}

// RenderHistory prints the local session history with a short summary.
func RenderHistory(w io.Writer, entries []model.HistoryEntry, useColor bool) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	p := newPalette(useColor)

	headers := []string{"Started", "Length", "Work/Break", "XP", "Penalty", "Goal"}
	rows := make([][]string, 0, len(entries))
	var (
		totalFocus int
		early      int
		focus      []float64
	)
	for _, e := range entries {
		length := "running"
		if e.EndedAt != nil {
			length = formatMinutes(e.EndedAt.Sub(e.StartedAt))
		}
		penalty := "-"
		if e.EndedEarly {
			early++
			penalty = strconv.Itoa(e.EstimatedPenalty)
		}
		goal := e.Goal
		if goal == "" {
			goal = "-"
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			length,
			fmt.Sprintf("%d/%d", e.WorkMinutes, e.BreakMinutes),
			strconv.Itoa(e.SessionXP),
			penalty,
			truncate(goal, goalMaxWidth),
		})
		totalFocus += e.FocusMinutes
		focus = append(focus, float64(e.FocusMinutes))
	}

	lines := formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
	lines[0] = p.bold.Sprint(lines[0])
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\nSessions: %d  Focus: %d min  Ended early: %d\n", len(entries), totalFocus, early); err != nil {
		return err
	}
	if len(focus) > 1 {
		if _, err := fmt.Fprintf(w, "Focus trend: %s\n", Sparkline(focus)); err != nil {
			return err
		}
	}
	return nil
}

// RenderRemoteConfig prints the service configuration as sorted
// section.key = value lines.
func RenderRemoteConfig(w io.Writer, cfg bridge.RemoteConfig) error {
	var lines []string
	for key, value := range cfg {
		if section, ok := value.(map[string]any); ok {
			for k, v := range section {
				lines = append(lines, fmt.Sprintf("%s.%s = %s", key, k, formatValue(v)))
			}
			continue
		}
		lines = append(lines, fmt.Sprintf("%s = %s", key, formatValue(value)))
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderPersonality prints the active profile and the alternatives.
func RenderPersonality(w io.Writer, p model.Personality) error {
	if _, err := fmt.Fprintf(w, "Personality: %s\n", p.Name); err != nil {
		return err
	}
	if len(p.Available) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "Available:   %s\n", strings.Join(p.Available, ", "))
	return err
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func progressBar(ratio float64, width int) string {
	filled := int(math.Round(model.ClampProgress(ratio) * float64(width)))
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}

func formatMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%dm", int(d.Round(time.Minute)/time.Minute))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
