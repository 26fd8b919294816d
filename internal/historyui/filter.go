package historyui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const dateLayout = "2006-01-02"

const (
	fieldSince = iota
	fieldLast
	fieldWindow
)

var (
	errSinceDate   = errors.New("invalid since date (expected YYYY-MM-DD)")
	errLastValue   = errors.New("invalid last value (use 0 or positive integer)")
	errCurveWindow = errors.New("invalid curve window (use integer >= 1)")
)

// filterForm edits a Config in place of the body while open.
type filterForm struct {
	open   bool
	fields []textinput.Model
	focus  int
	err    error
}

func newFilterForm() filterForm {
	prompts := []string{"Since (YYYY-MM-DD): ", "Last: ", "Curve window: "}
	f := filterForm{fields: make([]textinput.Model, len(prompts))}
	for i, p := range prompts {
		in := textinput.New()
		in.Prompt = p
		in.Cursor.SetMode(cursor.CursorBlink)
		f.fields[i] = in
	}
	return f
}

// show opens the form prefilled from cfg.
func (f *filterForm) show(cfg Config) tea.Cmd {
	since, last := "", ""
	if cfg.Filter.Since != nil {
		since = cfg.Filter.Since.Format(dateLayout)
	}
	if cfg.Filter.Last > 0 {
		last = strconv.Itoa(cfg.Filter.Last)
	}
	f.fields[fieldSince].SetValue(since)
	f.fields[fieldLast].SetValue(last)
	f.fields[fieldWindow].SetValue(strconv.Itoa(cfg.CurveWindow))
	f.open, f.err = true, nil
	return f.focusField(fieldSince)
}

func (f *filterForm) hide() {
	f.open, f.err = false, nil
}

func (f *filterForm) focusField(i int) tea.Cmd {
	n := len(f.fields)
	f.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range f.fields {
		if j != f.focus {
			f.fields[j].Blur()
			continue
		}
		cmd = f.fields[j].Focus()
	}
	return cmd
}

func (f *filterForm) input(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return cmd
}

func (f *filterForm) setWidth(width int) {
	for i := range f.fields {
		f.fields[i].Width = max(width-lipgloss.Width(f.fields[i].Prompt)-2, 10)
	}
}

// config parses the fields. Empty fields mean no filter and a window of 1.
func (f *filterForm) config() (Config, error) {
	cfg := Config{CurveWindow: 1}
	value := func(i int) string { return strings.TrimSpace(f.fields[i].Value()) }

	if raw := value(fieldSince); raw != "" {
		since, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return Config{}, errSinceDate
		}
		cfg.Filter.Since = &since
	}
	if raw := value(fieldLast); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, errLastValue
		}
		cfg.Filter.Last = n
	}
	if raw := value(fieldWindow); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Config{}, errCurveWindow
		}
		cfg.CurveWindow = n
	}
	return cfg, nil
}

func (f *filterForm) view() string {
	lines := make([]string, 0, len(f.fields)+2)
	lines = append(lines, "Filters (enter to apply, esc to cancel)")
	for _, in := range f.fields {
		lines = append(lines, in.View())
	}
	if f.err != nil {
		lines = append(lines, errorStyle.Render(f.err.Error()))
	}
	return strings.Join(lines, "\n")
}
