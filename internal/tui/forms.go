package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type modalKind int

const (
	modalNone modalKind = iota
	modalStart
	modalConfirmEnd
	modalAPIKey
	modalXP
	modalSpeak
)

// form is a small modal with zero or more text inputs. A form without inputs
// is a yes/no confirmation.
type form struct {
	kind   modalKind
	title  string
	hint   string
	inputs []textinput.Model
	focus  int
	err    string
	// touched is set once the user typed into the form, so late-arriving
	// defaults do not overwrite input.
	touched bool
}

type formAction int

const (
	formContinue formAction = iota
	formSubmit
	formCancel
)

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func newStartForm(goal string, workMinutes, breakMinutes int) *form {
	in := newInput("Goal: ", "what are you working on?")
	in.CharLimit = 200
	in.SetValue(goal)
	in.CursorEnd()
	in.Focus()
	return &form{
		kind:   modalStart,
		title:  "Start session",
		hint:   fmt.Sprintf("Work %dm · Break %dm   enter start · esc cancel", workMinutes, breakMinutes),
		inputs: []textinput.Model{in},
	}
}

func newConfirmEndForm(penalty, percent int) *form {
	hint := "Ending early forfeits part of this session's XP."
	if penalty > 0 {
		hint = fmt.Sprintf("Ending early costs about %d XP (%d%% of session XP).", penalty, percent)
	}
	return &form{
		kind:  modalConfirmEnd,
		title: "End session early?",
		hint:  hint + "   y confirm · n cancel",
	}
}

func newAPIKeyForm() *form {
	in := newInput("Key: ", "sk-...")
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	in.Focus()
	return &form{
		kind:   modalAPIKey,
		title:  "OpenAI API key",
		hint:   "enter save · esc cancel",
		inputs: []textinput.Model{in},
	}
}

func newXPForm() *form {
	perMinute := newInput("XP per minute:        ", "1")
	perMinute.CharLimit = 4
	perMinute.Focus()
	penalty := newInput("Early end penalty %:  ", "50")
	penalty.CharLimit = 3
	return &form{
		kind:   modalXP,
		title:  "XP settings",
		hint:   "tab next · enter save · esc cancel",
		inputs: []textinput.Model{perMinute, penalty},
	}
}

func newSpeakForm() *form {
	in := newInput("Say: ", "text to speak")
	in.CharLimit = 500
	in.Focus()
	return &form{
		kind:   modalSpeak,
		title:  "Speak",
		hint:   "enter speak · esc cancel",
		inputs: []textinput.Model{in},
	}
}

// setDefaults fills inputs that the user has not edited yet.
func (f *form) setDefaults(values ...string) {
	if f.touched {
		return
	}
	for i, v := range values {
		if i < len(f.inputs) {
			f.inputs[i].SetValue(v)
			f.inputs[i].CursorEnd()
		}
	}
}

func (f *form) value(i int) string {
	if i >= len(f.inputs) {
		return ""
	}
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) update(msg tea.KeyMsg) (formAction, tea.Cmd) {
	if len(f.inputs) == 0 {
		switch msg.String() {
		case "y", "Y", "enter":
			return formSubmit, nil
		case "n", "N", "esc":
			return formCancel, nil
		}
		return formContinue, nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		return formCancel, nil
	case tea.KeyEnter:
		if f.focus < len(f.inputs)-1 {
			f.move(1)
			return formContinue, nil
		}
		return formSubmit, nil
	case tea.KeyTab, tea.KeyDown:
		f.move(1)
		return formContinue, nil
	case tea.KeyShiftTab, tea.KeyUp:
		f.move(-1)
		return formContinue, nil
	}
	f.touched = true
	f.err = ""
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return formContinue, cmd
}

func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n\n")
	for _, in := range f.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString(errorStyle.Render(f.err))
		b.WriteString("\n")
	}
	if len(f.inputs) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(f.hint))
	return modalStyle.Render(b.String())
}

// parseXPForm validates the XP settings inputs.
func parseXPForm(perMinute, penalty string) (int, int, error) {
	xp, err := strconv.Atoi(perMinute)
	if err != nil || xp < 0 {
		return 0, 0, fmt.Errorf("XP per minute must be a whole number ≥ 0")
	}
	pct, err := strconv.Atoi(penalty)
	if err != nil || pct < 0 || pct > 100 {
		return 0, 0, fmt.Errorf("penalty must be between 0 and 100")
	}
	return xp, pct, nil
}
