package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start       key.Binding
	End         key.Binding
	EndEarly    key.Binding
	Pause       key.Binding
	SkipBreak   key.Binding
	Screen      key.Binding
	APIKey      key.Binding
	XPSettings  key.Binding
	Speak       key.Binding
	Hush        key.Binding
	Refresh     key.Binding
	Personality key.Binding
	WorkUp      key.Binding
	WorkDown    key.Binding
	BreakUp     key.Binding
	BreakDown   key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Start:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		End:         key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end")),
		EndEarly:    key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "end early")),
		Pause:       key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		SkipBreak:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "skip break")),
		Screen:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "screen monitor")),
		APIKey:      key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "openai key")),
		XPSettings:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "xp settings")),
		Speak:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "speak")),
		Hush:        key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "stop speaking")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Personality: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "personality")),
		WorkUp:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "work minutes")),
		WorkDown:    key.NewBinding(key.WithKeys("-"), key.WithHelp("+/-", "work minutes")),
		BreakUp:     key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "break minutes")),
		BreakDown:   key.NewBinding(key.WithKeys("["), key.WithHelp("[/]", "break minutes")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.End, k.Pause, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.End, k.EndEarly, k.Pause, k.SkipBreak},
		{k.WorkUp, k.BreakUp, k.Screen, k.APIKey, k.XPSettings},
		{k.Speak, k.Hush, k.Personality, k.Refresh},
		{k.Help, k.Quit},
	}
}
