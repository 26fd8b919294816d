package historyui

import "github.com/charmbracelet/bubbles/key"

type browseKeys struct {
	PrevTab    key.Binding
	NextTab    key.Binding
	WiderAvg   key.Binding
	NarrowAvg  key.Binding
	Filter     key.Binding
	Open       key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Scroll     key.Binding
	Quit       key.Binding
	sessionTab bool
}

func defaultBrowseKeys() browseKeys {
	return browseKeys{
		PrevTab:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "tabs")),
		NextTab:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("←/→", "tabs")),
		WiderAvg:  key.NewBinding(key.WithKeys("=", "+"), key.WithHelp("-/=", "window")),
		NarrowAvg: key.NewBinding(key.WithKeys("-"), key.WithHelp("-/=", "window")),
		Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filters")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "judgments")),
		Top:       key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g/G", "top/bottom")),
		Bottom:    key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("g/G", "top/bottom")),
		Scroll:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "scroll")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k browseKeys) ShortHelp() []key.Binding {
	if k.sessionTab {
		return []key.Binding{k.NextTab, k.Scroll, k.Open, k.Filter, k.Quit}
	}
	return []key.Binding{k.NextTab, k.Scroll, k.WiderAvg, k.Top, k.Filter, k.Quit}
}

func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type filterKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Apply  key.Binding
	Cancel key.Binding
}

func defaultFilterKeys() filterKeys {
	return filterKeys{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Apply:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (k filterKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Apply, k.Cancel}
}

func (k filterKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
