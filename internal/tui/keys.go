package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Focus  key.Binding
	Remove key.Binding
	Open   key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "pin"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch panel"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete", "backspace"),
			key.WithHelp("x", "unpin"),
		),
		Open: key.NewBinding(
			key.WithKeys("o", "ctrl+o"),
			key.WithHelp("o", "open"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// searchKeys lists the bindings active while the input has focus.
type searchKeys keyMap

func (k searchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Focus, k.Clear, k.Quit}
}

func (k searchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// panelKeys lists the bindings active while the pinned panel has focus.
type panelKeys keyMap

func (k panelKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Remove, k.Open, k.Focus, k.Quit}
}

func (k panelKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
