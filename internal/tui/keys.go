package tui

import "github.com/charmbracelet/bubbles/key"

// dialKeyMap defines key bindings for the dial screen
type dialKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Switch key.Binding
	Menu   key.Binding
	Choose key.Binding
	Close  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dialKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Switch, k.Menu, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dialKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Switch},
		{k.Menu, k.Choose, k.Close},
		{k.Help, k.Quit},
	}
}

// errorKeyMap defines key bindings for the error screen
type errorKeyMap struct {
	Retry key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k errorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Retry, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k errorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Retry, k.Quit}}
}

func newDialKeyMap() dialKeyMap {
	return dialKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k", "+", "right", "l"),
			key.WithHelp("↑/+", "warmer"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j", "-", "left", "h"),
			key.WithHelp("↓/-", "cooler"),
		),
		Switch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "low/high"),
		),
		Menu: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mode"),
		),
		Choose: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "choose mode"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close menu"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func newErrorKeyMap() errorKeyMap {
	return errorKeyMap{
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
