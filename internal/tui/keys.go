package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Switch  key.Binding
	Submit  key.Binding
	Preset1 key.Binding
	Preset2 key.Binding
	Preset3 key.Binding
	Payment key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "fiat/crypto"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "buy"),
	),
	Preset1: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("f1", "preset 1"),
	),
	Preset2: key.NewBinding(
		key.WithKeys("f2"),
		key.WithHelp("f2", "preset 2"),
	),
	Preset3: key.NewBinding(
		key.WithKeys("f3"),
		key.WithHelp("f3", "preset 3"),
	),
	Payment: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "payment method"),
	),
}

func (k keyMap) presets() []key.Binding {
	return []key.Binding{k.Preset1, k.Preset2, k.Preset3}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Switch, k.Preset1, k.Payment, k.Submit, k.Quit}
}
