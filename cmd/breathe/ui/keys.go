package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start        key.Binding
	Pause        key.Binding
	Focus        key.Binding
	NextTech     key.Binding
	PrevTech     key.Binding
	Ambient      key.Binding
	VolumeUp     key.Binding
	VolumeDown   key.Binding
	Instructions key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start:        key.NewBinding(key.WithKeys("enter", "s"), key.WithHelp("enter", "start/stop")),
		Pause:        key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
		Focus:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
		NextTech:     key.NewBinding(key.WithKeys("right", "l", "t"), key.WithHelp("→", "technique")),
		PrevTech:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "technique")),
		Ambient:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "ambient")),
		VolumeUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		VolumeDown:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "quieter")),
		Instructions: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "instructions")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Focus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Focus},
		{k.PrevTech, k.NextTech, k.Instructions},
		{k.Ambient, k.VolumeUp, k.VolumeDown},
		{k.Help, k.Quit},
	}
}
