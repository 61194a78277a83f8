package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit       key.Binding
	ModeFull   key.Binding
	ModeGrid   key.Binding
	ModeComp   key.Binding
	ModeFocus  key.Binding
	ModeAdapt  key.Binding
	NextPanel  key.Binding
	ForceFresh key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ModeFull: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "full layout"),
		),
		ModeGrid: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "grid layout"),
		),
		ModeComp: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "compact layout"),
		),
		ModeFocus: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "focused layout"),
		),
		ModeAdapt: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "adaptive layout"),
		),
		NextPanel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next focused panel"),
		),
		ForceFresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}
