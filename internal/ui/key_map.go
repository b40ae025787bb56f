package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the presenter.
type keyMap struct {
	next     key.Binding
	prev     key.Binding
	first    key.Binding
	last     key.Binding
	overview key.Binding
	enter    key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:     key.NewBinding(key.WithKeys("right", " ", "l", "pgdown"), key.WithHelp("→/space", "next")),
		prev:     key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←", "previous")),
		first:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "first")),
		last:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "last")),
		overview: key.NewBinding(key.WithKeys("o", "tab"), key.WithHelp("o", "overview")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "go to slide")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "exit")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.prev, k.overview, k.back}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.prev, k.first, k.last},
		{k.overview, k.enter, k.back, k.quit},
	}
}
