package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	next    key.Binding
	prev    key.Binding
	pause   key.Binding
	authors key.Binding
	open    key.Binding
	enter   key.Binding
	back    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		prev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		pause:   key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space/p", "pause")),
		authors: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "authors")),
		open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.prev, k.next, k.pause, k.authors, k.open, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.prev, k.next, k.pause},
		{k.authors, k.open},
		{k.enter, k.back, k.quit},
	}
}
