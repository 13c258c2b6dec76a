package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/storyx/internal/playback"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgBrowserOpened
)

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(snap playback.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: snap}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(url string, err error) Msg {
	return Msg{
		kind: MsgBrowserOpened,
		data: struct {
			url string
			err error
		}{url, err},
	}
}
