package ui

import tea "github.com/charmbracelet/bubbletea"

// MsgKind enumerates the presenter's own messages.
type MsgKind int

// Msg is the presenter's message union.
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgSlideShown MsgKind = iota
)

// slideShown carries the result of pushing a slide to the display.
type slideShown struct {
	cursor int
	err    error
}

// slideShownMsg is the constructor for [MsgSlideShown]
func slideShownMsg(cursor int, err error) Msg {
	return Msg{kind: MsgSlideShown, data: slideShown{cursor: cursor, err: err}}
}
