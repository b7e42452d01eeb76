package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sunnify/internal/tasks"
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
	MsgSessionUpdate MsgKind = iota
	MsgProcessDone
	MsgLinkOpened
)

// sessionUpdateMsg is the constructor for [MsgSessionUpdate]
func sessionUpdateMsg(update tasks.Update) Msg {
	return Msg{kind: MsgSessionUpdate, data: update}
}

// processDone reports the end of one submission.
type processDone struct {
	attempt int
	err     error
}

// processDoneMsg is the constructor for [MsgProcessDone]
func processDoneMsg(attempt int, err error) Msg {
	return Msg{kind: MsgProcessDone, data: processDone{attempt: attempt, err: err}}
}

// linkOpenedMsg is the constructor for [MsgLinkOpened]
func linkOpenedMsg(url string, err error) Msg {
	return Msg{
		kind: MsgLinkOpened,
		data: struct {
			url string
			err error
		}{url, err},
	}
}
