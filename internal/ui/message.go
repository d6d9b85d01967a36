package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunz/internal/guard"
	"github.com/desertthunder/tunz/internal/models"
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
	MsgNavigated MsgKind = iota
	MsgAuthDone
	MsgSongsLoaded
	MsgSongLoaded
	MsgSongSaved
	MsgSongDeleted
)

// Kind reports which constructor built m.
func (m Msg) Kind() MsgKind { return m.kind }

type navigation struct {
	path  string
	match guard.Match
	err   error
}

type saved struct {
	song *models.Song
	err  error
}

// navigatedMsg is the constructor for [MsgNavigated]
func navigatedMsg(path string, match guard.Match, err error) Msg {
	return Msg{kind: MsgNavigated, data: navigation{path: path, match: match, err: err}}
}

// authDoneMsg is the constructor for [MsgAuthDone]
func authDoneMsg(err error) Msg {
	return Msg{kind: MsgAuthDone, data: err}
}

// songsLoadedMsg is the constructor for [MsgSongsLoaded]
func songsLoadedMsg(err error) Msg {
	return Msg{kind: MsgSongsLoaded, data: err}
}

// songLoadedMsg is the constructor for [MsgSongLoaded]
func songLoadedMsg(err error) Msg {
	return Msg{kind: MsgSongLoaded, data: err}
}

// songSavedMsg is the constructor for [MsgSongSaved]
func songSavedMsg(song *models.Song, err error) Msg {
	return Msg{kind: MsgSongSaved, data: saved{song: song, err: err}}
}

// songDeletedMsg is the constructor for [MsgSongDeleted]
func songDeletedMsg(err error) Msg {
	return Msg{kind: MsgSongDeleted, data: err}
}

// errOf extracts the error carried by error-only messages.
func errOf(m Msg) error {
	err, _ := m.data.(error)
	return err
}
