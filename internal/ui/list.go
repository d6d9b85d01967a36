package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
)

var (
	_ list.Item = songItem{}
)

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string {
	return strings.Join([]string{i.song.Title, i.song.Artist, i.song.Album, string(i.song.Genre)}, " ")
}

func (i songItem) Title() string { return i.song.Title }
func (i songItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.song.Artist, i.song.Album)
	if i.song.ReleaseYear > 0 {
		desc = fmt.Sprintf("%s (%d)", desc, i.song.ReleaseYear)
	}
	return fmt.Sprintf("%s • %s • %s", desc, i.song.Genre, shared.FormatDuration(i.song.Duration))
}

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{song: s}
	}
	return items
}

func newSongList(songs []models.Song, width, height int) list.Model {
	l := list.New(songItems(songs), list.NewDefaultDelegate(), 0, 0)
	l.Title = "Songs"
	l.SetStatusBarItemName("song", "songs")
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	if width > 0 && height > 0 {
		l.SetSize(width-4, height-8)
	}
	return l
}
