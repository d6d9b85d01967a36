package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunz/internal/models"
)

type formField struct {
	name  string
	label string
	input textinput.Model
}

// fieldForm is a vertical stack of text inputs with one focused field.
type fieldForm struct {
	fields []formField
	focus  int
	errs   models.ValidationErrors
}

func newField(name, label, placeholder string) formField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.Width = 40
	return formField{name: name, label: label, input: in}
}

func newFieldForm(fields ...formField) fieldForm {
	f := fieldForm{fields: fields}
	f.setFocus(0)
	return f
}

func newCredentialsForm() fieldForm {
	password := newField("password", "Password", "password")
	password.input.EchoMode = textinput.EchoPassword
	password.input.EchoCharacter = '•'
	return newFieldForm(newField("username", "Username", "username"), password)
}

func newSongForm(form models.SongForm) fieldForm {
	f := newFieldForm(
		newField("title", "Title", "Blue in Green"),
		newField("artist", "Artist", "Miles Davis"),
		newField("album", "Album", "Kind of Blue"),
		newField("releaseYear", "Release year", "1959"),
		newField("genre", "Genre", "POP, ROCK, HIPHOP, JAZZ, CLASSICAL, ELECTRONIC, COUNTRY, OTHER"),
		newField("duration", "Duration", "m:ss or seconds"),
	)
	f.set("title", form.Title)
	f.set("artist", form.Artist)
	f.set("album", form.Album)
	f.set("releaseYear", form.ReleaseYear)
	f.set("genre", form.Genre)
	f.set("duration", form.Duration)
	return f
}

func (f *fieldForm) setFocus(i int) {
	if len(f.fields) == 0 {
		return
	}
	i = (i + len(f.fields)) % len(f.fields)
	for j := range f.fields {
		if j == i {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	f.focus = i
}

func (f *fieldForm) next() { f.setFocus(f.focus + 1) }
func (f *fieldForm) prev() { f.setFocus(f.focus - 1) }

func (f fieldForm) onLast() bool { return f.focus == len(f.fields)-1 }

func (f fieldForm) value(name string) string {
	for _, field := range f.fields {
		if field.name == name {
			return field.input.Value()
		}
	}
	return ""
}

func (f *fieldForm) set(name, value string) {
	for i := range f.fields {
		if f.fields[i].name == name {
			f.fields[i].input.SetValue(value)
		}
	}
}

func (f fieldForm) credentials() models.Credentials {
	return models.Credentials{
		Username: strings.TrimSpace(f.value("username")),
		Password: f.value("password"),
	}
}

func (f fieldForm) songForm() models.SongForm {
	return models.SongForm{
		Title:       f.value("title"),
		Artist:      f.value("artist"),
		Album:       f.value("album"),
		ReleaseYear: f.value("releaseYear"),
		Genre:       f.value("genre"),
		Duration:    f.value("duration"),
	}
}

// update forwards msg to the focused input.
func (f *fieldForm) update(msg tea.Msg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f fieldForm) view() string {
	var b strings.Builder
	for i, field := range f.fields {
		marker := "  "
		if i == f.focus {
			marker = "> "
		}
		b.WriteString(marker + styles.label.Render(field.label) + "\n")
		b.WriteString("  " + field.input.View() + "\n")
		if msg := f.errs.Field(field.name); msg != "" {
			b.WriteString("  " + styles.err.Render(msg) + "\n")
		}
	}
	return b.String()
}
