package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tunz/internal/shared"
)

// MinReleaseYear is the oldest release year accepted by the song form.
const MinReleaseYear = 1800

// FieldError is a single form-field validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// ValidationErrors collects every failing field of a form.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match [shared.ErrValidation].
func (v ValidationErrors) Unwrap() error { return shared.ErrValidation }

// Field returns the message for name, or "" when that field passed.
func (v ValidationErrors) Field(name string) string {
	for _, e := range v {
		if e.Field == name {
			return e.Message
		}
	}
	return ""
}

// OrNil returns nil for an empty collection so callers can return it as an error.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// SongForm holds song fields exactly as typed.
type SongForm struct {
	Title       string
	Artist      string
	Album       string
	ReleaseYear string
	Genre       string
	Duration    string
}

// FormFromSong pre-fills a form from an existing record, rendering the duration as m:ss.
func FormFromSong(s Song) SongForm {
	form := SongForm{
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		ReleaseYear: strconv.Itoa(s.ReleaseYear),
		Genre:       string(s.Genre),
	}
	if s.Duration > 0 {
		form.Duration = shared.FormatDuration(s.Duration)
	}
	return form
}

// NewSongForm returns an empty form defaulting to the current year and the first genre.
func NewSongForm(now time.Time) SongForm {
	return SongForm{
		ReleaseYear: strconv.Itoa(now.Year()),
		Genre:       string(Genres[0]),
	}
}

// Validate checks every field against now (for the release year ceiling) and converts the form to a [SongInput].
func (f SongForm) Validate(now time.Time) (SongInput, error) {
	var (
		in   SongInput
		errs ValidationErrors
	)

	required := func(field, value, msg string) string {
		value = strings.TrimSpace(value)
		if value == "" {
			errs = append(errs, FieldError{Field: field, Message: msg})
		}
		return value
	}

	in.Title = required("title", f.Title, "Title is required")
	in.Artist = required("artist", f.Artist, "Artist is required")
	in.Album = required("album", f.Album, "Album is required")

	if year := required("releaseYear", f.ReleaseYear, "Release year is required"); year != "" {
		maxYear := now.Year() + 10
		n, err := strconv.Atoi(year)
		switch {
		case err != nil:
			errs = append(errs, FieldError{Field: "releaseYear", Message: "Release year must be a number"})
		case n < MinReleaseYear:
			errs = append(errs, FieldError{Field: "releaseYear", Message: "Too old"})
		case n > maxYear:
			errs = append(errs, FieldError{Field: "releaseYear", Message: "Too futuristic"})
		default:
			in.ReleaseYear = n
		}
	}

	if strings.TrimSpace(f.Genre) == "" {
		in.Genre = Genres[0]
	} else if g, ok := ParseGenre(f.Genre); ok {
		in.Genre = g
	} else {
		errs = append(errs, FieldError{Field: "genre", Message: fmt.Sprintf("Invalid genre %q", f.Genre)})
	}

	if d := required("duration", f.Duration, "Duration is required"); d != "" {
		seconds, err := shared.ParseDuration(d)
		if err != nil {
			errs = append(errs, FieldError{Field: "duration", Message: "Invalid duration format"})
		} else {
			in.Duration = seconds
		}
	}

	if err := errs.OrNil(); err != nil {
		return SongInput{}, err
	}
	return in, nil
}

// Merge overlays the non-empty fields of patch onto f.
func (f SongForm) Merge(patch SongForm) SongForm {
	pick := func(base, over string) string {
		if over != "" {
			return over
		}
		return base
	}
	return SongForm{
		Title:       pick(f.Title, patch.Title),
		Artist:      pick(f.Artist, patch.Artist),
		Album:       pick(f.Album, patch.Album),
		ReleaseYear: pick(f.ReleaseYear, patch.ReleaseYear),
		Genre:       pick(f.Genre, patch.Genre),
		Duration:    pick(f.Duration, patch.Duration),
	}
}
