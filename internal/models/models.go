// package models defines the data model for the song catalog client
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tunz/internal/shared"
)

// Genre is one of the eight catalog genres.
type Genre string

const (
	GenrePop        Genre = "POP"
	GenreRock       Genre = "ROCK"
	GenreHipHop     Genre = "HIPHOP"
	GenreJazz       Genre = "JAZZ"
	GenreClassical  Genre = "CLASSICAL"
	GenreElectronic Genre = "ELECTRONIC"
	GenreCountry    Genre = "COUNTRY"
	GenreOther      Genre = "OTHER"
)

// Genres lists every valid [Genre] in display order.
var Genres = []Genre{
	GenrePop, GenreRock, GenreHipHop, GenreJazz, GenreClassical, GenreElectronic, GenreCountry, GenreOther,
}

// ParseGenre normalizes s (case-insensitive, surrounding space ignored) into a [Genre].
func ParseGenre(s string) (Genre, bool) {
	g := Genre(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Genres {
		if g == known {
			return g, true
		}
	}
	return "", false
}

// SongID identifies a song. The API may encode it as a JSON number or string.
type SongID string

// UnmarshalJSON accepts both 42 and "42".
func (id *SongID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SongID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("song id: %w", err)
	}
	*id = SongID(n.String())
	return nil
}

func (id SongID) String() string { return string(id) }

// Song is a catalog record as returned by the API.
type Song struct {
	ID          SongID     `json:"id"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Album       string     `json:"album"`
	ReleaseYear int        `json:"releaseYear"`
	Genre       Genre      `json:"genre"`
	Duration    int        `json:"duration"` // seconds
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Input returns the editable fields of s as a [SongInput].
func (s Song) Input() SongInput {
	return SongInput{
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		ReleaseYear: s.ReleaseYear,
		Genre:       s.Genre,
		Duration:    s.Duration,
	}
}

// Matches reports whether term appears (case-insensitively) in the title, artist, album or genre.
func (s Song) Matches(term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{s.Title, s.Artist, s.Album, string(s.Genre)} {
		if shared.ContainsFold(field, term) {
			return true
		}
	}
	return false
}

// SongInput is the body of a create or update request.
type SongInput struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseYear int    `json:"releaseYear"`
	Genre       Genre  `json:"genre"`
	Duration    int    `json:"duration"`
}

// Apply returns s with every field replaced by in, keeping the identity and timestamps.
func (in SongInput) Apply(s Song) Song {
	s.Title = in.Title
	s.Artist = in.Artist
	s.Album = in.Album
	s.ReleaseYear = in.ReleaseYear
	s.Genre = in.Genre
	s.Duration = in.Duration
	return s
}

// User is an account identity. Password is only populated on submission.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// Credentials is the login and register payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate rejects empty fields.
func (c Credentials) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, FieldError{Field: "username", Message: "Username is required"})
	}
	if c.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Password is required"})
	}
	return errs.OrNil()
}

// AuthResponse is the result of a login or register call.
type AuthResponse struct {
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}
