package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
	th "github.com/desertthunder/tunz/internal/testing"
)

var songs = []models.Song{
	{ID: "1", Title: "Song One", Artist: "Artist One", Album: "Album One", ReleaseYear: 1999, Genre: models.GenreRock, Duration: 180},
	{ID: "2", Title: "Song, Two", Artist: "Artist Two", Album: "", ReleaseYear: 2005, Genre: models.GenrePop, Duration: 245},
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(songs)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.HasPrefix(output, "id,title,artist,album,release_year,genre,duration\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,Song One,Artist One,Album One,1999,ROCK,3:00") {
			t.Errorf("CSV missing first song, got: %s", output)
		}
		if !strings.Contains(output, `2,"Song, Two",Artist Two,,2005,POP,4:05`) {
			t.Errorf("CSV did not quote the comma in a title, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("default title", func(t *testing.T) {
			data, err := ExportToMarkdown(songs, "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)

			if !strings.Contains(output, "# Songs") {
				t.Errorf("Markdown missing title")
			}
			if !strings.Contains(output, "**Songs**: 2") {
				t.Errorf("Markdown missing song count")
			}
			if !strings.Contains(output, "**Total time**: 7:05") {
				t.Errorf("Markdown missing total time, got: %s", output)
			}
			if !strings.Contains(output, "1. Artist One - Song One (Album One, 1999) [3:00] `ROCK`") {
				t.Errorf("Markdown missing song1, got: %s", output)
			}
			if !strings.Contains(output, "2. Artist Two - Song, Two [4:05] `POP`") {
				t.Errorf("Markdown missing song2 (no album), got: %s", output)
			}
		})

		t.Run("custom title", func(t *testing.T) {
			data, _ := ExportToMarkdown(nil, "My Library")
			if !strings.Contains(string(data), "# My Library") {
				t.Errorf("Markdown missing custom title")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(songs)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Songs: 2") {
			t.Errorf("Text missing song count")
		}
		if !strings.Contains(output, "1. Artist One - Song One") {
			t.Errorf("Text missing song1")
		}
		if !strings.Contains(output, "2. Artist Two - Song, Two") {
			t.Errorf("Text missing song2")
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(nil)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %s", data)
		}

		data, err = ExportToJSON(songs)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		var decoded []models.Song
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("failed to decode export: %v", err)
		}
		if len(decoded) != 2 || decoded[1].Title != "Song, Two" {
			t.Errorf("unexpected decoded songs: %+v", decoded)
		}
	})

	t.Run("RenderTable", func(t *testing.T) {
		var buf bytes.Buffer
		if err := RenderTable(&buf, songs); err != nil {
			t.Fatalf("RenderTable failed: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"TITLE", "Song One", "Artist Two", "4:05", "ROCK"} {
			if !strings.Contains(output, want) {
				t.Errorf("table missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("RenderTable Write Failure", func(t *testing.T) {
		if err := RenderTable(&th.FWriter{}, songs); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"csv": FormatCSV, "MD": FormatMarkdown, "markdown": FormatMarkdown, "text": FormatText, "txt": FormatText, " json ": FormatJSON}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		for _, format := range Formats {
			path, err := WriteExport(songs, format, "")
			if err != nil {
				t.Fatalf("WriteExport(%s) failed: %v", format, err)
			}
			if path != "songs."+string(format) {
				t.Errorf("expected default path songs.%s, got %s", format, path)
			}
			th.AssertFileExists(t, path)
		}
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "library.csv")

		got, err := WriteExport(songs, FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if !strings.Contains(th.MustReadFile(t, path), "Song One") {
			t.Error("export missing song data")
		}
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		_, err := WriteExport(songs, FormatText, filepath.Join(t.TempDir(), "missing", "dir", "out.txt"))
		if err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		if _, err := WriteExport(songs, Format("xml"), filepath.Join(t.TempDir(), "x")); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}
