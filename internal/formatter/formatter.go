// package formatter provides functions to export song data to various formats (CSV, Markdown, plain text, JSON)
// and to read songs back from CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ParseFormat accepts a format name or a common alias (markdown, text).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (expected csv, md, txt or json)", shared.ErrInvalidFlag, s)
}

// CSVHeaders are the columns written by [ExportToCSV] and understood by [ParseCSV].
var CSVHeaders = []string{"id", "title", "artist", "album", "release_year", "genre", "duration"}

// ExportToCSV converts songs to CSV. Durations are written as m:ss.
func ExportToCSV(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{
			song.ID.String(),
			song.Title,
			song.Artist,
			song.Album,
			strconv.Itoa(song.ReleaseYear),
			string(song.Genre),
			shared.FormatDuration(song.Duration),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts songs to a Markdown document with a summary and one line per song.
func ExportToMarkdown(songs []models.Song, title string) ([]byte, error) {
	if title == "" {
		title = "Songs"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Songs**: %d\n", len(songs))
	fmt.Fprintf(&buf, "**Total time**: %s\n\n", shared.FormatDuration(totalDuration(songs)))

	buf.WriteString("## Tracks\n\n")
	for i, song := range songs {
		albumPart := ""
		if song.Album != "" {
			albumPart = fmt.Sprintf(" (%s, %d)", song.Album, song.ReleaseYear)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s] `%s`\n", i+1, song.Artist, song.Title, albumPart, shared.FormatDuration(song.Duration), song.Genre)
	}

	return buf.Bytes(), nil
}

// ExportToText converts songs to plain text.
func ExportToText(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Songs: %d\n\n", len(songs))
	for i, song := range songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.Artist, song.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts songs to indented JSON in the API's shape.
func ExportToJSON(songs []models.Song) ([]byte, error) {
	if songs == nil {
		songs = []models.Song{}
	}
	data, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal songs: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders songs in format.
func Export(songs []models.Song, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(songs)
	case FormatMarkdown:
		return ExportToMarkdown(songs, "")
	case FormatText:
		return ExportToText(songs)
	case FormatJSON:
		return ExportToJSON(songs)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
}

// WriteExport writes songs to path in format.
//
// Defaults to songs.{format} in the working directory.
func WriteExport(songs []models.Song, format Format, path string) (string, error) {
	if path == "" {
		path = "songs." + string(format)
	}

	data, err := Export(songs, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// RenderTable writes songs as a bordered terminal table.
func RenderTable(w io.Writer, songs []models.Song) error {
	rows := make([][]string, 0, len(songs))
	for _, song := range songs {
		rows = append(rows, []string{
			song.ID.String(),
			song.Title,
			song.Artist,
			song.Album,
			strconv.Itoa(song.ReleaseYear),
			string(song.Genre),
			shared.FormatDuration(song.Duration),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "ARTIST", "ALBUM", "YEAR", "GENRE", "TIME").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

func totalDuration(songs []models.Song) int {
	total := 0
	for _, s := range songs {
		total += s.Duration
	}
	return total
}
