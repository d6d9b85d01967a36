package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
)

// ImportRow is one data line of an import file, kept as raw form input.
type ImportRow struct {
	Line int
	Form models.SongForm
}

// column aliases, keyed by normalized header
var columnAliases = map[string]string{
	"title":       "title",
	"name":        "title",
	"artist":      "artist",
	"album":       "album",
	"releaseyear": "releaseYear",
	"year":        "releaseYear",
	"genre":       "genre",
	"duration":    "duration",
	"time":        "duration",
	"length":      "duration",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(h)
}

// ParseCSV reads songs from CSV with a header row.
//
// Columns are matched by name in any order; unknown columns (including id) are ignored. The header must name at
// least title, artist and album. Values are not validated here.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV, expected a header row", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := map[string]int{}
	for i, h := range header {
		if field, ok := columnAliases[normalizeHeader(h)]; ok {
			if _, seen := index[field]; !seen {
				index[field] = i
			}
		}
	}

	var missing []string
	for _, required := range []string{"title", "artist", "album"} {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: CSV header is missing %s", shared.ErrInvalidInput, strings.Join(missing, ", "))
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		if blank(record) {
			continue
		}

		get := func(field string) string {
			i, ok := index[field]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, ImportRow{
			Line: line,
			Form: models.SongForm{
				Title:       get("title"),
				Artist:      get("artist"),
				Album:       get("album"),
				ReleaseYear: get("releaseYear"),
				Genre:       get("genre"),
				Duration:    get("duration"),
			},
		})
	}

	return rows, nil
}

// ReadCSVFile opens path and parses it with [ParseCSV].
func ReadCSVFile(path string) ([]ImportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Source  string              `json:"source"`
	Total   int                 `json:"total"`
	Created int                 `json:"created"`
	Failed  int                 `json:"failed"`
	Rows    []ImportReportEntry `json:"rows"`
}

// ImportReportEntry is the outcome of a single row.
type ImportReportEntry struct {
	Line   int    `json:"line"`
	Title  string `json:"title"`
	Status string `json:"status"`
	SongID string `json:"song_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WriteImportReport writes report as indented JSON to path.
func WriteImportReport(report ImportReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal import report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write import report: %w", err)
	}
	return nil
}
