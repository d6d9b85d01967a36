package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tunz/internal/formatter"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
)

const (
	DefaultWorkers   = 5
	MaxWorkers       = 10
	DefaultRateLimit = 5.0
)

// SongCreator creates a single song. Implemented by services.SongService.
type SongCreator interface {
	Create(ctx context.Context, in models.SongInput) (*models.Song, error)
}

// ImportOpts tunes the worker pool.
type ImportOpts struct {
	Workers   int     // concurrent create requests
	RateLimit float64 // requests per second across all workers
}

func (o ImportOpts) normalize() ImportOpts {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = DefaultRateLimit
	}
	return o
}

// RowStatus is the outcome of a single import row.
type RowStatus string

const (
	RowCreated RowStatus = "created"
	RowInvalid RowStatus = "invalid"
	RowFailed  RowStatus = "failed"
	RowSkipped RowStatus = "skipped"
)

// RowResult is the outcome of importing one row.
type RowResult struct {
	Line   int
	Title  string
	Status RowStatus
	SongID models.SongID
	Song   *models.Song
	Error  error
}

// ImportResult collects row outcomes in input order.
type ImportResult struct {
	Total   int
	Created int
	Failed  int
	Rows    []RowResult
}

// Songs returns the songs that were created.
func (r *ImportResult) Songs() []models.Song {
	songs := make([]models.Song, 0, r.Created)
	for _, row := range r.Rows {
		if row.Song != nil {
			songs = append(songs, *row.Song)
		}
	}
	return songs
}

// Report converts the result into a serializable report for source.
func (r *ImportResult) Report(source string) formatter.ImportReport {
	report := formatter.ImportReport{
		Source:  source,
		Total:   r.Total,
		Created: r.Created,
		Failed:  r.Failed,
		Rows:    make([]formatter.ImportReportEntry, len(r.Rows)),
	}
	for i, row := range r.Rows {
		entry := formatter.ImportReportEntry{
			Line:   row.Line,
			Title:  row.Title,
			Status: string(row.Status),
			SongID: row.SongID.String(),
		}
		if row.Error != nil {
			entry.Error = row.Error.Error()
		}
		report.Rows[i] = entry
	}
	return report
}

type importJob struct {
	index int
	line  int
	input models.SongInput
}

type jobResult struct {
	index int
	row   RowResult
}

// Importer creates songs in bulk through a [SongCreator].
type Importer struct {
	creator SongCreator
	logger  *log.Logger
	now     func() time.Time
}

// NewImporter creates an Importer. A nil logger discards output.
func NewImporter(creator SongCreator, logger *log.Logger) *Importer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Importer{creator: creator, logger: logger, now: time.Now}
}

// sendProgress sends a progress update through the channel without blocking.
func (im *Importer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Import validates rows and creates the valid ones concurrently.
//
// Partial failures are recorded per row. The returned error is non-nil only when the importer is misconfigured
// or ctx ends before every row was attempted; the partial result is still returned in that case.
func (im *Importer) Import(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	rows []formatter.ImportRow,
	opts ImportOpts,
) (*ImportResult, error) {
	if im.creator == nil {
		return nil, fmt.Errorf("%w: song service not initialized", shared.ErrServiceUnavailable)
	}
	opts = opts.normalize()

	total := len(rows)
	result := &ImportResult{Total: total, Rows: make([]RowResult, total)}

	im.sendProgress(progress, validatingUpdate(total))

	now := im.now()
	jobs := make([]importJob, 0, total)
	step := 0
	for i, row := range rows {
		result.Rows[i] = RowResult{Line: row.Line, Title: row.Form.Title, Status: RowSkipped}
		in, err := row.Form.Validate(now)
		if err != nil {
			step++
			result.Rows[i].Status = RowInvalid
			result.Rows[i].Error = err
			result.Failed++
			im.sendProgress(progress, invalidRowUpdate(step, total, result.Rows[i]))
			continue
		}
		result.Rows[i].Title = in.Title
		jobs = append(jobs, importJob{index: i, line: row.Line, input: in})
	}

	im.logger.Debug("starting import", "rows", total, "valid", len(jobs), "workers", opts.Workers, "rps", opts.RateLimit)

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	queue := make(chan importJob, len(jobs))
	done := make(chan jobResult, len(jobs))

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go im.worker(ctx, &wg, limiter, queue, done)
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	go func() {
		wg.Wait()
		close(done)
	}()

	for jr := range done {
		res := jr.row
		step++
		result.Rows[jr.index] = res
		if res.Status == RowCreated {
			result.Created++
			im.sendProgress(progress, createdUpdate(step, total, res))
			continue
		}
		result.Failed++
		im.sendProgress(progress, createFailedUpdate(step, total, res))
	}

	im.sendProgress(progress, completeUpdate(result))

	if err := ctx.Err(); err != nil && step < total {
		return result, fmt.Errorf("import interrupted after %d of %d rows: %w", step, total, err)
	}
	return result, nil
}

// worker drains queue, waiting on limiter before each create.
func (im *Importer) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	queue <-chan importJob,
	done chan<- jobResult,
) {
	defer wg.Done()

	for job := range queue {
		if ctx.Err() != nil {
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		res := RowResult{Line: job.line, Title: job.input.Title}
		song, err := im.creator.Create(ctx, job.input)
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return
		case err != nil:
			im.logger.Warn("failed to create song", "title", job.input.Title, "error", err)
			res.Status = RowFailed
			res.Error = err
		default:
			res.Status = RowCreated
			res.Song = song
			res.SongID = song.ID
		}
		done <- jobResult{index: job.index, row: res}
	}
}
