package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunz/internal/formatter"
	"github.com/desertthunder/tunz/internal/guard"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/services"
	"github.com/desertthunder/tunz/internal/shared"
	"github.com/desertthunder/tunz/internal/tasks"
)

// SongsList prints every song, optionally filtered by a search term.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.enter(ctx, guard.PathSongs); err != nil {
		return err
	}

	if err := r.songs.FetchAll(ctx); err != nil {
		return r.songError(err)
	}

	songs := r.songs.Search(cmd.String("search"))
	if cmd.Bool("json") {
		return r.writeJSON(songs, true)
	}
	if len(songs) == 0 {
		return r.writePlain("No songs found\n")
	}
	return formatter.RenderTable(r.output, songs)
}

// SongsShow prints a single song.
func (r *Runner) SongsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := songID(cmd)
	if err != nil {
		return err
	}
	if _, err := r.enter(ctx, guard.EditPath(id.String())); err != nil {
		return err
	}

	if err := r.songs.FetchOne(ctx, id); err != nil {
		return r.songError(err)
	}
	song := r.songs.State().Current

	if cmd.Bool("json") {
		return r.writeJSON(song, true)
	}

	r.writePlainHeader(song.Title)
	r.writePlain("ID:       %s\n", song.ID)
	r.writePlain("Artist:   %s\n", song.Artist)
	r.writePlain("Album:    %s\n", song.Album)
	r.writePlain("Year:     %d\n", song.ReleaseYear)
	r.writePlain("Genre:    %s\n", song.Genre)
	r.writePlain("Duration: %s\n", shared.FormatDuration(song.Duration))
	if song.UpdatedAt != nil {
		r.writePlain("Updated:  %s\n", song.UpdatedAt.Local().Format(time.RFC1123))
	}
	return nil
}

// SongsAdd validates the flags and creates a song.
func (r *Runner) SongsAdd(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.enter(ctx, guard.PathAdd); err != nil {
		return err
	}

	form := applyFlags(cmd, models.NewSongForm(time.Now()))
	in, err := form.Validate(time.Now())
	if err != nil {
		return invalidForm(err)
	}

	song, err := r.songs.Create(ctx, in)
	if err != nil {
		return r.songError(err)
	}

	r.logger.Info("song created", "id", song.ID, "title", song.Title)
	return r.writePlain("✓ Created %s (ID: %s)\n", song.Title, song.ID)
}

// SongsEdit loads a song, overlays the flags that were set and saves it.
func (r *Runner) SongsEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := songID(cmd)
	if err != nil {
		return err
	}
	if _, err := r.enter(ctx, guard.EditPath(id.String())); err != nil {
		return err
	}

	if err := r.songs.FetchOne(ctx, id); err != nil {
		return r.songError(err)
	}
	current := r.songs.State().Current

	form := applyFlags(cmd, models.FormFromSong(*current))
	in, err := form.Validate(time.Now())
	if err != nil {
		return invalidForm(err)
	}

	song, err := r.songs.Update(ctx, id, in)
	if err != nil {
		return r.songError(err)
	}

	r.logger.Info("song updated", "id", song.ID)
	return r.writePlain("✓ Updated %s (ID: %s)\n", song.Title, song.ID)
}

// SongsDelete removes a song after confirmation.
func (r *Runner) SongsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := songID(cmd)
	if err != nil {
		return err
	}
	if _, err := r.enter(ctx, guard.PathSongs); err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		answer, err := r.readLine(fmt.Sprintf("Delete song %s? [y/N] ", id))
		if err != nil {
			return err
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			return r.writePlain("Cancelled\n")
		}
	}

	if err := r.songs.Delete(ctx, id); err != nil {
		return r.songError(err)
	}

	r.logger.Info("song deleted", "id", id)
	return r.writePlain("✓ Deleted song %s\n", id)
}

// SongsExport writes every song in the requested format.
func (r *Runner) SongsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if _, err := r.enter(ctx, guard.PathSongs); err != nil {
		return err
	}

	if err := r.songs.FetchAll(ctx); err != nil {
		return r.songError(err)
	}
	songs := r.songs.State().Songs

	if cmd.Bool("stdout") {
		data, err := formatter.Export(songs, format)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	path, err := formatter.WriteExport(songs, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("songs exported", "format", format, "count", len(songs), "path", path)
	return r.writePlain("✓ Exported %d songs to %s\n", len(songs), path)
}

// SongsImport creates songs from a CSV file with a rate-limited worker pool.
func (r *Runner) SongsImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: CSV path is required", shared.ErrMissingArgument)
	}

	rows, err := formatter.ReadCSVFile(path)
	if err != nil {
		return err
	}
	if _, err := r.enter(ctx, guard.PathAdd); err != nil {
		return err
	}

	opts := tasks.ImportOpts{Workers: r.config.API.Workers, RateLimit: r.config.API.RequestsPerSecond}
	if cmd.IsSet("workers") {
		opts.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("rate") {
		opts.RateLimit = cmd.Float("rate")
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	importer := tasks.NewImporter(r.songsAPI, shared.WithLogger(r.logger, "component", "import"))
	result, err := importer.Import(ctx, progress, rows, opts)
	close(progress)
	<-done
	if result == nil {
		return err
	}

	if refreshErr := r.songs.FetchAll(ctx); refreshErr != nil {
		r.logger.Warn("failed to refresh songs after import", "error", refreshErr)
	}

	if reportPath := cmd.String("report"); reportPath != "" {
		if err := formatter.WriteImportReport(result.Report(path), reportPath); err != nil {
			return err
		}
		r.writePlain("Report written to %s\n", reportPath)
	}

	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d rows failed", shared.ErrInvalidInput, result.Failed, result.Total)
	}
	return nil
}

// applyFlags overlays every song flag that was set onto form.
func applyFlags(cmd *cli.Command, form models.SongForm) models.SongForm {
	set := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	set("title", &form.Title)
	set("artist", &form.Artist)
	set("album", &form.Album)
	set("year", &form.ReleaseYear)
	set("genre", &form.Genre)
	set("duration", &form.Duration)
	return form
}

func songID(cmd *cli.Command) (models.SongID, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", fmt.Errorf("%w: song id must be numeric, got %q", shared.ErrInvalidArgument, id)
	}
	return models.SongID(id), nil
}

func invalidForm(err error) error {
	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		lines := make([]string, len(verrs))
		for i, e := range verrs {
			lines[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
		return fmt.Errorf("%w:\n  %s", shared.ErrValidation, strings.Join(lines, "\n  "))
	}
	return err
}

// songError renders the API failure message while keeping the original error for errors.Is.
func (r *Runner) songError(err error) error {
	return fmt.Errorf("%s: %w", services.ErrorMessage(err), err)
}
