package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunz/internal/auth"
	"github.com/desertthunder/tunz/internal/catalog"
	"github.com/desertthunder/tunz/internal/guard"
	"github.com/desertthunder/tunz/internal/repositories"
	"github.com/desertthunder/tunz/internal/services"
	"github.com/desertthunder/tunz/internal/session"
	"github.com/desertthunder/tunz/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session and everything that depends on it are opened lazily, so that setup commands work before a database
// or config exists.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	reader     *bufio.Reader

	slot    session.Slot
	closers []func() error

	session  *session.Store
	api      *services.APIService
	authAPI  *services.APIService
	songsAPI *services.SongService
	machine  *auth.Machine
	songs    *catalog.Store
	router   *guard.Router
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client // client for unauthenticated calls; defaults to one honoring api.timeout_seconds
	Slot       session.Slot // overrides the configured session backend
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = services.NewHTTPClient(opts.Config.API.Timeout(), nil)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		slot:       opts.Slot,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		reader:     bufio.NewReader(opts.Input),
	}
}

// SetLogger replaces the logger of the runner and of any service already built from it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	if r.api != nil {
		r.api.WithLogger(shared.WithLogger(l, "component", "api"))
	}
	if r.authAPI != nil {
		r.authAPI.WithLogger(shared.WithLogger(l, "component", "api"))
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, songsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open builds the session stack on first use.
func (r *Runner) open(ctx context.Context) error {
	if r.session != nil {
		return nil
	}

	if r.slot == nil {
		slot, closer, err := r.openSlot()
		if err != nil {
			return err
		}
		r.slot = slot
		if closer != nil {
			r.closers = append(r.closers, closer)
		}
	}

	r.session = session.NewStore(r.slot, shared.WithLogger(r.logger, "component", "session"))

	apiLogger := shared.WithLogger(r.logger, "component", "api")
	r.authAPI = services.NewAPIService(r.config.API.BaseURL, r.httpClient).WithLogger(apiLogger)
	r.api = services.NewAPIService(
		r.config.API.BaseURL,
		services.NewHTTPClient(r.config.API.Timeout(), r.session.TokenSource()),
	).WithLogger(apiLogger)
	r.songsAPI = services.NewSongService(r.api)

	r.machine = auth.NewMachine(services.NewAuthService(r.authAPI), r.session, shared.WithLogger(r.logger, "component", "auth"))
	r.songs = catalog.NewStore(r.songsAPI, shared.WithLogger(r.logger, "component", "catalog"))
	r.router = guard.NewRouter(r.session, guard.NewAuthenticatedOnly(r.session, r.machine))

	r.logger.Debug("session opened", "backend", r.backendName(), "base_url", r.api.BaseURL())
	return nil
}

// openSlot opens the configured durable session backend.
func (r *Runner) openSlot() (session.Slot, func() error, error) {
	switch r.config.Session.Backend {
	case shared.BackendSQLite, "":
		db, err := shared.OpenMigrated(r.config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return repositories.NewSlotRepository(db, repositories.DefaultSlotKey), db.Close, nil

	case shared.BackendBolt:
		path, err := r.config.Session.SlotPath()
		if err != nil {
			return nil, nil, err
		}
		slot, err := session.OpenBoltSlot(path)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot.Close, nil

	case shared.BackendFile:
		path, err := r.config.Session.SlotPath()
		if err != nil {
			return nil, nil, err
		}
		return session.NewFileSlot(path), nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", shared.ErrUnknownBackend, r.config.Session.Backend)
	}
}

func (r *Runner) backendName() string {
	switch r.slot.(type) {
	case *repositories.SlotRepository:
		return shared.BackendSQLite
	case *session.BoltSlot:
		return shared.BackendBolt
	case *session.FileSlot:
		return shared.BackendFile
	case *session.MemorySlot:
		return "memory"
	default:
		return fmt.Sprintf("%T", r.slot)
	}
}

// Close releases the session backend.
func (r *Runner) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// enter navigates to path through the route guards and fails unless path itself renders.
//
// Anonymous-only routes fail with [shared.ErrAlreadyLoggedIn]; protected routes fail with
// [shared.ErrNotAuthenticated], or with the revalidation error when the stored token was rejected.
func (r *Runner) enter(ctx context.Context, path string) (guard.Match, error) {
	if err := r.open(ctx); err != nil {
		return guard.Match{}, err
	}

	want, err := r.router.Match(path)
	if err != nil {
		return guard.Match{}, err
	}

	got, err := r.router.Navigate(ctx, path)
	if err != nil {
		return guard.Match{}, err
	}
	if got.Route.Pattern == want.Route.Pattern {
		return want, nil
	}

	if want.Route.Access == guard.AccessAnonymous {
		return got, fmt.Errorf("%w: run 'tunz auth logout' first", shared.ErrAlreadyLoggedIn)
	}
	if err := r.machine.State().Err; err != nil {
		return got, fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, services.ErrorMessage(err))
	}
	return got, fmt.Errorf("%w: run 'tunz auth login' first", shared.ErrNotAuthenticated)
}

// slotEntry returns bookkeeping for the sqlite backend, or nil for other backends.
func (r *Runner) slotEntry(ctx context.Context) (*repositories.SlotEntry, error) {
	repo, ok := r.slot.(*repositories.SlotRepository)
	if !ok {
		return nil, nil
	}
	return repo.Entry(ctx)
}

// database returns a migrated connection for the setup commands.
func (r *Runner) database() (*sql.DB, error) {
	return shared.OpenMigrated(r.config.Database)
}

func (r *Runner) readLine(prompt string) (string, error) {
	if prompt != "" {
		if err := r.writePlain("%s", prompt); err != nil {
			return "", err
		}
	}
	line, err := r.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: failed to read input: %v", shared.ErrInvalidInput, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
