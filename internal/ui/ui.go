package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunz/internal/auth"
	"github.com/desertthunder/tunz/internal/catalog"
	"github.com/desertthunder/tunz/internal/guard"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/services"
	"github.com/desertthunder/tunz/internal/shared"
)

// Screen represents the current view in the TUI.
type Screen int

const (
	LoginScreen Screen = iota
	RegisterScreen
	SongListScreen
	AddScreen
	EditScreen
	CheckingScreen
	ConfirmDeleteScreen
)

func (s Screen) String() string {
	switch s {
	case LoginScreen:
		return "login"
	case RegisterScreen:
		return "register"
	case SongListScreen:
		return "songs"
	case AddScreen:
		return "add"
	case EditScreen:
		return "edit"
	case CheckingScreen:
		return "checking"
	case ConfirmDeleteScreen:
		return "confirm_delete"
	default:
		return ""
	}
}

// maxHops bounds synchronous redirect chains in [Model.navigate].
const maxHops = 5

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	router *guard.Router
	auth   *auth.Machine
	songs  *catalog.Store
	logger *log.Logger
	now    func() time.Time

	screen   Screen
	path     string
	width    int
	height   int
	songList list.Model
	form     fieldForm
	editing  models.SongID
	deleting *models.Song
	banner   string
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies. A nil logger discards output.
func NewModel(ctx context.Context, router *guard.Router, machine *auth.Machine, songs *catalog.Store, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.warn

	return &Model{
		ctx:      ctx,
		router:   router,
		auth:     machine,
		songs:    songs,
		logger:   logger,
		now:      time.Now,
		screen:   CheckingScreen,
		songList: newSongList(nil, 0, 0),
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Screen reports the active screen.
func (m *Model) Screen() Screen { return m.screen }

// Path reports the route path of the active screen.
func (m *Model) Path() string { return m.path }

// Banner reports the error banner text, or "" when dismissed.
func (m *Model) Banner() string { return m.banner }

// Init resolves the route the session belongs on: the song list when a token is stored, login otherwise.
func (m *Model) Init() tea.Cmd {
	return m.navigate(guard.PathSongs)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.songList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		if m.screen != CheckingScreen {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.abort) {
			return m, tea.Quit
		}
		if m.banner != "" && key.Matches(msg, m.keys.dismiss) {
			m.dismiss()
			return m, nil
		}
		switch m.screen {
		case LoginScreen, RegisterScreen:
			return m.handleCredentialKeys(msg)
		case SongListScreen:
			return m.handleListKeys(msg)
		case AddScreen, EditScreen:
			return m.handleFormKeys(msg)
		case ConfirmDeleteScreen:
			return m.handleConfirmKeys(msg)
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgNavigated:
		nav := msg.data.(navigation)
		if nav.err != nil {
			if errors.Is(nav.err, context.Canceled) {
				return m, nil
			}
			m.logger.Warn("navigation failed", "path", nav.path, "error", nav.err)
			m.banner = services.ErrorMessage(nav.err)
			if m.screen == CheckingScreen {
				return m, m.navigate(guard.PathLogin)
			}
			return m, nil
		}
		return m, m.enter(nav.match)

	case MsgAuthDone:
		err := errOf(msg)
		switch {
		case auth.IsStale(err):
			return m, nil
		case err != nil:
			m.showError(err)
			return m, nil
		}
		m.banner = ""
		return m, m.navigate(guard.PathSongs)

	case MsgSongsLoaded:
		if err := errOf(msg); err != nil && !auth.IsStale(err) {
			m.showError(err)
			return m, m.redirectIfUnauthorized(err)
		}
		m.refreshList()
		return m, nil

	case MsgSongLoaded:
		err := errOf(msg)
		if err != nil {
			if auth.IsStale(err) {
				return m, nil
			}
			m.showError(err)
			if cmd := m.redirectIfUnauthorized(err); cmd != nil {
				return m, cmd
			}
			return m, m.navigate(guard.PathSongs)
		}
		if current := m.songs.State().Current; current != nil && current.ID == m.editing {
			m.form = newSongForm(models.FormFromSong(*current))
		}
		return m, nil

	case MsgSongSaved:
		s := msg.data.(saved)
		if s.err != nil {
			if !auth.IsStale(s.err) {
				m.showError(s.err)
			}
			return m, m.redirectIfUnauthorized(s.err)
		}
		m.banner = ""
		return m, m.navigate(guard.PathSongs)

	case MsgSongDeleted:
		m.deleting = nil
		m.screen = SongListScreen
		if err := errOf(msg); err != nil && !auth.IsStale(err) {
			m.showError(err)
			return m, m.redirectIfUnauthorized(err)
		}
		m.refreshList()
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current screen.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case LoginScreen:
		body = m.renderCredentials("Login", "Don't have an account? ctrl+n to register")
	case RegisterScreen:
		body = m.renderCredentials("Register", "Already registered? ctrl+n to log in")
	case SongListScreen:
		body = m.renderList()
	case AddScreen:
		body = m.renderForm("Add Song")
	case EditScreen:
		body = m.renderForm("Edit Song")
	case CheckingScreen:
		body = fmt.Sprintf("%s Checking authentication...", m.spinner.View())
	case ConfirmDeleteScreen:
		body = m.renderConfirm()
	}

	if m.banner == "" {
		return body
	}
	hint := m.help.ShortHelpView([]key.Binding{m.keys.dismiss})
	return fmt.Sprintf("%s\n%s\n\n%s", styles.banner.Render(m.banner), hint, body)
}

// navigate resolves path through the router. Pending guards park the model on the checking screen while
// revalidation runs in a command.
func (m *Model) navigate(path string) tea.Cmd {
	for range maxHops {
		outcome, err := m.router.Resolve(path)
		if err != nil {
			m.banner = services.ErrorMessage(err)
			return nil
		}

		switch outcome.Decision.Kind {
		case guard.Render:
			return m.enter(outcome.Match)
		case guard.Redirect:
			m.logger.Debug("redirect", "from", path, "to", outcome.Decision.Location)
			path = outcome.Decision.Location
			continue
		}

		m.screen = CheckingScreen
		m.path = path
		target := path
		return tea.Batch(m.spinner.Tick, func() tea.Msg {
			match, err := m.router.Navigate(m.ctx, target)
			return navigatedMsg(target, match, err)
		})
	}
	m.banner = fmt.Sprintf("Too many redirects navigating to %s", path)
	return nil
}

// enter switches to the screen for a rendered route.
func (m *Model) enter(match guard.Match) tea.Cmd {
	m.path = match.Path
	m.deleting = nil

	switch match.Route.Pattern {
	case guard.PathLogin:
		m.screen = LoginScreen
		m.form = newCredentialsForm()
		return nil

	case guard.PathRegister:
		m.screen = RegisterScreen
		m.form = newCredentialsForm()
		return nil

	case guard.PathSongs:
		m.screen = SongListScreen
		m.refreshList()
		return m.fetchSongs()

	case guard.PathAdd:
		m.screen = AddScreen
		m.editing = ""
		m.songs.ClearCurrent()
		m.form = newSongForm(models.NewSongForm(m.now()))
		return nil

	case guard.PathEdit:
		m.screen = EditScreen
		m.editing = models.SongID(match.Param("id"))
		if song, ok := m.songs.Find(m.editing); ok {
			m.songs.SetCurrent(song)
			m.form = newSongForm(models.FormFromSong(song))
			return nil
		}
		m.form = newSongForm(models.SongForm{})
		return m.fetchSong(m.editing)
	}
	return nil
}

func (m *Model) handleCredentialKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.swap):
		if m.screen == LoginScreen {
			return m, m.navigate(guard.PathRegister)
		}
		return m, m.navigate(guard.PathLogin)
	case msg.Type == tea.KeyEnter && !m.form.onLast():
		m.form.next()
		return m, nil
	case msg.Type == tea.KeyEnter, key.Matches(msg, m.keys.submit):
		return m, m.submitCredentials()
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyDown:
		m.form.next()
		return m, nil
	case msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp:
		m.form.prev()
		return m, nil
	}
	return m, m.form.update(msg)
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.songList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.songList, cmd = m.songList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.add):
		return m, m.navigate(guard.PathAdd)
	case key.Matches(msg, m.keys.enter), key.Matches(msg, m.keys.edit):
		if song, ok := m.selected(); ok {
			return m, m.navigate(guard.EditPath(song.ID.String()))
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if song, ok := m.selected(); ok {
			m.deleting = &song
			m.screen = ConfirmDeleteScreen
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchSongs()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, m.navigate(guard.PathSongs)
	case msg.Type == tea.KeyEnter && !m.form.onLast():
		m.form.next()
		return m, nil
	case msg.Type == tea.KeyEnter, key.Matches(msg, m.keys.submit):
		return m, m.submitSong()
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyDown:
		m.form.next()
		return m, nil
	case msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp:
		m.form.prev()
		return m, nil
	}
	return m, m.form.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		if m.deleting == nil {
			m.screen = SongListScreen
			return m, nil
		}
		return m, m.deleteSong(m.deleting.ID)
	case key.Matches(msg, m.keys.no):
		m.deleting = nil
		m.screen = SongListScreen
		return m, nil
	}
	return m, nil
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case SongListScreen:
		m.songList, cmd = m.songList.Update(msg)
	case LoginScreen, RegisterScreen, AddScreen, EditScreen:
		cmd = m.form.update(msg)
	}
	return m, cmd
}

func (m *Model) submitCredentials() tea.Cmd {
	creds := m.form.credentials()
	if err := creds.Validate(); err != nil {
		var verrs models.ValidationErrors
		errors.As(err, &verrs)
		m.form.errs = verrs
		return nil
	}
	m.form.errs = nil

	register := m.screen == RegisterScreen
	return func() tea.Msg {
		if register {
			return authDoneMsg(m.auth.Register(m.ctx, creds))
		}
		return authDoneMsg(m.auth.Login(m.ctx, creds))
	}
}

func (m *Model) submitSong() tea.Cmd {
	in, err := m.form.songForm().Validate(m.now())
	if err != nil {
		var verrs models.ValidationErrors
		errors.As(err, &verrs)
		m.form.errs = verrs
		return nil
	}
	m.form.errs = nil

	if m.screen == EditScreen {
		id := m.editing
		return func() tea.Msg {
			song, err := m.songs.Update(m.ctx, id, in)
			return songSavedMsg(song, err)
		}
	}
	return func() tea.Msg {
		song, err := m.songs.Create(m.ctx, in)
		return songSavedMsg(song, err)
	}
}

func (m *Model) fetchSongs() tea.Cmd {
	return func() tea.Msg {
		return songsLoadedMsg(m.songs.FetchAll(m.ctx))
	}
}

func (m *Model) fetchSong(id models.SongID) tea.Cmd {
	return func() tea.Msg {
		return songLoadedMsg(m.songs.FetchOne(m.ctx, id))
	}
}

func (m *Model) deleteSong(id models.SongID) tea.Cmd {
	return func() tea.Msg {
		return songDeletedMsg(m.songs.Delete(m.ctx, id))
	}
}

func (m *Model) logout() tea.Cmd {
	if err := m.auth.Logout(); err != nil {
		m.showError(err)
	}
	m.songs.Reset()
	m.refreshList()
	return m.navigate(guard.PathLogin)
}

// redirectIfUnauthorized sends the user to login when the backend rejected the token.
func (m *Model) redirectIfUnauthorized(err error) tea.Cmd {
	if !errors.Is(err, shared.ErrUnauthorized) && !errors.Is(err, shared.ErrNotAuthenticated) {
		return nil
	}
	if logoutErr := m.auth.Logout(); logoutErr != nil {
		m.logger.Error("failed to clear rejected session", "error", logoutErr)
	}
	m.songs.Reset()
	return m.navigate(guard.PathLogin)
}

func (m *Model) showError(err error) {
	m.banner = services.ErrorMessage(err)
	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		m.form.errs = verrs
	}
}

func (m *Model) dismiss() {
	m.banner = ""
	m.auth.ClearError()
	m.songs.ClearError()
}

func (m *Model) refreshList() {
	m.songList.SetItems(songItems(m.songs.State().Songs))
}

func (m *Model) selected() (models.Song, bool) {
	item, ok := m.songList.SelectedItem().(songItem)
	if !ok {
		return models.Song{}, false
	}
	return item.song, true
}

func (m *Model) renderCredentials(title, hint string) string {
	helpKeys := []key.Binding{m.keys.next, m.keys.submit, m.keys.swap, m.keys.abort}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s",
		styles.title.Render(title), m.form.view(), styles.help.Render(hint), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderList() string {
	var status string
	if st := m.songs.State(); st.Loading {
		status = styles.warn.Render("Loading songs...") + "\n"
	} else if len(st.Songs) == 0 {
		status = styles.help.Render("No songs yet. Press a to add one.") + "\n"
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.add, m.keys.remove, m.keys.refresh, m.keys.logout, m.keys.quit}
	return fmt.Sprintf("%s%s\n\n%s", status, m.songList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderForm(title string) string {
	helpKeys := []key.Binding{m.keys.next, m.keys.submit, m.keys.back, m.keys.abort}
	var loading string
	if m.songs.State().Loading {
		loading = styles.warn.Render("Saving...") + "\n"
	}
	return fmt.Sprintf("%s\n%s%s\n%s", styles.title.Render(title), loading, m.form.view(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	if m.deleting == nil {
		return ""
	}
	title := styles.title.Render(fmt.Sprintf("Delete '%s'?", m.deleting.Title))
	info := strings.Join([]string{
		fmt.Sprintf("Artist: %s", m.deleting.Artist),
		fmt.Sprintf("Album: %s", m.deleting.Album),
	}, "\n")
	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, m.help.ShortHelpView(helpKeys))
}
