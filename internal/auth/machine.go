package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/services"
	"github.com/desertthunder/tunz/internal/session"
	"github.com/desertthunder/tunz/internal/shared"
)

// Phase is the coarse state of the session.
type Phase string

const (
	PhaseAnonymous     Phase = "anonymous"
	PhasePending       Phase = "pending"
	PhaseAuthenticated Phase = "authenticated"
	PhaseError         Phase = "error"
)

// State is a snapshot of the machine.
type State struct {
	Phase   Phase
	User    *models.User
	Token   string // empty until a token is issued or revalidated
	Loading bool
	Err     error
}

// Authenticated reports whether the state carries both a token and a user.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.Token != "" && s.User != nil
}

// Message is the human-readable form of Err.
func (s State) Message() string {
	return services.ErrorMessage(s.Err)
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Gateway is the subset of [services.AuthService] the machine drives.
type Gateway interface {
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	Register(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	WhoAmI(ctx context.Context, token string) (*models.User, error)
}

var _ Gateway = (*services.AuthService)(nil)

// Machine orchestrates session transitions.
type Machine struct {
	gateway Gateway
	session *session.Store
	logger  *log.Logger

	mu       sync.Mutex
	state    State
	seq      uint64
	inflight map[uint64]context.CancelFunc
	subs     map[int]func(State)
	nextSub  int
}

// NewMachine creates a [Machine]. The initial state mirrors the session store: a durable token with a cached user
// starts authenticated, anything else starts anonymous. An unvalidated durable token stays out of the state until
// [Machine.CheckAuth] commits it.
func NewMachine(gateway Gateway, store *session.Store, logger *log.Logger) *Machine {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := &Machine{
		gateway:  gateway,
		session:  store,
		logger:   logger,
		inflight: map[uint64]context.CancelFunc{},
		subs:     map[int]func(State){},
	}

	token := store.Token()
	user := store.User()
	switch {
	case token != "" && user != nil:
		m.state = State{Phase: PhaseAuthenticated, Token: token, User: user}
	default:
		m.state = State{Phase: PhaseAnonymous}
	}
	return m
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to receive the state after every commit. The returned func unregisters it.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Login submits credentials. Invalid credentials are rejected before any state change.
func (m *Machine) Login(ctx context.Context, creds models.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	seq, ctx, done := m.begin(ctx)
	defer done()

	resp, err := m.gateway.Login(ctx, creds)
	return m.resolve(ctx, seq, "login", resp, err)
}

// Register creates an account and signs it in.
func (m *Machine) Register(ctx context.Context, creds models.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	seq, ctx, done := m.begin(ctx)
	defer done()

	resp, err := m.gateway.Register(ctx, creds)
	return m.resolve(ctx, seq, "register", resp, err)
}

// CheckAuth revalidates the durable token.
//
// Without a durable token it fails with [shared.ErrNotAuthenticated] and makes no call. With a cached user it
// succeeds at once. Otherwise the token is sent to WhoAmI; a rejection clears the durable slot.
func (m *Machine) CheckAuth(ctx context.Context) error {
	token := m.session.Token()
	if token == "" {
		m.commit(func(s *State) {
			*s = State{Phase: PhaseAnonymous}
		})
		return shared.ErrNotAuthenticated
	}

	if user := m.session.User(); user != nil {
		m.commit(func(s *State) {
			*s = State{Phase: PhaseAuthenticated, Token: token, User: user}
		})
		return nil
	}

	seq, ctx, done := m.begin(ctx)
	defer done()

	user, err := m.gateway.WhoAmI(ctx, token)

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		m.logger.Debug("dropping stale revalidation", "seq", seq)
		return fmt.Errorf("%w: revalidation", shared.ErrStaleResult)
	}

	if err != nil {
		if clearErr := m.session.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			m.logger.Error("failed to clear session after revalidation failure", "error", clearErr)
		}
		m.state = State{Phase: PhaseError, Err: err}
		snapshot := m.snapshotLocked()
		m.mu.Unlock()

		m.logger.Warn("session revalidation failed", "error", err)
		m.notify(snapshot)
		return err
	}

	current := m.session.Token()
	if current == "" {
		m.state = State{Phase: PhaseAnonymous}
		snapshot := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snapshot)
		return shared.ErrNotAuthenticated
	}

	m.session.SetUser(user)
	m.state = State{Phase: PhaseAuthenticated, Token: current, User: m.session.User()}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session revalidated", "user", user.Username)
	m.notify(snapshot)
	return nil
}

// Logout drops the session at once and cancels every in-flight request.
func (m *Machine) Logout() error {
	m.mu.Lock()
	m.seq++
	for seq, cancel := range m.inflight {
		cancel()
		delete(m.inflight, seq)
	}

	err := m.session.Clear(context.Background())
	m.state = State{Phase: PhaseAnonymous}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("failed to clear session", "error", err)
	} else {
		m.logger.Info("logged out")
	}
	m.notify(snapshot)
	return err
}

// ClearError dismisses the last error without changing the session.
func (m *Machine) ClearError() {
	m.commit(func(s *State) {
		s.Err = nil
		if s.Phase == PhaseError {
			s.Phase = PhaseAnonymous
		}
	})
}

// begin takes the next sequence number and moves to pending.
func (m *Machine) begin(parent context.Context) (uint64, context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.inflight[seq] = cancel
	m.state.Phase = PhasePending
	m.state.Loading = true
	m.state.Err = nil
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)

	return seq, ctx, func() {
		m.mu.Lock()
		delete(m.inflight, seq)
		m.mu.Unlock()
		cancel()
	}
}

// resolve commits a login or register outcome if seq is still current.
func (m *Machine) resolve(ctx context.Context, seq uint64, action string, resp *models.AuthResponse, err error) error {
	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		m.logger.Debug("dropping stale result", "action", action, "seq", seq)
		return fmt.Errorf("%w: %s", shared.ErrStaleResult, action)
	}

	if err == nil && (resp == nil || resp.Token == "" || resp.User == nil) {
		err = fmt.Errorf("%w: %s returned no session", shared.ErrAuthFailed, action)
	}
	if err == nil {
		err = m.session.Persist(context.WithoutCancel(ctx), resp.Token)
	}

	if err != nil {
		m.state = State{Phase: PhaseError, Err: err}
		snapshot := m.snapshotLocked()
		m.mu.Unlock()

		m.logger.Warn(action+" failed", "error", err)
		m.notify(snapshot)
		return err
	}

	m.session.SetUser(resp.User)
	m.state = State{Phase: PhaseAuthenticated, Token: resp.Token, User: m.session.User()}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info(action+" succeeded", "user", resp.User.Username)
	m.notify(snapshot)
	return nil
}

func (m *Machine) commit(mutate func(*State)) {
	m.mu.Lock()
	mutate(&m.state)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snapshot)
}

func (m *Machine) snapshotLocked() snapshot {
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	return snapshot{state: m.state.clone(), subs: fns}
}

type snapshot struct {
	state State
	subs  []func(State)
}

func (m *Machine) notify(s snapshot) {
	for _, fn := range s.subs {
		fn(s.state.clone())
	}
}

// IsStale reports whether err only signals a superseded dispatch.
func IsStale(err error) bool {
	return errors.Is(err, shared.ErrStaleResult)
}
