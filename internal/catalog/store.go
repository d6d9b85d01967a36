package catalog

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/services"
	"github.com/desertthunder/tunz/internal/shared"
)

// Phase is the status of the last dispatched operation.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// State is a snapshot of the store.
type State struct {
	Songs   []models.Song
	Current *models.Song
	Phase   Phase
	Loading bool
	Err     error
}

// Message is the human-readable form of Err.
func (s State) Message() string {
	return services.ErrorMessage(s.Err)
}

func (s State) clone() State {
	s.Songs = slices.Clone(s.Songs)
	if s.Current != nil {
		c := *s.Current
		s.Current = &c
	}
	return s
}

// Gateway is the subset of [services.SongService] the store drives.
type Gateway interface {
	List(ctx context.Context) ([]models.Song, error)
	Get(ctx context.Context, id models.SongID) (*models.Song, error)
	Create(ctx context.Context, in models.SongInput) (*models.Song, error)
	Update(ctx context.Context, id models.SongID, in models.SongInput) (*models.Song, error)
	Delete(ctx context.Context, id models.SongID) error
}

var _ Gateway = (*services.SongService)(nil)

// Store is the song state container.
type Store struct {
	gateway Gateway
	logger  *log.Logger

	mu      sync.Mutex
	state   State
	seq     uint64
	subs    map[int]func(State)
	nextSub int
}

func NewStore(gateway Gateway, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		gateway: gateway,
		logger:  logger,
		state:   State{Songs: []models.Song{}, Phase: PhaseIdle},
		subs:    map[int]func(State){},
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive the state after every commit.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// FetchAll replaces the collection with the server's.
func (s *Store) FetchAll(ctx context.Context) error {
	seq := s.begin()
	songs, err := s.gateway.List(ctx)
	return s.finish(seq, "fetch all", err, func(st *State) {
		st.Songs = songs
	})
}

// FetchOne loads a single song into Current. A failure leaves Current empty.
func (s *Store) FetchOne(ctx context.Context, id models.SongID) error {
	seq := s.begin()
	song, err := s.gateway.Get(ctx, id)
	if err != nil {
		return s.finish(seq, "fetch one", err, nil, func(st *State) { st.Current = nil })
	}
	return s.finish(seq, "fetch one", nil, func(st *State) {
		st.Current = song
	})
}

// Create stores a new song and appends it to the collection.
func (s *Store) Create(ctx context.Context, in models.SongInput) (*models.Song, error) {
	seq := s.begin()
	song, err := s.gateway.Create(ctx, in)
	err = s.finish(seq, "create", err, func(st *State) {
		st.Songs = append(st.Songs, *song)
	})
	if err != nil {
		return nil, err
	}
	return song, nil
}

// Update replaces song id in the collection and makes it Current.
func (s *Store) Update(ctx context.Context, id models.SongID, in models.SongInput) (*models.Song, error) {
	seq := s.begin()
	song, err := s.gateway.Update(ctx, id, in)
	err = s.finish(seq, "update", err, func(st *State) {
		for i := range st.Songs {
			if st.Songs[i].ID == id {
				st.Songs[i] = *song
			}
		}
		cur := *song
		st.Current = &cur
	})
	if err != nil {
		return nil, err
	}
	return song, nil
}

// Delete removes song id from the collection, clearing Current when it matches.
func (s *Store) Delete(ctx context.Context, id models.SongID) error {
	seq := s.begin()
	err := s.gateway.Delete(ctx, id)
	return s.finish(seq, "delete", err, func(st *State) {
		st.Songs = slices.DeleteFunc(st.Songs, func(song models.Song) bool { return song.ID == id })
		if st.Current != nil && st.Current.ID == id {
			st.Current = nil
		}
	})
}

// SetCurrent selects song without a request.
func (s *Store) SetCurrent(song models.Song) {
	s.commit(func(st *State) { st.Current = &song })
}

// ClearCurrent deselects the current song.
func (s *Store) ClearCurrent() {
	s.commit(func(st *State) { st.Current = nil })
}

// ClearError dismisses the last error.
func (s *Store) ClearError() {
	s.commit(func(st *State) { st.Err = nil })
}

// Reset drops all cached data and supersedes every in-flight dispatch.
func (s *Store) Reset() {
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()
	s.commit(func(st *State) { *st = State{Songs: []models.Song{}, Phase: PhaseIdle} })
}

// Search filters the cached collection by a case-insensitive match on title, artist, album or genre.
func (s *Store) Search(term string) []models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Song, 0, len(s.state.Songs))
	for _, song := range s.state.Songs {
		if song.Matches(term) {
			out = append(out, song)
		}
	}
	return out
}

// Find returns the cached song with id.
func (s *Store) Find(id models.SongID) (models.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, song := range s.state.Songs {
		if song.ID == id {
			return song, true
		}
	}
	return models.Song{}, false
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state.Phase = PhasePending
	s.state.Loading = true
	s.state.Err = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return seq
}

// finish commits the outcome of dispatch seq. onSuccess runs when err is nil; onFailure (optional) when it is not.
func (s *Store) finish(seq uint64, action string, err error, onSuccess func(*State), onFailure ...func(*State)) error {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("dropping stale song result", "action", action, "seq", seq)
		return fmt.Errorf("%w: %s", shared.ErrStaleResult, action)
	}

	s.state.Loading = false
	if err != nil {
		s.state.Phase = PhaseFailed
		s.state.Err = err
		for _, fn := range onFailure {
			fn(&s.state)
		}
	} else {
		s.state.Phase = PhaseSucceeded
		if onSuccess != nil {
			onSuccess(&s.state)
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("song "+action+" failed", "error", err)
	} else {
		s.logger.Debug("song "+action+" succeeded", "count", len(snap.state.Songs))
	}
	s.notify(snap)
	return err
}

func (s *Store) commit(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

type snapshot struct {
	state State
	subs  []func(State)
}

func (s *Store) snapshotLocked() snapshot {
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return snapshot{state: s.state.clone(), subs: fns}
}

func (s *Store) notify(snap snapshot) {
	for _, fn := range snap.subs {
		fn(snap.state.clone())
	}
}
