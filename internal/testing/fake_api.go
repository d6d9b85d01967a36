package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tunz/internal/models"
)

// FakeAPI is an in-process stand-in for the songs backend.
//
// It mirrors the backend's wire shapes: login returns only {token}, register returns only {message}, /auth/me returns
// {username}, song ids are JSON numbers, and errors are {"error": "..."} or a field→message map for validation.
type FakeAPI struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]string
	tokens    map[string]string
	songs     map[int64]fakeSong
	nextID    int64
	nextToken int
	failures  map[string]fakeFailure
	holds     map[string]*hold
	requests  []string
}

type fakeSong struct {
	ID int64 `json:"id"`
	models.SongInput
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s fakeSong) model() models.Song {
	created, updated := s.CreatedAt, s.UpdatedAt
	song := s.Apply(models.Song{ID: models.SongID(strconv.FormatInt(s.ID, 10))})
	song.CreatedAt = &created
	song.UpdatedAt = &updated
	return song
}

type fakeFailure struct {
	status int
	body   string
}

type hold struct {
	ch   chan struct{}
	once sync.Once
}

// NewFakeAPI starts a fake backend that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:    map[string]string{},
		tokens:   map[string]string{},
		songs:    map[int64]fakeSong{},
		failures: map[string]fakeFailure{},
		holds:    map[string]*hold{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", f.register)
	mux.HandleFunc("POST /auth/login", f.login)
	mux.HandleFunc("GET /auth/me", f.authed(f.me))
	mux.HandleFunc("GET /api/songs", f.authed(f.listSongs))
	mux.HandleFunc("POST /api/songs", f.authed(f.createSong))
	mux.HandleFunc("GET /api/songs/{id}", f.authed(f.getSong))
	mux.HandleFunc("PUT /api/songs/{id}", f.authed(f.updateSong))
	mux.HandleFunc("DELETE /api/songs/{id}", f.authed(f.deleteSong))

	f.Server = httptest.NewServer(f.intercept(mux))
	t.Cleanup(f.Close)
	return f
}

// Close releases any held requests and shuts the server down.
func (f *FakeAPI) Close() {
	f.mu.Lock()
	for _, h := range f.holds {
		h.once.Do(func() { close(h.ch) })
	}
	f.mu.Unlock()
	f.Server.Close()
}

// AddUser registers an account directly.
func (f *FakeAPI) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// IssueToken mints a valid token for username without a login round trip.
func (f *FakeAPI) IssueToken(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(username)
}

// RevokeToken makes token unknown to the server.
func (f *FakeAPI) RevokeToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

// SeedSongs stores the given songs with fresh ids and returns them as the API would.
func (f *FakeAPI) SeedSongs(inputs ...models.SongInput) []models.Song {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Song, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, f.insertLocked(in).model())
	}
	return out
}

// Songs returns the server-side collection ordered by id.
func (f *FakeAPI) Songs() []models.Song {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int64, 0, len(f.songs))
	for id := range f.songs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.Song, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.songs[id].model())
	}
	return out
}

// Fail makes every request to "METHOD path" answer with status and body.
func (f *FakeAPI) Fail(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = fakeFailure{status: status, body: body}
}

// Hold blocks requests to "METHOD path" until the returned release func is called.
func (f *FakeAPI) Hold(method, path string) (release func()) {
	h := &hold{ch: make(chan struct{})}

	f.mu.Lock()
	f.holds[method+" "+path] = h
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.holds, method+" "+path)
		f.mu.Unlock()
		h.once.Do(func() { close(h.ch) })
	}
}

// Requests returns every "METHOD path" received, in order.
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// RequestCount reports how many requests matched "METHOD path".
func (f *FakeAPI) RequestCount(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

func (f *FakeAPI) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.requests = append(f.requests, key)
		failure, failing := f.failures[key]
		h := f.holds[key]
		f.mu.Unlock()

		if h != nil {
			select {
			case <-h.ch:
			case <-r.Context().Done():
				return
			}
		}

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failure.status)
			fmt.Fprint(w, failure.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) authed(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		username, known := f.tokens[token]
		f.mu.Unlock()

		if !ok || !known {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r, username)
	}
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed JSON request"})
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"username": "must not be blank"})
		return
	}

	f.mu.Lock()
	_, exists := f.users[creds.Username]
	if !exists {
		f.users[creds.Username] = creds.Password
	}
	f.mu.Unlock()

	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Username already exists"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed JSON request"})
		return
	}

	f.mu.Lock()
	password, ok := f.users[creds.Username]
	var token string
	if ok && password == creds.Password {
		token = f.issueLocked(creds.Username)
	}
	f.mu.Unlock()

	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (f *FakeAPI) me(w http.ResponseWriter, _ *http.Request, username string) {
	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

func (f *FakeAPI) listSongs(w http.ResponseWriter, _ *http.Request, _ string) {
	f.mu.Lock()
	songs := make([]fakeSong, 0, len(f.songs))
	for _, s := range f.songs {
		songs = append(songs, s)
	}
	f.mu.Unlock()

	sort.Slice(songs, func(i, j int) bool { return songs[i].ID < songs[j].ID })
	writeJSON(w, http.StatusOK, songs)
}

func (f *FakeAPI) createSong(w http.ResponseWriter, r *http.Request, _ string) {
	in, ok := decodeSongInput(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	song := f.insertLocked(in)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, song)
}

func (f *FakeAPI) getSong(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := parseSongID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	song, found := f.songs[id]
	f.mu.Unlock()

	if !found {
		writeNotFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (f *FakeAPI) updateSong(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := parseSongID(w, r)
	if !ok {
		return
	}
	in, ok := decodeSongInput(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	song, found := f.songs[id]
	if found {
		song.SongInput = in
		song.UpdatedAt = time.Now().UTC()
		f.songs[id] = song
	}
	f.mu.Unlock()

	if !found {
		writeNotFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (f *FakeAPI) deleteSong(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := parseSongID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	_, found := f.songs[id]
	delete(f.songs, id)
	f.mu.Unlock()

	if !found {
		writeNotFound(w, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) issueLocked(username string) string {
	f.nextToken++
	token := fmt.Sprintf("token-%d-%s", f.nextToken, username)
	f.tokens[token] = username
	return token
}

func (f *FakeAPI) insertLocked(in models.SongInput) fakeSong {
	f.nextID++
	now := time.Now().UTC()
	song := fakeSong{ID: f.nextID, SongInput: in, CreatedAt: now, UpdatedAt: now}
	f.songs[song.ID] = song
	return song
}

func decodeSongInput(w http.ResponseWriter, r *http.Request) (models.SongInput, bool) {
	var in models.SongInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed JSON request"})
		return in, false
	}
	if strings.TrimSpace(in.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"title": "Title is required"})
		return in, false
	}
	return in, true
}

func parseSongID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid song id"})
		return 0, false
	}
	return id, true
}

func writeNotFound(w http.ResponseWriter, id int64) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("Song not found with id: %d", id)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
