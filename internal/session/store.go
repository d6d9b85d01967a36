package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Store mediates every read and write of the session.
//
// The token lives in the durable [Slot]; the user is held in memory only and is dropped on [Store.Clear].
type Store struct {
	slot   Slot
	logger *log.Logger

	mu   sync.RWMutex
	user *models.User
}

// NewStore creates a [Store] over slot. A nil logger falls back to stderr.
func NewStore(slot Slot, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{slot: slot, logger: logger}
}

// Token re-reads the durable slot. Read failures are logged and reported as absent.
func (s *Store) Token() string {
	token, err := s.slot.Load(context.Background())
	if err != nil {
		s.logger.Warn("failed to read session slot", "error", err)
		return ""
	}
	return token
}

// HasToken reports whether a durable token is present.
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// User returns a copy of the cached user, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser caches u, stripping any password.
func (s *Store) SetUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return
	}
	cp := *u
	cp.Password = ""
	s.user = &cp
}

// Persist writes token to the durable slot.
func (s *Store) Persist(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}
	if err := s.slot.Save(ctx, token); err != nil {
		return err
	}
	s.logger.Debug("session token persisted")
	return nil
}

// Clear removes the durable token and drops the cached user.
func (s *Store) Clear(ctx context.Context) error {
	s.SetUser(nil)
	if err := s.slot.Remove(ctx); err != nil {
		return err
	}
	s.logger.Debug("session cleared")
	return nil
}

// TokenSource adapts the store for use with [oauth2.Transport].
//
// Each call re-reads the slot and fails with [shared.ErrNotAuthenticated] when it is empty.
func (s *Store) TokenSource() oauth2.TokenSource {
	return storeTokenSource{store: s}
}

type storeTokenSource struct {
	store *Store
}

func (ts storeTokenSource) Token() (*oauth2.Token, error) {
	token := ts.store.Token()
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// TokenInfo is the unverified view of a JWT bearer token.
type TokenInfo struct {
	Subject   string
	Issuer    string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry earlier than now.
func (i TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

// Inspect decodes the claims of the held token without verifying its signature.
//
// The client never holds the signing key, so the result is for display only and is never used to make an
// authorization decision.
func (s *Store) Inspect() (TokenInfo, error) {
	token := s.Token()
	if token == "" {
		return TokenInfo{}, shared.ErrNotAuthenticated
	}
	return InspectToken(token)
}

// InspectToken decodes raw as a JWT without verifying it.
func InspectToken(raw string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: token is not a JWT: %v", shared.ErrInvalidCredential, err)
	}

	var info TokenInfo
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		info.IssuedAt = &t
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	return info, nil
}
