package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type failingSlot struct{ MemorySlot }

func (*failingSlot) Load(context.Context) (string, error) { return "", errors.New("disk on fire") }

func newTestStore(token string) *Store {
	return NewStore(NewMemorySlot(token), shared.NewLogger(&bytes.Buffer{}))
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistAndClear", func(t *testing.T) {
		store := newTestStore("")
		assert.False(t, store.HasToken())

		require.NoError(t, store.Persist(ctx, "T1"))
		store.SetUser(&models.User{Username: "a", Password: "b"})

		assert.Equal(t, "T1", store.Token())
		require.NotNil(t, store.User())
		assert.Equal(t, "a", store.User().Username)
		assert.Empty(t, store.User().Password, "password must never be cached")

		require.NoError(t, store.Clear(ctx))
		assert.Empty(t, store.Token())
		assert.Nil(t, store.User())
	})

	t.Run("PersistRejectsEmpty", func(t *testing.T) {
		err := newTestStore("").Persist(ctx, "")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("TokenRereadsSlot", func(t *testing.T) {
		slot := NewMemorySlot("T1")
		store := NewStore(slot, shared.NewLogger(&bytes.Buffer{}))
		assert.Equal(t, "T1", store.Token())

		require.NoError(t, slot.Save(ctx, "T2"))
		assert.Equal(t, "T2", store.Token())
	})

	t.Run("UserIsCopied", func(t *testing.T) {
		store := newTestStore("T1")
		store.SetUser(&models.User{Username: "a"})
		u := store.User()
		u.Username = "mutated"
		assert.Equal(t, "a", store.User().Username)
	})

	t.Run("SlotReadFailureIsAbsent", func(t *testing.T) {
		var logs bytes.Buffer
		store := NewStore(&failingSlot{}, shared.NewLogger(&logs))
		assert.Empty(t, store.Token())
		assert.Contains(t, logs.String(), "failed to read session slot")
	})
}

func TestTokenSource(t *testing.T) {
	t.Run("NoToken", func(t *testing.T) {
		_, err := newTestStore("").TokenSource().Token()
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("Bearer", func(t *testing.T) {
		tok, err := newTestStore("T1").TokenSource().Token()
		require.NoError(t, err)
		assert.Equal(t, "T1", tok.AccessToken)
		assert.Equal(t, "Bearer", tok.Type())
	})

	t.Run("Transport", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			io.WriteString(w, r.Header.Get("Authorization"))
		}))
		defer srv.Close()

		store := newTestStore("T1")
		client := &http.Client{Transport: &oauth2.Transport{Source: store.TokenSource(), Base: http.DefaultTransport}}

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, "Bearer T1", string(body))

		require.NoError(t, store.Clear(context.Background()))
		_, err = client.Get(srv.URL)
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
		assert.Equal(t, int32(1), hits.Load(), "no request should reach the server without a token")
	})
}

func TestInspect(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	iat := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iss": "songs-api",
		"iat": iat.Unix(),
		"exp": exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	t.Run("Claims", func(t *testing.T) {
		info, err := newTestStore(raw).Inspect()
		require.NoError(t, err)
		assert.Equal(t, "alice", info.Subject)
		assert.Equal(t, "songs-api", info.Issuer)
		require.NotNil(t, info.ExpiresAt)
		assert.True(t, info.ExpiresAt.Equal(exp))
		require.NotNil(t, info.IssuedAt)
		assert.True(t, info.IssuedAt.Equal(iat))
		assert.False(t, info.Expired(iat))
		assert.True(t, info.Expired(exp.Add(time.Second)))
	})

	t.Run("Opaque", func(t *testing.T) {
		_, err := newTestStore("not-a-jwt").Inspect()
		assert.ErrorIs(t, err, shared.ErrInvalidCredential)
	})

	t.Run("Anonymous", func(t *testing.T) {
		_, err := newTestStore("").Inspect()
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})
}
