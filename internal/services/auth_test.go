package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
	tu "github.com/desertthunder/tunz/internal/testing"
)

func TestAuthService(t *testing.T) {
	ctx := context.Background()

	t.Run("Login", func(t *testing.T) {
		t.Run("Fills User From Credentials", func(t *testing.T) {
			api := tu.NewFakeAPI(t)
			api.AddUser("a", "b")

			resp, err := NewAuthService(NewAPIService(api.URL, nil)).Login(ctx, models.Credentials{Username: "a", Password: "b"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
			if resp.User == nil || resp.User.Username != "a" {
				t.Errorf("expected user a, got %+v", resp.User)
			}
		})

		t.Run("Keeps Server User", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"user":{"id":"7","username":"a"},"token":"T1"}`))
			}))
			defer server.Close()

			resp, err := NewAuthService(NewAPIService(server.URL, nil)).Login(ctx, models.Credentials{Username: "a", Password: "b"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Token != "T1" || resp.User.ID != "7" {
				t.Errorf("unexpected response %+v", resp)
			}
		})

		t.Run("Bad Credentials", func(t *testing.T) {
			api := tu.NewFakeAPI(t)
			api.AddUser("a", "b")

			_, err := NewAuthService(NewAPIService(api.URL, nil)).Login(ctx, models.Credentials{Username: "a", Password: "wrong"})
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if ErrorMessage(err) != "Invalid username or password" {
				t.Errorf("unexpected message %q", ErrorMessage(err))
			}
		})

		t.Run("Missing Token", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			_, err := NewAuthService(NewAPIService(server.URL, nil)).Login(ctx, models.Credentials{Username: "a", Password: "b"})
			if !errors.Is(err, shared.ErrInvalidCredential) {
				t.Fatalf("expected ErrInvalidCredential, got %v", err)
			}
		})
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("Logs In Afterwards", func(t *testing.T) {
			api := tu.NewFakeAPI(t)

			resp, err := NewAuthService(NewAPIService(api.URL, nil)).Register(ctx, models.Credentials{Username: "new", Password: "pw"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Token == "" || resp.User.Username != "new" {
				t.Errorf("unexpected response %+v", resp)
			}
			if resp.Message != "User registered successfully" {
				t.Errorf("expected register message kept, got %q", resp.Message)
			}
			if api.RequestCount(http.MethodPost, "/auth/login") != 1 {
				t.Errorf("expected one follow-up login, got %v", api.Requests())
			}
		})

		t.Run("Duplicate", func(t *testing.T) {
			api := tu.NewFakeAPI(t)
			api.AddUser("taken", "pw")

			_, err := NewAuthService(NewAPIService(api.URL, nil)).Register(ctx, models.Credentials{Username: "taken", Password: "pw"})
			if !errors.Is(err, shared.ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
			if api.RequestCount(http.MethodPost, "/auth/login") != 0 {
				t.Error("expected no login after a failed register")
			}
		})

		t.Run("Token In Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/auth/register" {
					t.Errorf("unexpected request to %s", r.URL.Path)
				}
				w.Write([]byte(`{"token":"T2"}`))
			}))
			defer server.Close()

			resp, err := NewAuthService(NewAPIService(server.URL, nil)).Register(ctx, models.Credentials{Username: "a", Password: "b"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Token != "T2" || resp.User.Username != "a" {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	})

	t.Run("WhoAmI", func(t *testing.T) {
		t.Run("Valid Token", func(t *testing.T) {
			api := tu.NewFakeAPI(t)
			token := api.IssueToken("alice")

			user, err := NewAuthService(NewAPIService(api.URL, nil)).WhoAmI(ctx, token)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if user.Username != "alice" {
				t.Errorf("expected alice, got %q", user.Username)
			}
		})

		t.Run("Revoked Token", func(t *testing.T) {
			api := tu.NewFakeAPI(t)
			token := api.IssueToken("alice")
			api.RevokeToken(token)

			_, err := NewAuthService(NewAPIService(api.URL, nil)).WhoAmI(ctx, token)
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("Empty Token Makes No Call", func(t *testing.T) {
			api := tu.NewFakeAPI(t)

			_, err := NewAuthService(NewAPIService(api.URL, nil)).WhoAmI(ctx, "")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
			if n := len(api.Requests()); n != 0 {
				t.Errorf("expected no requests, got %d", n)
			}
		})
	})
}
