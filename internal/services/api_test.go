package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tunz/internal/session"
	"github.com/desertthunder/tunz/internal/shared"
	tu "github.com/desertthunder/tunz/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.BaseURL() != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.BaseURL())
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != DefaultBaseURL {
				t.Errorf("expected default baseURL %s, got %s", DefaultBaseURL, srv.baseURL)
			}
		})

		t.Run("With Nil Client", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)

			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/test" {
					t.Errorf("expected path '/test', got %s", r.URL.Path)
				}
				if r.Header.Get(RequestIDHeader) == "" {
					t.Error("expected a request id header")
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be JSON")
			}
			jsonMap, ok := resp.JSONData.(map[string]any)
			if !ok || jsonMap["status"] != "success" {
				t.Errorf("unexpected JSONData %v", resp.JSONData)
			}
		})

		t.Run("Successful Request With Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected response to not be JSON")
			}
			if string(resp.Body) != "plain text response" {
				t.Errorf("expected body 'plain text response', got %s", string(resp.Body))
			}
		})

		t.Run("Non-2xx Is A Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/missing")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", resp.StatusCode)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			_, err := srv.Get(context.Background(), "/test\x00invalid")

			if err == nil {
				t.Fatal("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Get(context.Background(), "/test")

			if err == nil {
				t.Fatal("expected error for failed request")
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Get(context.Background(), "/test")

			if err == nil {
				t.Fatal("expected error for failed body read")
			}
			if !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			srv := NewAPIService(server.URL, nil)
			if _, err := srv.Get(ctx, "/test"); err == nil {
				t.Error("expected error for canceled context")
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected Content-Type 'application/json', got %s", r.Header.Get("Content-Type"))
				}

				body, _ := io.ReadAll(r.Body)
				var data map[string]string
				if err := json.Unmarshal(body, &data); err != nil {
					t.Errorf("failed to unmarshal request body: %v", err)
				}
				if data["test"] != "data" {
					t.Errorf("expected request data 'test:data', got %v", data)
				}

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{"id": "123"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			requestData, _ := json.Marshal(map[string]string{"test": "data"})
			resp, err := srv.Post(context.Background(), "/test", requestData)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusCreated {
				t.Errorf("expected status 201, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be JSON")
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			_, err := srv.Post(context.Background(), "/test\x00invalid", []byte("data"))

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})
	})

	t.Run("Do", func(t *testing.T) {
		t.Run("Decodes Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Accept") != "application/json" {
					t.Errorf("expected Accept header, got %q", r.Header.Get("Accept"))
				}
				w.Write([]byte(`{"username":"alice"}`))
			}))
			defer server.Close()

			var out struct{ Username string }
			err := NewAPIService(server.URL, nil).Do(context.Background(), Request{Op: OpWhoAmI, Method: http.MethodGet, Path: "/auth/me"}, &out)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out.Username != "alice" {
				t.Errorf("expected alice, got %q", out.Username)
			}
		})

		t.Run("Empty Body Is Not Decoded", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			var out map[string]any
			err := NewAPIService(server.URL, nil).Do(context.Background(), Request{Op: OpDeleteSong, Method: http.MethodDelete, Path: "/api/songs/1"}, &out)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Explicit Token", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer T1" {
					t.Errorf("expected bearer header, got %q", got)
				}
			}))
			defer server.Close()

			err := NewAPIService(server.URL, nil).Do(context.Background(), Request{Op: OpWhoAmI, Method: http.MethodGet, Path: "/auth/me", Token: "T1"}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Status Errors", func(t *testing.T) {
			tests := []struct {
				name     string
				status   int
				body     string
				kind     Kind
				sentinel error
				message  string
			}{
				{"Unauthorized", http.StatusUnauthorized, "", KindUnauthorized, shared.ErrUnauthorized, "Login failed"},
				{"Forbidden", http.StatusForbidden, "", KindUnauthorized, shared.ErrUnauthorized, "Login failed"},
				{"NotFound", http.StatusNotFound, `{"error":"Song not found with id: 9"}`, KindNotFound, shared.ErrNotFound, "Song not found with id: 9"},
				{"Validation", http.StatusBadRequest, `{"title":"Title is required","artist":"Artist is required"}`, KindValidation, shared.ErrValidation, "artist: Artist is required; title: Title is required"},
				{"Conflict", http.StatusConflict, `{"error":"Username already exists"}`, KindConflict, shared.ErrConflict, "Username already exists"},
				{"Server", http.StatusInternalServerError, `{"error":"Unexpected error","details":"boom"}`, KindServer, shared.ErrServiceUnavailable, "Unexpected error"},
				{"Message Field", http.StatusTeapot, `{"message":"short and stout"}`, KindUnexpected, shared.ErrAPIRequest, "short and stout"},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(tt.status)
						w.Write([]byte(tt.body))
					}))
					defer server.Close()

					err := NewAPIService(server.URL, nil).Do(context.Background(), Request{Op: OpLogin, Method: http.MethodPost, Path: "/auth/login", Body: map[string]string{}}, nil)

					var apiErr *APIError
					if !errors.As(err, &apiErr) {
						t.Fatalf("expected *APIError, got %T: %v", err, err)
					}
					if apiErr.StatusCode != tt.status {
						t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
					}
					if apiErr.Kind != tt.kind {
						t.Errorf("expected kind %s, got %s", tt.kind, apiErr.Kind)
					}
					if !errors.Is(err, tt.sentinel) {
						t.Errorf("expected errors.Is(%v)", tt.sentinel)
					}
					if apiErr.Message != tt.message {
						t.Errorf("expected message %q, got %q", tt.message, apiErr.Message)
					}
					if string(apiErr.Body) != tt.body {
						t.Errorf("expected body preserved, got %q", apiErr.Body)
					}
				})
			}
		})

		t.Run("Decode Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			}))
			defer server.Close()

			var out map[string]any
			err := NewAPIService(server.URL, nil).Do(context.Background(), Request{Op: OpListSongs, Method: http.MethodGet, Path: "/api/songs"}, &out)

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Kind != KindDecode {
				t.Fatalf("expected decode error, got %v", err)
			}
			if ErrorMessage(err) != "Failed to fetch songs" {
				t.Errorf("unexpected message %q", ErrorMessage(err))
			}
		})

		t.Run("Network Error", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			err := NewAPIService("http://example.com", client).Do(context.Background(), Request{Op: OpRegister, Method: http.MethodPost, Path: "/auth/register"}, nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
				t.Fatalf("expected network error, got %v", err)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected network error to match ErrAPIRequest")
			}
			if !apiErr.Temporary() {
				t.Error("expected network error to be temporary")
			}
			if ErrorMessage(err) != "Registration failed" {
				t.Errorf("unexpected message %q", ErrorMessage(err))
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}))
			defer server.Close()

			client := NewHTTPClient(50*time.Millisecond, nil)
			err := NewAPIService(server.URL, client).Do(context.Background(), Request{Op: OpListSongs, Method: http.MethodGet, Path: "/api/songs"}, nil)

			if !errors.Is(err, shared.ErrTimeout) {
				t.Fatalf("expected timeout, got %v", err)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Error("expected timeout to also match ErrAPIRequest")
			}
		})

		t.Run("Missing Token Never Sends", func(t *testing.T) {
			hits := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits++
			}))
			defer server.Close()

			store := session.NewStore(session.NewMemorySlot(""), nil)
			client := NewHTTPClient(time.Second, store.TokenSource())
			err := NewAPIService(server.URL, client).Do(context.Background(), Request{Op: OpListSongs, Method: http.MethodGet, Path: "/api/songs"}, nil)

			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
			if hits != 0 {
				t.Errorf("expected no requests, got %d", hits)
			}
			if ErrorMessage(err) != "Not logged in" {
				t.Errorf("unexpected message %q", ErrorMessage(err))
			}
		})
	})
}

func TestErrorMessage(t *testing.T) {
	if ErrorMessage(nil) != "" {
		t.Error("expected empty message for nil")
	}
	if got := ErrorMessage(errors.New("plain")); got != "plain" {
		t.Errorf("expected plain, got %q", got)
	}
	if got := ErrorMessage(shared.ErrNotAuthenticated); got != "Not logged in" {
		t.Errorf("expected 'Not logged in', got %q", got)
	}

	wrapped := errors.Join(errors.New("outer"), &APIError{Op: OpLogin, Message: "Invalid username or password", Kind: KindUnauthorized})
	if got := ErrorMessage(wrapped); got != "Invalid username or password" {
		t.Errorf("expected server message, got %q", got)
	}
}
