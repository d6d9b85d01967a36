package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tunz/internal/guard"
	"github.com/desertthunder/tunz/internal/repositories"
	"github.com/desertthunder/tunz/internal/session"
	"github.com/desertthunder/tunz/internal/shared"
	tu "github.com/desertthunder/tunz/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			slot := session.NewMemorySlot("")

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Input:      input,
				Slot:       slot,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.slot != slot {
				t.Error("expected slot to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.config.API.BaseURL != "http://localhost:8082" {
				t.Errorf("unexpected default base URL %q", runner.config.API.BaseURL)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses configured timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.API.TimeoutSeconds = 3
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.httpClient == nil {
				t.Fatal("expected httpClient to be built")
			}
			if runner.httpClient.Timeout != config.API.Timeout() {
				t.Errorf("expected timeout %v, got %v", config.API.Timeout(), runner.httpClient.Timeout)
			}
		})

		t.Run("does not open the session eagerly", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.session != nil {
				t.Error("expected session to be opened lazily")
			}
		})
	})

	t.Run("open", func(t *testing.T) {
		t.Run("file backend", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Session.Backend = shared.BackendFile
			config.Session.Path = filepath.Join(t.TempDir(), "token")
			runner := NewRunner(RunnerOpts{Config: config})
			defer runner.Close()

			if err := runner.open(context.Background()); err != nil {
				t.Fatalf("open() error = %v", err)
			}
			if runner.backendName() != shared.BackendFile {
				t.Errorf("backend = %s, want file", runner.backendName())
			}
			if err := runner.session.Persist(context.Background(), "abc"); err != nil {
				t.Fatalf("Persist() error = %v", err)
			}
			if got := tu.MustReadFile(t, config.Session.Path); got != "abc" {
				t.Errorf("token file contains %q", got)
			}
		})

		t.Run("bolt backend", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Session.Backend = shared.BackendBolt
			config.Session.Path = filepath.Join(t.TempDir(), "session.db")
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.open(context.Background()); err != nil {
				t.Fatalf("open() error = %v", err)
			}
			if runner.backendName() != shared.BackendBolt {
				t.Errorf("backend = %s, want bolt", runner.backendName())
			}
			if err := runner.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})

		t.Run("sqlite backend", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Session.Backend = shared.BackendSQLite
			config.Database.Path = filepath.Join(t.TempDir(), "tunz.db")
			runner := NewRunner(RunnerOpts{Config: config})
			defer runner.Close()

			if err := runner.open(context.Background()); err != nil {
				t.Fatalf("open() error = %v", err)
			}
			if _, ok := runner.slot.(*repositories.SlotRepository); !ok {
				t.Errorf("slot = %T, want *repositories.SlotRepository", runner.slot)
			}
			tu.AssertFileExists(t, config.Database.Path)
		})

		t.Run("unknown backend", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Session.Backend = "redis"
			runner := NewRunner(RunnerOpts{Config: config})

			err := runner.open(context.Background())
			if !errors.Is(err, shared.ErrUnknownBackend) {
				t.Errorf("expected ErrUnknownBackend, got %v", err)
			}
		})
	})

	t.Run("enter", func(t *testing.T) {
		t.Run("unknown route", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Slot: session.NewMemorySlot("")})
			_, err := runner.enter(context.Background(), "/nowhere")
			if !errors.Is(err, shared.ErrRouteNotFound) {
				t.Errorf("expected ErrRouteNotFound, got %v", err)
			}
		})

		t.Run("anonymous route renders without token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Slot: session.NewMemorySlot("")})
			m, err := runner.enter(context.Background(), guard.PathRegister)
			if err != nil {
				t.Fatalf("enter() error = %v", err)
			}
			if m.Route.Name != "register" {
				t.Errorf("route = %s, want register", m.Route.Name)
			}
		})

		t.Run("protected route without token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Slot: session.NewMemorySlot("")})
			_, err := runner.enter(context.Background(), guard.PathAdd)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("readLine", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader("alice\r\nlast")})

		first, err := runner.readLine("Username: ")
		if err != nil || first != "alice" {
			t.Errorf("first line = %q, %v", first, err)
		}
		second, err := runner.readLine("")
		if err != nil || second != "last" {
			t.Errorf("second line = %q, %v", second, err)
		}
		if _, err := runner.readLine(""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput at EOF, got %v", err)
		}
		if output.String() != "Username: " {
			t.Errorf("unexpected prompt output %q", output.String())
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "songs", "api", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("command %d = %s, want %s", i, commands[i].Name, name)
			}
		}
	})
}
