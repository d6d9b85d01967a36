package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./tunz.db" {
			t.Errorf("expected database path ./tunz.db, got %s", config.Database.Path)
		}

		if config.API.BaseURL != "http://localhost:8082" {
			t.Errorf("expected base URL http://localhost:8082, got %s", config.API.BaseURL)
		}

		if config.API.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", config.API.Timeout())
		}

		if config.Session.Backend != BackendSQLite {
			t.Errorf("expected sqlite session backend, got %s", config.Session.Backend)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "https://songs.example.com"
timeout_seconds = 3

[session]
backend = "bolt"
path = "/tmp/tunz-session.db"

[logging]
level = "debug"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://songs.example.com" {
			t.Errorf("expected base URL https://songs.example.com, got %s", config.API.BaseURL)
		}

		if config.API.Timeout() != 3*time.Second {
			t.Errorf("expected 3s timeout, got %v", config.API.Timeout())
		}

		if config.API.Workers != 5 {
			t.Errorf("expected workers to keep default 5, got %d", config.API.Workers)
		}

		path, err := config.Session.SlotPath()
		if err != nil || path != "/tmp/tunz-session.db" {
			t.Errorf("expected configured slot path, got %q (%v)", path, err)
		}
	})

	t.Run("LoadConfig rejects unknown backend", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[session]\nbackend = \"redis\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrUnknownBackend) {
			t.Errorf("expected ErrUnknownBackend, got %v", err)
		}
	})

	t.Run("SlotPath defaults under home", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		file, err := SessionConfig{Backend: BackendFile}.SlotPath()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(file) != "token" {
			t.Errorf("expected file slot named token, got %s", file)
		}

		bolt, err := SessionConfig{Backend: BackendBolt}.SlotPath()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(bolt) != "session.db" {
			t.Errorf("expected bolt slot named session.db, got %s", bolt)
		}
	})
}
