package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/boltdb/bolt"
)

// Slot is a single durable key holding the raw bearer token.
//
// Load returns "" with a nil error when nothing is stored.
type Slot interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Remove(ctx context.Context) error
}

var (
	_ Slot = (*MemorySlot)(nil)
	_ Slot = (*FileSlot)(nil)
	_ Slot = (*BoltSlot)(nil)
)

// MemorySlot keeps the token in memory.
type MemorySlot struct {
	mu    sync.Mutex
	token string
}

// NewMemorySlot returns a slot pre-populated with token (which may be empty).
func NewMemorySlot(token string) *MemorySlot {
	return &MemorySlot{token: token}
}

func (m *MemorySlot) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemorySlot) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemorySlot) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// FileSlot stores the token as the sole content of a file.
type FileSlot struct {
	path string
}

// NewFileSlot creates a [FileSlot] at path. The file is created lazily on first Save.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

func (f *FileSlot) Load(context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *FileSlot) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (f *FileSlot) Remove(context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

var (
	sessionBucket = []byte("session")
	tokenKey      = []byte("token")
)

// BoltSlot stores the token under one key of a bolt database.
type BoltSlot struct {
	db *bolt.DB
}

// OpenBoltSlot opens (or creates) the bolt file at path and ensures the session bucket exists.
func OpenBoltSlot(path string) (*BoltSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}

	return &BoltSlot{db: db}, nil
}

func (b *BoltSlot) Load(context.Context) (string, error) {
	var token string
	err := b.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(sessionBucket).Get(tokenKey); raw != nil {
			token = string(raw)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

func (b *BoltSlot) Save(_ context.Context, token string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(tokenKey, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

func (b *BoltSlot) Remove(context.Context) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(tokenKey)
	})
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Close releases the bolt file lock.
func (b *BoltSlot) Close() error {
	return b.db.Close()
}
