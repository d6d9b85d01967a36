package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultSlotKey is the session_slots key holding the bearer token.
const DefaultSlotKey = "token"

// SlotEntry is a raw session_slots row.
type SlotEntry struct {
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotRepository stores a single durable value in the session_slots table.
type SlotRepository struct {
	db  *sql.DB
	key string
}

// NewSlotRepository creates a [SlotRepository] for key. An empty key uses [DefaultSlotKey].
func NewSlotRepository(db *sql.DB, key string) *SlotRepository {
	if key == "" {
		key = DefaultSlotKey
	}
	return &SlotRepository{db: db, key: key}
}

// Load returns the stored value, or "" when the row does not exist.
func (r *SlotRepository) Load(ctx context.Context) (string, error) {
	entry, err := r.Entry(ctx)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", nil
	}
	return entry.Value, nil
}

// Entry returns the full row, or nil when it does not exist.
func (r *SlotRepository) Entry(ctx context.Context) (*SlotEntry, error) {
	query := `SELECT key, value, created_at, updated_at FROM session_slots WHERE key = ?`

	var e SlotEntry
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&e.Key, &e.Value, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session slot: %w", err)
	}
	return &e, nil
}

// Save upserts the value, keeping the original created_at.
func (r *SlotRepository) Save(ctx context.Context, value string) error {
	query := `
		INSERT INTO session_slots (key, value, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, r.key, value, now, now); err != nil {
		return fmt.Errorf("failed to save session slot: %w", err)
	}
	return nil
}

// Remove deletes the row. Removing an absent row is not an error.
func (r *SlotRepository) Remove(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_slots WHERE key = ?`, r.key); err != nil {
		return fmt.Errorf("failed to delete session slot: %w", err)
	}
	return nil
}
