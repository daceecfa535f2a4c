// CLAUDE:SUMMARY Durable blob store: get/put keyed byte blobs over SQLite, used for room snapshots and bindings.
// Package blob is the durable store behind room persistence. Rooms are saved
// under "rooms/<roomID>" and coordinator bindings under "bindings/<actorID>";
// the payload format is opaque here beyond round-tripping.
package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is the durable blob collaborator. A nil byte slice with a nil error
// means the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// RoomKey returns the blob key for a room snapshot.
func RoomKey(roomID string) string { return "rooms/" + roomID }

// BindingKey returns the blob key for a coordinator's room-identifier binding.
func BindingKey(actorID string) string { return "bindings/" + actorID }

// SQLiteStore persists blobs in a room_blobs table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database. Call Init before first use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init creates the schema if needed.
func (s *SQLiteStore) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS room_blobs (
			key        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("blob: init schema: %w", err)
	}
	return nil
}

// Get returns the blob for key, or (nil, nil) when absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM room_blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blob: get %s: %w", key, err)
	}
	return data, nil
}

// Put inserts or replaces the blob for key.
func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_blobs (key, data, updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("blob: put %s: %w", key, err)
	}
	return nil
}
