// Package pgstore provides a PostgreSQL-backed session storage using pgx.
// Session state lives in a single table as jsonb with an expiration column;
// expired rows are invisible to Load and reclaimed by RemoveExpired.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/sessions"
)

// DefaultTable is the table sessions are stored in.
const DefaultTable = "sessions"

// Schema creates the sessions table. Run it once at deploy time, or embed it
// in the application's migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	expires_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at);
`

// DB is the subset of pgxpool.Pool the store needs. Satisfied by
// *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements sessions.Storage on top of PostgreSQL.
type Store struct {
	db    DB
	table string
}

// Option configures a Store.
type Option func(*Store)

// WithTable sets the table name for session rows.
func WithTable(table string) Option {
	return func(s *Store) {
		s.table = table
	}
}

// New creates a Store over the given database handle.
func New(db DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		table: DefaultTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the state stored under id. Expired or missing rows are
// (nil, nil).
func (s *Store) Load(ctx context.Context, id string) (sessions.Data, error) {
	query := fmt.Sprintf(
		`SELECT data FROM %s WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())`,
		s.table,
	)

	var raw []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", id, err)
	}

	var data sessions.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session %q: %w", id, err)
	}
	return data, nil
}

// Save upserts the row for id, fully replacing data and expiration.
// A non-positive ttl stores a NULL expiration.
func (s *Store) Save(ctx context.Context, id string, data sessions.Data, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session %q: %w", id, err)
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		s.table,
	)
	if _, err := s.db.Exec(ctx, query, id, raw, expiresAt); err != nil {
		return fmt.Errorf("failed to save session %q: %w", id, err)
	}
	return nil
}

// Remove deletes the row for id and reports whether one existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)

	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove session %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// GenerateID returns a new UUID session identifier.
func (s *Store) GenerateID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

// RemoveExpired deletes all rows past their expiration and returns the count.
func (s *Store) RemoveExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= now()`, s.table)

	tag, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to remove expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
