// Package storage persists server-side sessions in SQLite.
//
// The front-end owns no financial data; the only local state is the
// mapping from a browser's session cookie to the bearer tokens issued by
// the remote API.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session id has no row, either
// because it never existed or because it was invalidated.
var ErrSessionNotFound = errors.New("session not found")

// Session is one authenticated browser session.
type Session struct {
	ID           string
	Email        string
	AccessToken  string
	RefreshToken string
	CreatedAt    time.Time
	LastSeenAt   time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateSession inserts a new session row.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s Session) error {
	const q = `INSERT INTO sessions (id, email, access_token, refresh_token, created_at, last_seen_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.Email, s.AccessToken, s.RefreshToken,
		s.CreatedAt.UTC().Format(time.RFC3339), s.LastSeenAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads a session by id.
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (Session, error) {
	const q = `SELECT id, email, access_token, refresh_token, created_at, last_seen_at
	           FROM sessions WHERE id = ?`
	var (
		s                    Session
		createdAt, lastSeen  string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Email, &s.AccessToken, &s.RefreshToken, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("select session: %w", err)
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.LastSeenAt, _ = time.Parse(time.RFC3339, lastSeen)
	return s, nil
}

// TouchSession updates the last-seen timestamp.
func (r *SQLiteRepository) TouchSession(ctx context.Context, id string, seenAt time.Time) error {
	const q = `UPDATE sessions SET last_seen_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, seenAt.UTC().Format(time.RFC3339), id); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DeleteSession removes a session row. Deleting an absent session is not
// an error.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions idle since before the cutoff and
// returns how many were removed.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_seen_at < ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
