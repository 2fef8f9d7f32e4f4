// Package store is the durable price-tracking store: tracked items and
// their append-only price observation history, backed by SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

var (
	// ErrAlreadyTracked is returned when inserting a tracked item whose
	// identifier already exists and replacement was not requested.
	ErrAlreadyTracked = errors.New("store: item already tracked")

	// ErrUnknownItem is returned when an operation references an item
	// identifier with no tracked-item row, active or not.
	ErrUnknownItem = errors.New("store: unknown item")
)

// timeFormat is the canonical timestamp encoding: UTC with a fixed-width
// fractional second, so lexical ordering in SQL matches chronological
// ordering (RFC3339Nano trims trailing zeros, which would break it).
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file. ":memory:" gives an in-memory
	// database, useful for tests.
	Path string

	// BusyTimeout is how long a connection waits on a locked database.
	// Default 5s.
	BusyTimeout time.Duration

	// AutoMigrate applies pending schema migrations on Open.
	AutoMigrate bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		AutoMigrate: true,
	}
}

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the tracking database. WAL journaling
// is enabled for concurrent readers; foreign keys are enforced so history
// rows cannot outlive their tracked item except through explicit deletion.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	busy := cfg.BusyTimeout
	if busy == 0 {
		busy = 5 * time.Second
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	// modernc.org/sqlite takes pragmas as _pragma=name(value) pairs; the
	// mattn-style _journal_mode keys are silently ignored by this driver.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
		cfg.Path, busy.Milliseconds())

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps an in-memory database alive and gives the
	// per-item write serialization the contract requires; SQLite allows a
	// single writer regardless.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{conn: conn}
	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Conn exposes the raw connection for diagnostics and tests.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// Fall back to second precision for rows written by other tools.
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
