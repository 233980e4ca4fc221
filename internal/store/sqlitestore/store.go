// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package sqlitestore implements store.Store on SQLite (modernc.org/sqlite,
// no cgo).
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/store"
)

// Store is a SQLite-backed content store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens the database at dsn and applies pending migrations. dsn is a
// file path or a "file:" URI.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON;", "PRAGMA busy_timeout = 5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().Str("dsn", dsn).Int("schema_version", len(migrations)).Msg("SQLite content store opened")
	return &Store{db: db}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Snapshot writes a consistent copy of the database file to w using
// VACUUM INTO.
func (s *Store) Snapshot(ctx context.Context, w io.Writer) error {
	dir, err := os.MkdirTemp("", "scribe-sqlite-snapshot-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into snapshot: %w", err)
	}

	f, err := os.Open(path) //nolint:gosec // G304: path is our own temp file
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	excerpt TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	author_id TEXT NOT NULL DEFAULT '',
	published INTEGER NOT NULL,
	updated INTEGER NOT NULL,
	published_local TEXT NOT NULL DEFAULT '',
	updated_local TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	previous_status TEXT NOT NULL DEFAULT '',
	categories TEXT NOT NULL DEFAULT '[]',
	tags TEXT NOT NULL DEFAULT '[]',
	meta TEXT NOT NULL DEFAULT '{}',
	url TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_url ON entries(url);
CREATE INDEX IF NOT EXISTS idx_entries_published ON entries(published DESC);
CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);

CREATE TABLE IF NOT EXISTS terms (
	kind TEXT NOT NULL,
	slug TEXT NOT NULL,
	name TEXT NOT NULL,
	parent_slug TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (kind, slug)
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	login TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	profile_url TEXT NOT NULL DEFAULT '',
	roles TEXT NOT NULL DEFAULT '[]'
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_login ON users(login);
`,
	// Migration 2: media uploads
	`
CREATE TABLE IF NOT EXISTS media (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	type TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	name TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_media_created_at ON media(created_at DESC);
`,
}

func applySchema(db *sql.DB) error {
	// Create schema_version table to track migrations
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func marshalText(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
