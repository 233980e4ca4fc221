// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package store defines the content store contract the Micropub pipeline
// writes through. Implementations live in the badger and sqlite
// subpackages.
package store

import (
	"context"
	"errors"

	"github.com/tomtom215/scribe/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist (or, for URL
	// lookups, is not in the requested state).
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a create would reuse an id or URL.
	ErrConflict = errors.New("store: conflict")
)

// EntryStore persists entries. GetEntryByURL and ListEntries never return
// trashed entries; GetTrashedByURL returns only trashed ones.
type EntryStore interface {
	CreateEntry(ctx context.Context, e *models.Entry) error
	// UpdateEntry replaces the stored record with e. Published is written
	// as given; implementations never reset it.
	UpdateEntry(ctx context.Context, e *models.Entry) error
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	GetEntryByURL(ctx context.Context, url string) (*models.Entry, error)
	GetTrashedByURL(ctx context.Context, url string) (*models.Entry, error)
	// TrashEntry moves the entry to trash, remembering its status.
	TrashEntry(ctx context.Context, id string) (*models.Entry, error)
	// RestoreEntry moves a trashed entry back to status.
	RestoreEntry(ctx context.Context, id string, status models.Status) (*models.Entry, error)
	// ListEntries returns non-trashed entries, newest first.
	ListEntries(ctx context.Context, limit, offset int) ([]*models.Entry, error)
}

// TermStore manages taxonomy terms.
type TermStore interface {
	ListTerms(ctx context.Context, kind models.TermKind) ([]models.Term, error)
	FindCategory(ctx context.Context, slug string) (*models.Term, error)
	// EnsureTerms creates any missing terms of kind, named after their slug.
	EnsureTerms(ctx context.Context, kind models.TermKind, slugs []string) error
}

// UserStore manages local authors.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	PutUser(ctx context.Context, u *models.User) error
}

// MediaStore records uploads.
type MediaStore interface {
	PutMedia(ctx context.Context, m *models.Media) error
	// ListMedia returns uploads, newest first.
	ListMedia(ctx context.Context, limit int) ([]*models.Media, error)
}

// Store is the full content store.
type Store interface {
	EntryStore
	TermStore
	UserStore
	MediaStore

	Ping(ctx context.Context) error
	Close() error
}
