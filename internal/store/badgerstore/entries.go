// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

func entryKey(id string) string { return entryPrefix + id }

func urlKey(url string) string { return entryURLPrefix + url }

func timeKey(e *models.Entry) string {
	return entryTimePrefix + e.Published.UTC().Format(sortableTime) + ":" + e.ID
}

// CreateEntry stores a new entry and its indexes.
func (s *Store) CreateEntry(ctx context.Context, e *models.Entry) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if ok, err := exists(txn, entryKey(e.ID)); err != nil || ok {
			return conflictOr(err, "entry "+e.ID)
		}
		if ok, err := exists(txn, urlKey(e.URL)); err != nil || ok {
			return conflictOr(err, "url "+e.URL)
		}
		return putEntry(txn, e)
	})
}

// UpdateEntry rewrites an entry, moving its URL and time indexes if needed.
func (s *Store) UpdateEntry(ctx context.Context, e *models.Entry) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var old models.Entry
		if err := getJSON(txn, entryKey(e.ID), &old); err != nil {
			return err
		}
		if old.URL != e.URL {
			owner, err := getString(txn, urlKey(e.URL))
			if err == nil && owner != e.ID {
				return fmt.Errorf("url %s: %w", e.URL, store.ErrConflict)
			}
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err := deleteKey(txn, urlKey(old.URL)); err != nil {
				return err
			}
		}
		if err := deleteKey(txn, timeKey(&old)); err != nil {
			return err
		}
		return putEntry(txn, e)
	})
}

func putEntry(txn *badger.Txn, e *models.Entry) error {
	if err := setJSON(txn, entryKey(e.ID), e); err != nil {
		return err
	}
	if err := txn.Set([]byte(urlKey(e.URL)), []byte(e.ID)); err != nil {
		return fmt.Errorf("set url index: %w", err)
	}
	if err := txn.Set([]byte(timeKey(e)), []byte(e.ID)); err != nil {
		return fmt.Errorf("set time index: %w", err)
	}
	return nil
}

func conflictOr(err error, what string) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%s: %w", what, store.ErrConflict)
}

// GetEntry retrieves an entry by id regardless of status.
func (s *Store) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var e models.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, entryKey(id), &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) byURL(url string, trashed bool) (*models.Entry, error) {
	var e models.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, urlKey(url))
		if err != nil {
			return err
		}
		return getJSON(txn, entryKey(id), &e)
	})
	if err != nil {
		return nil, err
	}
	if e.IsTrashed() != trashed {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

// GetEntryByURL returns a non-trashed entry by its permalink.
func (s *Store) GetEntryByURL(ctx context.Context, url string) (*models.Entry, error) {
	return s.byURL(url, false)
}

// GetTrashedByURL returns a trashed entry by its permalink.
func (s *Store) GetTrashedByURL(ctx context.Context, url string) (*models.Entry, error) {
	return s.byURL(url, true)
}

// TrashEntry soft-deletes an entry.
func (s *Store) TrashEntry(ctx context.Context, id string) (*models.Entry, error) {
	return s.transition(id, func(e *models.Entry) error {
		if e.IsTrashed() {
			return nil
		}
		e.PreviousStatus = e.Status
		e.Status = models.StatusTrash
		return nil
	})
}

// RestoreEntry moves a trashed entry back to status.
func (s *Store) RestoreEntry(ctx context.Context, id string, status models.Status) (*models.Entry, error) {
	return s.transition(id, func(e *models.Entry) error {
		if !e.IsTrashed() {
			return fmt.Errorf("entry %s not in trash: %w", id, store.ErrNotFound)
		}
		e.Status = status
		e.PreviousStatus = ""
		return nil
	})
}

func (s *Store) transition(id string, mutate func(*models.Entry) error) (*models.Entry, error) {
	var e models.Entry
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, entryKey(id), &e); err != nil {
			return err
		}
		if err := mutate(&e); err != nil {
			return err
		}
		return setJSON(txn, entryKey(id), &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns non-trashed entries, newest first.
func (s *Store) ListEntries(ctx context.Context, limit, offset int) ([]*models.Entry, error) {
	var entries []*models.Entry
	skipped := 0

	err := s.db.View(func(txn *badger.Txn) error {
		return scanReverse(txn, entryTimePrefix, func(val []byte) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			var e models.Entry
			if err := getJSON(txn, entryKey(string(val)), &e); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return true, nil
				}
				return false, err
			}
			if e.IsTrashed() {
				return true, nil
			}
			if skipped < offset {
				skipped++
				return true, nil
			}
			entries = append(entries, &e)
			return limit <= 0 || len(entries) < limit, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}
