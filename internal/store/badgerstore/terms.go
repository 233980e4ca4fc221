// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package badgerstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/scribe/internal/models"
)

func termKey(kind models.TermKind, slug string) string {
	return termPrefix + string(kind) + ":" + slug
}

// ListTerms returns every term of kind ordered by slug.
func (s *Store) ListTerms(ctx context.Context, kind models.TermKind) ([]models.Term, error) {
	var terms []models.Term
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, termPrefix+string(kind)+":", func(val []byte) error {
			var t models.Term
			if err := json.Unmarshal(val, &t); err != nil {
				return err
			}
			terms = append(terms, t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindCategory looks up a category by slug.
func (s *Store) FindCategory(ctx context.Context, slug string) (*models.Term, error) {
	var t models.Term
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, termKey(models.TermCategory, slug), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EnsureTerms creates the missing terms.
func (s *Store) EnsureTerms(ctx context.Context, kind models.TermKind, slugs []string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, slug := range slugs {
			if slug == "" {
				continue
			}
			ok, err := exists(txn, termKey(kind, slug))
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			if err := setJSON(txn, termKey(kind, slug), models.Term{Kind: kind, Slug: slug, Name: slug}); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userPrefix+id, &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, userPrefix, func(val []byte) error {
			var u models.User
			if err := json.Unmarshal(val, &u); err != nil {
				return err
			}
			users = append(users, &u)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// PutUser creates or replaces a user.
func (s *Store) PutUser(ctx context.Context, u *models.User) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, userPrefix+u.ID, u)
	})
}

// PutMedia records an upload.
func (s *Store) PutMedia(ctx context.Context, m *models.Media) error {
	key := mediaPrefix + m.CreatedAt.UTC().Format(sortableTime) + ":" + m.ID
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, m)
	})
}

// ListMedia returns uploads, newest first.
func (s *Store) ListMedia(ctx context.Context, limit int) ([]*models.Media, error) {
	var media []*models.Media
	err := s.db.View(func(txn *badger.Txn) error {
		return scanReverse(txn, mediaPrefix, func(val []byte) (bool, error) {
			var m models.Media
			if err := json.Unmarshal(val, &m); err != nil {
				return false, err
			}
			media = append(media, &m)
			return limit <= 0 || len(media) < limit, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return media, nil
}
