// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package sqlitestore

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/scribe/internal/models"
)

// ListTerms returns every term of kind ordered by slug.
func (s *Store) ListTerms(ctx context.Context, kind models.TermKind) ([]models.Term, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, slug, name, parent_slug FROM terms WHERE kind = ? ORDER BY slug`, string(kind))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var terms []models.Term
	for rows.Next() {
		var t models.Term
		var k string
		if err := rows.Scan(&k, &t.Slug, &t.Name, &t.ParentSlug); err != nil {
			return nil, err
		}
		t.Kind = models.TermKind(k)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// FindCategory looks up a category by slug.
func (s *Store) FindCategory(ctx context.Context, slug string) (*models.Term, error) {
	var t models.Term
	err := s.db.QueryRowContext(ctx,
		`SELECT slug, name, parent_slug FROM terms WHERE kind = ? AND slug = ?`,
		string(models.TermCategory), slug).Scan(&t.Slug, &t.Name, &t.ParentSlug)
	if err != nil {
		return nil, notFound(err)
	}
	t.Kind = models.TermCategory
	return &t, nil
}

// EnsureTerms creates the missing terms.
func (s *Store) EnsureTerms(ctx context.Context, kind models.TermKind, slugs []string) error {
	for _, slug := range slugs {
		if slug == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO terms (kind, slug, name) VALUES (?, ?, ?)`,
			string(kind), slug, slug); err != nil {
			return err
		}
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, login, name, profile_url, roles FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, login, name, profile_url, roles FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var roles string
	if err := row.Scan(&u.ID, &u.Login, &u.Name, &u.ProfileURL, &roles); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal([]byte(roles), &u.Roles); err != nil {
		return nil, err
	}
	return &u, nil
}

// PutUser creates or replaces a user.
func (s *Store) PutUser(ctx context.Context, u *models.User) error {
	roles, err := marshalText(nonNil(u.Roles))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO users (id, login, name, profile_url, roles) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET login = excluded.login, name = excluded.name,
	profile_url = excluded.profile_url, roles = excluded.roles
`, u.ID, u.Login, u.Name, u.ProfileURL, roles)
	return err
}

// PutMedia records an upload.
func (s *Store) PutMedia(ctx context.Context, m *models.Media) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO media (id, url, type, path, size, name, user_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, m.ID, m.URL, m.Type, m.Path, m.Size, m.Name, m.UserID, m.CreatedAt.UTC().UnixNano())
	return err
}

// ListMedia returns uploads, newest first.
func (s *Store) ListMedia(ctx context.Context, limit int) ([]*models.Media, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, url, type, path, size, name, user_id, created_at FROM media
ORDER BY created_at DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var media []*models.Media
	for rows.Next() {
		var m models.Media
		var created int64
		if err := rows.Scan(&m.ID, &m.URL, &m.Type, &m.Path, &m.Size, &m.Name, &m.UserID, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(0, created).UTC()
		media = append(media, &m)
	}
	return media, rows.Err()
}
