// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

const entryColumns = `id, slug, title, excerpt, content, author_id, published, updated,
published_local, updated_local, timezone, status, previous_status, categories, tags, meta, url`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func entryArgs(e *models.Entry) ([]interface{}, error) {
	cats, err := marshalText(nonNil(e.Categories))
	if err != nil {
		return nil, err
	}
	tags, err := marshalText(nonNil(e.Tags))
	if err != nil {
		return nil, err
	}
	meta := "{}"
	if len(e.Meta) > 0 {
		if meta, err = marshalText(e.Meta); err != nil {
			return nil, err
		}
	}
	return []interface{}{
		e.ID, e.Slug, e.Title, e.Excerpt, e.Content, e.AuthorID,
		e.Published.UTC().UnixNano(), e.Updated.UTC().UnixNano(),
		e.PublishedLocal, e.UpdatedLocal, e.Timezone,
		string(e.Status), string(e.PreviousStatus), cats, tags, meta, e.URL,
	}, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e                    models.Entry
		published, updated   int64
		status, prev         string
		cats, tags, metaText string
	)
	err := row.Scan(&e.ID, &e.Slug, &e.Title, &e.Excerpt, &e.Content, &e.AuthorID,
		&published, &updated, &e.PublishedLocal, &e.UpdatedLocal, &e.Timezone,
		&status, &prev, &cats, &tags, &metaText, &e.URL)
	if err != nil {
		return nil, notFound(err)
	}
	e.Published = time.Unix(0, published).UTC()
	e.Updated = time.Unix(0, updated).UTC()
	e.Status = models.Status(status)
	e.PreviousStatus = models.Status(prev)

	if err := json.Unmarshal([]byte(cats), &e.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(e.Categories) == 0 {
		e.Categories = nil
	}
	if len(e.Tags) == 0 {
		e.Tags = nil
	}
	if metaText != "{}" {
		if err := json.Unmarshal([]byte(metaText), &e.Meta); err != nil {
			return nil, fmt.Errorf("decode meta: %w", err)
		}
	}
	return &e, nil
}

// CreateEntry inserts a new entry.
func (s *Store) CreateEntry(ctx context.Context, e *models.Entry) error {
	args, err := entryArgs(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO entries (`+entryColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("entry %s: %w", e.ID, store.ErrConflict)
	}
	return err
}

// UpdateEntry rewrites every column of an existing entry.
func (s *Store) UpdateEntry(ctx context.Context, e *models.Entry) error {
	args, err := entryArgs(e)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE entries SET slug = ?, title = ?, excerpt = ?, content = ?, author_id = ?,
	published = ?, updated = ?, published_local = ?, updated_local = ?, timezone = ?,
	status = ?, previous_status = ?, categories = ?, tags = ?, meta = ?, url = ?
WHERE id = ?
`, append(args[1:], args[0])...)
	if isUniqueViolation(err) {
		return fmt.Errorf("url %s: %w", e.URL, store.ErrConflict)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetEntry retrieves an entry by id regardless of status.
func (s *Store) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// GetEntryByURL returns a non-trashed entry by its permalink.
func (s *Store) GetEntryByURL(ctx context.Context, url string) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE url = ? AND status <> ?`, url, string(models.StatusTrash))
	return scanEntry(row)
}

// GetTrashedByURL returns a trashed entry by its permalink.
func (s *Store) GetTrashedByURL(ctx context.Context, url string) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE url = ? AND status = ?`, url, string(models.StatusTrash))
	return scanEntry(row)
}

// TrashEntry soft-deletes an entry.
func (s *Store) TrashEntry(ctx context.Context, id string) (*models.Entry, error) {
	_, err := s.db.ExecContext(ctx, `
UPDATE entries SET previous_status = status, status = ?
WHERE id = ? AND status <> ?
`, string(models.StatusTrash), id, string(models.StatusTrash))
	if err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, id)
}

// RestoreEntry moves a trashed entry back to status.
func (s *Store) RestoreEntry(ctx context.Context, id string, status models.Status) (*models.Entry, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE entries SET status = ?, previous_status = ''
WHERE id = ? AND status = ?
`, string(status), id, string(models.StatusTrash))
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, fmt.Errorf("entry %s not in trash: %w", id, store.ErrNotFound)
	}
	return s.GetEntry(ctx, id)
}

// ListEntries returns non-trashed entries, newest first.
func (s *Store) ListEntries(ctx context.Context, limit, offset int) ([]*models.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+entryColumns+` FROM entries
WHERE status <> ?
ORDER BY published DESC, id DESC
LIMIT ? OFFSET ?
`, string(models.StatusTrash), limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ rowScanner = (*sql.Row)(nil)
