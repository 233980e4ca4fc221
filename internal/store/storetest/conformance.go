// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package storetest holds a behavioral test suite every store.Store
// implementation runs against itself.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, open Factory) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, open(t)) })
	t.Run("CreateConflict", func(t *testing.T) { testCreateConflict(t, open(t)) })
	t.Run("UpdateMovesURL", func(t *testing.T) { testUpdateMovesURL(t, open(t)) })
	t.Run("TrashAndRestore", func(t *testing.T) { testTrashAndRestore(t, open(t)) })
	t.Run("ListEntries", func(t *testing.T) { testListEntries(t, open(t)) })
	t.Run("Terms", func(t *testing.T) { testTerms(t, open(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("Media", func(t *testing.T) { testMedia(t, open(t)) })
}

// NewEntry builds a minimal published entry.
func NewEntry(id, slug string, published time.Time) *models.Entry {
	return &models.Entry{
		ID:        id,
		Slug:      slug,
		Title:     "Title " + slug,
		Content:   "<p>" + slug + "</p>",
		Published: published.UTC(),
		Updated:   published.UTC(),
		Status:    models.StatusPublish,
		URL:       "https://example.com/" + slug + "/",
		Tags:      []string{"go"},
		Meta:      map[string]json.RawMessage{"mf2_rsvp": json.RawMessage(`["yes"]`)},
	}
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := NewEntry("e1", "hello", time.Date(2016, 1, 1, 12, 1, 23, 0, time.UTC))
	require.NoError(t, s.CreateEntry(ctx, e))

	got, err := s.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Slug)
	assert.True(t, got.Published.Equal(e.Published))
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.JSONEq(t, `["yes"]`, string(got.Meta["mf2_rsvp"]))

	byURL, err := s.GetEntryByURL(ctx, e.URL)
	require.NoError(t, err)
	assert.Equal(t, "e1", byURL.ID)

	_, err = s.GetEntry(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = s.GetEntryByURL(ctx, "https://example.com/missing/")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testCreateConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateEntry(ctx, NewEntry("e1", "same", time.Now())))

	err := s.CreateEntry(ctx, NewEntry("e2", "same", time.Now()))
	assert.True(t, errors.Is(err, store.ErrConflict), "expected conflict, got %v", err)
}

func testUpdateMovesURL(t *testing.T, s store.Store) {
	ctx := context.Background()
	published := time.Date(2020, 5, 1, 9, 0, 0, 0, time.UTC)
	e := NewEntry("e1", "before", published)
	require.NoError(t, s.CreateEntry(ctx, e))

	e.Slug = "after"
	e.URL = "https://example.com/after/"
	e.Updated = published.Add(time.Hour)
	e.Tags = nil
	require.NoError(t, s.UpdateEntry(ctx, e))

	_, err := s.GetEntryByURL(ctx, "https://example.com/before/")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	got, err := s.GetEntryByURL(ctx, "https://example.com/after/")
	require.NoError(t, err)
	assert.True(t, got.Published.Equal(published), "published must survive update")
	assert.Empty(t, got.Tags)

	assert.True(t, errors.Is(s.UpdateEntry(ctx, NewEntry("nope", "x", published)), store.ErrNotFound))
}

func testTrashAndRestore(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := NewEntry("e1", "bin", time.Now())
	e.Status = models.StatusDraft
	require.NoError(t, s.CreateEntry(ctx, e))

	trashed, err := s.TrashEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrash, trashed.Status)
	assert.Equal(t, models.StatusDraft, trashed.PreviousStatus)

	_, err = s.GetEntryByURL(ctx, e.URL)
	assert.True(t, errors.Is(err, store.ErrNotFound), "trashed entries are hidden from URL lookup")

	fromTrash, err := s.GetTrashedByURL(ctx, e.URL)
	require.NoError(t, err)
	assert.Equal(t, "e1", fromTrash.ID)

	restored, err := s.RestoreEntry(ctx, "e1", models.StatusPublish)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublish, restored.Status)
	assert.Empty(t, restored.PreviousStatus)

	_, err = s.GetTrashedByURL(ctx, e.URL)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testListEntries(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, slug := range []string{"one", "two", "three"} {
		require.NoError(t, s.CreateEntry(ctx, NewEntry(slug, slug, base.Add(time.Duration(i)*time.Hour))))
	}
	_, err := s.TrashEntry(ctx, "two")
	require.NoError(t, err)

	all, err := s.ListEntries(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "three", all[0].ID)
	assert.Equal(t, "one", all[1].ID)

	page, err := s.ListEntries(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "one", page[0].ID)
}

func testTerms(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.EnsureTerms(ctx, models.TermCategory, []string{"news", "news"}))
	require.NoError(t, s.EnsureTerms(ctx, models.TermTag, []string{"go", "indieweb"}))

	cat, err := s.FindCategory(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, models.TermCategory, cat.Kind)

	_, err = s.FindCategory(ctx, "go")
	assert.True(t, errors.Is(err, store.ErrNotFound), "tags are not categories")

	tags, err := s.ListTerms(ctx, models.TermTag)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	cats, err := s.ListTerms(ctx, models.TermCategory)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &models.User{ID: "1", Login: "tom", ProfileURL: "https://tom.example/", Roles: []string{models.RoleAuthor}}
	require.NoError(t, s.PutUser(ctx, u))

	u.Name = "Tom"
	require.NoError(t, s.PutUser(ctx, u))

	got, err := s.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Tom", got.Name)
	assert.Equal(t, []string{models.RoleAuthor}, got.Roles)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = s.GetUser(ctx, "2")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testMedia(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutMedia(ctx, &models.Media{ID: "a", URL: "https://example.com/media/a.jpg", Type: "image/jpeg", CreatedAt: base}))
	require.NoError(t, s.PutMedia(ctx, &models.Media{ID: "b", URL: "https://example.com/media/b.png", Type: "image/png", CreatedAt: base.Add(time.Minute)}))

	list, err := s.ListMedia(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)

	require.NoError(t, s.Ping(ctx))
}
