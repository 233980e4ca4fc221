// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package badgerstore implements store.Store on BadgerDB.
//
// Records are JSON values under prefixed keys. Secondary indexes map a URL
// to an entry id and a sortable publish time to an entry id, so URL lookups
// and newest-first listing never scan the full entry set.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/store"
)

// Key prefixes for BadgerDB storage
const (
	entryPrefix     = "entry:"
	entryURLPrefix  = "entry_url:"
	entryTimePrefix = "entry_time:"
	termPrefix      = "term:"
	userPrefix      = "user:"
	mediaPrefix     = "media:"
)

// sortableTime is lexicographically ordered for years 0000-9999.
const sortableTime = "20060102T150405.000000000"

// Options configures Open.
type Options struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Store is a BadgerDB-backed content store.
type Store struct {
	db     *badger.DB
	ownsDB bool
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) a database. InMemory ignores Path.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.SyncWrites = opts.SyncWrites
	bopts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Msg("Badger content store opened")
	return &Store{db: db, ownsDB: true}, nil
}

// New wraps an already open database. Close leaves db open.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store: closed")
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// gcDiscardRatio is the fraction of a value log file that must be stale
// before GC rewrites it.
const gcDiscardRatio = 0.5

// RunGC reclaims value log space until there is nothing left to rewrite.
// It is a no-op for in-memory databases.
func (s *Store) RunGC(ctx context.Context) error {
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		default:
			return fmt.Errorf("badger value log gc: %w", err)
		}
	}
	return ctx.Err()
}

// Snapshot writes a full badger backup stream to w. Load it with
// badger's DB.Load or the "badger restore" tool.
func (s *Store) Snapshot(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("badger backup: %w", err)
	}
	return nil
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func getJSON(txn *badger.Txn, key string, v interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func getString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func deleteKey(txn *badger.Txn, key string) error {
	if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// scanReverse visits values under prefix from the highest key down.
func scanReverse(txn *badger.Txn, prefix string, fn func(val []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := append([]byte(prefix), 0xFF)
	for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
		var more bool
		err := it.Item().Value(func(val []byte) error {
			var err error
			more, err = fn(val)
			return err
		})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// scan visits values under prefix in key order.
func scan(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
