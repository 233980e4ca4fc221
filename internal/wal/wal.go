// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
)

var (
	ErrClosed        = errors.New("wal: closed")
	ErrEntryNotFound = errors.New("wal: entry not found")
	ErrEmptyPayload  = errors.New("wal: empty payload")
)

// Key prefixes
const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"
)

// Entry is one event held by the WAL.
type Entry struct {
	ID            string          `json:"id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	ConfirmedAt   time.Time       `json:"confirmed_at,omitempty"`

	// Zero LeaseExpiry means unclaimed.
	LeaseExpiry time.Time `json:"lease_expiry,omitempty"`
	LeaseHolder string    `json:"lease_holder,omitempty"`
}

// leased reports whether someone other than holder holds a live lease.
func (e *Entry) leased(holder string, now time.Time) bool {
	return !e.LeaseExpiry.IsZero() && now.Before(e.LeaseExpiry) && e.LeaseHolder != holder
}

// Stats is a point-in-time view of the WAL.
type Stats struct {
	Pending        int64
	Confirmed      int64
	Writes         int64
	Confirms       int64
	Retries        int64
	LastCompaction time.Time
}

// WAL stores pending and confirmed entries in badger.
type WAL struct {
	db  *badger.DB
	cfg Config
	now func() time.Time

	writes   atomic.Int64
	confirms atomic.Int64
	retries  atomic.Int64

	mu             sync.RWMutex
	closed         bool
	lastCompaction time.Time
}

// Open validates cfg and opens the WAL database.
func Open(cfg Config) (*WAL, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Event WAL opened")
	return &WAL{db: db, cfg: cfg, now: time.Now}, nil
}

// Config returns the configuration the WAL was opened with.
func (w *WAL) Config() Config {
	return w.cfg
}

func (w *WAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}

// Write persists payload as a new pending entry. A non-empty holder takes
// the lease immediately so the retry loop leaves the entry alone while the
// caller delivers it.
func (w *WAL) Write(ctx context.Context, payload []byte, holder string) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	now := w.now().UTC()
	e := &Entry{
		ID:        uuid.NewString(),
		Payload:   payload,
		CreatedAt: now,
	}
	if holder != "" {
		e.LeaseHolder = holder
		e.LeaseExpiry = now.Add(w.cfg.LeaseDuration)
	}

	err := w.db.Update(func(txn *badger.Txn) error {
		return putEntry(txn, prefixPending+e.ID, e)
	})
	if err != nil {
		return "", fmt.Errorf("write wal entry: %w", err)
	}
	w.writes.Add(1)
	metrics.RecordWALOp("write", 1)
	return e.ID, nil
}

// Confirm moves an entry from pending to confirmed. The compactor deletes
// it later.
func (w *WAL) Confirm(ctx context.Context, id string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	err := w.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, prefixPending+id)
		if err != nil {
			return err
		}
		e.ConfirmedAt = w.now().UTC()
		e.LeaseExpiry = time.Time{}
		e.LeaseHolder = ""
		if err := putEntry(txn, prefixConfirmed+id, e); err != nil {
			return err
		}
		return txn.Delete([]byte(prefixPending + id))
	})
	if err != nil {
		return err
	}
	w.confirms.Add(1)
	metrics.RecordWALOp("confirm", 1)
	return nil
}

// Pending returns every unconfirmed entry, oldest key first.
func (w *WAL) Pending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}
	var out []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Entry
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping unreadable WAL entry")
				continue
			}
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read pending wal entries: %w", err)
	}
	return out, nil
}

// RecordAttempt notes a failed delivery and releases the lease.
func (w *WAL) RecordAttempt(ctx context.Context, id string, cause error) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	err := w.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, prefixPending+id)
		if err != nil {
			return err
		}
		e.Attempts++
		e.LastAttemptAt = w.now().UTC()
		if cause != nil {
			e.LastError = cause.Error()
		}
		e.LeaseExpiry = time.Time{}
		e.LeaseHolder = ""
		return putEntry(txn, prefixPending+id, e)
	})
	if err != nil {
		return err
	}
	w.retries.Add(1)
	metrics.RecordWALOp("retry", 1)
	return nil
}

// TryClaim takes the lease on a pending entry for holder. It returns false
// when another holder's lease is still live. Claiming an entry holder
// already owns extends the lease.
func (w *WAL) TryClaim(ctx context.Context, id, holder string) (bool, error) {
	if err := w.checkOpen(); err != nil {
		return false, err
	}
	var claimed bool
	err := w.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, prefixPending+id)
		if err != nil {
			return err
		}
		now := w.now().UTC()
		if e.leased(holder, now) {
			return nil
		}
		e.LeaseHolder = holder
		e.LeaseExpiry = now.Add(w.cfg.LeaseDuration)
		claimed = true
		return putEntry(txn, prefixPending+id, e)
	})
	return claimed, err
}

// Release drops the lease on a pending entry. Missing entries are ignored.
func (w *WAL) Release(ctx context.Context, id string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	return w.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, prefixPending+id)
		if errors.Is(err, ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		e.LeaseExpiry = time.Time{}
		e.LeaseHolder = ""
		return putEntry(txn, prefixPending+id, e)
	})
}

// Delete removes an entry in either state.
func (w *WAL) Delete(ctx context.Context, id string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	return w.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{prefixPending + id, prefixConfirmed + id} {
			if _, err := txn.Get([]byte(key)); err == nil {
				return txn.Delete([]byte(key))
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return ErrEntryNotFound
	})
}

// Stats counts entries and refreshes the pending gauge.
func (w *WAL) Stats() Stats {
	w.mu.RLock()
	closed, last := w.closed, w.lastCompaction
	w.mu.RUnlock()
	if closed {
		return Stats{}
	}

	s := Stats{
		Writes:         w.writes.Load(),
		Confirms:       w.confirms.Load(),
		Retries:        w.retries.Load(),
		LastCompaction: last,
	}
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, p := range []struct {
			prefix string
			n      *int64
		}{{prefixPending, &s.Pending}, {prefixConfirmed, &s.Confirmed}} {
			prefix := []byte(p.prefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				*p.n++
			}
		}
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("WAL stats failed")
	}
	metrics.SetWALPending(s.Pending)
	return s
}

// Close closes the database. Later calls are no-ops.
func (w *WAL) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("close wal: %w", err)
	}
	logging.Info().Msg("Event WAL closed")
	return nil
}

func getEntry(txn *badger.Txn, key string) (*Entry, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
		return nil, fmt.Errorf("decode wal entry: %w", err)
	}
	return &e, nil
}

func putEntry(txn *badger.Txn, key string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode wal entry: %w", err)
	}
	return txn.Set([]byte(key), data)
}
