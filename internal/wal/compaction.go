// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
)

const gcDiscardRatio = 0.5

// Compactor removes confirmed and expired entries.
type Compactor struct {
	wal *WAL
}

// NewCompactor creates a compactor for w.
func NewCompactor(w *WAL) *Compactor {
	return &Compactor{wal: w}
}

// Run compacts every CompactInterval until ctx is done.
func (c *Compactor) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.wal.Config().CompactInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := c.Compact(ctx); err != nil && ctx.Err() == nil {
				logging.Warn().Err(err).Msg("WAL compaction failed")
			}
		}
	}
}

// Compact deletes every confirmed entry and every pending entry older
// than EntryTTL, then reclaims value log space.
func (c *Compactor) Compact(ctx context.Context) (confirmed, expired int, err error) {
	if err := c.wal.checkOpen(); err != nil {
		return 0, 0, err
	}
	start := time.Now()
	cutoff := c.wal.now().Add(-c.wal.Config().EntryTTL)

	err = c.wal.db.Update(func(txn *badger.Txn) error {
		var doomed [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)

		prefix := []byte(prefixConfirmed)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			doomed = append(doomed, it.Item().KeyCopy(nil))
			confirmed++
		}

		prefix = []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				continue
			}
			if e.CreatedAt.Before(cutoff) {
				doomed = append(doomed, it.Item().KeyCopy(nil))
				expired++
			}
		}
		it.Close()

		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("compact wal: %w", err)
	}

	if err := c.runGC(ctx); err != nil {
		logging.Warn().Err(err).Msg("WAL value log GC failed")
	}

	c.wal.mu.Lock()
	c.wal.lastCompaction = time.Now()
	c.wal.mu.Unlock()

	metrics.RecordWALOp("compacted", confirmed+expired)
	if expired > 0 {
		metrics.RecordWALOp("expired", expired)
	}
	if confirmed+expired > 0 {
		logging.Info().
			Int("confirmed", confirmed).
			Int("expired", expired).
			Dur("duration", time.Since(start)).
			Msg("WAL compaction removed entries")
	}
	return confirmed, expired, nil
}

func (c *Compactor) runGC(ctx context.Context) error {
	for ctx.Err() == nil {
		err := c.wal.db.RunValueLogGC(gcDiscardRatio)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		default:
			return err
		}
	}
	return ctx.Err()
}
