// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package wal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
)

const (
	maxBackoff     = 5 * time.Minute
	deliverTimeout = 10 * time.Second
)

// Deliverer hands a WAL entry to its destination.
type Deliverer interface {
	Deliver(ctx context.Context, e *Entry) error
}

// RetryResult counts the outcome of one pass over pending entries.
type RetryResult struct {
	Delivered int
	Failed    int
	Expired   int
	Abandoned int // hit MaxRetries
	Skipped   int // leased elsewhere or backing off
}

// RetryLoop redelivers pending entries.
type RetryLoop struct {
	wal     *WAL
	deliver Deliverer
	holder  string
}

// NewRetryLoop creates a loop delivering through d.
func NewRetryLoop(w *WAL, d Deliverer) *RetryLoop {
	return &RetryLoop{
		wal:     w,
		deliver: d,
		holder:  "retry-" + uuid.NewString()[:8],
	}
}

// Run makes one pass immediately, recovering entries left by a previous
// process, then one pass per RetryInterval until ctx is done.
func (r *RetryLoop) Run(ctx context.Context) error {
	cfg := r.wal.Config()
	logging.Info().
		Dur("interval", cfg.RetryInterval).
		Int("max_retries", cfg.MaxRetries).
		Msg("WAL retry loop started")

	r.logPass(r.RetryPending(ctx))

	ticker := time.NewTicker(cfg.RetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.logPass(r.RetryPending(ctx))
		}
	}
}

func (r *RetryLoop) logPass(res RetryResult) {
	if res.Delivered+res.Failed+res.Expired+res.Abandoned == 0 {
		return
	}
	logging.Info().
		Int("delivered", res.Delivered).
		Int("failed", res.Failed).
		Int("expired", res.Expired).
		Int("abandoned", res.Abandoned).
		Int("skipped", res.Skipped).
		Msg("WAL retry pass complete")
}

// RetryPending makes one pass over pending entries.
func (r *RetryLoop) RetryPending(ctx context.Context) RetryResult {
	var res RetryResult
	entries, err := r.wal.Pending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error().Err(err).Msg("WAL retry: listing pending entries failed")
		}
		return res
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		switch r.process(ctx, e) {
		case outcomeDelivered:
			res.Delivered++
		case outcomeFailed:
			res.Failed++
		case outcomeExpired:
			res.Expired++
		case outcomeAbandoned:
			res.Abandoned++
		case outcomeSkipped:
			res.Skipped++
		}
	}
	r.wal.Stats()
	return res
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeFailed
	outcomeExpired
	outcomeAbandoned
	outcomeSkipped
)

func (r *RetryLoop) process(ctx context.Context, e *Entry) outcome {
	cfg := r.wal.Config()
	now := r.wal.now()

	claimed, err := r.wal.TryClaim(ctx, e.ID, r.holder)
	if err != nil {
		logging.Warn().Err(err).Str("entry_id", e.ID).Msg("WAL retry: claim failed")
		return outcomeFailed
	}
	if !claimed {
		return outcomeSkipped
	}

	if now.Sub(e.CreatedAt) > cfg.EntryTTL {
		r.drop(ctx, e, "expired")
		return outcomeExpired
	}
	if e.Attempts >= cfg.MaxRetries {
		r.drop(ctx, e, "max_retries")
		return outcomeAbandoned
	}
	if !e.LastAttemptAt.IsZero() && now.Sub(e.LastAttemptAt) < backoff(cfg.RetryBackoff, e.Attempts) {
		if err := r.wal.Release(ctx, e.ID); err != nil {
			logging.Warn().Err(err).Str("entry_id", e.ID).Msg("WAL retry: release failed")
		}
		return outcomeSkipped
	}

	dctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	err = r.deliver.Deliver(dctx, e)
	cancel()
	if err != nil {
		logging.Warn().Err(err).
			Str("entry_id", e.ID).
			Int("attempt", e.Attempts+1).
			Msg("WAL retry: delivery failed")
		if err := r.wal.RecordAttempt(ctx, e.ID, err); err != nil {
			logging.Error().Err(err).Str("entry_id", e.ID).Msg("WAL retry: recording attempt failed")
		}
		return outcomeFailed
	}
	if err := r.wal.Confirm(ctx, e.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", e.ID).Msg("WAL retry: confirm failed")
		return outcomeFailed
	}
	return outcomeDelivered
}

func (r *RetryLoop) drop(ctx context.Context, e *Entry, reason string) {
	logging.Warn().
		Str("entry_id", e.ID).
		Str("reason", reason).
		Int("attempts", e.Attempts).
		Str("last_error", e.LastError).
		Msg("WAL retry: dropping undeliverable entry")
	if err := r.wal.Delete(ctx, e.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", e.ID).Msg("WAL retry: delete failed")
		return
	}
	metrics.RecordWALOp(reason, 1)
}

// backoff is base doubled per prior attempt, capped at maxBackoff.
func backoff(base time.Duration, attempts int) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff || d <= 0 {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
