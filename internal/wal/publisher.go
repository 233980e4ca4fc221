// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package wal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/scribe/internal/events"
	"github.com/tomtom215/scribe/internal/logging"
)

// DurablePublisher writes each event to the WAL before publishing it to
// next. It also delivers WAL entries for the RetryLoop.
type DurablePublisher struct {
	wal    *WAL
	next   events.Publisher
	holder string
}

var (
	_ events.Publisher = (*DurablePublisher)(nil)
	_ Deliverer        = (*DurablePublisher)(nil)
)

// NewDurablePublisher wraps next.
func NewDurablePublisher(w *WAL, next events.Publisher) *DurablePublisher {
	return &DurablePublisher{wal: w, next: next, holder: "publisher-" + uuid.NewString()[:8]}
}

// Publish persists ev and then publishes it. Once the WAL write succeeds a
// publish failure is not returned; the entry stays pending for the retry
// loop.
func (p *DurablePublisher) Publish(ctx context.Context, ev *events.EntryEvent) error {
	data, err := events.Marshal(ev)
	if err != nil {
		return err
	}
	id, err := p.wal.Write(ctx, data, p.holder)
	if err != nil {
		return fmt.Errorf("persist event: %w", err)
	}

	if err := p.next.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("event_id", ev.EventID).
			Str("wal_entry", id).
			Msg("Event publish failed, queued for retry")
		if err := p.wal.RecordAttempt(context.WithoutCancel(ctx), id, err); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("wal_entry", id).Msg("Recording failed publish attempt")
		}
		return nil
	}

	if err := p.wal.Confirm(context.WithoutCancel(ctx), id); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("wal_entry", id).Msg("Confirming published event")
	}
	return nil
}

// Deliver implements Deliverer.
func (p *DurablePublisher) Deliver(ctx context.Context, e *Entry) error {
	ev, err := events.Unmarshal(e.Payload)
	if err != nil {
		return err
	}
	return p.next.Publish(ctx, ev)
}
