// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"context"

	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/events"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/wal"
)

// newEventBus creates the bus on the configured transport.
func newEventBus(cfg config.EventsConfig) (*events.Bus, error) {
	busCfg := events.DefaultConfig()
	busCfg.Transport = cfg.Transport
	busCfg.NATSURL = cfg.NATSURL
	if cfg.BufferSize > 0 {
		busCfg.BufferSize = cfg.BufferSize
	}

	bus, err := events.NewBus(busCfg)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("transport", busCfg.Transport).Msg("Event bus created")
	return bus, nil
}

// newEventWAL opens the durable outbox and returns it with a publisher
// that writes through it to bus.
func newEventWAL(cfg config.WALConfig, bus events.Publisher) (*wal.WAL, *wal.DurablePublisher, error) {
	w, err := wal.Open(wal.Config{
		Path:            cfg.Path,
		SyncWrites:      cfg.SyncWrites,
		RetryInterval:   cfg.RetryInterval,
		RetryBackoff:    cfg.RetryBackoff,
		MaxRetries:      cfg.MaxRetries,
		EntryTTL:        cfg.EntryTTL,
		CompactInterval: cfg.CompactInterval,
		LeaseDuration:   cfg.LeaseDuration,
	})
	if err != nil {
		return nil, nil, err
	}
	if s := w.Stats(); s.Pending > 0 {
		logging.Info().Int64("pending", s.Pending).Msg("Undelivered events found in WAL, retry loop will recover them")
	}
	return w, wal.NewDurablePublisher(w, bus), nil
}

// subscribers are the bus consumers. Nil fields are skipped.
type subscribers struct {
	Syndication events.Handler
	Feed        events.Handler
}

// registerSubscribers wires consumers to their topics. Handlers must be
// registered before the bus starts.
func registerSubscribers(bus *events.Bus, subs subscribers) {
	if subs.Syndication != nil {
		bus.Handle("syndication", []string{events.TopicEntryCreated, events.TopicEntryUpdated}, subs.Syndication)
	}
	if subs.Feed != nil {
		bus.Handle("feed", events.AllTopics, subs.Feed)
	}
	bus.Handle("activity-log", events.AllTopics, logActivity)
}

// logActivity records each entry change in the application log.
func logActivity(ctx context.Context, ev *events.EntryEvent) error {
	logging.Ctx(ctx).Info().
		Str("event_id", ev.EventID).
		Str("action", ev.Action).
		Str("entry_id", ev.EntryID).
		Str("url", ev.URL).
		Str("user_id", ev.UserID).
		Strs("syndicate_to", ev.SyndicateTo).
		Msg("Entry changed")
	return nil
}
