// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package wal is a durable outbox for entry events, backed by BadgerDB.
//
// Without it, an event is lost if the bus rejects it (NATS down, bus
// shutting down) or the process dies between the store write and the
// publish. With it, every event is written to the WAL first:
//
//	Hook → WAL Write (lease held) → Bus Publish → WAL Confirm
//	                                    ↓ (on failure)
//	                             RecordAttempt, lease released
//	                                    ↓
//	                RetryLoop redelivers with exponential backoff
//
// # Components
//
//   - WAL: pending/confirmed entries in their own badger database
//   - DurablePublisher: events.Publisher that writes through the WAL
//   - RetryLoop: redelivers pending entries, first pass on start
//   - Compactor: drops confirmed and expired entries, runs value log GC
//
// Entries carry a lease so the publisher and the retry loop never deliver
// the same entry at once. A lease left by a crashed process expires after
// LeaseDuration and the entry becomes claimable again.
//
// Delivery is at least once. Subscribers must tolerate duplicates; the
// event id is stable across redeliveries.
package wal
