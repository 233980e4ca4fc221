// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package websocket provides the live entry feed served at /ws.

A Hub owns the set of connected clients and fans out messages to them. It
runs under the supervisor via RunWithContext and subscribes to the event
bus through HandleEvent, so every published, updated, deleted or restored
entry reaches connected browsers as an "entry" message:

	{"type": "entry", "data": {"action": "create", "id": "...", "url": "...", ...}}

Drafts and private entries are not broadcast; deletions always are, so a
reader can drop an entry it already shows.

Clients may send {"type": "ping"} and receive {"type": "pong"}. The server
also pings at the protocol level to detect dead connections.

# Concurrency

The hub goroutine is the only writer to its client map outside shutdown.
Each client has a buffered send channel drained by its write pump; a client
whose buffer is full is dropped rather than blocking the broadcast.
*/
package websocket
