// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package events carries post-action notifications from the Micropub pipeline
to background consumers.

After every successful create, update, delete or undelete the pipeline's
ActionHook publishes an EntryEvent to one of four topics:

	entry.created
	entry.updated
	entry.deleted
	entry.undeleted

Consumers (the websocket feed and the syndication dispatcher) register
handlers on a Bus before it starts. The Bus wraps a Watermill router with
panic recovery and exponential-backoff retry. The default transport is an
in-process Go channel; builds with the nats tag can use a NATS server
instead, which lets several Scribe instances share one event stream.

Publishing never fails a Micropub request: errors are logged and counted.
*/
package events
