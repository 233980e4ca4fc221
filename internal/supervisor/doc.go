// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package supervisor runs Scribe's long-lived services under a suture tree.

The root supervisor has three layers so a failure in one does not take down
the others:

	scribe
	├── data-layer        store value log GC
	├── messaging-layer   event bus router, websocket hub
	└── api-layer         HTTP server

Each service implements suture.Service (Serve(ctx) error) and returns when
its context is canceled. Crashing services are restarted with suture's
backoff; supervisor events are logged through sutureslog onto the zerolog
backed slog logger.

Adapters for the concrete components live in the services subpackage.
*/
package supervisor
