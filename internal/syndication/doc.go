// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package syndication advertises syndication targets for q=syndicate-to and
// delivers entries to them after they are published.
//
// Each target is a webhook. When an entry event names a target in
// mp-syndicate-to, the Dispatcher POSTs the entry as JSON to the target's
// webhook. A JSON response of the form {"url": "..."} is recorded in the
// entry's syndication property. Deliveries share one rate limiter and each
// target has its own circuit breaker.
package syndication
