// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package metrics provides Prometheus metrics collection and export.

Metrics are registered on the default registry at init and exposed at
/metrics by promhttp:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP Metrics:
  - scribe_http_requests_total: requests by method, route and status code
  - scribe_http_request_duration_seconds: latency by method and route
  - scribe_http_active_requests: in-flight requests

Micropub Metrics:
  - scribe_micropub_actions_total: write actions by action and outcome
    (success, or the error kind returned to the client)
  - scribe_micropub_queries_total: GET queries by q
  - scribe_auth_attempts_total: gate outcomes (verified, no_token,
    rejected, no_scope, error)

Media and Syndication:
  - scribe_media_uploads_total, scribe_media_upload_bytes
  - scribe_syndication_deliveries_total by target and result

Circuit Breakers (token endpoint, syndication webhooks):
  - scribe_circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - scribe_circuit_breaker_state_transitions_total

WebSocket Metrics:
  - scribe_websocket_connections, scribe_websocket_messages_sent_total

Events:
  - scribe_events_published_total by topic
*/
package metrics
