// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	HTTPRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_http_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	// Micropub Metrics
	MicropubActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_micropub_actions_total",
			Help: "Total number of Micropub write actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	MicropubQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_micropub_queries_total",
			Help: "Total number of Micropub queries",
		},
		[]string{"q"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_auth_attempts_total",
			Help: "Total number of token verifications by outcome",
		},
		[]string{"outcome"},
	)

	// Media Metrics
	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_media_uploads_total",
			Help: "Total number of media uploads",
		},
		[]string{"source", "result"}, // source: "upload", "url"
	)

	MediaUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scribe_media_upload_bytes_total",
			Help: "Total bytes stored by the media endpoint",
		},
	)

	// Syndication Metrics
	SyndicationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_syndication_deliveries_total",
			Help: "Total number of syndication webhook deliveries",
		},
		[]string{"target", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scribe_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scribe_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_events_published_total",
			Help: "Total number of post-action events published",
		},
		[]string{"topic"},
	)

	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_events_handled_total",
			Help: "Total number of events handled by subscribers",
		},
		[]string{"handler", "result"},
	)

	// Event Outbox (WAL) Metrics
	WALOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_wal_operations_total",
			Help: "Event outbox operations by kind (write, confirm, retry, expired, max_retries, compacted)",
		},
		[]string{"op"},
	)

	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_wal_pending_entries",
			Help: "Events written to the outbox but not yet delivered to the bus",
		},
	)

	// Backup Metrics
	Backups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_backups_total",
			Help: "Total number of backup attempts",
		},
		[]string{"result"},
	)

	BackupLastSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_backup_last_size_bytes",
			Help: "Size of the most recent successful backup archive",
		},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight HTTP requests
func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordMicropubAction records a write action. outcome is "success" or an
// error kind.
func RecordMicropubAction(action, outcome string) {
	MicropubActions.WithLabelValues(action, outcome).Inc()
}

// RecordMicropubQuery records a GET query.
func RecordMicropubQuery(q string) {
	MicropubQueries.WithLabelValues(q).Inc()
}

// RecordAuthAttempt records a gate outcome.
func RecordAuthAttempt(outcome string) {
	AuthAttempts.WithLabelValues(outcome).Inc()
}

// RecordMediaUpload records an upload attempt.
func RecordMediaUpload(source string, size int64, err error) {
	if err != nil {
		MediaUploads.WithLabelValues(source, "error").Inc()
		return
	}
	MediaUploads.WithLabelValues(source, "success").Inc()
	MediaUploadBytes.Add(float64(size))
}

// RecordSyndication records a webhook delivery.
func RecordSyndication(target string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	SyndicationDeliveries.WithLabelValues(target, result).Inc()
}

// RecordBreakerTransition records a circuit breaker state change. States
// are the gobreaker names: "closed", "half-open", "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordEventPublished records a published event.
func RecordEventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventHandled records a subscriber outcome.
func RecordEventHandled(handler string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsHandled.WithLabelValues(handler, result).Inc()
}

// RecordWALOp counts n outbox operations of one kind.
func RecordWALOp(op string, n int) {
	WALOperations.WithLabelValues(op).Add(float64(n))
}

// SetWALPending sets the outbox backlog gauge.
func SetWALPending(n int64) {
	WALPendingEntries.Set(float64(n))
}

// RecordBackup records a backup attempt and, on success, its size.
func RecordBackup(size int64, err error) {
	if err != nil {
		Backups.WithLabelValues("error").Inc()
		return
	}
	Backups.WithLabelValues("success").Inc()
	BackupLastSizeBytes.Set(float64(size))
}
