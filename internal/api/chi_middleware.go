// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/scribe/internal/metrics"
	"github.com/tomtom215/scribe/internal/micropub"
)

// ChiMiddlewareConfig configures CORS and rate limiting.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// ChiMiddleware builds the chi ecosystem middleware.
type ChiMiddleware struct {
	config ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates middleware factories for config.
func NewChiMiddleware(config ChiMiddlewareConfig) *ChiMiddleware {
	if config.CORSMaxAge == 0 {
		config.CORSMaxAge = 86400
	}
	if config.RateLimitRequests <= 0 {
		config.RateLimitRequests = 100
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = time.Minute
	}

	return &ChiMiddleware{
		config: config,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: config.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Location", "Link", "X-Request-ID"},
			MaxAge:         config.CORSMaxAge,
		}),
	}
}

// CORS lets browser-based Micropub clients call the endpoints.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits requests per client IP. route labels rejections.
func (m *ChiMiddleware) RateLimit(route string) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		m.config.RateLimitRequests,
		m.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPRateLimitHits.WithLabelValues(route).Inc()
			writeJSON(w, r, http.StatusTooManyRequests, micropub.Envelope{
				Error:       "too_many_requests",
				Description: "rate limit exceeded",
			})
		}),
	)
}
