// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package api

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

// Healthz reports liveness regardless of dependencies.
func (rt *Router) Healthz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	writeAPIResponse(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(rt.startTime).Seconds(),
	}, start)
}

// Readyz runs every readiness check and answers 503 if any fails.
func (rt *Router) Readyz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(rt.deps.Checks))
	ready := true
	for _, c := range rt.deps.Checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}

	status, state := http.StatusOK, "ready"
	if !ready {
		status, state = http.StatusServiceUnavailable, "not_ready"
	}
	writeAPIResponse(w, r, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	}, start)
}
