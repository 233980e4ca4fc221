// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package middleware provides the HTTP middleware shared by every Scribe route.

  - RequestID: reuses or generates an X-Request-ID and seeds the logging context
  - PrometheusMetrics: request counts, latency and in-flight gauge, labelled by
    chi route pattern so path parameters do not explode label cardinality
  - Compression: gzip for JSON query responses

The api package composes them with chi's Recoverer and RealIP:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
