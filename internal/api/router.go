// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/media"
	"github.com/tomtom215/scribe/internal/micropub"
	"github.com/tomtom215/scribe/internal/middleware"
	"github.com/tomtom215/scribe/internal/websocket"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the router serves. Media and Hub are optional.
type Deps struct {
	Config       *config.Config
	Pipeline     *micropub.Pipeline
	Gate         micropub.Authorizer
	Capabilities micropub.CapabilityChecker
	Media        *media.Service
	Hub          *websocket.Hub
	Checks       []ReadinessCheck
}

// Router owns the HTTP handlers.
type Router struct {
	deps      Deps
	chi       *ChiMiddleware
	links     string
	startTime time.Time
}

// NewRouter validates deps and builds a Router.
func NewRouter(deps Deps) (*Router, error) {
	if deps.Config == nil {
		return nil, errors.New("api: config is required")
	}
	if deps.Pipeline == nil || deps.Gate == nil {
		return nil, errors.New("api: pipeline and gate are required")
	}

	sec := deps.Config.Security
	rt := &Router{
		deps: deps,
		chi: NewChiMiddleware(ChiMiddlewareConfig{
			CORSAllowedOrigins: sec.CORSOrigins,
			RateLimitRequests:  sec.RateLimitReqs,
			RateLimitWindow:    sec.RateLimitWindow,
			RateLimitDisabled:  sec.RateLimitDisabled,
		}),
		startTime: time.Now(),
	}
	rt.links = linkHeader(rt.discoveryLinks())
	return rt, nil
}

// Handler returns the routed handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.chi.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.Get("/healthz", rt.Healthz)
	r.Get("/readyz", rt.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(rt.advertise)
		r.Get("/", rt.Index)
		r.Get("/.well-known/host-meta", rt.HostMeta)
		r.Get("/.well-known/host-meta.json", rt.HostMeta)
		r.Get("/.well-known/webfinger", rt.WebFinger)
	})

	r.Route("/micropub", func(r chi.Router) {
		r.Use(rt.chi.RateLimit("micropub"))
		r.Use(rt.advertise)
		r.With(middleware.Compression).Get("/", rt.Micropub)
		r.Post("/", rt.Micropub)

		if rt.deps.Media != nil {
			r.With(middleware.Compression).Get("/media", rt.MediaQuery)
			r.Post("/media", rt.MediaUpload)
		}
	})

	if rt.deps.Media != nil {
		prefix := mediaPathPrefix(rt.deps.Config)
		r.Handle(prefix+"*", http.StripPrefix(strings.TrimSuffix(prefix, "/"), rt.deps.Media.FileServer()))
	}

	if rt.deps.Hub != nil {
		r.Get("/ws", rt.WebSocket)
	}

	return r
}

// mediaPathPrefix is the path component of the media base URL, served
// locally only when it lives on the site's host.
func mediaPathPrefix(cfg *config.Config) string {
	base, err := url.Parse(cfg.MediaBaseURL())
	if err != nil {
		return "/media/"
	}
	site, err := url.Parse(cfg.SiteURL())
	if err == nil && base.Host != "" && base.Host != site.Host {
		return "/media/"
	}
	p := "/" + strings.Trim(base.Path, "/") + "/"
	if p == "//" {
		return "/media/"
	}
	return p
}

// Micropub serves GET queries and POST actions on the Micropub endpoint.
func (rt *Router) Micropub(w http.ResponseWriter, r *http.Request) {
	res, err := rt.deps.Pipeline.Handle(r.Context(), r)
	if err != nil {
		writeMicropubError(w, r, err, rt.deps.Config.Micropub.Debug)
		return
	}
	writeResult(w, r, res)
}
