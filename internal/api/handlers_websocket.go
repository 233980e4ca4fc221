// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/websocket"
)

func (rt *Router) upgrader() gws.Upgrader {
	return gws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      rt.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts the site's own origin and configured CORS
// origins. Requests without an Origin header are rejected.
func (rt *Router) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if site, err := url.Parse(rt.deps.Config.SiteURL()); err == nil {
		if strings.EqualFold(origin, site.Scheme+"://"+site.Host) {
			return true
		}
	}
	for _, allowed := range rt.deps.Config.Security.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades the connection and joins it to the entry feed.
func (rt *Router) WebSocket(w http.ResponseWriter, r *http.Request) {
	up := rt.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(rt.deps.Hub, conn)
	if err := rt.deps.Hub.Register(r.Context(), client); err != nil {
		_ = conn.Close()
		return
	}
	client.Start()
}
