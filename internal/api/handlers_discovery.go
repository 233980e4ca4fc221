// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package api

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomtom215/scribe/internal/logging"
)

// Link relation names advertised for discovery.
const (
	RelMicropub      = "micropub"
	RelMediaEndpoint = "media-endpoint"
	RelToken         = "token_endpoint"
	RelAuthorization = "authorization_endpoint"
)

const contentTypeJRD = "application/jrd+json"

// Link is one JRD link.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// JRD is a JSON Resource Descriptor (RFC 7033).
type JRD struct {
	Subject string   `json:"subject,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []Link   `json:"links"`
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
{{range .Links}}<link rel="{{.Rel}}" href="{{.Href}}">
{{end}}</head>
<body>
<h1><a class="u-url p-name" href="{{.URL}}">{{.Name}}</a></h1>
<p>Micropub endpoint: <code>{{.Endpoint}}</code></p>
</body>
</html>
`))

// discoveryLinks lists the endpoints a Micropub client needs.
func (rt *Router) discoveryLinks() []Link {
	cfg := rt.deps.Config
	links := []Link{{Rel: RelMicropub, Href: cfg.MicropubEndpoint()}}
	if ep := cfg.MediaEndpoint(); ep != "" && rt.deps.Media != nil {
		links = append(links, Link{Rel: RelMediaEndpoint, Href: ep})
	}
	if ep := cfg.IndieAuth.AuthorizationEndpoint; ep != "" {
		links = append(links, Link{Rel: RelAuthorization, Href: ep})
	}
	if ep := cfg.IndieAuth.TokenEndpoint; ep != "" {
		links = append(links, Link{Rel: RelToken, Href: ep})
	}
	return links
}

func linkHeader(links []Link) string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		parts = append(parts, fmt.Sprintf("<%s>; rel=%q", l.Href, l.Rel))
	}
	return strings.Join(parts, ", ")
}

// advertise adds discovery Link headers.
func (rt *Router) advertise(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Link", rt.links)
		next.ServeHTTP(w, r)
	})
}

// Index serves a minimal page carrying the discovery links.
func (rt *Router) Index(w http.ResponseWriter, r *http.Request) {
	cfg := rt.deps.Config
	name := cfg.Site.Name
	if name == "" {
		name = cfg.SiteURL()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, map[string]interface{}{
		"Name":     name,
		"URL":      cfg.SiteURL(),
		"Endpoint": cfg.MicropubEndpoint(),
		"Links":    rt.discoveryLinks(),
	})
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to render index")
	}
}

// HostMeta serves the discovery links as JRD, or as plain JSON when
// format=json is requested.
func (rt *Router) HostMeta(w http.ResponseWriter, r *http.Request) {
	contentType := contentTypeJRD
	if r.URL.Query().Get("format") == "json" || strings.HasSuffix(r.URL.Path, ".json") {
		contentType = contentTypeJSON
	}
	writeJSONType(w, r, http.StatusOK, contentType, JRD{Links: rt.discoveryLinks()})
}

// WebFinger describes the site owner for acct: or site URL resources.
func (rt *Router) WebFinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		http.Error(w, "missing resource", http.StatusBadRequest)
		return
	}
	if !rt.ownsResource(resource) {
		http.NotFound(w, r)
		return
	}

	site := rt.deps.Config.SiteURL()
	links := append([]Link{{Rel: "self", Href: site}}, rt.discoveryLinks()...)
	writeJSONType(w, r, http.StatusOK, contentTypeJRD, JRD{
		Subject: resource,
		Aliases: []string{site},
		Links:   links,
	})
}

// ownsResource matches acct:user@host and URLs on the site's host.
func (rt *Router) ownsResource(resource string) bool {
	site, err := url.Parse(rt.deps.Config.SiteURL())
	if err != nil {
		return false
	}
	host := strings.ToLower(site.Hostname())

	if acct, ok := strings.CutPrefix(resource, "acct:"); ok {
		at := strings.LastIndex(acct, "@")
		return at > 0 && strings.ToLower(acct[at+1:]) == host
	}
	u, err := url.Parse(resource)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return strings.ToLower(u.Hostname()) == host
}
