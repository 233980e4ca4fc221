// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package mf2

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is a decoded GET request to the Micropub endpoint.
type Query struct {
	Q          string   `query:"q" validate:"required"`
	URL        string   `query:"url" validate:"omitempty,url"`
	Properties []string `query:"properties"`
	Search     string   `query:"search" validate:"max=200"`
	Limit      int      `query:"limit" validate:"gte=0"`
	Offset     int      `query:"offset" validate:"gte=0"`
	PostType   string   `query:"post-type"`

	// LimitSet reports whether limit was sent at all.
	LimitSet bool `query:"-"`
	// Raw is every parameter as received, for error debug data.
	Raw url.Values `query:"-"`
}

// FromQuery decodes GET parameters. Unparseable limit or offset values are
// reported as -1 so validation rejects them.
func FromQuery(values url.Values) Query {
	q := Query{
		Q:        strings.TrimSpace(values.Get("q")),
		URL:      values.Get("url"),
		Search:   values.Get("search"),
		PostType: values.Get("post-type"),
		Raw:      values,
	}

	for _, key := range []string{"properties", "properties[]"} {
		for _, p := range values[key] {
			if p = strings.TrimSpace(p); p != "" {
				q.Properties = append(q.Properties, p)
			}
		}
	}

	if v := values.Get("limit"); v != "" {
		q.Limit = parseCount(v)
		q.LimitSet = true
	}
	if v := values.Get("offset"); v != "" {
		q.Offset = parseCount(v)
	}
	return q
}

func parseCount(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return -1
	}
	return n
}
