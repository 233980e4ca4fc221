// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package mf2

import (
	"net/url"
	"strings"
)

// coordinateKeys are the properties that keep a parsed geo URI an h-geo.
var coordinateKeys = map[string]bool{
	"latitude":  true,
	"longitude": true,
	"altitude":  true,
	"accuracy":  true,
}

// ParseGeoURI parses a geo: URI such as "geo:37.78,-122.39;u=35" into an
// embedded h-geo (or h-card) entry. Any other input is returned unchanged
// as a scalar.
//
// The nonstandard u parameter is renamed to accuracy. An h parameter sets
// the resulting type to h-<value>; otherwise the type is h-geo when only
// coordinate keys are present, else h-card. Empty values are dropped.
func ParseGeoURI(uri string) Value {
	if !strings.HasPrefix(uri, "geo:") {
		return Scalar(uri)
	}

	body := uri[len("geo:"):]
	if decoded, err := url.QueryUnescape(body); err == nil {
		body = decoded
	}

	parts := strings.Split(body, ";")
	coords := strings.Split(parts[0], ",")

	props := Properties{}
	var order []string
	set := func(key, val string) {
		if _, ok := props[key]; !ok {
			order = append(order, key)
		}
		props[key] = []Value{Scalar(strings.TrimSpace(val))}
	}

	set("latitude", coords[0])
	if len(coords) > 1 {
		set("longitude", coords[1])
	}
	if len(coords) > 2 {
		set("altitude", coords[2])
	}

	for _, param := range parts[1:] {
		key, val, _ := strings.Cut(param, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if key == "u" {
			key = "accuracy"
		}
		set(key, val)
	}

	entry := NewEntry()
	if h, ok := props["h"]; ok {
		entry.Type = []string{"h-" + h[0].Str()}
		delete(props, "h")
	} else {
		entry.Type = []string{"h-geo"}
		for _, key := range order {
			if !coordinateKeys[key] {
				entry.Type = []string{"h-card"}
				break
			}
		}
	}

	for key, vals := range props {
		if vals[0].IsEmpty() {
			continue
		}
		entry.Properties[key] = vals
	}
	return Nested(entry)
}

// ExpandGeoURIs replaces geo: scalar values of the named properties with
// parsed entries.
func ExpandGeoURIs(props Properties, names ...string) {
	for _, name := range names {
		for i, v := range props[name] {
			if v.Kind() == KindScalar && strings.HasPrefix(v.Str(), "geo:") {
				props[name][i] = ParseGeoURI(v.Str())
			}
		}
	}
}
