// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package mf2

import (
	"testing"
)

func TestParseGeoURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantType  string
		wantProps map[string]string
	}{
		{
			name:     "accuracy parameter",
			input:    "geo:37.786971,-122.399677;u=35",
			wantType: "h-geo",
			wantProps: map[string]string{
				"latitude":  "37.786971",
				"longitude": "-122.399677",
				"accuracy":  "35",
			},
		},
		{
			name:     "altitude",
			input:    "geo:42.361,-71.092,1500;u=25000",
			wantType: "h-geo",
			wantProps: map[string]string{
				"latitude":  "42.361",
				"longitude": "-71.092",
				"altitude":  "1500",
				"accuracy":  "25000",
			},
		},
		{
			name:     "whitespace trimmed",
			input:    "geo: 12.5 , 7.25 ;u= 10",
			wantType: "h-geo",
			wantProps: map[string]string{
				"latitude":  "12.5",
				"longitude": "7.25",
				"accuracy":  "10",
			},
		},
		{
			name:     "extra parameter makes h-card",
			input:    "geo:45.5,-122.6;name=Powell's",
			wantType: "h-card",
			wantProps: map[string]string{
				"latitude":  "45.5",
				"longitude": "-122.6",
				"name":      "Powell's",
			},
		},
		{
			name:     "h parameter overrides type",
			input:    "geo:45.5,-122.6;h=adr;locality=Portland",
			wantType: "h-adr",
			wantProps: map[string]string{
				"latitude":  "45.5",
				"longitude": "-122.6",
				"locality":  "Portland",
			},
		},
		{
			name:     "empty values dropped",
			input:    "geo:45.5,-122.6;u=",
			wantType: "h-geo",
			wantProps: map[string]string{
				"latitude":  "45.5",
				"longitude": "-122.6",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := ParseGeoURI(tt.input)
			if v.Kind() != KindEntry {
				t.Fatalf("Expected entry, got %s", v.Kind())
			}
			e := v.Entry()
			if len(e.Type) != 1 || e.Type[0] != tt.wantType {
				t.Errorf("Expected type %s, got %v", tt.wantType, e.Type)
			}
			if len(e.Properties) != len(tt.wantProps) {
				t.Errorf("Expected %d properties, got %d: %v", len(tt.wantProps), len(e.Properties), e.Properties.Keys())
			}
			for k, want := range tt.wantProps {
				vals := e.Properties[k]
				if len(vals) != 1 || vals[0].Str() != want {
					t.Errorf("Expected %s=[%s], got %v", k, want, vals)
				}
			}
		})
	}
}

func TestParseGeoURI_NonGeoUnchanged(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"Portland, Oregon", "https://example.com/venue", ""} {
		v := ParseGeoURI(in)
		if v.Kind() != KindScalar || v.Str() != in {
			t.Errorf("ParseGeoURI(%q) should return input unchanged, got %v", in, v)
		}
	}
}

func TestExpandGeoURIs(t *testing.T) {
	t.Parallel()

	props := Properties{
		"location": Scalars("geo:1,2"),
		"checkin":  Scalars("Somewhere"),
		"content":  Scalars("geo:3,4"),
	}
	ExpandGeoURIs(props, "location", "checkin")

	if props["location"][0].Kind() != KindEntry {
		t.Error("Expected location to be parsed into an entry")
	}
	if props["checkin"][0].Kind() != KindScalar {
		t.Error("Expected non-geo checkin to stay scalar")
	}
	if props["content"][0].Kind() != KindScalar {
		t.Error("Expected content to be left alone")
	}
}
