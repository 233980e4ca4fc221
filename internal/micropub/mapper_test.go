// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
)

func TestSanitizeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"my_slug", "my_slug"},
		{"Hello World", "hello-world"},
		{"  Trim me!  ", "trim-me"},
		{"a//b??c", "a-b-c"},
		{"Ünïcode", "n-code"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := SanitizeSlug(tt.in); got != tt.want {
			t.Errorf("SanitizeSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fixedTitle string

func (f fixedTitle) SuggestTitle(context.Context, mf2.Properties) string { return string(f) }

func TestToEntrySlugFallbacks(t *testing.T) {
	t.Parallel()

	now := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)
	base := Mapper{SiteURL: "https://example.com/", Now: func() time.Time { return now }}

	tests := []struct {
		name   string
		props  mf2.Properties
		titles TitleSuggester
		want   string
	}{
		{name: "mp-slug", props: mf2.Properties{"mp-slug": mf2.Scalars("Given Slug"), "name": mf2.Scalars("Ignored")}, want: "given-slug"},
		{name: "name", props: mf2.Properties{"name": mf2.Scalars("My Article")}, want: "my-article"},
		{name: "suggested", props: mf2.Properties{}, titles: fixedTitle("Suggested Title"), want: "suggested-title"},
		{name: "time", props: mf2.Properties{}, want: "20200506-070809"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := base
			m.Titles = tt.titles
			e, err := m.ToEntry(context.Background(), nil, tt.props, nil)
			if err != nil {
				t.Fatalf("ToEntry: %v", err)
			}
			if e.Slug != tt.want {
				t.Errorf("slug = %q, want %q", e.Slug, tt.want)
			}
			if wantURL := "https://example.com/2020/05/" + tt.want + "/"; e.URL != wantURL {
				t.Errorf("url = %q, want %q", e.URL, wantURL)
			}
		})
	}
}

func TestToEntryPermalinkUsesSiteTimezone(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	m := &Mapper{SiteURL: "https://example.com", Permalink: "{year}/{month}/{day}/{slug}", Location: tokyo}
	props := mf2.Properties{
		"mp-slug":   mf2.Scalars("late"),
		"published": mf2.Scalars("2016-01-31T20:00:00Z"),
	}

	e, err := m.ToEntry(context.Background(), nil, props, nil)
	if err != nil {
		t.Fatalf("ToEntry: %v", err)
	}
	if e.URL != "https://example.com/2016/02/01/late" {
		t.Errorf("url = %q", e.URL)
	}
	if e.PublishedLocal != "2016-02-01 05:00:00" || e.Timezone != "Asia/Tokyo" {
		t.Errorf("local = %q %q", e.PublishedLocal, e.Timezone)
	}
	if !e.Published.Equal(time.Date(2016, 1, 31, 20, 0, 0, 0, time.UTC)) {
		t.Errorf("published = %v", e.Published)
	}
}

func TestToEntryUnparseableDateKeepsDefault(t *testing.T) {
	t.Parallel()

	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Mapper{SiteURL: "https://example.com/", Now: func() time.Time { return now }}
	e, err := m.ToEntry(context.Background(), nil, mf2.Properties{"published": mf2.Scalars("not a date")}, nil)
	if err != nil {
		t.Fatalf("ToEntry: %v", err)
	}
	if !e.Published.Equal(now) {
		t.Errorf("published = %v, want %v", e.Published, now)
	}
}

func TestToEntryMetaAndGeodata(t *testing.T) {
	t.Parallel()

	props := mf2.Properties{
		"name":                mf2.Scalars("Walk"),
		"content":             mf2.Scalars("hello"),
		"location":            mf2.Scalars("geo:37.786971,-122.399677;u=35"),
		"location-visibility": mf2.Scalars("private"),
		"mp-slug":             mf2.Scalars("walk"),
		"x-custom":            mf2.Scalars("kept"),
	}
	mf2.ExpandGeoURIs(props, "location")

	m := &Mapper{SiteURL: "https://example.com/"}
	e, err := m.ToEntry(context.Background(), []string{"h-entry"}, props, nil)
	if err != nil {
		t.Fatalf("ToEntry: %v", err)
	}

	wantMeta := map[string]string{
		models.MetaGeoLatitude:  "37.786971",
		models.MetaGeoLongitude: "-122.399677",
		models.MetaGeoAccuracy:  "35",
		models.MetaGeoPublic:    "0",
	}
	for k, want := range wantMeta {
		var got string
		if err := json.Unmarshal(e.Meta[k], &got); err != nil || got != want {
			t.Errorf("meta %s = %s, want %q", k, e.Meta[k], want)
		}
	}
	for _, k := range []string{"mf2_content", "mf2_location", "mf2_x-custom", MetaPostType} {
		if _, ok := e.Meta[k]; !ok {
			t.Errorf("missing meta %s", k)
		}
	}
	for _, k := range []string{"mf2_name", "mf2_mp-slug"} {
		if _, ok := e.Meta[k]; ok {
			t.Errorf("mapped property stored as meta %s", k)
		}
	}
}

func TestToMF2RoundTrip(t *testing.T) {
	t.Parallel()

	props := mf2.Properties{
		"name":     mf2.Scalars("Title"),
		"summary":  mf2.Scalars("Short"),
		"content":  {mf2.Object(map[string]mf2.Value{"html": mf2.Scalar("<p>x</p>")})},
		"category": mf2.Scalars("one", "two"),
		"x-thing":  mf2.Scalars("a", "b"),
	}
	m := &Mapper{SiteURL: "https://example.com/"}
	e, err := m.ToEntry(context.Background(), []string{"h-entry"}, props, nil)
	if err != nil {
		t.Fatalf("ToEntry: %v", err)
	}
	e.Status = models.StatusDraft

	back := m.ToMF2(e)
	if !reflect.DeepEqual(back.Type, []string{"h-entry"}) {
		t.Errorf("type = %v", back.Type)
	}
	for _, name := range []string{"name", "summary", "content", "category", "x-thing"} {
		if !valuesEqualTest(back.Properties[name], props[name]) {
			t.Errorf("%s = %v, want %v", name, back.Properties[name], props[name])
		}
	}
	if got := back.Properties.FirstText("post-status"); got != "draft" {
		t.Errorf("post-status = %q", got)
	}
	if got := back.Properties.FirstText("url"); got != e.URL {
		t.Errorf("url = %q, want %q", got, e.URL)
	}
}

func valuesEqualTest(a, b []mf2.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
