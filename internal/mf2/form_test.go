// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package mf2

import (
	"net/url"
	"reflect"
	"testing"
)

func TestFromForm_Basics(t *testing.T) {
	t.Parallel()

	form := url.Values{
		"h":            {"entry"},
		"content":      {"my<br>content"},
		"mp-slug":      {"my_slug"},
		"category[]":   {"tag1", "tag4"},
		"published":    {"2016-01-01T04:01:23-08:00"},
		"access_token": {"secret"},
		"action":       {"create"},
		"url":          {"https://example.com/x"},
	}

	req := FromForm(form)

	if !reflect.DeepEqual(req.Entry.Type, []string{"h-entry"}) {
		t.Errorf("Expected type [h-entry], got %v", req.Entry.Type)
	}
	if req.Action != "create" || req.URL != "https://example.com/x" {
		t.Errorf("Expected action and url hoisted, got %q %q", req.Action, req.URL)
	}
	for _, hoisted := range []string{"h", "action", "url", "access_token"} {
		if req.Entry.Properties.Has(hoisted) {
			t.Errorf("Expected %s to be absent from properties", hoisted)
		}
	}
	if req.AccessToken != "secret" {
		t.Errorf("Expected access_token kept beside the entry, got %q", req.AccessToken)
	}
	if got := req.Entry.Properties.Texts("category"); !reflect.DeepEqual(got, []string{"tag1", "tag4"}) {
		t.Errorf("Expected categories [tag1 tag4], got %v", got)
	}
	if got := req.Entry.Properties["content"]; len(got) != 1 || got[0].Str() != "my<br>content" {
		t.Errorf("Expected single content value, got %v", got)
	}
}

func TestFromForm_IndexedVersusAssociative(t *testing.T) {
	t.Parallel()

	form := url.Values{
		"category[0]":         {"a"},
		"category[1]":         {"b"},
		"photo[1]":            {"second"},
		"photo[2]":            {"third"},
		"location[latitude]":  {"45.5"},
		"location[longitude]": {"-122.6"},
		"syndication":         {"https://one.example", "https://two.example"},
	}

	props := FromForm(form).Entry.Properties

	if got := props.Texts("category"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected contiguous keys to form a list, got %v", got)
	}

	// Keys 1,2 do not start at zero: treated as a single object value.
	if len(props["photo"]) != 1 || props["photo"][0].Kind() != KindObject {
		t.Fatalf("Expected non-contiguous keys to form one object, got %v", props["photo"])
	}
	if f, _ := props["photo"][0].Field("2"); f.Str() != "third" {
		t.Errorf("Expected photo[2]=third, got %v", f)
	}

	loc := props["location"]
	if len(loc) != 1 || loc[0].Kind() != KindObject {
		t.Fatalf("Expected location object, got %v", loc)
	}
	if f, _ := loc[0].Field("latitude"); f.Str() != "45.5" {
		t.Errorf("Expected latitude 45.5, got %v", f)
	}

	if got := props.Texts("syndication"); len(got) != 2 {
		t.Errorf("Expected repeated keys to form a list, got %v", got)
	}
}

func TestFromForm_UpdateDirectives(t *testing.T) {
	t.Parallel()

	form := url.Values{
		"action":             {"update"},
		"url":                {"https://example.com/2024/01/hello/"},
		"replace[content][]": {"new text"},
		"add[category][]":    {"addtag"},
		"delete[]":           {"location"},
	}

	req := FromForm(form)

	if !req.Replace.Present || req.Replace.IsList {
		t.Fatalf("Expected replace object, got %+v", req.Replace)
	}
	if got := req.Replace.Props.FirstText("content"); got != "new text" {
		t.Errorf("Expected replace content, got %q", got)
	}
	if got := req.Add.Props.Texts("category"); !reflect.DeepEqual(got, []string{"addtag"}) {
		t.Errorf("Expected add category, got %v", got)
	}
	if !req.Delete.IsList || !reflect.DeepEqual(req.Delete.Keys, []string{"location"}) {
		t.Errorf("Expected delete list [location], got %+v", req.Delete)
	}
	if len(req.Entry.Properties) != 0 {
		t.Errorf("Expected no properties for update, got %v", req.Entry.Properties.Keys())
	}
}

func TestSplitFormKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key      string
		wantBase string
		wantSegs []string
	}{
		{"content", "content", nil},
		{"category[]", "category", []string{""}},
		{"location[latitude]", "location", []string{"latitude"}},
		{"replace[content][]", "replace", []string{"content", ""}},
		{"broken[key", "broken[key", nil},
		{"[]", "[]", nil},
	}

	for _, tt := range tests {
		base, segs := splitFormKey(tt.key)
		if base != tt.wantBase || !reflect.DeepEqual(segs, tt.wantSegs) {
			t.Errorf("splitFormKey(%q) = %q %v, want %q %v", tt.key, base, segs, tt.wantBase, tt.wantSegs)
		}
	}
}

func TestRequest_IsEmpty(t *testing.T) {
	t.Parallel()

	if !FromForm(url.Values{}).IsEmpty() {
		t.Error("Expected empty form to decode as empty request")
	}
	if !FromForm(url.Values{"access_token": {"abc"}}).IsEmpty() {
		t.Error("Expected access_token-only form to be empty")
	}
	if FromForm(url.Values{"content": {"hi"}}).IsEmpty() {
		t.Error("Expected content form to be non-empty")
	}
}

func TestFromQuery(t *testing.T) {
	t.Parallel()

	q := FromQuery(url.Values{
		"q":            {"source"},
		"properties[]": {"content", "category"},
		"limit":        {"5"},
		"offset":       {"oops"},
	})
	if q.Q != "source" {
		t.Errorf("Expected q=source, got %q", q.Q)
	}
	if !reflect.DeepEqual(q.Properties, []string{"content", "category"}) {
		t.Errorf("Unexpected properties %v", q.Properties)
	}
	if q.Limit != 5 || !q.LimitSet {
		t.Errorf("Expected limit 5, got %d", q.Limit)
	}
	if q.Offset != -1 {
		t.Errorf("Expected invalid offset to decode as -1, got %d", q.Offset)
	}
}
