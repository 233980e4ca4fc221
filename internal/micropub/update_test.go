// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"reflect"
	"testing"

	"github.com/tomtom215/scribe/internal/mf2"
)

func mustJSONRequest(t *testing.T, body string) *mf2.Request {
	t.Helper()
	req, err := mf2.FromJSON([]byte(body))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	return req
}

func TestApplyUpdateOrder(t *testing.T) {
	t.Parallel()

	props := mf2.Properties{
		"category": mf2.Scalars("tag1", "tag4"),
		"content":  mf2.Scalars("old"),
	}
	req := mustJSONRequest(t, `{
		"action": "update",
		"url": "https://example.com/post/",
		"replace": {"content": ["new"]},
		"add": {"category": ["addtag"]},
		"delete": {"category": ["tag1"]}
	}`)

	if err := ValidateUpdate(req); err != nil {
		t.Fatalf("ValidateUpdate: %v", err)
	}
	ApplyUpdate(props, req)

	if got := props.Texts("category"); !reflect.DeepEqual(got, []string{"tag4", "addtag"}) {
		t.Errorf("category = %v, want [tag4 addtag]", got)
	}
	if got := props.FirstText("content"); got != "new" {
		t.Errorf("content = %q, want new", got)
	}
}

func TestApplyUpdateDeleteThenAddSameValue(t *testing.T) {
	t.Parallel()

	props := mf2.Properties{"category": mf2.Scalars("a")}
	req := mustJSONRequest(t, `{"add": {"category": ["a"]}, "delete": {"category": ["a"]}}`)
	ApplyUpdate(props, req)

	if got := props.Texts("category"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("category = %v, want [a]", got)
	}
}

func TestApplyUpdateDeleteProperties(t *testing.T) {
	t.Parallel()

	props := mf2.Properties{
		"category": mf2.Scalars("a"),
		"location": mf2.Scalars("somewhere"),
		"content":  mf2.Scalars("keep"),
	}
	req := mustJSONRequest(t, `{"delete": ["category", "location", "missing"]}`)
	ApplyUpdate(props, req)

	if !reflect.DeepEqual(props.Keys(), []string{"content"}) {
		t.Errorf("keys = %v, want [content]", props.Keys())
	}
}

func TestApplyUpdateDeleteMissingValueIsNoop(t *testing.T) {
	t.Parallel()

	props := mf2.Properties{"category": mf2.Scalars("a")}
	req := mustJSONRequest(t, `{"delete": {"category": ["zzz"], "syndication": ["https://x.example/"]}}`)
	ApplyUpdate(props, req)

	if got := props.Texts("category"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("category = %v, want [a]", got)
	}
	if props.Has("syndication") {
		t.Error("syndication should not be created by delete")
	}
}

func TestValidateUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "no directives", body: `{}`},
		{name: "replace object", body: `{"replace": {"name": ["x"]}}`},
		{name: "replace list", body: `{"replace": ["name"]}`, wantErr: true},
		{name: "replace scalar", body: `{"replace": "name"}`, wantErr: true},
		{name: "add category", body: `{"add": {"category": ["x"]}}`},
		{name: "add syndication", body: `{"add": {"syndication": ["https://x.example/"]}}`},
		{name: "add content", body: `{"add": {"content": ["x"]}}`, wantErr: true},
		{name: "add list", body: `{"add": ["category"]}`, wantErr: true},
		{name: "delete list", body: `{"delete": ["content", "name"]}`},
		{name: "delete category values", body: `{"delete": {"category": ["x"]}}`},
		{name: "delete name values", body: `{"delete": {"name": ["x"]}}`, wantErr: true},
		{name: "delete scalar", body: `{"delete": "category"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateUpdate(mustJSONRequest(t, tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err.Kind() != KindInvalidRequest {
				t.Errorf("kind = %s, want invalid_request", err.Kind())
			}
		})
	}
}
