// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestEntry_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	e := &Entry{
		ID:         "1",
		Categories: []string{"news"},
		Tags:       []string{"go"},
		Meta:       map[string]json.RawMessage{"mf2_rsvp": json.RawMessage(`["yes"]`)},
	}
	c := e.Clone()
	c.Tags[0] = "rust"
	c.SetMeta("mf2_rsvp", json.RawMessage(`["no"]`))
	c.Categories = append(c.Categories, "more")

	if e.Tags[0] != "go" {
		t.Errorf("Clone shares tags slice")
	}
	if string(e.Meta["mf2_rsvp"]) != `["yes"]` {
		t.Errorf("Clone shares meta map")
	}
	if len(e.Categories) != 1 {
		t.Errorf("Clone shares categories")
	}
}

func TestEntry_MF2Keys(t *testing.T) {
	t.Parallel()

	e := &Entry{}
	e.SetMeta("mf2_rsvp", json.RawMessage(`["yes"]`))
	e.SetMeta(MetaGeoLatitude, json.RawMessage(`"1"`))

	keys := e.MF2Keys()
	if len(keys) != 1 || keys[0] != "rsvp" {
		t.Errorf("MF2Keys() = %v, want [rsvp]", keys)
	}
	e.DeleteMeta("mf2_rsvp")
	if len(e.MF2Keys()) != 0 {
		t.Error("Expected no keys after DeleteMeta")
	}
}

func TestIsValidRole(t *testing.T) {
	t.Parallel()

	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("viewer") {
		t.Error("viewer is not a Scribe role")
	}

	u := &User{Roles: []string{RoleContributor}}
	if u.CanAuthor() {
		t.Error("contributor alone cannot author")
	}
	u.Roles = append(u.Roles, RoleAuthor)
	if !u.CanAuthor() {
		t.Error("author role should allow authoring")
	}
}
