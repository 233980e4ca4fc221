// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package models

// TermKind distinguishes the two taxonomies.
type TermKind string

const (
	TermCategory TermKind = "category"
	TermTag      TermKind = "tag"
)

// Term is a taxonomy term. Categories may nest via ParentSlug; tags are flat.
type Term struct {
	Kind       TermKind `json:"kind"`
	Slug       string   `json:"slug"`
	Name       string   `json:"name"`
	ParentSlug string   `json:"parent_slug,omitempty"`
}
