// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package models

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusPublish Status = "publish"
	StatusDraft   Status = "draft"
	StatusPrivate Status = "private"
	StatusTrash   Status = "trash"
)

// LocalTimeLayout is the layout of PublishedLocal and UpdatedLocal.
const LocalTimeLayout = "2006-01-02 15:04:05"

// Metadata key conventions.
const (
	MetaMF2Prefix = "mf2_"

	MetaGeoAddress   = "geo_address"
	MetaGeoLatitude  = "geo_latitude"
	MetaGeoLongitude = "geo_longitude"
	MetaGeoAltitude  = "geo_altitude"
	MetaGeoAccuracy  = "geo_accuracy"
	MetaGeoPublic    = "geo_public"
)

// GeoMetaKeys lists every geodata metadata key.
var GeoMetaKeys = []string{
	MetaGeoAddress, MetaGeoLatitude, MetaGeoLongitude,
	MetaGeoAltitude, MetaGeoAccuracy, MetaGeoPublic,
}

// Entry is a stored post.
type Entry struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	Content string `json:"content,omitempty"`

	AuthorID string `json:"author_id,omitempty"`

	Published      time.Time `json:"published"`
	Updated        time.Time `json:"updated"`
	PublishedLocal string    `json:"published_local,omitempty"`
	UpdatedLocal   string    `json:"updated_local,omitempty"`
	Timezone       string    `json:"timezone,omitempty"`

	Status         Status `json:"status"`
	PreviousStatus Status `json:"previous_status,omitempty"` // set while trashed

	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	Meta map[string]json.RawMessage `json:"meta,omitempty"`

	URL string `json:"url"`
}

// SetMeta stores raw JSON under key.
func (e *Entry) SetMeta(key string, value json.RawMessage) {
	if e.Meta == nil {
		e.Meta = make(map[string]json.RawMessage)
	}
	e.Meta[key] = value
}

// DeleteMeta removes key.
func (e *Entry) DeleteMeta(key string) {
	delete(e.Meta, key)
}

// MF2Keys returns the property names preserved under the mf2_ prefix.
func (e *Entry) MF2Keys() []string {
	var names []string
	for k := range e.Meta {
		if strings.HasPrefix(k, MetaMF2Prefix) {
			names = append(names, strings.TrimPrefix(k, MetaMF2Prefix))
		}
	}
	return names
}

// IsTrashed reports whether the entry is soft-deleted.
func (e *Entry) IsTrashed() bool {
	return e.Status == StatusTrash
}

// Clone returns a copy that shares no slices or maps with e.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Categories = append([]string(nil), e.Categories...)
	c.Tags = append([]string(nil), e.Tags...)
	if e.Meta != nil {
		c.Meta = make(map[string]json.RawMessage, len(e.Meta))
		for k, v := range e.Meta {
			c.Meta[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}
