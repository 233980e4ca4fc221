// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package models

import "time"

// Media describes an uploaded file.
type Media struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Type      string    `json:"type"` // MIME type
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	Name      string    `json:"name,omitempty"` // client filename
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"published"`
}
