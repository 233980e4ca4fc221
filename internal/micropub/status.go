// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"strings"

	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
)

// ResolvePostStatus derives the entry status from post-status and
// visibility. It returns false when either value is invalid.
//
//   - visibility=private wins unconditionally
//   - any visibility other than public or private is invalid, whatever
//     post-status says
//   - post-status published maps to publish, draft to draft; anything else
//     is invalid
//   - otherwise the configured default applies
func ResolvePostStatus(props mf2.Properties, def models.Status) (models.Status, bool) {
	if props.Has("visibility") {
		switch strings.ToLower(strings.TrimSpace(props.FirstText("visibility"))) {
		case "private":
			return models.StatusPrivate, true
		case "public":
		default:
			return "", false
		}
	}

	if props.Has("post-status") {
		switch strings.ToLower(strings.TrimSpace(props.FirstText("post-status"))) {
		case "published":
			return models.StatusPublish, true
		case "draft":
			return models.StatusDraft, true
		default:
			return "", false
		}
	}

	return def, true
}
