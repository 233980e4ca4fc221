// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package models defines the records Scribe persists and serves.

Key Components:

  - Entry: a published, drafted, private or trashed post, the target shape of
    the mf2 mapping
  - User: a local author with a profile URL and roles
  - Term: a category (hierarchical) or tag (flat) taxonomy term
  - Media: an uploaded file served from the media endpoint
  - APIResponse: the wrapper for non-Micropub JSON endpoints (health, readiness)

Entry metadata follows a namespace convention: keys prefixed with "mf2_" hold
the raw mf2 value list of a property the mapper does not project onto a
field, and keys prefixed with "geo_" hold parsed location data.

Times are stored in UTC. The site-local rendering and the zone name travel
beside them so exports and feeds can show the author's wall clock.
*/
package models
