// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package api is Scribe's HTTP surface, routed with chi.

Routes:

	GET  /                         discovery page with rel links
	GET  /.well-known/host-meta    JRD (or JSON with ?format=json)
	GET  /.well-known/webfinger    JRD for the site owner
	GET  /micropub                 q=config|syndicate-to|category|source|post-types
	POST /micropub                 create, update, delete, undelete
	GET  /micropub/media           q=last|source
	POST /micropub/media           multipart "file" upload
	GET  /media/*                  uploaded files
	GET  /ws                       live entry feed
	GET  /healthz, /readyz         probes
	GET  /metrics                  Prometheus

Micropub responses are written bare, as the protocol defines them; errors
use the micropub.Envelope shape. The operational endpoints use
models.APIResponse.

Every response carries Link headers advertising the micropub, token and
authorization endpoints so clients can discover them from any page.
*/
package api
