// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

/*
Package micropub implements the Micropub request pipeline.

Pipeline.Handle takes an inbound *http.Request through these steps:

 1. load input (GET query, JSON, form or multipart) into an mf2.Request,
    expanding geo: URIs in location and checkin and running the InputFilter
 2. authorize through the gate and check the action's scope and capability
 3. reject unknown mp-syndicate-to targets
 4. require url for every action except create
 5. dispatch create, update, delete or undelete against the store
 6. notify the ActionHook

GET requests with a q parameter are answered by the query handlers
(config, syndicate-to, category, source, post-types).

Every failure is an *Error carrying the protocol error kind and HTTP status.
Create validates everything before its single store write; update applies
delete, then add, then replace to an in-memory copy before one UpdateEntry.
*/
package micropub
