// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/micropub"
	"github.com/tomtom215/scribe/internal/models"
)

const contentTypeJSON = "application/json"

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	writeJSONType(w, r, status, contentTypeJSON, v)
}

func writeJSONType(w http.ResponseWriter, r *http.Request, status int, contentType string, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeMicropubError renders err as an error envelope.
func writeMicropubError(w http.ResponseWriter, r *http.Request, err error, includeDebug bool) {
	perr := micropub.AsError(err)
	if perr.Status() >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, r, perr.Status(), perr.Envelope(includeDebug))
}

// writeResult renders a successful Micropub result.
func writeResult(w http.ResponseWriter, r *http.Request, res *micropub.Result) {
	if res.Location != "" {
		w.Header().Set("Location", res.Location)
	}
	if res.Body == nil {
		w.WriteHeader(res.Status)
		return
	}
	writeJSON(w, r, res.Status, res.Body)
}

func writeAPIResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time) {
	state := "success"
	if status >= http.StatusBadRequest {
		state = "error"
	}
	writeJSON(w, r, status, &models.APIResponse{
		Status: state,
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
