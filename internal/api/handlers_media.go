// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/scribe/internal/authz"
	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/media"
	"github.com/tomtom215/scribe/internal/micropub"
	"github.com/tomtom215/scribe/internal/models"
)

const (
	mediaScope       = "media"
	mediaFormField   = "file"
	mediaSourceLimit = 20
	multipartSlack   = 1 << 20
)

type mediaResponse struct {
	URL  string `json:"url"`
	ID   string `json:"id"`
	Type string `json:"type"`
}

type mediaItem struct {
	URL       string    `json:"url"`
	Type      string    `json:"type,omitempty"`
	Published time.Time `json:"published"`
}

// MediaUpload stores a multipart "file" and answers 201 with its URL.
func (rt *Router) MediaUpload(w http.ResponseWriter, r *http.Request) {
	debug := rt.deps.Config.Micropub.Debug
	maxSize := rt.deps.Config.Media.MaxSize

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)
	if err := r.ParseMultipartForm(maxSize + multipartSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeMicropubError(w, r, micropub.Errorf(micropub.KindInvalidRequest,
				http.StatusRequestEntityTooLarge, "file exceeds %d bytes", maxSize), debug)
			return
		}
		writeMicropubError(w, r, micropub.InvalidRequest("media uploads must be multipart/form-data"), debug)
		return
	}

	ac, err := rt.deps.Gate.Authorize(r.Context(), r, r.FormValue("access_token"))
	if err != nil {
		writeMicropubError(w, r, micropub.AuthError(err), debug)
		return
	}
	if perr := rt.checkMediaScope(ac); perr != nil {
		writeMicropubError(w, r, perr, debug)
		return
	}

	files := r.MultipartForm.File[mediaFormField]
	if len(files) == 0 {
		writeMicropubError(w, r, micropub.InvalidRequest("missing %q file", mediaFormField), debug)
		return
	}

	ctx := indieauth.WithAuth(r.Context(), ac)
	m, err := rt.deps.Media.Upload(ctx, ac.UserID, files[0])
	if err != nil {
		writeMicropubError(w, r, mediaError(err), debug)
		return
	}

	w.Header().Set("Location", m.URL)
	writeJSON(w, r, http.StatusCreated, mediaResponse{URL: m.URL, ID: m.ID, Type: m.Type})
}

func (rt *Router) checkMediaScope(ac *indieauth.AuthContext) *micropub.Error {
	if !ac.HasScope(mediaScope) && !ac.HasScope(micropub.ActionCreate) && !ac.HasScope("post") {
		return micropub.NewError(micropub.KindInsufficientScope, http.StatusUnauthorized,
			"scope insufficient to upload media").WithDebug(ac.Scopes)
	}
	if perr := micropub.RequireUser(ac, "upload media", rt.deps.Config.Micropub.AllowAnonymous); perr != nil {
		return perr
	}
	if rt.deps.Capabilities == nil || ac.UserID == "" {
		return nil
	}
	ok, err := rt.deps.Capabilities.Can(ac.UserID, authz.CapPublish)
	if err != nil {
		return micropub.ServerError(err)
	}
	if !ok {
		return micropub.NewError(micropub.KindForbidden, http.StatusForbidden, "cannot upload media")
	}
	return nil
}

func mediaError(err error) *micropub.Error {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return micropub.NewError(micropub.KindInvalidRequest, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, media.ErrEmpty):
		return micropub.InvalidRequest("file is empty")
	default:
		return micropub.ServerError(err)
	}
}

// MediaQuery answers q=last and q=source on the media endpoint.
func (rt *Router) MediaQuery(w http.ResponseWriter, r *http.Request) {
	debug := rt.deps.Config.Micropub.Debug
	if _, err := rt.deps.Gate.Authorize(r.Context(), r, r.URL.Query().Get("access_token")); err != nil {
		writeMicropubError(w, r, micropub.AuthError(err), debug)
		return
	}

	q := r.URL.Query().Get("q")
	switch q {
	case "last":
		items, err := rt.deps.Media.Recent(r.Context(), 1)
		if err != nil {
			writeMicropubError(w, r, micropub.ServerError(err), debug)
			return
		}
		body := map[string]interface{}{}
		if len(items) > 0 {
			body["url"] = items[0].URL
		}
		writeJSON(w, r, http.StatusOK, body)

	case "source":
		limit := mediaSourceLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeMicropubError(w, r, micropub.InvalidRequest("invalid limit %q", v), debug)
				return
			}
			limit = min(n, rt.deps.Config.Micropub.MaxPageSize)
		}
		items, err := rt.deps.Media.Recent(r.Context(), limit)
		if err != nil {
			writeMicropubError(w, r, micropub.ServerError(err), debug)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]interface{}{"items": toMediaItems(items)})

	case "":
		writeMicropubError(w, r, micropub.InvalidRequest("missing q parameter"), debug)
	default:
		writeMicropubError(w, r, micropub.InvalidRequest("unsupported query %s", q), debug)
	}
}

func toMediaItems(items []*models.Media) []mediaItem {
	out := make([]mediaItem, 0, len(items))
	for _, m := range items {
		out = append(out, mediaItem{URL: m.URL, Type: m.Type, Published: m.CreatedAt})
	}
	return out
}
