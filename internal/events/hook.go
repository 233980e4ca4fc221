// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package events

import (
	"context"

	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/micropub"
	"github.com/tomtom215/scribe/internal/models"
)

// Publisher is the publishing half of a Bus.
type Publisher interface {
	Publish(ctx context.Context, ev *EntryEvent) error
}

// Hook publishes an EntryEvent after each Micropub write.
type Hook struct {
	pub Publisher
}

var _ micropub.ActionHook = (*Hook)(nil)

// NewHook creates a hook publishing to pub.
func NewHook(pub Publisher) *Hook {
	return &Hook{pub: pub}
}

// AfterAction implements micropub.ActionHook. Failures are logged only.
func (h *Hook) AfterAction(ctx context.Context, action string, req *mf2.Request, entry *models.Entry) {
	if entry == nil {
		return
	}
	var userID string
	if ac := indieauth.FromContext(ctx); ac != nil {
		userID = ac.UserID
	}

	ev := NewEntryEvent(action, entry.Clone(), userID, syndicateTo(req))
	if err := h.pub.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("action", action).
			Str("entry_id", entry.ID).
			Msg("Failed to publish entry event")
	}
}

func syndicateTo(req *mf2.Request) []string {
	if req == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, props := range []mf2.Properties{req.Properties(), req.Add.Props, req.Replace.Props} {
		for _, uid := range props.Texts("mp-syndicate-to") {
			if !seen[uid] {
				seen[uid] = true
				out = append(out, uid)
			}
		}
	}
	return out
}
