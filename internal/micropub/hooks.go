// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"context"
	"mime/multipart"

	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
)

// SyndicationTarget is one entry of q=syndicate-to.
type SyndicationTarget struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// SyndicationTargetProvider lists the targets a user may syndicate to.
type SyndicationTargetProvider interface {
	SyndicationTargets(ctx context.Context, userID string) ([]SyndicationTarget, error)
}

// TitleSuggester proposes a title for an entry without a name; the result
// seeds the slug.
type TitleSuggester interface {
	SuggestTitle(ctx context.Context, props mf2.Properties) string
}

// ContentAugmenter post-processes generated content.
type ContentAugmenter interface {
	AugmentContent(ctx context.Context, content string, req *mf2.Request) string
}

// InputFilter may rewrite a decoded request before it is authorized.
type InputFilter interface {
	FilterInput(ctx context.Context, req *mf2.Request) error
}

// ActionHook runs after every successful write.
type ActionHook interface {
	AfterAction(ctx context.Context, action string, req *mf2.Request, entry *models.Entry)
}

// MediaUploader stores files attached to a Micropub request.
type MediaUploader interface {
	Upload(ctx context.Context, userID string, fh *multipart.FileHeader) (*models.Media, error)
	UploadFromURL(ctx context.Context, userID, rawURL string) (*models.Media, error)
}

// PostType is one entry of q=config post-types.
type PostType struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Properties []string `json:"properties,omitempty"`
}

// DefaultPostTypes are advertised when none are configured.
var DefaultPostTypes = []PostType{
	{Type: "note", Name: "Note", Properties: []string{"content", "category", "photo"}},
	{Type: "article", Name: "Article", Properties: []string{"name", "content", "summary", "category"}},
	{Type: "reply", Name: "Reply", Properties: []string{"in-reply-to", "content"}},
	{Type: "like", Name: "Like", Properties: []string{"like-of"}},
	{Type: "repost", Name: "Repost", Properties: []string{"repost-of"}},
	{Type: "bookmark", Name: "Bookmark", Properties: []string{"bookmark-of", "name", "content"}},
	{Type: "rsvp", Name: "RSVP", Properties: []string{"in-reply-to", "rsvp"}},
	{Type: "checkin", Name: "Checkin", Properties: []string{"checkin", "content"}},
	{Type: "event", Name: "Event", Properties: []string{"name", "start", "end", "location", "summary"}},
	{Type: "photo", Name: "Photo", Properties: []string{"photo", "content"}},
}

// PostTypesByName filters DefaultPostTypes to names, preserving their order.
func PostTypesByName(names []string) []PostType {
	if len(names) == 0 {
		return DefaultPostTypes
	}
	var out []PostType
	for _, n := range names {
		for _, pt := range DefaultPostTypes {
			if pt.Type == n {
				out = append(out, pt)
			}
		}
	}
	return out
}
