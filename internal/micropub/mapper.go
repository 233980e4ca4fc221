// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

// MetaPostType holds the entry's mf2 type list.
const MetaPostType = "micropub_type"

// DefaultPermalinkPattern is used when Mapper.Permalink is empty.
const DefaultPermalinkPattern = "{year}/{month}/{slug}/"

const maxSlugAttempts = 100

// mappedProps live in entry fields rather than mf2_ metadata.
var mappedProps = map[string]bool{
	"name":        true,
	"summary":     true,
	"published":   true,
	"updated":     true,
	"category":    true,
	"post-status": true,
	"visibility":  true,
	"url":         true,
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

// SanitizeSlug lowercases s and collapses every run of characters outside
// [a-z0-9_-] into a single hyphen.
func SanitizeSlug(s string) string {
	s = slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(s, "-")
}

// Mapper converts between mf2 properties and stored entries.
type Mapper struct {
	Entries store.EntryStore
	Terms   store.TermStore
	Titles  TitleSuggester

	SiteURL   string
	Permalink string
	Location  *time.Location
	Now       func() time.Time
}

func (m *Mapper) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Mapper) location() *time.Location {
	if m.Location != nil {
		return m.Location
	}
	return time.UTC
}

// ToEntry maps props onto a new entry, or onto a copy of existing. Content
// is left for the caller to render. ToEntry does not write to the store.
func (m *Mapper) ToEntry(ctx context.Context, types []string, props mf2.Properties, existing *models.Entry) (*models.Entry, error) {
	var e *models.Entry
	if existing != nil {
		e = existing.Clone()
	} else {
		e = &models.Entry{ID: uuid.NewString()}
	}
	now := m.now().UTC()
	loc := m.location()

	e.Title = props.FirstText("name")
	e.Excerpt = props.FirstText("summary")

	if existing == nil {
		e.Published = now
	}
	if t, ok := m.parseTime(ctx, props, "published"); ok {
		e.Published = t
	}
	e.Updated = now
	if t, ok := m.parseTime(ctx, props, "updated"); ok {
		e.Updated = t
	}
	e.PublishedLocal = e.Published.In(loc).Format(models.LocalTimeLayout)
	e.UpdatedLocal = e.Updated.In(loc).Format(models.LocalTimeLayout)
	e.Timezone = loc.String()

	if err := m.mapTerms(ctx, e, props); err != nil {
		return nil, err
	}
	if err := setMeta(e, types, props); err != nil {
		return nil, err
	}

	slug := SanitizeSlug(props.FirstText("mp-slug"))
	if slug == "" && existing != nil {
		slug = existing.Slug
	}
	if slug == "" {
		slug = m.fallbackSlug(ctx, props, now)
	}
	if err := m.assignURL(ctx, e, slug); err != nil {
		return nil, err
	}
	return e, nil
}

func (m *Mapper) parseTime(ctx context.Context, props mf2.Properties, name string) (time.Time, bool) {
	raw := strings.TrimSpace(props.FirstText(name))
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(raw, m.location())
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("property", name).Str("value", raw).Msg("Ignoring unparseable date")
		return time.Time{}, false
	}
	return t.UTC(), true
}

func (m *Mapper) fallbackSlug(ctx context.Context, props mf2.Properties, now time.Time) string {
	if s := SanitizeSlug(props.FirstText("name")); s != "" {
		return s
	}
	if m.Titles != nil {
		if s := SanitizeSlug(m.Titles.SuggestTitle(ctx, props)); s != "" {
			return s
		}
	}
	return now.In(m.location()).Format("20060102-150405")
}

// assignURL sets e.Slug and e.URL, suffixing -2, -3, ... until the URL is
// not held by another entry (trashed entries included).
func (m *Mapper) assignURL(ctx context.Context, e *models.Entry, slug string) error {
	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := slug
		if n > 1 {
			candidate = slug + "-" + strconv.Itoa(n)
		}
		u := m.permalink(e.Published, candidate)
		taken, err := m.urlTaken(ctx, u, e.ID)
		if err != nil {
			return err
		}
		if !taken {
			e.Slug, e.URL = candidate, u
			return nil
		}
	}
	return fmt.Errorf("no free slug for %q after %d attempts", slug, maxSlugAttempts)
}

func (m *Mapper) urlTaken(ctx context.Context, u, id string) (bool, error) {
	if m.Entries == nil {
		return false, nil
	}
	for _, get := range []func(context.Context, string) (*models.Entry, error){
		m.Entries.GetEntryByURL, m.Entries.GetTrashedByURL,
	} {
		found, err := get(ctx, u)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return false, fmt.Errorf("check url %s: %w", u, err)
		case found.ID != id:
			return true, nil
		}
	}
	return false, nil
}

func (m *Mapper) permalink(published time.Time, slug string) string {
	pattern := m.Permalink
	if pattern == "" {
		pattern = DefaultPermalinkPattern
	}
	t := published.In(m.location())
	path := strings.NewReplacer(
		"{year}", t.Format("2006"),
		"{month}", t.Format("01"),
		"{day}", t.Format("02"),
		"{slug}", slug,
	).Replace(strings.TrimLeft(pattern, "/"))
	return strings.TrimRight(m.SiteURL, "/") + "/" + path
}

// mapTerms splits category values into known categories and tags. Values
// that are not plain strings (person tags) stay in mf2_category.
func (m *Mapper) mapTerms(ctx context.Context, e *models.Entry, props mf2.Properties) error {
	e.Categories, e.Tags = nil, nil
	e.DeleteMeta(models.MetaMF2Prefix + "category")

	var extra []mf2.Value
	for _, v := range props["category"] {
		if v.Kind() != mf2.KindScalar {
			extra = append(extra, v)
			continue
		}
		name := strings.TrimSpace(v.Str())
		if name == "" {
			continue
		}
		if m.Terms != nil {
			term, err := m.Terms.FindCategory(ctx, SanitizeSlug(name))
			switch {
			case err == nil:
				e.Categories = appendUnique(e.Categories, term.Slug)
				continue
			case !errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("find category %q: %w", name, err)
			}
		}
		e.Tags = appendUnique(e.Tags, name)
	}
	if len(extra) > 0 {
		return putMeta(e, models.MetaMF2Prefix+"category", extra)
	}
	return nil
}

// EnsureTerms creates the entry's tags in the term store.
func (m *Mapper) EnsureTerms(ctx context.Context, e *models.Entry) error {
	if m.Terms == nil || len(e.Tags) == 0 {
		return nil
	}
	if err := m.Terms.EnsureTerms(ctx, models.TermTag, e.Tags); err != nil {
		return fmt.Errorf("ensure tags: %w", err)
	}
	return nil
}

// setMeta rewrites mf2_ and geo_ metadata from props. The category key is
// owned by mapTerms.
func setMeta(e *models.Entry, types []string, props mf2.Properties) error {
	for k := range e.Meta {
		if k == models.MetaMF2Prefix+"category" {
			continue
		}
		if strings.HasPrefix(k, models.MetaMF2Prefix) || strings.HasPrefix(k, "geo_") {
			delete(e.Meta, k)
		}
	}

	if len(types) == 0 {
		types = []string{"h-entry"}
	}
	if err := putMeta(e, MetaPostType, types); err != nil {
		return err
	}

	for _, k := range props.Keys() {
		if mappedProps[k] || strings.HasPrefix(k, "mp-") || len(props[k]) == 0 {
			continue
		}
		if err := putMeta(e, models.MetaMF2Prefix+k, props[k]); err != nil {
			return err
		}
	}

	for k, v := range geodata(props) {
		if err := putMeta(e, k, v); err != nil {
			return err
		}
	}
	return nil
}

func putMeta(e *models.Entry, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode meta %s: %w", key, err)
	}
	e.SetMeta(key, raw)
	return nil
}

// geodata derives geo_ metadata from location, falling back to the
// coordinates of a checkin.
func geodata(props mf2.Properties) map[string]string {
	out := map[string]string{}

	loc, ok := props.First("location")
	if !ok || loc.IsEmpty() {
		if c, ok := props.First("checkin"); ok && c.Entry() != nil && c.Entry().Properties.Has("latitude") {
			loc = c
		} else {
			return out
		}
	}

	switch loc.Kind() {
	case mf2.KindEntry:
		p := loc.Entry().Properties
		for key, prop := range map[string]string{
			models.MetaGeoLatitude:  "latitude",
			models.MetaGeoLongitude: "longitude",
			models.MetaGeoAltitude:  "altitude",
			models.MetaGeoAccuracy:  "accuracy",
		} {
			if v := p.FirstText(prop); v != "" {
				out[key] = v
			}
		}
		if addr := address(p); addr != "" {
			out[models.MetaGeoAddress] = addr
		}
	case mf2.KindScalar:
		out[models.MetaGeoAddress] = loc.Str()
	default:
		if t := loc.Text(); t != "" {
			out[models.MetaGeoAddress] = t
		}
	}
	if len(out) == 0 {
		return out
	}

	out[models.MetaGeoPublic] = "1"
	switch strings.ToLower(props.FirstText("location-visibility")) {
	case "private":
		out[models.MetaGeoPublic] = "0"
	case "protected":
		out[models.MetaGeoPublic] = "2"
	}
	return out
}

func address(p mf2.Properties) string {
	if v := p.FirstText("label"); v != "" {
		return v
	}
	var parts []string
	for _, k := range []string{"street-address", "locality", "region", "country-name"} {
		if v := p.FirstText(k); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return p.FirstText("name")
}

// ContentBody returns the first content value as HTML: an html field is
// used verbatim, plain text is escaped.
func ContentBody(props mf2.Properties) string {
	v, ok := props.First("content")
	if !ok {
		return ""
	}
	if h, ok := v.Field("html"); ok {
		return h.Text()
	}
	return html.EscapeString(v.Text())
}

// ToMF2 reconstructs the mf2 form of a stored entry. The rendered content
// of an entry created through Micropub is generated, so content is only
// reported when it was sent; entries written by other means report their
// stored HTML.
func (m *Mapper) ToMF2(e *models.Entry) *mf2.Entry {
	out := mf2.NewEntry("h-entry")
	raw, viaMicropub := e.Meta[MetaPostType]
	if viaMicropub {
		var types []string
		if json.Unmarshal(raw, &types) == nil && len(types) > 0 {
			out.Type = types
		}
	}

	props := out.Properties
	for _, k := range e.MF2Keys() {
		var vals []mf2.Value
		if err := json.Unmarshal(e.Meta[models.MetaMF2Prefix+k], &vals); err != nil || len(vals) == 0 {
			continue
		}
		props[k] = vals
	}

	if e.Title != "" {
		props["name"] = mf2.Scalars(e.Title)
	}
	if e.Excerpt != "" {
		props["summary"] = mf2.Scalars(e.Excerpt)
	}
	if !viaMicropub && !props.Has("content") && e.Content != "" {
		props["content"] = []mf2.Value{mf2.Object(map[string]mf2.Value{"html": mf2.Scalar(e.Content)})}
	}
	if !e.Published.IsZero() {
		props["published"] = mf2.Scalars(e.Published.In(m.location()).Format(time.RFC3339))
	}
	if !e.Updated.IsZero() {
		props["updated"] = mf2.Scalars(e.Updated.In(m.location()).Format(time.RFC3339))
	}

	cats := append(mf2.Scalars(e.Categories...), mf2.Scalars(e.Tags...)...)
	cats = append(cats, props["category"]...)
	if len(cats) > 0 {
		props["category"] = cats
	} else {
		delete(props, "category")
	}

	status := e.Status
	if status == models.StatusTrash {
		status = e.PreviousStatus
	}
	switch status {
	case models.StatusDraft:
		props["post-status"] = mf2.Scalars("draft")
	case models.StatusPrivate:
		props["visibility"] = mf2.Scalars("private")
	default:
		props["post-status"] = mf2.Scalars("published")
	}
	if e.URL != "" {
		props["url"] = mf2.Scalars(e.URL)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
