// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/tomtom215/scribe/internal/mf2"
)

// GalleryShortcode is appended when a request carries photo, video or audio.
const GalleryShortcode = `[gallery size="full" columns="1"]`

var interactions = []struct {
	prop string
	verb string
}{
	{"like-of", "Likes"},
	{"repost-of", "Reposted"},
	{"in-reply-to", "In reply to"},
	{"bookmark-of", "Bookmarked"},
}

// ContentInput is what GenerateContent reads besides the body.
type ContentInput struct {
	Type       []string
	Properties mf2.Properties
	// Replace holds the replace directive of an update; an h-event block
	// prefers it over Properties.
	Replace mf2.Properties
	// HasFiles reports multipart photo, video or audio uploads.
	HasFiles bool
	// Location renders event times; nil keeps each time's own offset.
	Location *time.Location
}

// GenerateContent composes the stored HTML from the body and the
// interaction properties. Lines appear in a fixed order: interactions,
// checkin, rsvp, h-event block, body (or summary), gallery.
func GenerateContent(body string, in ContentInput) string {
	props := in.Properties
	var lines []string

	for _, it := range interactions {
		vals := props[it.prop]
		if len(vals) == 0 {
			continue
		}
		target, name := citation(vals[0])
		if target == "" {
			continue
		}
		lines = append(lines, `<p>`+it.verb+` <a class="u-`+it.prop+`" href="`+html.EscapeString(target)+`">`+
			html.EscapeString(name)+`</a>.</p>`)
	}

	if v, ok := props.First("checkin"); ok {
		if line := checkinLine(v); line != "" {
			lines = append(lines, line)
		}
	}

	if rsvp := props.FirstText("rsvp"); rsvp != "" {
		r := html.EscapeString(rsvp)
		lines = append(lines, `<p>RSVPs <data class="p-rsvp" value="`+r+`">`+r+`</data>.</p>`)
	}

	if len(in.Type) == 1 && in.Type[0] == "h-event" {
		eventProps := props
		if len(in.Replace) > 0 {
			eventProps = in.Replace
		}
		lines = append(lines, eventBlock(eventProps, in.Location))
	}

	if strings.TrimSpace(body) == "" && props.Has("summary") {
		body = html.EscapeString(props.FirstText("summary"))
	}
	if strings.TrimSpace(body) != "" {
		lines = append(lines, `<div class="e-content">`+body+`</div>`)
	}

	if in.HasFiles || props.Has("photo") || props.Has("video") || props.Has("audio") {
		lines = append(lines, GalleryShortcode)
	}

	return strings.Join(lines, "\n")
}

// citation reads {url, name} from a bare URL, an h-cite or a plain object.
// name defaults to the url.
func citation(v mf2.Value) (target, name string) {
	switch v.Kind() {
	case mf2.KindScalar:
		target = v.Str()
	case mf2.KindEntry:
		target = v.Entry().Properties.FirstText("url")
		name = v.Entry().Properties.FirstText("name")
	case mf2.KindObject:
		if u, ok := v.Field("url"); ok {
			target = u.Text()
		}
		if n, ok := v.Field("name"); ok {
			name = n.Text()
		}
	case mf2.KindList:
		if items := v.Items(); len(items) > 0 {
			return citation(items[0])
		}
	}
	target = strings.TrimSpace(target)
	if name == "" {
		name = target
	}
	return target, name
}

func checkinLine(v mf2.Value) string {
	var name string
	var urls []string

	switch v.Kind() {
	case mf2.KindEntry:
		name = v.Entry().Properties.FirstText("name")
		urls = v.Entry().Properties.Texts("url")
	case mf2.KindScalar:
		urls = []string{v.Str()}
	default:
		return ""
	}

	var target string
	switch {
	case len(urls) > 1:
		target = urls[1]
	case len(urls) == 1:
		target = urls[0]
	}
	if name == "" {
		name = target
	}
	if name == "" {
		return ""
	}
	if target == "" {
		return `<p>Checked into <span class="h-card p-location">` + html.EscapeString(name) + `</span>.</p>`
	}
	return `<p>Checked into <a class="h-card p-location" href="` + html.EscapeString(target) + `">` +
		html.EscapeString(name) + `</a>.</p>`
}

func eventBlock(props mf2.Properties, loc *time.Location) string {
	lines := []string{`<div class="h-event">`}
	if name := props.FirstText("name"); name != "" {
		lines = append(lines, `<p class="p-name">`+html.EscapeString(name)+`</p>`)
	}

	var times []string
	for _, cls := range []string{"start", "end"} {
		raw := props.FirstText(cls)
		if raw == "" {
			continue
		}
		times = append(times, `<time class="dt-`+cls+`" datetime="`+html.EscapeString(raw)+`">`+
			html.EscapeString(humanTime(raw, loc))+`</time>`)
	}
	when := "<p>" + strings.Join(times, "\nto\n")

	if where := props.FirstText("location"); where != "" && !strings.HasPrefix(where, "geo:") {
		w := html.EscapeString(where)
		when += ` at <a class="p-location" href="` + w + `">` + w + `</a>`
	}
	lines = append(lines, when+"</p>")

	if s := props.FirstText("summary"); s != "" {
		lines = append(lines, `<p class="p-summary">`+html.EscapeString(unescapeForm(s))+`</p>`)
	}
	if d := props.FirstText("description"); d != "" {
		lines = append(lines, `<p class="p-description">`+html.EscapeString(unescapeForm(d))+`</p>`)
	}
	lines = append(lines, "</div>")
	return strings.Join(lines, "\n")
}

// humanTime renders an ISO 8601 time for people, or returns raw unchanged.
func humanTime(raw string, loc *time.Location) string {
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return raw
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("January 2, 2006 3:04 PM")
}

func unescapeForm(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
