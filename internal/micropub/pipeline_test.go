// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/scribe/internal/authz"
	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
	"github.com/tomtom215/scribe/internal/store/badgerstore"
)

type stubGate struct {
	ac  *indieauth.AuthContext
	err error
}

func (g stubGate) Authorize(context.Context, *http.Request, string) (*indieauth.AuthContext, error) {
	return g.ac, g.err
}

type staticTargets []SyndicationTarget

func (s staticTargets) SyndicationTargets(context.Context, string) ([]SyndicationTarget, error) {
	return s, nil
}

type recordingHook struct {
	mu      sync.Mutex
	actions []string
}

func (h *recordingHook) AfterAction(_ context.Context, action string, _ *mf2.Request, e *models.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, action+" "+e.URL)
}

type fakeUploader struct {
	uploaded []string
}

func (f *fakeUploader) Upload(_ context.Context, _ string, fh *multipart.FileHeader) (*models.Media, error) {
	f.uploaded = append(f.uploaded, fh.Filename)
	return &models.Media{ID: "m1", URL: "https://example.com/media/" + fh.Filename}, nil
}

func (f *fakeUploader) UploadFromURL(_ context.Context, _, rawURL string) (*models.Media, error) {
	return &models.Media{ID: "m2", URL: "https://example.com/media/imported.jpg"}, nil
}

// fixedVerifier accepts every token as the same identity.
type fixedVerifier indieauth.TokenInfo

func (v fixedVerifier) Verify(context.Context, string) (*indieauth.TokenInfo, error) {
	info := indieauth.TokenInfo(v)
	return &info, nil
}

const testAuthor = "u1"

var allScopes = []string{"create", "update", "delete", "media"}

// newTestEnforcer grants testAuthor the author role; everyone else is a
// contributor.
func newTestEnforcer(t *testing.T) *authz.Enforcer {
	t.Helper()
	e, err := authz.NewEnforcer(context.Background(), &authz.EnforcerConfig{DefaultRole: models.RoleContributor})
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(e.Close)
	if err := e.SetRoles(testAuthor, []string{models.RoleAuthor}); err != nil {
		t.Fatalf("SetRoles: %v", err)
	}
	return e
}

func newTestPipeline(t *testing.T, configure func(*Options)) (*Pipeline, store.Store) {
	t.Helper()

	s, err := badgerstore.Open(badgerstore.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	opts := Options{
		Store:        s,
		Gate:         stubGate{ac: &indieauth.AuthContext{UserID: testAuthor, Me: "https://example.com/", Scopes: allScopes}},
		Capabilities: newTestEnforcer(t),
		SiteURL:      "https://example.com/",
		Now:          func() time.Time { return time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC) },
	}
	if configure != nil {
		configure(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, s
}

// withGate returns a pipeline sharing p's store and capabilities but
// authorizing through gate.
func withGate(t *testing.T, p *Pipeline, gate Authorizer, allowAnonymous bool) *Pipeline {
	t.Helper()
	opts := p.opts
	opts.Gate = gate
	opts.AllowAnonymous = allowAnonymous
	np, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return np
}

func bearer(r *http.Request) *http.Request {
	r.Header.Set("Authorization", "Bearer tok")
	return r
}

func formRequest(vals url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/micropub", strings.NewReader(vals.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/micropub", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func queryRequest(q string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/micropub?"+q, nil)
}

func mustHandle(t *testing.T, p *Pipeline, r *http.Request) *Result {
	t.Helper()
	res, err := p.Handle(r.Context(), r)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return res
}

func handleErr(t *testing.T, p *Pipeline, r *http.Request) *Error {
	t.Helper()
	res, err := p.Handle(r.Context(), r)
	if err == nil {
		t.Fatalf("expected error, got %+v", res)
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error %T is not *Error", err)
	}
	return perr
}

func TestPipelineFormCreate(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)

	res := mustHandle(t, p, formRequest(url.Values{
		"h":          {"entry"},
		"content":    {"my<br>content"},
		"mp-slug":    {"my_slug"},
		"category[]": {"tag1", "tag4"},
		"published":  {"2016-01-01T04:01:23-08:00"},
	}))

	if res.Status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", res.Status)
	}
	if res.Location != "https://example.com/2016/01/my_slug/" {
		t.Fatalf("location = %q", res.Location)
	}

	e, err := s.GetEntryByURL(context.Background(), res.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if e.Content != `<div class="e-content">my&lt;br&gt;content</div>` {
		t.Errorf("content = %q", e.Content)
	}
	if e.Slug != "my_slug" {
		t.Errorf("slug = %q", e.Slug)
	}
	if !reflect.DeepEqual(e.Tags, []string{"tag1", "tag4"}) {
		t.Errorf("tags = %v", e.Tags)
	}
	if e.PublishedLocal != "2016-01-01 12:01:23" || e.Timezone != "UTC" {
		t.Errorf("published local = %q (%s)", e.PublishedLocal, e.Timezone)
	}
	if e.Status != models.StatusPublish {
		t.Errorf("status = %q", e.Status)
	}

	tags, err := s.ListTerms(context.Background(), models.TermTag)
	if err != nil {
		t.Fatalf("ListTerms: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("stored %d tags, want 2", len(tags))
	}
}

func TestPipelineJSONCreateHTMLContent(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)

	res := mustHandle(t, p, jsonRequest(`{
		"type": ["h-entry"],
		"properties": {
			"name": ["Hello World"],
			"content": [{"html": "<b>hi</b>"}],
			"location": ["geo:1.5,2.5"]
		}
	}`))
	if res.Location != "https://example.com/2020/03/hello-world/" {
		t.Fatalf("location = %q", res.Location)
	}

	e, err := s.GetEntryByURL(context.Background(), res.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if e.Content != `<div class="e-content"><b>hi</b></div>` {
		t.Errorf("content = %q", e.Content)
	}
	if e.Title != "Hello World" {
		t.Errorf("title = %q", e.Title)
	}
	if string(e.Meta[models.MetaGeoLatitude]) != `"1.5"` {
		t.Errorf("geo_latitude = %s", e.Meta[models.MetaGeoLatitude])
	}
}

func TestPipelineSlugCollision(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, nil)

	first := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "name": {"Same"}}))
	second := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "name": {"Same"}}))
	if first.Location == second.Location {
		t.Fatalf("both entries got %s", first.Location)
	}
	if !strings.HasSuffix(second.Location, "/same-2/") {
		t.Errorf("second location = %q", second.Location)
	}
}

func TestPipelineUpdateCategoryOrder(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)

	created := mustHandle(t, p, formRequest(url.Values{
		"h":          {"entry"},
		"content":    {"body"},
		"mp-slug":    {"post"},
		"category[]": {"tag1", "tag4"},
		"published":  {"2019-07-01T10:00:00Z"},
	}))

	res := mustHandle(t, p, jsonRequest(fmt.Sprintf(`{
		"action": "update",
		"url": %q,
		"delete": {"category": ["tag1"]},
		"add": {"category": ["addtag"]},
		"replace": {"content": ["new body"]}
	}`, created.Location)))
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}

	e, err := s.GetEntryByURL(context.Background(), created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if !reflect.DeepEqual(e.Tags, []string{"tag4", "addtag"}) {
		t.Errorf("tags = %v, want [tag4 addtag]", e.Tags)
	}
	if e.Content != `<div class="e-content">new body</div>` {
		t.Errorf("content = %q", e.Content)
	}
	if !e.Published.Equal(time.Date(2019, 7, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("published changed to %v", e.Published)
	}
	if !e.Updated.Equal(time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Errorf("updated = %v", e.Updated)
	}
}

func TestPipelineUpdateDeleteCategoryAndLocation(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)

	created := mustHandle(t, p, formRequest(url.Values{
		"h":        {"entry"},
		"content":  {"x"},
		"category": {"a"},
		"location": {"geo:1,2"},
	}))
	mustHandle(t, p, jsonRequest(fmt.Sprintf(`{"action":"update","url":%q,"delete":["category","location"]}`, created.Location)))

	e, err := s.GetEntryByURL(context.Background(), created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if len(e.Tags) != 0 || len(e.Categories) != 0 {
		t.Errorf("terms not cleared: %v %v", e.Tags, e.Categories)
	}
	for _, k := range models.GeoMetaKeys {
		if _, ok := e.Meta[k]; ok {
			t.Errorf("geodata %s not cleared", k)
		}
	}
}

func TestPipelineUpdateSlugMovesURL(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)

	created := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}, "mp-slug": {"before"}}))
	res := mustHandle(t, p, jsonRequest(fmt.Sprintf(`{"action":"update","url":%q,"replace":{"mp-slug":["after"]}}`, created.Location)))

	if res.Status != http.StatusCreated || res.Location != "https://example.com/2020/03/after/" {
		t.Fatalf("got %d %q", res.Status, res.Location)
	}
	if _, err := s.GetEntryByURL(context.Background(), created.Location); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old url still resolves: %v", err)
	}
}

func TestPipelineUpdateStatus(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)

	created := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}, "post-status": {"draft"}}))
	mustHandle(t, p, jsonRequest(fmt.Sprintf(`{"action":"update","url":%q,"replace":{"content":["y"]}}`, created.Location)))

	e, err := s.GetEntryByURL(context.Background(), created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if e.Status != models.StatusDraft {
		t.Errorf("status = %q, want draft kept", e.Status)
	}

	mustHandle(t, p, jsonRequest(fmt.Sprintf(`{"action":"update","url":%q,"replace":{"post-status":["published"]}}`, created.Location)))
	e, err = s.GetEntryByURL(context.Background(), created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if e.Status != models.StatusPublish {
		t.Errorf("status = %q, want publish", e.Status)
	}
}

func TestPipelineUpdateErrors(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, nil)

	created := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}}))

	tests := []struct {
		name string
		body string
	}{
		{name: "missing url", body: `{"action":"update","replace":{"content":["y"]}}`},
		{name: "unknown post", body: `{"action":"update","url":"https://example.com/nope/","replace":{"content":["y"]}}`},
		{name: "add to content", body: fmt.Sprintf(`{"action":"update","url":%q,"add":{"content":["y"]}}`, created.Location)},
		{name: "replace list", body: fmt.Sprintf(`{"action":"update","url":%q,"replace":["content"]}`, created.Location)},
		{name: "invalid visibility", body: fmt.Sprintf(`{"action":"update","url":%q,"replace":{"visibility":["secret"]}}`, created.Location)},
		{name: "unknown action", body: fmt.Sprintf(`{"action":"publish","url":%q}`, created.Location)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := handleErr(t, p, jsonRequest(tt.body))
			if perr.Kind() != KindInvalidRequest || perr.Status() != http.StatusBadRequest {
				t.Errorf("got %s/%d", perr.Kind(), perr.Status())
			}
		})
	}
}

func TestPipelineDeleteUndelete(t *testing.T) {
	t.Parallel()
	hook := &recordingHook{}
	p, s := newTestPipeline(t, func(o *Options) { o.Hook = hook })
	ctx := context.Background()

	created := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}, "post-status": {"draft"}}))

	if res := mustHandle(t, p, formRequest(url.Values{"action": {"delete"}, "url": {created.Location}})); res.Status != http.StatusOK {
		t.Fatalf("delete status = %d", res.Status)
	}
	if _, err := s.GetEntryByURL(ctx, created.Location); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("trashed entry still visible: %v", err)
	}
	trashed, err := s.GetTrashedByURL(ctx, created.Location)
	if err != nil {
		t.Fatalf("GetTrashedByURL: %v", err)
	}
	if trashed.PreviousStatus != models.StatusDraft {
		t.Errorf("previous status = %q", trashed.PreviousStatus)
	}

	perr := handleErr(t, p, formRequest(url.Values{"action": {"delete"}, "url": {created.Location}}))
	if perr.Status() != http.StatusBadRequest {
		t.Errorf("second delete status = %d", perr.Status())
	}

	mustHandle(t, p, jsonRequest(fmt.Sprintf(`{"action":"undelete","url":%q}`, created.Location)))
	restored, err := s.GetEntryByURL(ctx, created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL after undelete: %v", err)
	}
	if restored.Status != models.StatusPublish {
		t.Errorf("restored status = %q, want publish", restored.Status)
	}

	perr = handleErr(t, p, jsonRequest(fmt.Sprintf(`{"action":"undelete","url":%q}`, created.Location)))
	if perr.Status() != http.StatusBadRequest {
		t.Errorf("undelete of live post status = %d", perr.Status())
	}

	want := []string{"create " + created.Location, "delete " + created.Location, "undelete " + created.Location}
	if !reflect.DeepEqual(hook.actions, want) {
		t.Errorf("hook actions = %v, want %v", hook.actions, want)
	}
}

func TestPipelineInvalidStatusNotPersisted(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)

	perr := handleErr(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}, "category": {"t"}, "post-status": {"scheduled"}}))
	if perr.Kind() != KindInvalidRequest {
		t.Errorf("kind = %s", perr.Kind())
	}

	entries, err := s.ListEntries(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	tags, err := s.ListTerms(context.Background(), models.TermTag)
	if err != nil {
		t.Fatalf("ListTerms: %v", err)
	}
	if len(entries) != 0 || len(tags) != 0 {
		t.Errorf("rejected create wrote %d entries, %d tags", len(entries), len(tags))
	}
}

func TestPipelineSyndicationUnknownTargets(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, func(o *Options) {
		o.Syndication = staticTargets{{UID: "twitter", Name: "Twitter"}}
	})

	perr := handleErr(t, p, formRequest(url.Values{
		"h":                 {"entry"},
		"content":           {"x"},
		"mp-syndicate-to[]": {"twitter", "facebook"},
	}))
	if perr.Status() != http.StatusBadRequest {
		t.Fatalf("status = %d", perr.Status())
	}
	if !strings.Contains(perr.Message(), "facebook") || strings.Contains(perr.Message(), "twitter") {
		t.Errorf("message = %q, want only facebook named", perr.Message())
	}
	if !reflect.DeepEqual(perr.Debug(), []string{"facebook"}) {
		t.Errorf("debug = %#v", perr.Debug())
	}

	entries, _ := s.ListEntries(context.Background(), 10, 0)
	if len(entries) != 0 {
		t.Errorf("entry persisted despite syndication error")
	}

	mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}, "mp-syndicate-to": {"twitter"}}))
}

func TestPipelineAuthErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantCode int
	}{
		{name: "no token", err: indieauth.ErrNoToken, wantKind: KindUnauthorized, wantCode: http.StatusUnauthorized},
		{name: "no scope", err: indieauth.ErrNoScope, wantKind: KindInsufficientScope, wantCode: http.StatusUnauthorized},
		{name: "invalid token", err: indieauth.ErrInvalidToken, wantKind: KindInvalidToken, wantCode: http.StatusForbidden},
		{name: "rejected", err: fmt.Errorf("introspect: %w", indieauth.ErrTokenRejected), wantKind: KindInvalidRequest, wantCode: http.StatusForbidden},
		{name: "transport", err: errors.New("dial tcp: connection refused"), wantKind: KindServerError, wantCode: http.StatusInternalServerError},
		{name: "user lookup", err: fmt.Errorf("%w: resolve user for https://example.com/: %w", indieauth.ErrUserLookup, errors.New("badger: /data/store: file locked")),
			wantKind: KindServerError, wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _ := newTestPipeline(t, func(o *Options) { o.Gate = stubGate{err: tt.err} })

			perr := handleErr(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}}))
			if perr.Kind() != tt.wantKind || perr.Status() != tt.wantCode {
				t.Errorf("got %s/%d, want %s/%d", perr.Kind(), perr.Status(), tt.wantKind, tt.wantCode)
			}
			if tt.name == "transport" && !strings.Contains(perr.Message(), "connection refused") {
				t.Errorf("token endpoint failure %q lost the cause", perr.Message())
			}
			if tt.name == "user lookup" {
				if strings.Contains(perr.Message(), "badger") {
					t.Errorf("store failure leaked into the message: %q", perr.Message())
				}
				if debug, _ := perr.Debug().(string); !strings.Contains(debug, "file locked") {
					t.Errorf("debug = %#v, want the cause", perr.Debug())
				}
				if !errors.Is(perr, indieauth.ErrUserLookup) {
					t.Error("cause not kept for logging")
				}
			}
		})
	}
}

func TestPipelineRejectsBadInput(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, nil)

	text := httptest.NewRequest(http.MethodPost, "/micropub", strings.NewReader("hello"))
	text.Header.Set("Content-Type", "text/plain")

	for name, r := range map[string]*http.Request{
		"text/plain":   text,
		"empty json":   jsonRequest(""),
		"broken json":  jsonRequest("{"),
		"empty form":   formRequest(url.Values{}),
		"no type sent": httptest.NewRequest(http.MethodPost, "/micropub", strings.NewReader("h=entry")),
	} {
		t.Run(name, func(t *testing.T) {
			perr := handleErr(t, p, r)
			if perr.Status() != http.StatusBadRequest {
				t.Errorf("status = %d", perr.Status())
			}
		})
	}
}

func TestPipelineMultipartUpload(t *testing.T) {
	t.Parallel()
	up := &fakeUploader{}
	p, s := newTestPipeline(t, func(o *Options) { o.Media = up })

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("h", "entry")
	_ = w.WriteField("content", "pic")
	fw, err := w.CreateFormFile("photo", "cat.jpg")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("\xff\xd8\xff\xe0 jpeg"))
	_ = w.Close()

	r := httptest.NewRequest(http.MethodPost, "/micropub", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	res := mustHandle(t, p, r)

	if !reflect.DeepEqual(up.uploaded, []string{"cat.jpg"}) {
		t.Fatalf("uploaded = %v", up.uploaded)
	}
	e, err := s.GetEntryByURL(context.Background(), res.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if !strings.HasSuffix(e.Content, GalleryShortcode) {
		t.Errorf("content = %q", e.Content)
	}
	if !strings.Contains(string(e.Meta["mf2_photo"]), "https://example.com/media/cat.jpg") {
		t.Errorf("mf2_photo = %s", e.Meta["mf2_photo"])
	}
}

func TestPipelineImportRemoteMedia(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, func(o *Options) {
		o.Media = &fakeUploader{}
		o.ImportRemote = true
	})

	res := mustHandle(t, p, jsonRequest(`{"type":["h-entry"],"properties":{"photo":[{"value":"https://cdn.example/x.jpg","alt":"x"}]}}`))
	e, err := s.GetEntryByURL(context.Background(), res.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	meta := string(e.Meta["mf2_photo"])
	if !strings.Contains(meta, "https://example.com/media/imported.jpg") || !strings.Contains(meta, `"alt"`) {
		t.Errorf("mf2_photo = %s", meta)
	}
}

func TestPipelineQueries(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, func(o *Options) {
		o.MediaEndpoint = "https://example.com/micropub/media"
		o.Syndication = staticTargets{{UID: "mastodon", Name: "Mastodon"}}
	})
	ctx := context.Background()

	if err := s.EnsureTerms(ctx, models.TermCategory, []string{"travel"}); err != nil {
		t.Fatalf("EnsureTerms: %v", err)
	}
	first := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "name": {"First"}, "category[]": {"travel", "trip"}, "published": {"2020-01-01T00:00:00Z"}}))
	mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "name": {"Second"}, "category": {"food"}, "published": {"2020-02-01T00:00:00Z"}}))

	t.Run("config", func(t *testing.T) {
		res := mustHandle(t, p, queryRequest("q=config"))
		body := res.Body.(map[string]interface{})
		if body["media-endpoint"] != "https://example.com/micropub/media" {
			t.Errorf("media-endpoint = %v", body["media-endpoint"])
		}
		if targets := body["syndicate-to"].([]SyndicationTarget); len(targets) != 1 || targets[0].UID != "mastodon" {
			t.Errorf("syndicate-to = %v", targets)
		}
		if !reflect.DeepEqual(body["q"], SupportedQueries) {
			t.Errorf("q = %v", body["q"])
		}
	})

	t.Run("category search", func(t *testing.T) {
		res := mustHandle(t, p, queryRequest("q=category&search=TR"))
		got := res.Body.(map[string]interface{})["categories"]
		if !reflect.DeepEqual(got, []string{"travel", "trip"}) {
			t.Errorf("categories = %v", got)
		}
	})

	t.Run("source by url", func(t *testing.T) {
		res := mustHandle(t, p, queryRequest("q=source&properties[]=name&properties[]=category&url="+url.QueryEscape(first.Location)))
		props := res.Body.(map[string]interface{})["properties"].(mf2.Properties)
		if !reflect.DeepEqual(props.Keys(), []string{"category", "name"}) {
			t.Errorf("keys = %v", props.Keys())
		}
		if !reflect.DeepEqual(props.Texts("category"), []string{"travel", "trip"}) {
			t.Errorf("category = %v", props.Texts("category"))
		}
	})

	t.Run("source list", func(t *testing.T) {
		res := mustHandle(t, p, queryRequest("q=source&limit=1"))
		items := res.Body.(map[string]interface{})["items"].([]interface{})
		if len(items) != 1 {
			t.Fatalf("items = %d, want 1", len(items))
		}
		if name := items[0].(*mf2.Entry).Properties.FirstText("name"); name != "Second" {
			t.Errorf("newest item = %q", name)
		}
	})

	t.Run("source missing", func(t *testing.T) {
		perr := handleErr(t, p, queryRequest("q=source&url="+url.QueryEscape("https://example.com/nope/")))
		if perr.Status() != http.StatusBadRequest {
			t.Errorf("status = %d", perr.Status())
		}
	})

	t.Run("unknown", func(t *testing.T) {
		perr := handleErr(t, p, queryRequest("q=weather"))
		if perr.Kind() != KindInvalidRequest {
			t.Errorf("kind = %s", perr.Kind())
		}
		if raw, ok := perr.Debug().(url.Values); !ok || raw.Get("q") != "weather" {
			t.Errorf("debug = %#v", perr.Debug())
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		perr := handleErr(t, p, queryRequest("q=source&limit=many"))
		if perr.Status() != http.StatusBadRequest {
			t.Errorf("status = %d", perr.Status())
		}
	})
}

func TestPipelineCapabilityDenied(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	created := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "content": {"x"}}))
	contributor := withGate(t, p, stubGate{ac: &indieauth.AuthContext{UserID: "c1", Me: "https://c1.example/", Scopes: allScopes}}, false)

	perr := handleErr(t, contributor, formRequest(url.Values{"action": {"delete"}, "url": {created.Location}}))
	if perr.Kind() != KindForbidden || perr.Status() != http.StatusForbidden {
		t.Errorf("contributor delete = %s/%d, want forbidden/403", perr.Kind(), perr.Status())
	}
	if _, err := s.GetEntryByURL(ctx, created.Location); err != nil {
		t.Errorf("entry gone after a forbidden delete: %v", err)
	}

	perr = handleErr(t, contributor, formRequest(url.Values{"h": {"entry"}, "content": {"y"}}))
	if perr.Kind() != KindForbidden {
		t.Errorf("contributor create = %s, want forbidden", perr.Kind())
	}

	res := mustHandle(t, contributor, jsonRequest(fmt.Sprintf(`{"action":"update","url":%q,"add":{"category":["edited"]}}`, created.Location)))
	if res.Status != http.StatusOK {
		t.Errorf("contributor update status = %d", res.Status)
	}
}

func TestPipelineUnknownMeIsForbidden(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	alice := &models.User{ID: testAuthor, Login: "alice", ProfileURL: "https://alice.example/", Roles: []string{models.RoleAuthor}}
	if err := s.PutUser(ctx, alice); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	gateFor := func(me string) Authorizer {
		g, err := indieauth.NewGate(fixedVerifier{Me: me, Scopes: allScopes}, s, indieauth.GateConfig{SiteURL: "https://example.com/"})
		if err != nil {
			t.Fatalf("NewGate: %v", err)
		}
		return g
	}
	owner := withGate(t, p, gateFor("https://alice.example/"), false)
	stranger := withGate(t, p, gateFor("https://stranger.example/"), false)

	created := mustHandle(t, owner, bearer(formRequest(url.Values{"h": {"entry"}, "content": {"mine"}})))
	e, err := s.GetEntryByURL(ctx, created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if e.AuthorID != testAuthor {
		t.Errorf("AuthorID = %q, want %q", e.AuthorID, testAuthor)
	}

	perr := handleErr(t, stranger, bearer(formRequest(url.Values{"h": {"entry"}, "mp-slug": {"victim"}, "content": {"spam"}})))
	if perr.Kind() != KindForbidden || perr.Status() != http.StatusForbidden {
		t.Errorf("unknown me create = %s/%d, want forbidden/403", perr.Kind(), perr.Status())
	}
	perr = handleErr(t, stranger, bearer(formRequest(url.Values{"action": {"delete"}, "url": {created.Location}})))
	if perr.Kind() != KindForbidden {
		t.Errorf("unknown me delete = %s, want forbidden", perr.Kind())
	}
	entries, err := s.ListEntries(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].URL != created.Location {
		t.Errorf("entries after rejected writes = %d, want only the owner's post", len(entries))
	}

	guests := withGate(t, p, gateFor("https://stranger.example/"), true)
	res := mustHandle(t, guests, bearer(formRequest(url.Values{"h": {"entry"}, "content": {"guest"}})))
	guest, err := s.GetEntryByURL(ctx, res.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if guest.AuthorID != "" {
		t.Errorf("anonymous entry AuthorID = %q, want empty", guest.AuthorID)
	}
}

func TestPipelineUpdateContentlessReplyKeepsContent(t *testing.T) {
	t.Parallel()
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	created := mustHandle(t, p, formRequest(url.Values{"h": {"entry"}, "in-reply-to": {"https://other.example/post"}}))
	before, err := s.GetEntryByURL(ctx, created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if !strings.Contains(before.Content, "https://other.example/post") {
		t.Fatalf("generated content = %q", before.Content)
	}

	for _, tag := range []string{"one", "two"} {
		mustHandle(t, p, jsonRequest(fmt.Sprintf(`{"action":"update","url":%q,"add":{"category":[%q]}}`, created.Location, tag)))
	}

	after, err := s.GetEntryByURL(ctx, created.Location)
	if err != nil {
		t.Fatalf("GetEntryByURL: %v", err)
	}
	if after.Content != before.Content {
		t.Errorf("content after updates = %q, want %q", after.Content, before.Content)
	}
	if strings.Contains(after.Content, "e-content") {
		t.Errorf("generated content was wrapped as explicit content: %q", after.Content)
	}

	res := mustHandle(t, p, queryRequest("q=source&url="+url.QueryEscape(created.Location)))
	src := res.Body.(*mf2.Entry)
	if src.Properties.Has("content") {
		t.Errorf("source reports content %v that was never sent", src.Properties["content"])
	}
	if got := src.Properties.FirstText("in-reply-to"); got != "https://other.example/post" {
		t.Errorf("in-reply-to = %q", got)
	}
}
