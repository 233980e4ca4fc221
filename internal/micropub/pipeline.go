// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

// DefaultMaxMemory bounds request bodies and in-memory multipart parts.
const DefaultMaxMemory = 32 << 20

// fileProps may be sent as multipart files.
var fileProps = []string{"photo", "video", "audio"}

// Authorizer turns a request into an authorization context.
type Authorizer interface {
	Authorize(ctx context.Context, r *http.Request, bodyToken string) (*indieauth.AuthContext, error)
}

// Options configures a Pipeline. Store and Gate are required; every
// strategy may be nil.
type Options struct {
	Store        store.Store
	Gate         Authorizer
	Capabilities CapabilityChecker

	SiteURL          string
	PermalinkPattern string
	Location         *time.Location
	DefaultStatus    models.Status
	MediaEndpoint    string
	PostTypes        []PostType
	PageSize         int
	MaxPageSize      int
	MaxMemory        int64

	Syndication SyndicationTargetProvider
	Titles      TitleSuggester
	Augmenter   ContentAugmenter
	Filter      InputFilter
	Hook        ActionHook
	Media       MediaUploader

	// ImportRemote copies remote photo, video and audio URLs via Media.
	ImportRemote bool

	// AllowAnonymous accepts writes from tokens whose me maps to no local
	// user. Such entries have no author.
	AllowAnonymous bool

	Now func() time.Time
}

// Result is a successful Micropub response.
type Result struct {
	Status   int
	Location string
	Body     interface{}
}

// Pipeline handles Micropub requests.
type Pipeline struct {
	opts   Options
	mapper *Mapper
}

// New creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, errors.New("micropub: store is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("micropub: gate is required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultStatus == "" {
		opts.DefaultStatus = models.StatusPublish
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.MaxPageSize < opts.PageSize {
		opts.MaxPageSize = opts.PageSize
	}
	if opts.MaxMemory <= 0 {
		opts.MaxMemory = DefaultMaxMemory
	}
	if len(opts.PostTypes) == 0 {
		opts.PostTypes = DefaultPostTypes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Pipeline{
		opts: opts,
		mapper: &Mapper{
			Entries:   opts.Store,
			Terms:     opts.Store,
			Titles:    opts.Titles,
			SiteURL:   opts.SiteURL,
			Permalink: opts.PermalinkPattern,
			Location:  opts.Location,
			Now:       opts.Now,
		},
	}, nil
}

// Mapper exposes the entry mapper used by the pipeline.
func (p *Pipeline) Mapper() *Mapper { return p.mapper }

// Handle processes one request. Errors are always *Error.
func (p *Pipeline) Handle(ctx context.Context, r *http.Request) (*Result, error) {
	if r.Method == http.MethodGet {
		return p.query(ctx, r)
	}

	in, perr := p.load(r)
	if perr != nil {
		metrics.RecordMicropubAction("unknown", string(perr.Kind()))
		return nil, perr
	}
	action := in.req.EffectiveAction()

	res, perr := p.handleAction(ctx, r, in, action)
	if perr != nil {
		metrics.RecordMicropubAction(action, string(perr.Kind()))
		logging.Ctx(ctx).Debug().
			Str("action", action).
			Str("error", string(perr.Kind())).
			Str("description", perr.Message()).
			Msg("Micropub request failed")
		return nil, perr
	}
	metrics.RecordMicropubAction(action, "success")
	return res, nil
}

type input struct {
	req   *mf2.Request
	files map[string][]*multipart.FileHeader
}

func (p *Pipeline) load(r *http.Request) (*input, *Error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, InvalidRequest("missing or invalid content type")
	}

	in := &input{}
	switch mediaType {
	case "application/json":
		body, err := io.ReadAll(io.LimitReader(r.Body, p.opts.MaxMemory))
		if err != nil {
			return nil, InvalidRequest("cannot read request body: %v", err)
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return nil, InvalidRequest("empty request body")
		}
		in.req, err = mf2.FromJSON(body)
		if err != nil {
			return nil, InvalidRequest("%v", err)
		}
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(nil, r.Body, p.opts.MaxMemory)
		if err := r.ParseForm(); err != nil {
			return nil, InvalidRequest("cannot parse form: %v", err)
		}
		in.req = mf2.FromForm(r.PostForm)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(p.opts.MaxMemory); err != nil {
			return nil, InvalidRequest("cannot parse multipart form: %v", err)
		}
		in.req = mf2.FromForm(r.MultipartForm.Value)
		in.files = map[string][]*multipart.FileHeader{}
		for _, name := range fileProps {
			in.files[name] = append(r.MultipartForm.File[name], r.MultipartForm.File[name+"[]"]...)
		}
	default:
		return nil, InvalidRequest("unsupported content type %s", mediaType)
	}

	if in.req.IsEmpty() && !in.hasFiles() {
		return nil, InvalidRequest("no micropub request")
	}
	mf2.ExpandGeoURIs(in.req.Properties(), "location", "checkin")
	return in, nil
}

func (in *input) hasFiles() bool {
	for _, fhs := range in.files {
		if len(fhs) > 0 {
			return true
		}
	}
	return false
}

func (p *Pipeline) handleAction(ctx context.Context, r *http.Request, in *input, action string) (*Result, *Error) {
	req := in.req
	if p.opts.Filter != nil {
		if err := p.opts.Filter.FilterInput(ctx, req); err != nil {
			return nil, InvalidRequest("%v", err)
		}
		action = req.EffectiveAction()
	}

	ac, err := p.opts.Gate.Authorize(ctx, r, req.AccessToken)
	if err != nil {
		return nil, AuthError(err)
	}
	ctx = indieauth.WithAuth(ctx, ac)

	if _, known := actionCapabilities[action]; !known {
		return nil, InvalidRequest("unknown action %s", action)
	}
	if perr := CheckScope(ac, action, ac.UserID, p.opts.Capabilities); perr != nil {
		return nil, perr
	}
	if perr := RequireUser(ac, action, p.opts.AllowAnonymous); perr != nil {
		return nil, perr
	}
	if perr := p.checkSyndication(ctx, ac.UserID, req); perr != nil {
		return nil, perr
	}
	if action != ActionCreate && req.URL == "" {
		return nil, InvalidRequest("%s requires a url", action)
	}

	var (
		res   *Result
		entry *models.Entry
		perr  *Error
	)
	switch action {
	case ActionCreate:
		res, entry, perr = p.create(ctx, ac, in)
	case ActionUpdate:
		res, entry, perr = p.update(ctx, req)
	case ActionDelete:
		res, entry, perr = p.trash(ctx, req.URL)
	case ActionUndelete:
		res, entry, perr = p.undelete(ctx, req.URL)
	default:
		return nil, InvalidRequest("unknown action %s", action)
	}
	if perr != nil {
		return nil, perr
	}

	logging.Ctx(ctx).Info().
		Str("action", action).
		Str("entry_id", entry.ID).
		Str("url", entry.URL).
		Str("user_id", ac.UserID).
		Msg("Micropub action completed")
	if p.opts.Hook != nil {
		p.opts.Hook.AfterAction(ctx, action, req, entry)
	}
	return res, nil
}

// AuthError maps gate failures onto protocol errors.
func AuthError(err error) *Error {
	switch {
	case errors.Is(err, indieauth.ErrNoToken):
		return NewError(KindUnauthorized, http.StatusUnauthorized, "missing access token")
	case errors.Is(err, indieauth.ErrNoScope):
		return NewError(KindInsufficientScope, http.StatusUnauthorized, "token has no scopes")
	case errors.Is(err, indieauth.ErrInvalidToken):
		return NewError(KindInvalidToken, http.StatusForbidden, "invalid access token")
	case errors.Is(err, indieauth.ErrTokenRejected):
		return NewError(KindInvalidRequest, http.StatusForbidden, "token endpoint rejected the access token")
	case errors.Is(err, indieauth.ErrUserLookup):
		return ServerError(err)
	default:
		return upstreamError(err)
	}
}

// checkSyndication rejects mp-syndicate-to values naming unknown targets.
func (p *Pipeline) checkSyndication(ctx context.Context, userID string, req *mf2.Request) *Error {
	var requested []string
	requested = append(requested, req.Properties().Texts("mp-syndicate-to")...)
	requested = append(requested, req.Add.Props.Texts("mp-syndicate-to")...)
	requested = append(requested, req.Replace.Props.Texts("mp-syndicate-to")...)
	if len(requested) == 0 {
		return nil
	}

	known := map[string]bool{}
	if p.opts.Syndication != nil {
		targets, err := p.opts.Syndication.SyndicationTargets(ctx, userID)
		if err != nil {
			return ServerError(fmt.Errorf("list syndication targets: %w", err))
		}
		for _, t := range targets {
			known[t.UID] = true
		}
	}

	var unknown []string
	for _, uid := range requested {
		if !known[uid] {
			unknown = appendUnique(unknown, uid)
		}
	}
	if len(unknown) > 0 {
		return InvalidRequest("unknown mp-syndicate-to targets: %s", strings.Join(unknown, ", ")).WithDebug(unknown)
	}
	return nil
}

func (p *Pipeline) create(ctx context.Context, ac *indieauth.AuthContext, in *input) (*Result, *models.Entry, *Error) {
	req := in.req
	props := req.Properties()

	status, ok := ResolvePostStatus(props, p.opts.DefaultStatus)
	if !ok {
		return nil, nil, InvalidRequest("invalid post-status or visibility")
	}
	if in.hasFiles() && p.opts.Media == nil {
		return nil, nil, InvalidRequest("media uploads are not enabled")
	}

	if err := p.attachMedia(ctx, ac.UserID, in); err != nil {
		return nil, nil, ServerError(err)
	}

	types := req.Entry.Type
	if len(types) == 0 {
		types = []string{"h-entry"}
	}
	e, err := p.mapper.ToEntry(ctx, types, props, nil)
	if err != nil {
		return nil, nil, ServerError(err)
	}
	e.Status = status
	e.AuthorID = ac.UserID
	e.Content = p.render(ctx, req, types, props, in.hasFiles())

	if err := p.mapper.EnsureTerms(ctx, e); err != nil {
		return nil, nil, ServerError(err)
	}
	if err := p.opts.Store.CreateEntry(ctx, e); err != nil {
		return nil, nil, ServerError(fmt.Errorf("create entry: %w", err))
	}
	return &Result{Status: http.StatusCreated, Location: e.URL}, e, nil
}

// attachMedia uploads multipart files and, when enabled, imports remote
// media URLs, appending or rewriting the property values.
func (p *Pipeline) attachMedia(ctx context.Context, userID string, in *input) error {
	props := in.req.Properties()
	for _, name := range fileProps {
		for _, fh := range in.files[name] {
			m, err := p.opts.Media.Upload(ctx, userID, fh)
			if err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}
			props[name] = append(props[name], mf2.Scalar(m.URL))
		}
	}

	if !p.opts.ImportRemote || p.opts.Media == nil {
		return nil
	}
	for _, name := range fileProps {
		for i, v := range props[name] {
			imported, err := p.importValue(ctx, userID, v)
			if err != nil {
				return fmt.Errorf("import %s: %w", name, err)
			}
			props[name][i] = imported
		}
	}
	return nil
}

func (p *Pipeline) importValue(ctx context.Context, userID string, v mf2.Value) (mf2.Value, error) {
	remote := v.Text()
	isRemote := strings.HasPrefix(remote, "http://") || strings.HasPrefix(remote, "https://")
	if !isRemote || (p.opts.SiteURL != "" && strings.HasPrefix(remote, p.opts.SiteURL)) {
		return v, nil
	}
	m, err := p.opts.Media.UploadFromURL(ctx, userID, remote)
	if err != nil {
		return v, err
	}
	if v.Kind() == mf2.KindObject {
		fields := make(map[string]mf2.Value, len(v.Fields()))
		for k, f := range v.Fields() {
			fields[k] = f
		}
		fields["value"] = mf2.Scalar(m.URL)
		return mf2.Object(fields), nil
	}
	return mf2.Scalar(m.URL), nil
}

func (p *Pipeline) render(ctx context.Context, req *mf2.Request, types []string, props mf2.Properties, hasFiles bool) string {
	content := GenerateContent(ContentBody(props), ContentInput{
		Type:       types,
		Properties: props,
		Replace:    req.Replace.Props,
		HasFiles:   hasFiles,
		Location:   p.opts.Location,
	})
	if p.opts.Augmenter != nil {
		content = p.opts.Augmenter.AugmentContent(ctx, content, req)
	}
	return content
}

func (p *Pipeline) update(ctx context.Context, req *mf2.Request) (*Result, *models.Entry, *Error) {
	existing, err := p.opts.Store.GetEntryByURL(ctx, req.URL)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, InvalidRequest("no post found at %s", req.URL)
	}
	if err != nil {
		return nil, nil, ServerError(err)
	}
	if perr := ValidateUpdate(req); perr != nil {
		return nil, nil, perr
	}

	status := existing.Status
	if req.Replace.Props.Has("post-status") || req.Replace.Props.Has("visibility") {
		var ok bool
		if status, ok = ResolvePostStatus(req.Replace.Props, existing.Status); !ok {
			return nil, nil, InvalidRequest("invalid post-status or visibility")
		}
	}

	draft := p.mapper.ToMF2(existing)
	for _, derived := range []string{"updated", "url", "post-status", "visibility"} {
		delete(draft.Properties, derived)
	}
	ApplyUpdate(draft.Properties, req)

	e, err := p.mapper.ToEntry(ctx, draft.Type, draft.Properties, existing)
	if err != nil {
		return nil, nil, ServerError(err)
	}
	if !req.Replace.Props.Has("published") {
		e.Published = existing.Published
		e.PublishedLocal = existing.PublishedLocal
	}
	e.Status = status
	e.Content = p.render(ctx, req, draft.Type, draft.Properties, false)

	if err := p.mapper.EnsureTerms(ctx, e); err != nil {
		return nil, nil, ServerError(err)
	}
	if err := p.opts.Store.UpdateEntry(ctx, e); err != nil {
		return nil, nil, ServerError(fmt.Errorf("update entry: %w", err))
	}

	if e.URL != existing.URL {
		return &Result{Status: http.StatusCreated, Location: e.URL}, e, nil
	}
	return &Result{Status: http.StatusOK}, e, nil
}

func (p *Pipeline) trash(ctx context.Context, url string) (*Result, *models.Entry, *Error) {
	existing, err := p.opts.Store.GetEntryByURL(ctx, url)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, InvalidRequest("no post found at %s", url)
	}
	if err != nil {
		return nil, nil, ServerError(err)
	}
	e, err := p.opts.Store.TrashEntry(ctx, existing.ID)
	if err != nil {
		return nil, nil, ServerError(fmt.Errorf("trash entry: %w", err))
	}
	return &Result{Status: http.StatusOK}, e, nil
}

func (p *Pipeline) undelete(ctx context.Context, url string) (*Result, *models.Entry, *Error) {
	trashed, err := p.opts.Store.GetTrashedByURL(ctx, url)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, InvalidRequest("no deleted post found at %s", url)
	}
	if err != nil {
		return nil, nil, ServerError(err)
	}
	e, err := p.opts.Store.RestoreEntry(ctx, trashed.ID, models.StatusPublish)
	if err != nil {
		return nil, nil, ServerError(fmt.Errorf("restore entry: %w", err))
	}
	return &Result{Status: http.StatusOK}, e, nil
}
