// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/metrics"
	"github.com/tomtom215/scribe/internal/mf2"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
	"github.com/tomtom215/scribe/internal/validation"
)

// Queries answered by q=.
const (
	QueryConfig      = "config"
	QuerySyndicateTo = "syndicate-to"
	QueryCategory    = "category"
	QuerySource      = "source"
	QueryPostTypes   = "post-types"
)

// SupportedQueries is advertised in q=config.
var SupportedQueries = []string{QueryConfig, QuerySyndicateTo, QueryCategory, QuerySource, QueryPostTypes}

func (p *Pipeline) query(ctx context.Context, r *http.Request) (*Result, error) {
	q := mf2.FromQuery(r.URL.Query())

	body, perr := p.answer(ctx, r, q)
	if perr != nil {
		metrics.RecordMicropubQuery("error")
		return nil, perr
	}
	metrics.RecordMicropubQuery(q.Q)
	return &Result{Status: http.StatusOK, Body: body}, nil
}

func (p *Pipeline) answer(ctx context.Context, r *http.Request, q mf2.Query) (interface{}, *Error) {
	if verr := validation.ValidateStruct(q); verr != nil {
		return nil, InvalidRequest("invalid query: %s", verr.Error()).WithDebug(verr.Fields())
	}

	ac, err := p.opts.Gate.Authorize(ctx, r, "")
	if err != nil {
		return nil, AuthError(err)
	}
	ctx = indieauth.WithAuth(ctx, ac)

	switch q.Q {
	case QueryConfig:
		targets, perr := p.targets(ctx, ac.UserID)
		if perr != nil {
			return nil, perr
		}
		cfg := map[string]interface{}{
			"syndicate-to": targets,
			"post-types":   p.opts.PostTypes,
			"q":            SupportedQueries,
		}
		if p.opts.MediaEndpoint != "" {
			cfg["media-endpoint"] = p.opts.MediaEndpoint
		}
		return cfg, nil

	case QuerySyndicateTo:
		targets, perr := p.targets(ctx, ac.UserID)
		if perr != nil {
			return nil, perr
		}
		return map[string]interface{}{"syndicate-to": targets}, nil

	case QueryCategory:
		cats, err := p.categories(ctx, q.Search)
		if err != nil {
			return nil, ServerError(err)
		}
		return map[string]interface{}{"categories": cats}, nil

	case QuerySource:
		return p.source(ctx, q)

	case QueryPostTypes:
		return map[string]interface{}{"post-types": p.opts.PostTypes}, nil

	default:
		return nil, InvalidRequest("unknown query %s", q.Q).WithDebug(q.Raw)
	}
}

func (p *Pipeline) targets(ctx context.Context, userID string) ([]SyndicationTarget, *Error) {
	targets := []SyndicationTarget{}
	if p.opts.Syndication == nil {
		return targets, nil
	}
	found, err := p.opts.Syndication.SyndicationTargets(ctx, userID)
	if err != nil {
		return nil, ServerError(fmt.Errorf("list syndication targets: %w", err))
	}
	return append(targets, found...), nil
}

// categories returns the sorted union of category and tag names, filtered
// by a case-insensitive substring when search is set.
func (p *Pipeline) categories(ctx context.Context, search string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	needle := strings.ToLower(search)

	for _, kind := range []models.TermKind{models.TermCategory, models.TermTag} {
		terms, err := p.opts.Store.ListTerms(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s terms: %w", kind, err)
		}
		for _, t := range terms {
			name := t.Name
			if name == "" {
				name = t.Slug
			}
			if seen[name] || (needle != "" && !strings.Contains(strings.ToLower(name), needle)) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (p *Pipeline) source(ctx context.Context, q mf2.Query) (interface{}, *Error) {
	if q.URL != "" {
		e, err := p.opts.Store.GetEntryByURL(ctx, q.URL)
		if errors.Is(err, store.ErrNotFound) {
			return nil, InvalidRequest("no post found at %s", q.URL)
		}
		if err != nil {
			return nil, ServerError(err)
		}
		return project(p.mapper.ToMF2(e), q.Properties), nil
	}

	limit := q.Limit
	if !q.LimitSet || limit == 0 {
		limit = p.opts.PageSize
	}
	if limit > p.opts.MaxPageSize {
		limit = p.opts.MaxPageSize
	}
	entries, err := p.opts.Store.ListEntries(ctx, limit, q.Offset)
	if err != nil {
		return nil, ServerError(err)
	}
	items := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		items = append(items, project(p.mapper.ToMF2(e), q.Properties))
	}
	return map[string]interface{}{"items": items}, nil
}

// project keeps only the named properties. With names set the type is
// omitted, as clients asked for properties only.
func project(e *mf2.Entry, names []string) interface{} {
	if len(names) == 0 {
		return e
	}
	props := mf2.Properties{}
	for _, n := range names {
		if vals, ok := e.Properties[n]; ok {
			props[n] = vals
		}
	}
	return map[string]interface{}{"properties": props}
}
