// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package indieauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
	"github.com/tomtom215/scribe/internal/models"
)

// State is a step of the gate's state machine.
type State int

const (
	StateUnauthenticated State = iota
	StateTokenPending
	StateVerified
	StateErrorTerminal
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateTokenPending:
		return "token-pending"
	case StateVerified:
		return "verified"
	case StateErrorTerminal:
		return "error-terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// UserDirectory lists local users for "me" resolution.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// GateConfig configures identity resolution.
type GateConfig struct {
	SiteURL string
	// DefaultAuthor owns requests whose me is the site URL.
	DefaultAuthor string
	// AuthorArchivePattern is relative to SiteURL with %s for the login,
	// e.g. "author/%s/".
	AuthorArchivePattern string
}

// Gate authorizes Micropub requests.
type Gate struct {
	verifier TokenVerifier
	users    UserDirectory
	cfg      GateConfig
	site     *url.URL
}

// NewGate creates a gate.
func NewGate(verifier TokenVerifier, users UserDirectory, cfg GateConfig) (*Gate, error) {
	site, err := url.Parse(cfg.SiteURL)
	if err != nil || !site.IsAbs() {
		return nil, fmt.Errorf("indieauth: site URL must be absolute: %q", cfg.SiteURL)
	}
	if cfg.AuthorArchivePattern == "" {
		cfg.AuthorArchivePattern = "author/%s/"
	}
	return &Gate{verifier: verifier, users: users, cfg: cfg, site: site}, nil
}

// Authorize verifies the request's token once and resolves its identity.
// bodyToken is the access_token body parameter, if any.
func (g *Gate) Authorize(ctx context.Context, r *http.Request, bodyToken string) (*AuthContext, error) {
	state := StateUnauthenticated
	logger := logging.Ctx(ctx)

	fail := func(err error) (*AuthContext, error) {
		logger.Debug().Err(err).Str("from", state.String()).Str("state", StateErrorTerminal.String()).Msg("Authorization failed")
		metrics.RecordAuthAttempt(authOutcome(err))
		return nil, err
	}

	token := ExtractToken(r, bodyToken)
	if token == "" {
		return fail(ErrNoToken)
	}
	state = StateTokenPending

	info, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return fail(err)
	}
	if len(info.Scopes) == 0 {
		return fail(ErrNoScope)
	}

	me := g.NormalizeMe(info.Me)
	userID, err := g.ResolveUser(ctx, me)
	if err != nil {
		return fail(fmt.Errorf("%w: resolve user for %s: %w", ErrUserLookup, me, err))
	}

	state = StateVerified
	ac := &AuthContext{UserID: userID, Me: me, Scopes: info.Scopes, Raw: info.Raw}
	logger.Debug().
		Str("state", state.String()).
		Str("me", me).
		Str("user_id", userID).
		Strs("scopes", info.Scopes).
		Str("token", logging.SanitizeToken(token)).
		Msg("Token verified")
	metrics.RecordAuthAttempt("verified")
	return ac, nil
}

func authOutcome(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	case errors.Is(err, ErrTokenRejected):
		return "rejected"
	case errors.Is(err, ErrNoScope):
		return "no_scope"
	default:
		return "error"
	}
}

// NormalizeMe upgrades an http me to https when the site is https on the
// same host.
func (g *Gate) NormalizeMe(me string) string {
	u, err := url.Parse(me)
	if err != nil {
		return me
	}
	if g.site.Scheme == "https" && u.Scheme == "http" && strings.EqualFold(u.Host, g.site.Host) {
		u.Scheme = "https"
		return u.String()
	}
	return me
}

// ResolveUser maps me to a local user id, or "" for anonymous. Candidates,
// in order: the site URL itself (default author, else the sole author),
// an author archive URL, then a profile URL with or without trailing slash.
func (g *Gate) ResolveUser(ctx context.Context, me string) (string, error) {
	if me == "" {
		return "", nil
	}
	users, err := g.users.ListUsers(ctx)
	if err != nil {
		return "", err
	}

	site := trimSlash(g.site.String())
	if trimSlash(me) == site {
		if g.cfg.DefaultAuthor != "" {
			return g.cfg.DefaultAuthor, nil
		}
		var authors []*models.User
		for _, u := range users {
			if u.CanAuthor() {
				authors = append(authors, u)
			}
		}
		if len(authors) == 1 {
			return authors[0].ID, nil
		}
		return "", nil
	}

	for _, u := range users {
		archive := site + "/" + fmt.Sprintf(g.cfg.AuthorArchivePattern, u.Login)
		if trimSlash(archive) == trimSlash(me) {
			return u.ID, nil
		}
	}

	for _, u := range users {
		if u.ProfileURL == "" {
			continue
		}
		if u.ProfileURL == me || trimSlash(u.ProfileURL) == trimSlash(me) {
			return u.ID, nil
		}
	}
	return "", nil
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}
