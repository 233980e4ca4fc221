// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package indieauth

import (
	"context"
)

// AuthContext is the verified identity of one request. UserID is empty for
// an anonymous principal.
type AuthContext struct {
	UserID string
	Me     string
	Scopes []string
	// Raw is the verifier's full response, for debugging only.
	Raw map[string]interface{}
}

// HasScope reports whether scope was granted.
func (a *AuthContext) HasScope(scope string) bool {
	if a == nil {
		return false
	}
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// IsAnonymous reports whether no local user was resolved.
func (a *AuthContext) IsAnonymous() bool {
	return a == nil || a.UserID == ""
}

type contextKey struct{}

// WithAuth returns a context carrying ac.
func WithAuth(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the AuthContext stored by WithAuth, or nil.
func FromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(contextKey{}).(*AuthContext)
	return ac
}
