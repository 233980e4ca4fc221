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
	"strings"
)

// Standard verification errors
var (
	// ErrNoToken indicates neither an Authorization header nor an
	// access_token parameter was sent.
	ErrNoToken = errors.New("indieauth: no access token provided")

	// ErrTokenRejected indicates the verifier refused the token.
	ErrTokenRejected = errors.New("indieauth: token rejected")

	// ErrInvalidToken indicates a locally verified token (jwt or static)
	// is malformed, expired or unknown. It wraps ErrTokenRejected.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrTokenRejected)

	// ErrNoScope indicates the token was valid but granted no scopes.
	ErrNoScope = errors.New("indieauth: token has no scopes")

	// ErrUserLookup indicates the user directory failed while resolving me.
	ErrUserLookup = errors.New("indieauth: user lookup failed")
)

// TokenInfo is what a verifier learned about a token.
type TokenInfo struct {
	Me       string
	ClientID string
	Scopes   []string
	Raw      map[string]interface{}
}

// TokenVerifier checks a bearer token.
//
// Implementations return an error wrapping ErrTokenRejected when the token
// is refused, and any other error when verification could not be performed.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*TokenInfo, error)
}

// ExtractToken returns the bearer token from the Authorization header
// (header and scheme matched case-insensitively), falling back to
// bodyToken. It returns "" when neither is present.
func ExtractToken(r *http.Request, bodyToken string) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(bodyToken)
}

// ParseScopes splits a scope claim on spaces and commas.
func ParseScopes(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '+'
	})
	seen := make(map[string]bool, len(fields))
	scopes := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			scopes = append(scopes, f)
		}
	}
	return scopes
}
