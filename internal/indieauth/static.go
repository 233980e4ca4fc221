// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package indieauth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// StaticToken is a personal token known by its bcrypt hash.
type StaticToken struct {
	Hash   string
	Me     string
	Scopes []string
}

// StaticVerifier accepts a fixed set of personal tokens.
type StaticVerifier struct {
	tokens []StaticToken
}

// NewStaticVerifier validates that every hash is a bcrypt hash.
func NewStaticVerifier(tokens []StaticToken) (*StaticVerifier, error) {
	for i, t := range tokens {
		if _, err := bcrypt.Cost([]byte(t.Hash)); err != nil {
			return nil, fmt.Errorf("indieauth: static token %d: %w", i, err)
		}
	}
	return &StaticVerifier{tokens: tokens}, nil
}

// HashToken returns the bcrypt hash to configure for token.
func HashToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("indieauth: token must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// Verify compares token against every configured hash.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	for _, t := range v.tokens {
		if bcrypt.CompareHashAndPassword([]byte(t.Hash), []byte(token)) == nil {
			return &TokenInfo{
				Me:     t.Me,
				Scopes: append([]string(nil), t.Scopes...),
				Raw: map[string]interface{}{
					"me":    t.Me,
					"scope": strings.Join(t.Scopes, " "),
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown personal token", ErrInvalidToken)
}
