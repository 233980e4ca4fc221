// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package indieauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the claims of a self-issued Micropub token.
type Claims struct {
	Me       string `json:"me"`
	Scope    string `json:"scope"`
	ClientID string `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates and issues HS256 tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier. The secret must be at least 32 characters.
func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("indieauth: jwt secret must be at least 32 characters")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}, nil
}

// Issue signs a token for me with the given scopes. A zero ttl never expires.
func (v *JWTVerifier) Issue(me string, scopes []string, clientID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Me:       me,
		Scope:    strings.Join(scopes, " "),
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   me,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	return &TokenInfo{
		Me:       claims.Me,
		ClientID: claims.ClientID,
		Scopes:   ParseScopes(claims.Scope),
		Raw: map[string]interface{}{
			"me":        claims.Me,
			"scope":     claims.Scope,
			"client_id": claims.ClientID,
			"issued_by": claims.Issuer,
		},
	}, nil
}
