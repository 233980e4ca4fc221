// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/scribe/internal/authz"
	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/store"
)

// authzCacheTTL bounds how long a role change takes to apply.
const authzCacheTTL = time.Minute

// newVerifier builds the token verifier selected by INDIEAUTH_MODE. Every
// request is verified afresh unless INDIEAUTH_CACHE_TTL is set, in which
// case introspection and bcrypt results are cached for that long.
func newVerifier(cfg config.IndieAuthConfig) (indieauth.TokenVerifier, error) {
	v, err := baseVerifier(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTL > 0 && cfg.Mode != "jwt" {
		return indieauth.NewCachingVerifier(v, indieauth.DefaultCacheSize, cfg.CacheTTL), nil
	}
	return v, nil
}

func baseVerifier(cfg config.IndieAuthConfig) (indieauth.TokenVerifier, error) {
	switch cfg.Mode {
	case "", "introspection":
		v, err := indieauth.NewIntrospectionVerifier(indieauth.IntrospectionConfig{
			Endpoint:         cfg.TokenEndpoint,
			Timeout:          cfg.Timeout,
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			BreakerTimeout:   cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		})
		if err != nil {
			return nil, err
		}
		logging.Info().Str("token_endpoint", cfg.TokenEndpoint).Msg("IndieAuth token introspection enabled")
		return v, nil

	case "jwt":
		v, err := indieauth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("issuer", cfg.JWTIssuer).Msg("Self-issued JWT tokens enabled")
		return v, nil

	case "static":
		tokens := make([]indieauth.StaticToken, 0, len(cfg.StaticTokens))
		for _, t := range cfg.StaticTokens {
			tokens = append(tokens, indieauth.StaticToken{Hash: t.Hash, Me: t.Me, Scopes: t.Scopes})
		}
		v, err := indieauth.NewStaticVerifier(tokens)
		if err != nil {
			return nil, err
		}
		logging.Info().Int("tokens", len(tokens)).Msg("Static personal tokens enabled")
		logging.Warn().Msg("Static tokens never expire. Rotate them with scribectl hash-token")
		return v, nil

	default:
		return nil, fmt.Errorf("unknown indieauth mode %q", cfg.Mode)
	}
}

// newEnforcer creates the capability enforcer and loads every stored
// user's roles into it.
func newEnforcer(ctx context.Context, cfg config.AuthzConfig, users store.UserStore) (*authz.Enforcer, error) {
	enforcer, err := authz.NewEnforcer(ctx, &authz.EnforcerConfig{
		ModelPath:   cfg.ModelPath,
		PolicyPath:  cfg.PolicyPath,
		DefaultRole: cfg.DefaultRole,
		CacheTTL:    authzCacheTTL,
	})
	if err != nil {
		return nil, err
	}

	list, err := users.ListUsers(ctx)
	if err != nil {
		enforcer.Close()
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range list {
		if len(u.Roles) == 0 {
			continue
		}
		if err := enforcer.SetRoles(u.ID, u.Roles); err != nil {
			enforcer.Close()
			return nil, fmt.Errorf("assign roles to %s: %w", u.ID, err)
		}
	}
	logging.Info().
		Int("users", len(list)).
		Str("default_role", cfg.DefaultRole).
		Msg("Authorization enforcer initialized")
	return enforcer, nil
}
