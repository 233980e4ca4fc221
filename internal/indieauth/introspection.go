// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package indieauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
)

// maxIntrospectionBody bounds the token endpoint response we read.
const maxIntrospectionBody = 64 << 10

// IntrospectionConfig configures an IntrospectionVerifier.
type IntrospectionConfig struct {
	Endpoint string
	Timeout  time.Duration

	// Circuit breaker settings
	MaxRequests      uint32
	Interval         time.Duration
	BreakerTimeout   time.Duration
	FailureThreshold uint32

	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// IntrospectionVerifier verifies tokens against an IndieAuth token endpoint
// with a GET carrying the token as a bearer credential.
type IntrospectionVerifier struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*TokenInfo]
}

// NewIntrospectionVerifier creates a verifier for cfg.Endpoint.
func NewIntrospectionVerifier(cfg IntrospectionConfig) (*IntrospectionVerifier, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("indieauth: token endpoint must be an absolute URL: %q", cfg.Endpoint)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "indieauth-introspection",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A refused token is a healthy endpoint.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrTokenRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Token endpoint circuit breaker state changed")
		},
	}

	return &IntrospectionVerifier{
		endpoint: cfg.Endpoint,
		client:   client,
		breaker:  gobreaker.NewCircuitBreaker[*TokenInfo](settings),
	}, nil
}

// Verify performs one introspection call. A non-2xx response wraps
// ErrTokenRejected; transport failures and an open breaker are returned
// unchanged.
func (v *IntrospectionVerifier) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	return v.breaker.Execute(func() (*TokenInfo, error) {
		return v.introspect(ctx, token)
	})
}

func (v *IntrospectionVerifier) introspect(ctx context.Context, token string) (*TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIntrospectionBody))
	if err != nil {
		return nil, fmt.Errorf("read token endpoint response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Debug().
			Int("status", resp.StatusCode).
			Str("token", logging.SanitizeToken(token)).
			Msg("Token endpoint rejected token")
		return nil, fmt.Errorf("%w: token endpoint returned %d", ErrTokenRejected, resp.StatusCode)
	}

	raw, err := decodeIntrospection(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}
	return tokenInfoFromRaw(raw), nil
}

// decodeIntrospection accepts JSON or form-encoded bodies.
func decodeIntrospection(contentType string, body []byte) (map[string]interface{}, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("decode token endpoint form response: %w", err)
		}
		raw := make(map[string]interface{}, len(values))
		for k := range values {
			raw[k] = values.Get(k)
		}
		return raw, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token endpoint response: %w", err)
	}
	return raw, nil
}

func tokenInfoFromRaw(raw map[string]interface{}) *TokenInfo {
	info := &TokenInfo{Raw: raw}
	info.Me, _ = raw["me"].(string)
	info.ClientID, _ = raw["client_id"].(string)
	switch scope := raw["scope"].(type) {
	case string:
		info.Scopes = ParseScopes(scope)
	case []interface{}:
		for _, s := range scope {
			if str, ok := s.(string); ok {
				info.Scopes = append(info.Scopes, str)
			}
		}
	}
	return info
}
