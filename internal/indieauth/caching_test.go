// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package indieauth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type countingVerifier struct {
	calls atomic.Int32
	err   error
}

func (c *countingVerifier) Verify(_ context.Context, token string) (*TokenInfo, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &TokenInfo{Me: "https://example.com/", Scopes: []string{"create"}, Raw: map[string]interface{}{"token": token}}, nil
}

func TestCachingVerifier_CachesAcceptedTokens(t *testing.T) {
	t.Parallel()
	next := &countingVerifier{}
	v := NewCachingVerifier(next, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := v.Verify(ctx, "abc")
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if info.Me != "https://example.com/" {
			t.Errorf("Me = %q", info.Me)
		}
		// Mutating a result must not leak into the cache.
		info.Scopes[0] = "delete"
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("wrapped verifier called %d times, want 1", got)
	}

	info, _ := v.Verify(ctx, "abc")
	if info.Scopes[0] != "create" {
		t.Errorf("cached scopes = %v, want [create]", info.Scopes)
	}

	if _, err := v.Verify(ctx, "other"); err != nil {
		t.Fatalf("Verify(other) error = %v", err)
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("distinct token should be verified, calls = %d", got)
	}
}

func TestCachingVerifier_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()
	next := &countingVerifier{err: fmt.Errorf("%w: revoked", ErrTokenRejected)}
	v := NewCachingVerifier(next, 8, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrTokenRejected) {
			t.Fatalf("Verify() error = %v, want ErrTokenRejected", err)
		}
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("wrapped verifier called %d times, want 2", got)
	}
}
