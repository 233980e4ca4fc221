// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package indieauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/tomtom215/scribe/internal/cache"
)

// DefaultCacheSize is the number of accepted tokens a CachingVerifier keeps.
const DefaultCacheSize = 1024

// CachingVerifier remembers tokens accepted by the wrapped verifier for a
// fixed TTL. Rejections and verification failures are never cached.
type CachingVerifier struct {
	next  TokenVerifier
	cache *cache.LRU[*TokenInfo]
}

// NewCachingVerifier wraps next. Tokens are keyed by their SHA-256 digest.
func NewCachingVerifier(next TokenVerifier, size int, ttl time.Duration) *CachingVerifier {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &CachingVerifier{next: next, cache: cache.NewLRU[*TokenInfo](size, ttl)}
}

// Verify implements TokenVerifier.
func (v *CachingVerifier) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	key := digest(token)
	if info, ok := v.cache.Get(key); ok {
		return info.clone(), nil
	}

	info, err := v.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	v.cache.Add(key, info.clone())
	return info, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (t *TokenInfo) clone() *TokenInfo {
	c := *t
	c.Scopes = append([]string(nil), t.Scopes...)
	if t.Raw != nil {
		c.Raw = make(map[string]interface{}, len(t.Raw))
		for k, v := range t.Raw {
			c.Raw[k] = v
		}
	}
	return &c
}
