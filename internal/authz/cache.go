// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package authz

import (
	"strings"
	"sync"
	"time"
)

// enforcementCache caches capability decisions per user.
type enforcementCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	items    map[string]cacheItem
	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	allowed   bool
	expiresAt time.Time
}

func newEnforcementCache(ttl time.Duration) *enforcementCache {
	c := &enforcementCache{
		ttl:      ttl,
		items:    make(map[string]cacheItem),
		stopChan: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func cacheKey(user, capability string) string {
	return user + "\x00" + capability
}

func (c *enforcementCache) get(user, capability string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[cacheKey(user, capability)]
	if !found || time.Now().After(item.expiresAt) {
		return false, false
	}
	return item.allowed, true
}

func (c *enforcementCache) set(user, capability string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(user, capability)] = cacheItem{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
}

func (c *enforcementCache) invalidateUser(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := user + "\x00"
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// cleanup periodically removes expired items.
func (c *enforcementCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// stop is idempotent.
func (c *enforcementCache) stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}
