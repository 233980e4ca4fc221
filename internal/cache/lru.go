// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package cache provides a bounded in-memory cache with per-entry TTL.
package cache

import (
	"sync"
	"time"
)

// node is an element of the recency list.
type node[V any] struct {
	key       string
	value     V
	prev      *node[V]
	next      *node[V]
	expiresAt time.Time
}

// LRU is a thread-safe least recently used cache. Entries expire lazily
// after the TTL; when full, the least recently used entry is evicted.
//
// The list uses head and tail sentinels: head.next is the most recently
// used entry and tail.prev the least.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*node[V]
	head     *node[V]
	tail     *node[V]
	now      func() time.Time

	hits   int64
	misses int64
}

// NewLRU creates a cache holding at most capacity entries for ttl each.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*node[V], capacity),
		head:     &node[V]{},
		tail:     &node[V]{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the live value for key and marks it recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	n, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.now().After(n.expiresAt) {
		c.remove(n)
		c.misses++
		return zero, false
	}
	c.unlink(n)
	c.pushFront(n)
	c.hits++
	return n.value, true
}

// Add stores value under key, resetting its TTL.
func (c *LRU[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if n, ok := c.items[key]; ok {
		n.value = value
		n.expiresAt = expiresAt
		c.unlink(n)
		c.pushFront(n)
		return
	}

	n := &node[V]{key: key, value: value, expiresAt: expiresAt}
	c.pushFront(n)
	c.items[key] = n
	for len(c.items) > c.capacity {
		c.remove(c.tail.prev)
	}
}

// Remove deletes key and reports whether it was present.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if ok {
		c.remove(n)
	}
	return ok
}

// Len returns the number of entries, including expired ones not yet seen.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counts.
func (c *LRU[V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Callers hold c.mu for the helpers below.

func (c *LRU[V]) pushFront(n *node[V]) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRU[V]) unlink(n *node[V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRU[V]) remove(n *node[V]) {
	c.unlink(n)
	delete(c.items, n.key)
}
