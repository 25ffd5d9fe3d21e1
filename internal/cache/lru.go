// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault
// Package cache provides a bounded LRU cache with per-entry expiry.
package cache

import (
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	prev      *entry[K, V]
	next      *entry[K, V]
	expiresAt time.Time
}

// LRU is a thread-safe least recently used cache with TTL support. Get, Add
// and Remove are O(1); expired entries are dropped lazily on access or by
// CleanupExpired.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	items    map[K]*entry[K, V]

	// head.next is the most recently used entry, tail.prev the least.
	head *entry[K, V]
	tail *entry[K, V]

	hits   int64
	misses int64

	now func() time.Time
}

// New creates a cache holding at most capacity entries for ttl each.
func New[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*entry[K, V], capacity),
		head:     &entry[K, V]{},
		tail:     &entry[K, V]{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.remove(e)
		c.misses++
		return zero, false
	}

	c.moveToFront(e)
	c.hits++
	return e.value, true
}

// Add inserts or refreshes key. The least recently used entry is evicted
// once the cache is over capacity.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value, expiresAt: expiresAt}
	c.pushFront(e)
	c.items[key] = e

	for len(c.items) > c.capacity {
		oldest := c.tail.prev
		if oldest == c.head {
			break
		}
		c.remove(oldest)
	}
}

// Remove deletes key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
		return true
	}
	return false
}

// Len returns the number of entries, expired or not.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired drops every expired entry and returns how many it removed.
func (c *LRU[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			c.remove(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Stats returns hit and miss counts and the current size.
func (c *LRU[K, V]) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// must be called with mu held
func (c *LRU[K, V]) pushFront(e *entry[K, V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[K, V]) moveToFront(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.pushFront(e)
}

func (c *LRU[K, V]) remove(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
