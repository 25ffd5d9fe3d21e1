// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault
package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests expire entries without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestLRU(capacity int, ttl time.Duration) (*LRU[string, int64], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string, int64](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRU_GetAdd(t *testing.T) {
	c, _ := newTestLRU(3, time.Minute)

	c.Add("7100000001", 1707000000)
	c.Add("7100000002", 1707000500)

	if v, ok := c.Get("7100000001"); !ok || v != 1707000000 {
		t.Errorf("Get = %d, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("unexpected hit for missing key")
	}

	c.Add("7100000001", 42)
	if v, _ := c.Get("7100000001"); v != 42 {
		t.Errorf("refreshed value = %d, want 42", v)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	hits, misses, size := c.Stats()
	if hits != 2 || misses != 1 || size != 2 {
		t.Errorf("Stats = %d, %d, %d", hits, misses, size)
	}
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestLRU(3, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	c.Get("a")
	c.Add("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to be present", key)
		}
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	clock.Advance(30 * time.Second)
	c.Add("c", 3)
	clock.Advance(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be expired")
	}
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired = %d, want 1", removed)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to survive")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRU_Remove(t *testing.T) {
	c, _ := newTestLRU(3, time.Minute)
	c.Add("a", 1)

	if !c.Remove("a") {
		t.Error("Remove(a) = false")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true")
	}
}

func TestLRU_Defaults(t *testing.T) {
	c := New[int, string](0, 0)
	if c.capacity != 1024 || c.ttl != 5*time.Minute {
		t.Errorf("defaults = %d, %v", c.capacity, c.ttl)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c, _ := newTestLRU(50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := strconv.Itoa((g*200 + i) % 80)
				c.Add(key, int64(i))
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d, exceeds capacity", c.Len())
	}
}
