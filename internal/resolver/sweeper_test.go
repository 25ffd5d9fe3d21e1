// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/clipvault/internal/store"
)

type fakeResolver struct {
	mu      sync.Mutex
	times   map[string]int64
	lookups []string
	block   chan struct{}
}

func (f *fakeResolver) ResolveStartTime(_ context.Context, matchID string) (int64, bool) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, matchID)
	ts, ok := f.times[matchID]
	return ts, ok
}

func (f *fakeResolver) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lookups)
}

// countingStore records PatchStartTime calls on top of a real store.
type countingStore struct {
	*store.Store
	mu      sync.Mutex
	patches int
	failIDs map[string]bool
}

func (c *countingStore) PatchStartTime(ctx context.Context, id string, ts int64) error {
	c.mu.Lock()
	c.patches++
	fail := c.failIDs[id]
	c.mu.Unlock()
	if fail {
		return store.ErrUnavailable
	}
	return c.Store.PatchStartTime(ctx, id, ts)
}

func setupTestSweeper(t *testing.T, times map[string]int64) (*Sweeper, *countingStore, *fakeResolver) {
	t.Helper()
	s, err := store.OpenForTesting()
	if err != nil {
		t.Fatalf("OpenForTesting: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cs := &countingStore{Store: s, failIDs: map[string]bool{}}
	fr := &fakeResolver{times: times}
	cfg := DefaultConfig()
	cfg.SweepDelay = 0
	cfg.SweepInterval = 0
	return NewSweeper(cfg, cs, fr), cs, fr
}

func addClip(t *testing.T, s *store.Store, matchID string, startTime int64) string {
	t.Helper()
	id, err := s.NextID(matchID)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	c := &store.Clip{ID: id, MatchID: matchID, Duration: 30, StartTime: startTime, Heroes: []int{1}, Tags: []string{"gank"}}
	if err := s.Write(context.Background(), c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return id
}

func TestSweep_PatchesResolvable(t *testing.T) {
	sw, cs, fr := setupTestSweeper(t, map[string]int64{"100": 1700000000, "200": 1600000000})
	a := addClip(t, cs.Store, "100", 0)
	b := addClip(t, cs.Store, "200", 0)
	addClip(t, cs.Store, "300", 0) // unknown to the resolver
	addClip(t, cs.Store, "400", 1500000000)

	stats, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Scanned != 3 || stats.Lookups != 3 || stats.Resolved != 2 || stats.Patched != 2 || stats.Pending != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if fr.lookupCount() != 3 {
		t.Errorf("lookups = %d, want 3", fr.lookupCount())
	}

	got, err := cs.Read(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0].Clip.StartTime != 1700000000 || got[1].Clip.StartTime != 1600000000 {
		t.Errorf("start times = %d, %d", got[0].Clip.StartTime, got[1].Clip.StartTime)
	}
}

func TestSweep_Idempotent(t *testing.T) {
	sw, cs, fr := setupTestSweeper(t, map[string]int64{"100": 1700000000, "200": 1600000000})
	addClip(t, cs.Store, "100", 0)
	addClip(t, cs.Store, "200", 0)

	if _, err := sw.Sweep(context.Background()); err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	lookups, patches := fr.lookupCount(), cs.patches

	stats, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if fr.lookupCount() != lookups || cs.patches != patches {
		t.Errorf("second sweep did %d lookups and %d writes, want 0 and 0",
			fr.lookupCount()-lookups, cs.patches-patches)
	}
	if stats.Scanned != 0 || stats.Patched != 0 {
		t.Errorf("second sweep stats = %+v", stats)
	}
}

func TestSweep_SharedMatchLooksUpOnce(t *testing.T) {
	sw, cs, fr := setupTestSweeper(t, map[string]int64{"100": 1700000000})
	for i := 0; i < 3; i++ {
		addClip(t, cs.Store, "100", 0)
	}

	stats, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if fr.lookupCount() != 1 {
		t.Errorf("lookups = %d, want 1", fr.lookupCount())
	}
	if stats.Patched != 3 {
		t.Errorf("patched = %d, want 3", stats.Patched)
	}
}

func TestSweep_PatchFailureDoesNotStop(t *testing.T) {
	sw, cs, _ := setupTestSweeper(t, map[string]int64{"100": 1, "200": 2})
	bad := addClip(t, cs.Store, "100", 0)
	addClip(t, cs.Store, "200", 0)
	cs.failIDs[bad] = true

	stats, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Failed != 1 || stats.Patched != 1 || stats.Pending != 1 {
		t.Errorf("stats = %+v, want 1 failed, 1 patched, 1 pending", stats)
	}
	if last := sw.LastStats(); last == nil || last.Patched != 1 {
		t.Errorf("LastStats = %+v", last)
	}
}

func TestSweep_CanceledContext(t *testing.T) {
	sw, cs, fr := setupTestSweeper(t, map[string]int64{"100": 1})
	addClip(t, cs.Store, "100", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sw.Sweep(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if fr.lookupCount() != 0 {
		t.Errorf("lookups = %d, want 0", fr.lookupCount())
	}
}

func TestSweep_RateLimited(t *testing.T) {
	_, cs, _ := setupTestSweeper(t, map[string]int64{})
	cfg := DefaultConfig()
	cfg.SweepDelay = 40 * time.Millisecond
	sw := NewSweeper(cfg, cs, &fakeResolver{})
	for _, m := range []string{"1", "2", "3"} {
		addClip(t, cs.Store, m, 0)
	}

	start := time.Now()
	if _, err := sw.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	// Burst 1: the first lookup is immediate, the next two wait a delay each.
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("three lookups took %v, want at least two delays", elapsed)
	}
}

func TestSweep_RejectsConcurrent(t *testing.T) {
	sw, cs, fr := setupTestSweeper(t, map[string]int64{"100": 1})
	fr.block = make(chan struct{})
	addClip(t, cs.Store, "100", 0)

	done := make(chan error, 1)
	go func() {
		_, err := sw.Sweep(context.Background())
		done <- err
	}()

	// Wait until the first sweep holds the lock.
	deadline := time.Now().Add(2 * time.Second)
	for sw.sweepMu.TryLock() {
		sw.sweepMu.Unlock()
		if time.Now().After(deadline) {
			t.Fatal("first sweep never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := sw.Sweep(context.Background()); !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("err = %v, want ErrSweepInProgress", err)
	}
	close(fr.block)
	if err := <-done; err != nil {
		t.Errorf("first sweep: %v", err)
	}
}

func TestSweeper_TriggerLoop(t *testing.T) {
	sw, cs, _ := setupTestSweeper(t, map[string]int64{"100": 1700000000})
	id := addClip(t, cs.Store, "100", 0)

	if err := sw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sw.IsRunning() {
		t.Fatal("IsRunning = false after Start")
	}
	if !sw.Trigger() {
		t.Fatal("Trigger = false on an idle sweeper")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := cs.Read(context.Background(), []string{id})
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got[0].Clip.HasStartTime() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("triggered sweep never patched the clip")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := sw.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sw.IsRunning() {
		t.Error("IsRunning = true after Stop")
	}
}
