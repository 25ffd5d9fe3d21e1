// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/metrics"
	"github.com/tomtom215/clipvault/internal/store"
)

// ErrSweepInProgress is returned when Sweep is called while another sweep
// is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// ClipStore is the part of the clip repository the sweeper needs.
type ClipStore interface {
	MissingStartTimes(ctx context.Context) ([]store.Clip, error)
	PatchStartTime(ctx context.Context, id string, ts int64) error
}

// StartTimeResolver resolves a match start time. Failures are reported as
// absent.
type StartTimeResolver interface {
	ResolveStartTime(ctx context.Context, matchID string) (int64, bool)
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Scanned   int           `json:"scanned"`
	Lookups   int           `json:"lookups"`
	Resolved  int           `json:"resolved"`
	Patched   int           `json:"patched"`
	Failed    int           `json:"failed"`
	Pending   int           `json:"pending"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Sweeper backfills start times for clips stored without one.
type Sweeper struct {
	store    ClipStore
	resolver StartTimeResolver
	limiter  *rate.Limiter
	interval time.Duration

	sweepMu sync.Mutex
	trigger chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	running   bool
	lastStats *SweepStats
}

// NewSweeper creates a sweeper. Lookups are spaced at least cfg.SweepDelay
// apart across all sweeps.
func NewSweeper(cfg Config, s ClipStore, r StartTimeResolver) *Sweeper {
	limit := rate.Inf
	if cfg.SweepDelay > 0 {
		limit = rate.Every(cfg.SweepDelay)
	}
	return &Sweeper{
		store:    s,
		resolver: r,
		limiter:  rate.NewLimiter(limit, 1),
		interval: cfg.SweepInterval,
		trigger:  make(chan struct{}, 1),
	}
}

// Sweep looks up every clip missing a start time and patches the ones that
// resolve. Clips sharing a match id cost one lookup. Patch failures are
// counted and never stop the sweep; a canceled context does.
func (s *Sweeper) Sweep(ctx context.Context) (SweepStats, error) {
	if !s.sweepMu.TryLock() {
		return SweepStats{}, ErrSweepInProgress
	}
	defer s.sweepMu.Unlock()

	stats := SweepStats{StartedAt: time.Now()}
	err := s.sweep(ctx, &stats)
	stats.Duration = time.Since(stats.StartedAt)
	stats.Pending = stats.Scanned - stats.Patched

	metrics.RecordSweep(stats.Duration, stats.Patched, err)
	s.mu.Lock()
	s.lastStats = &stats
	s.mu.Unlock()

	event := logging.Info()
	if err != nil {
		event = logging.Warn().Err(err)
	}
	event.Int("scanned", stats.Scanned).
		Int("lookups", stats.Lookups).
		Int("patched", stats.Patched).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("Start time sweep finished")
	return stats, err
}

func (s *Sweeper) sweep(ctx context.Context, stats *SweepStats) error {
	clips, err := s.store.MissingStartTimes(ctx)
	if err != nil {
		return err
	}
	stats.Scanned = len(clips)

	type outcome struct {
		ts int64
		ok bool
	}
	resolved := make(map[string]outcome)

	for _, clip := range clips {
		res, seen := resolved[clip.MatchID]
		if !seen {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			stats.Lookups++
			ts, ok := s.resolver.ResolveStartTime(ctx, clip.MatchID)
			res = outcome{ts: ts, ok: ok}
			resolved[clip.MatchID] = res
		}
		if !res.ok {
			continue
		}
		stats.Resolved++

		if err := s.store.PatchStartTime(ctx, clip.ID, res.ts); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats.Failed++
			logging.Warn().Err(err).Str("clip_id", clip.ID).Msg("Failed to patch start time")
			continue
		}
		stats.Patched++
	}
	return nil
}

// Trigger requests a sweep from the background loop without blocking. It
// reports false when a request is already queued.
func (s *Sweeper) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// LastStats returns the stats of the most recent sweep, or nil.
func (s *Sweeper) LastStats() *SweepStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStats == nil {
		return nil
	}
	stats := *s.lastStats
	return &stats
}

// Start begins the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	logging.Info().Dur("interval", s.interval).Msg("Start time sweeper started")
	return nil
}

// Stop stops the loop and waits for a running sweep to return.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("Start time sweeper stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-tick:
		case <-s.trigger:
		}
		if _, err := s.Sweep(s.ctx); err != nil && !errors.Is(err, ErrSweepInProgress) && s.ctx.Err() == nil {
			logging.Error().Err(err).Msg("Start time sweep failed")
		}
	}
}
