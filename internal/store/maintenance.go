// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package store

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/metrics"
)

// Maintainer periodically runs value log GC and refreshes the clip gauges.
type Maintainer struct {
	store    *Store
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewMaintainer creates a maintainer for s using the store's GCInterval.
func NewMaintainer(s *Store) *Maintainer {
	interval := s.config.GCInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Maintainer{store: s, interval: interval}
}

// Start begins the background maintenance loop.
func (m *Maintainer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()

	logging.Info().Dur("interval", m.interval).Msg("Store maintainer started")
	return nil
}

// Stop gracefully stops the maintenance loop.
func (m *Maintainer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	logging.Info().Msg("Store maintainer stopped")
	return nil
}

// IsRunning returns whether the maintainer is active.
func (m *Maintainer) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastRun returns when maintenance last completed.
func (m *Maintainer) LastRun() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRun
}

func (m *Maintainer) run() {
	defer m.wg.Done()

	// Populate gauges right away so /metrics is meaningful before the first tick.
	m.refreshGauges(m.ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.maintain(m.ctx)
		}
	}
}

func (m *Maintainer) maintain(ctx context.Context) {
	if err := m.store.RunGC(); err != nil {
		logging.Error().Err(err).Msg("Store GC failed")
	}
	m.refreshGauges(ctx)

	m.mu.Lock()
	m.lastRun = time.Now()
	m.mu.Unlock()
}

func (m *Maintainer) refreshGauges(ctx context.Context) {
	count, err := m.store.Count(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to count clips")
		return
	}
	metrics.ClipsStored.Set(float64(count))

	missing, err := m.store.MissingStartTimes(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to count clips missing start time")
		return
	}
	metrics.ClipsMissingStartTime.Set(float64(len(missing)))
}
