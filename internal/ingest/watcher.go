// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/clipvault/internal/logging"
)

// Watcher runs the scanner in the background.
type Watcher struct {
	scanner  *Scanner
	interval time.Duration
	onStart  bool
	trigger  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for scanner using the scan settings in cfg.
func NewWatcher(cfg Config, scanner *Scanner) *Watcher {
	return &Watcher{
		scanner:  scanner,
		interval: cfg.ScanInterval,
		onStart:  cfg.ScanOnStartup,
		trigger:  make(chan struct{}, 1),
	}
}

// Start begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()

	logging.Info().
		Str("dir", w.scanner.config.PendingDir).
		Dur("interval", w.interval).
		Bool("scan_on_startup", w.onStart).
		Msg("Pending watcher started")
	return nil
}

// Stop stops watching and waits for a running scan to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.cancel()
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	logging.Info().Msg("Pending watcher stopped")
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Trigger requests a scan without blocking. It reports false when one is
// already queued.
func (w *Watcher) Trigger() bool {
	select {
	case w.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// LastReport returns the last persisted scan report, or nil.
func (w *Watcher) LastReport() (*ScanReport, error) {
	return w.scanner.LastReport()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	if w.onStart {
		w.scan()
	}

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-tick:
		case <-w.trigger:
		}
		w.scan()
	}
}

func (w *Watcher) scan() {
	_, err := w.scanner.Scan(w.ctx)
	if err == nil || errors.Is(err, ErrScanInProgress) || w.ctx.Err() != nil {
		return
	}
	logging.Error().Err(err).Msg("Pending scan failed")
}
