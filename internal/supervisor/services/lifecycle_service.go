// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/clipvault/internal/logging"
)

// Lifecycle is the Start/Stop pattern shared by store.Maintainer,
// thumbs.Dispatcher, ingest.Watcher and resolver.Sweeper.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// LifecycleOption configures a LifecycleService.
type LifecycleOption func(*LifecycleService)

// WithReadyCheck delays Start until ready reports true. The watcher uses it
// to wait for the thumbnail dispatcher so startup scans do not lose
// thumbnail jobs.
func WithReadyCheck(ready func() bool) LifecycleOption {
	return func(s *LifecycleService) {
		s.ready = ready
	}
}

// WithPollInterval sets how often the ready check is polled. Default: 50ms
func WithPollInterval(d time.Duration) LifecycleOption {
	return func(s *LifecycleService) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// LifecycleService runs a Lifecycle component under suture.
type LifecycleService struct {
	component    Lifecycle
	name         string
	ready        func() bool
	pollInterval time.Duration
}

// NewLifecycleService wraps component. name identifies it in supervisor
// events.
func NewLifecycleService(name string, component Lifecycle, opts ...LifecycleOption) *LifecycleService {
	s := &LifecycleService{
		component:    component,
		name:         name,
		pollInterval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve implements suture.Service.
func (s *LifecycleService) Serve(ctx context.Context) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.component.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}
	return ctx.Err()
}

func (s *LifecycleService) waitReady(ctx context.Context) error {
	if s.ready == nil || s.ready() {
		return nil
	}

	logging.Debug().Str("service", s.name).Msg("Waiting for dependency before start")
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.ready() {
				return nil
			}
		}
	}
}

// String implements fmt.Stringer; suture uses it in event logs.
func (s *LifecycleService) String() string {
	return s.name
}
