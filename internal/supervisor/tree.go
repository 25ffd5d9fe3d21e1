// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the failure decay rate in seconds. Default: 30
	FailureDecay float64

	// FailureBackoff is how long a layer waits once the threshold is hit.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long each service gets to stop.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	def := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = def.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = def.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

// SupervisorTree is the root supervisor plus its three layers.
type SupervisorTree struct {
	root   *suture.Supervisor
	data   *suture.Supervisor
	ingest *suture.Supervisor
	api    *suture.Supervisor
	logger *slog.Logger
	config TreeConfig
}

// NewSupervisorTree builds the tree. Zero config fields take defaults.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config = config.withDefaults()

	// MustHook has a pointer receiver.
	eventHook := (&sutureslog.Handler{Logger: logger}).MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	// Children inherit the root's EventHook when added.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("clipvault", rootSpec)
	data := suture.New("data-layer", childSpec)
	ingest := suture.New("ingest-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(data)
	root.Add(ingest)
	root.Add(api)

	return &SupervisorTree{
		root:   root,
		data:   data,
		ingest: ingest,
		api:    api,
		logger: logger,
		config: config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddDataService adds a store-side service such as the maintainer.
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddIngestService adds a pipeline-side service: thumbnail dispatcher,
// pending watcher, start time sweeper.
func (t *SupervisorTree) AddIngestService(svc suture.Service) suture.ServiceToken {
	return t.ingest.Add(svc)
}

// AddAPIService adds the HTTP server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// RemoveIngestService stops and removes a service added with
// AddIngestService.
func (t *SupervisorTree) RemoveIngestService(token suture.ServiceToken) error {
	return t.ingest.Remove(token)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// result when the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
