// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Command clipvault runs the clip catalog server.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. Components (internal/app): store, registry, media, resolver,
//     thumbnails, pipeline, scanner/watcher, sweeper, query engine
//  4. HTTP API (chi)
//  5. Supervisor tree (suture): data, ingest and api layers
//
// SIGINT and SIGTERM cancel the tree; each service stops within
// supervisor.shutdown_timeout and the store is closed last.
//
//	CONFIG_PATH=/etc/clipvault/config.yaml ./clipvault
//	PENDING_DIR=/srv/pending MEDIA_ROOT=/srv/media ./clipvault
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/clipvault/internal/api"
	"github.com/tomtom215/clipvault/internal/app"
	"github.com/tomtom215/clipvault/internal/config"
	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/metrics"
	"github.com/tomtom215/clipvault/internal/supervisor"
	"github.com/tomtom215/clipvault/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("Starting Clipvault")
	metrics.RecordAppInfo(version)

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing components")
		}
	}()

	handler := api.NewHandler(a.Catalog, a.Registry, a.Watcher, a.Sweeper)
	middleware := api.NewMiddleware(api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitRequests,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, middleware).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewLifecycleService("store-maintainer", a.Maintainer))
	tree.AddIngestService(services.NewLifecycleService("thumbnail-dispatcher", a.Thumbnails))
	tree.AddIngestService(services.NewLifecycleService("pending-watcher", a.Watcher,
		services.WithReadyCheck(a.Thumbnails.IsRunning)))
	tree.AddIngestService(services.NewLifecycleService("start-time-sweeper", a.Sweeper))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Clipvault stopped")
}
