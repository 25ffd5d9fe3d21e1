// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package app builds the component graph shared by the server and the CLI.
//
//	store → registry → media → resolver → thumbs → pipeline → scanner/watcher → sweeper → query
//
// Both binaries open the same badger directory, so they must not run at
// the same time against one store path.
package app

import (
	"errors"
	"fmt"

	"github.com/tomtom215/clipvault/internal/config"
	"github.com/tomtom215/clipvault/internal/ingest"
	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/media"
	"github.com/tomtom215/clipvault/internal/query"
	"github.com/tomtom215/clipvault/internal/registry"
	"github.com/tomtom215/clipvault/internal/resolver"
	"github.com/tomtom215/clipvault/internal/store"
	"github.com/tomtom215/clipvault/internal/thumbs"
)

// App holds every long-lived component.
type App struct {
	Config *config.Config

	Store      *store.Store
	Maintainer *store.Maintainer
	Registry   *registry.Registry
	Layout     media.Layout
	Tools      *media.FFmpeg
	Resolver   *resolver.Client
	Thumbnails *thumbs.Dispatcher
	Pipeline   *ingest.Pipeline
	Ledger     *ingest.Ledger
	Scanner    *ingest.Scanner
	Watcher    *ingest.Watcher
	Sweeper    *resolver.Sweeper
	Catalog    *query.Engine
}

// Options replace components, mainly for tests.
type Options struct {
	// Prober and Thumbnailer default to the ffmpeg tools from config.
	Prober      media.Prober
	Thumbnailer media.Thumbnailer
}

// New opens the store and wires the components. Background loops are not
// started; callers run them under the supervisor or drive them directly.
func New(cfg *config.Config, opts Options) (*App, error) {
	loc, err := cfg.Query.Location()
	if err != nil {
		return nil, fmt.Errorf("query timezone: %w", err)
	}

	reg, err := loadRegistry(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}

	layout := media.Layout{Root: cfg.Media.Root}
	if err := layout.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("prepare media root: %w", err)
	}

	s, err := store.Open(&cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open clip store: %w", err)
	}

	tools := media.NewFFmpeg(cfg.Media)
	var prober media.Prober = tools
	if opts.Prober != nil {
		prober = opts.Prober
	}
	var thumbnailer media.Thumbnailer = tools
	if opts.Thumbnailer != nil {
		thumbnailer = opts.Thumbnailer
	}

	client := resolver.NewClient(cfg.Resolver)
	dispatcher := thumbs.NewDispatcher(cfg.Thumbnails, thumbnailer)

	pipelineOpts := []ingest.Option{ingest.WithThumbnails(dispatcher, cfg.Media.ThumbnailFrame)}
	if cfg.Resolver.ResolveOnIngest {
		pipelineOpts = append(pipelineOpts, ingest.WithResolver(client))
	}
	pipeline := ingest.NewPipeline(s, reg, prober, layout, pipelineOpts...)

	ledger := ingest.NewLedger(s.DB())
	scanner := ingest.NewScanner(cfg.Ingest, pipeline, ledger)

	a := &App{
		Config:     cfg,
		Store:      s,
		Maintainer: store.NewMaintainer(s),
		Registry:   reg,
		Layout:     layout,
		Tools:      tools,
		Resolver:   client,
		Thumbnails: dispatcher,
		Pipeline:   pipeline,
		Ledger:     ledger,
		Scanner:    scanner,
		Watcher:    ingest.NewWatcher(cfg.Ingest, scanner),
		Sweeper:    resolver.NewSweeper(cfg.Resolver, s, client),
		Catalog:    query.NewEngine(s, reg, loc),
	}

	logging.Info().
		Str("store", storeLabel(cfg.Store)).
		Str("media_root", layout.Root).
		Str("registry", reg.Source()).
		Int("heroes", len(reg.Heroes())).
		Int("tags", len(reg.Tags())).
		Bool("resolve_on_ingest", cfg.Resolver.ResolveOnIngest).
		Msg("Components initialized")
	return a, nil
}

// Close stops the thumbnail dispatcher if it is still running and closes
// the store.
func (a *App) Close() error {
	return errors.Join(a.Thumbnails.Stop(), a.Store.Close())
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	reg, err := registry.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load registry %s: %w", path, err)
	}
	return reg, nil
}

func storeLabel(cfg store.Config) string {
	if cfg.InMemory {
		return "in-memory"
	}
	return cfg.Path
}
