// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

/*
Package services adapts Clipvault components to suture.Service.

Two lifecycles are covered:

	LifecycleService   Start(ctx) error / Stop() error components
	                   (store maintainer, thumbnail dispatcher,
	                   pending watcher, start time sweeper)
	HTTPServerService  *http.Server ListenAndServe / Shutdown

Each wrapper blocks in Serve until its context is canceled, then stops the
component and returns ctx.Err(). A Start failure is returned immediately so
the supervisor restarts the service with backoff.

	tree.AddIngestService(services.NewLifecycleService("pending-watcher", watcher,
		services.WithReadyCheck(dispatcher.IsRunning)))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
*/
package services
