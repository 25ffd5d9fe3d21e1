// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

/*
Package supervisor runs Clipvault's long-lived services under a suture v4
supervisor tree.

	clipvault
	├── data-layer
	│   └── store-maintainer
	├── ingest-layer
	│   ├── thumbnail-dispatcher
	│   ├── pending-watcher
	│   └── start-time-sweeper
	└── api-layer
	    └── http-server

Each layer restarts its own services with backoff, so a failing sweeper
does not take the API down. Supervisor events are logged through
sutureslog into the zerolog stream (see logging.NewSlogLogger).

Service adapters live in the services subpackage.
*/
package supervisor
