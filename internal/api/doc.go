// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

/*
Package api serves the clip catalog over HTTP using the chi router.

Routes:

	GET  /api/v1/health/live           liveness
	GET  /api/v1/clips?headers=true    every clip, newest match first
	GET  /api/v1/clips/{id}            one clip (empty list when unknown)
	GET  /api/v1/heroes                hero registry
	GET  /api/v1/heroes/{id}/clips     clips featuring a hero (404 if unregistered)
	GET  /api/v1/tags                  tag registry
	GET  /api/v1/tags/{tag}/clips      clips carrying a tag
	POST /api/v1/ingest/pending        queue a pending-directory scan (202)
	GET  /api/v1/ingest/pending        last scan report
	POST /api/v1/sweep                 queue a start time sweep (202)
	GET  /api/v1/sweep                 last sweep stats
	GET  /metrics                      Prometheus exposition

Every JSON body uses the APIResponse envelope:

	{"success": true, "data": [...], "meta": {"request_id": "...", "count": 3}}

The middleware stack is request id with logging context, RealIP,
Recoverer, CORS (go-chi/cors), per-IP rate limiting (go-chi/httprate) and
Prometheus request metrics.
*/
package api
