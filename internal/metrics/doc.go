// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

/*
Package metrics provides Prometheus metrics for Clipvault.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API server:

	curl http://localhost:8080/metrics

# Available Metrics

Store:
  - clipvault_store_operation_duration_seconds (histogram, label: operation)
  - clipvault_store_operation_errors_total (counter, labels: operation, error_type)
  - clipvault_clips_written_total (counter)
  - clipvault_clips_stored, clipvault_clips_missing_start_time (gauges)
  - clipvault_store_gc_duration_seconds (histogram)

Ingest:
  - clipvault_ingest_stage_duration_seconds (histogram, label: stage)
  - clipvault_ingest_total (counter, label: result)
  - clipvault_pending_scan_items_total (counter, label: outcome)
  - clipvault_pending_scan_duration_seconds (histogram)

Resolver:
  - clipvault_resolver_lookup_duration_seconds (histogram)
  - clipvault_resolver_lookups_total (counter, label: result)
  - clipvault_sweep_duration_seconds (histogram)
  - clipvault_sweep_patched_total (counter)

Thumbnails:
  - clipvault_thumbnails_queued_total (counter)
  - clipvault_thumbnails_total (counter, label: result)

Circuit Breaker:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge, label: name)
  - circuit_breaker_requests_total (counter, labels: name, result)
  - circuit_breaker_consecutive_failures (gauge, label: name)
  - circuit_breaker_state_transitions_total (counter, labels: name, from_state, to_state)

API:
  - api_requests_total, api_request_duration_seconds, api_active_requests
  - api_rate_limit_hits_total

# Usage

	start := time.Now()
	err := doWork()
	metrics.RecordStoreOp("write", time.Since(start), err)
*/
package metrics
