// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package metrics

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Clip store operations (BadgerDB)
// - Ingestion pipeline stages and pending scans
// - OpenDota lookups and the start time sweep
// - Thumbnail dispatch
// - API endpoint latency and throughput

var (
	// Store Metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipvault_store_operation_duration_seconds",
			Help:    "Duration of clip store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipvault_store_operation_errors_total",
			Help: "Total number of failed clip store operations",
		},
		[]string{"operation", "error_type"},
	)

	ClipsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipvault_clips_written_total",
			Help: "Total number of clips persisted",
		},
	)

	ClipsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipvault_clips_stored",
			Help: "Current number of clips in the all-clips set",
		},
	)

	ClipsMissingStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipvault_clips_missing_start_time",
			Help: "Current number of clips without a resolved match start time",
		},
	)

	StoreGCDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipvault_store_gc_duration_seconds",
			Help:    "Duration of BadgerDB value log GC runs",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	// Ingest Metrics
	IngestStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipvault_ingest_stage_duration_seconds",
			Help:    "Duration of each ingestion pipeline stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipvault_ingest_total",
			Help: "Total number of ingest attempts by outcome",
		},
		[]string{"result"}, // "success", or the failing stage
	)

	PendingScanItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipvault_pending_scan_items_total",
			Help: "Total number of pending sidecars processed, by outcome",
		},
		[]string{"outcome"}, // "ingested", "skipped", "invalid", "failed"
	)

	PendingScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipvault_pending_scan_duration_seconds",
			Help:    "Duration of pending directory scans in seconds",
			Buckets: []float64{0.1, 1, 5, 10, 30, 60, 300, 600},
		},
	)

	PendingScanLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipvault_pending_scan_last_run_timestamp",
			Help: "Unix timestamp of the last completed pending scan",
		},
	)

	// Resolver Metrics
	ResolverLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipvault_resolver_lookup_duration_seconds",
			Help:    "Duration of OpenDota match lookups in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ResolverLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipvault_resolver_lookups_total",
			Help: "Total number of OpenDota lookups by result",
		},
		[]string{"result"}, // "resolved", "absent", "error", "cached"
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipvault_sweep_duration_seconds",
			Help:    "Duration of start time backfill sweeps in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SweepPatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipvault_sweep_patched_total",
			Help: "Total number of clips whose start time was backfilled",
		},
	)

	SweepLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipvault_sweep_last_success_timestamp",
			Help: "Unix timestamp of the last successful sweep",
		},
	)

	// Thumbnail Metrics
	ThumbnailsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipvault_thumbnails_queued_total",
			Help: "Total number of thumbnail jobs published",
		},
	)

	ThumbnailResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipvault_thumbnails_total",
			Help: "Total number of thumbnail jobs by result",
		},
		[]string{"result"}, // "success", "failure", "malformed"
	)

	ThumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipvault_thumbnail_duration_seconds",
			Help:    "Duration of thumbnail extraction in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordStoreOp records a clip store operation.
func RecordStoreOp(operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation, classifyError(err)).Inc()
	}
}

// RecordIngestStage records the duration of one pipeline stage.
func RecordIngestStage(stage string, duration time.Duration) {
	IngestStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordIngestResult counts a finished ingest. failedStage is empty on success.
func RecordIngestResult(failedStage string) {
	if failedStage == "" {
		IngestTotal.WithLabelValues("success").Inc()
		return
	}
	IngestTotal.WithLabelValues(failedStage).Inc()
}

// RecordPendingScan records a completed pending directory scan.
func RecordPendingScan(duration time.Duration, ingested, skipped, invalid, failed int) {
	PendingScanDuration.Observe(duration.Seconds())
	PendingScanItems.WithLabelValues("ingested").Add(float64(ingested))
	PendingScanItems.WithLabelValues("skipped").Add(float64(skipped))
	PendingScanItems.WithLabelValues("invalid").Add(float64(invalid))
	PendingScanItems.WithLabelValues("failed").Add(float64(failed))
	PendingScanLastRun.Set(float64(time.Now().Unix()))
}

// RecordResolverLookup records one OpenDota lookup. result is one of
// "resolved", "absent" or "error".
func RecordResolverLookup(result string, duration time.Duration) {
	ResolverLookupDuration.Observe(duration.Seconds())
	ResolverLookups.WithLabelValues(result).Inc()
}

// RecordResolverCacheHit counts a lookup answered from the start time cache.
func RecordResolverCacheHit() {
	ResolverLookups.WithLabelValues("cached").Inc()
}

// RecordSweep records a finished start time sweep.
func RecordSweep(duration time.Duration, patched int, err error) {
	SweepDuration.Observe(duration.Seconds())
	SweepPatched.Add(float64(patched))
	if err == nil {
		SweepLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordThumbnail records a processed thumbnail job.
func RecordThumbnail(result string, duration time.Duration) {
	ThumbnailResults.WithLabelValues(result).Inc()
	if duration > 0 {
		ThumbnailDuration.Observe(duration.Seconds())
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAppInfo publishes the running version.
func RecordAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// RecordUptime sets app_uptime_seconds from the process start time.
func RecordUptime(started time.Time) {
	AppUptime.Set(time.Since(started).Seconds())
}

// classifyError keeps the error_type label bounded.
func classifyError(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "closed"):
		return "closed"
	case strings.Contains(msg, "txn is too big"), strings.Contains(msg, "conflict"):
		return "transaction"
	default:
		return "other"
	}
}
