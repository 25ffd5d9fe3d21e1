// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/clipvault/internal/ingest"
	"github.com/tomtom215/clipvault/internal/query"
	"github.com/tomtom215/clipvault/internal/registry"
	"github.com/tomtom215/clipvault/internal/resolver"
	"github.com/tomtom215/clipvault/internal/store"
)

// Catalog is the read side served by the clip routes. *query.Engine
// implements it.
type Catalog interface {
	All(ctx context.Context, includeHeaders bool) ([]query.Record, error)
	ByHero(ctx context.Context, heroID int) ([]query.Record, error)
	ByTag(ctx context.Context, tag string) ([]query.Record, error)
	ByID(ctx context.Context, id string) ([]query.Record, error)
}

// Registry lists the known heroes and tags.
type Registry interface {
	HasHero(id int) bool
	Heroes() []registry.Hero
	Tags() []registry.Tag
}

// PendingScans is the pending-directory watcher.
type PendingScans interface {
	Trigger() bool
	LastReport() (*ingest.ScanReport, error)
}

// Sweeps is the start time sweeper.
type Sweeps interface {
	Trigger() bool
	LastStats() *resolver.SweepStats
}

// Handler holds the HTTP handlers. pending and sweeps may be nil, in which
// case their routes answer 503.
type Handler struct {
	catalog   Catalog
	registry  Registry
	pending   PendingScans
	sweeps    Sweeps
	startTime time.Time
}

// NewHandler creates the handler set.
func NewHandler(catalog Catalog, reg Registry, pending PendingScans, sweeps Sweeps) *Handler {
	return &Handler{
		catalog:   catalog,
		registry:  reg,
		pending:   pending,
		sweeps:    sweeps,
		startTime: time.Now(),
	}
}

// HealthLive reports that the process is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// Clips lists every clip. ?headers=true inserts month headers.
func (h *Handler) Clips(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	includeHeaders := false
	if raw := r.URL.Query().Get("headers"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			rw.BadRequest("headers must be true or false")
			return
		}
		includeHeaders = v
	}

	records, err := h.catalog.All(r.Context(), includeHeaders)
	h.writeRecords(rw, records, err)
}

// ClipByID returns the clip as a one-element list, or an empty list.
func (h *Handler) ClipByID(w http.ResponseWriter, r *http.Request) {
	records, err := h.catalog.ByID(r.Context(), chi.URLParam(r, "id"))
	h.writeRecords(NewResponseWriter(w, r), records, err)
}

// Heroes lists the hero registry.
func (h *Handler) Heroes(w http.ResponseWriter, r *http.Request) {
	heroes := h.registry.Heroes()
	NewResponseWriter(w, r).List(heroes, len(heroes))
}

// HeroClips lists clips featuring the hero. Unregistered heroes are 404.
func (h *Handler) HeroClips(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	heroID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || heroID <= 0 {
		rw.BadRequest("hero id must be a positive integer")
		return
	}
	if !h.registry.HasHero(heroID) {
		rw.NotFound("unknown hero " + strconv.Itoa(heroID))
		return
	}

	records, err := h.catalog.ByHero(r.Context(), heroID)
	h.writeRecords(rw, records, err)
}

// Tags lists the tag registry.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags := h.registry.Tags()
	NewResponseWriter(w, r).List(tags, len(tags))
}

// TagClips lists clips carrying the tag. The tag may be given in display
// form ("team fight") or index form ("team-fight").
func (h *Handler) TagClips(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		rw.BadRequest("invalid tag")
		return
	}

	records, err := h.catalog.ByTag(r.Context(), tag)
	h.writeRecords(rw, records, err)
}

// TriggerPendingScan queues a pending-directory scan.
func (h *Handler) TriggerPendingScan(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.pending == nil {
		rw.ServiceUnavailable("pending ingestion is not running")
		return
	}
	rw.Accepted(map[string]bool{"queued": h.pending.Trigger()})
}

// PendingReport returns the last scan report.
func (h *Handler) PendingReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.pending == nil {
		rw.ServiceUnavailable("pending ingestion is not running")
		return
	}

	report, err := h.pending.LastReport()
	if err != nil {
		h.writeStoreError(rw, err)
		return
	}
	if report == nil {
		rw.NotFound("no pending scan has completed yet")
		return
	}
	rw.Success(report)
}

// TriggerSweep queues a start time sweep.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.sweeps == nil {
		rw.ServiceUnavailable("start time sweeper is not running")
		return
	}
	rw.Accepted(map[string]bool{"queued": h.sweeps.Trigger()})
}

// SweepStats returns the stats of the most recent sweep.
func (h *Handler) SweepStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.sweeps == nil {
		rw.ServiceUnavailable("start time sweeper is not running")
		return
	}

	stats := h.sweeps.LastStats()
	if stats == nil {
		rw.NotFound("no sweep has completed yet")
		return
	}
	rw.Success(stats)
}

func (h *Handler) writeRecords(rw *ResponseWriter, records []query.Record, err error) {
	if err != nil {
		h.writeStoreError(rw, err)
		return
	}
	if records == nil {
		records = []query.Record{}
	}
	rw.List(records, len(records))
}

func (h *Handler) writeStoreError(rw *ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) || errors.Is(err, store.ErrClosed) {
		rw.ServiceUnavailable("clip store is unavailable")
		return
	}
	rw.InternalError(err)
}
