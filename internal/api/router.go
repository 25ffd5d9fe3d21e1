// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/clipvault/internal/metrics"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, middleware *Middleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("no such route")
	})

	r.Handle("/metrics", router.metricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics)

		r.Get("/health/live", router.handler.HealthLive)

		r.Get("/clips", router.handler.Clips)
		r.Get("/clips/{id}", router.handler.ClipByID)

		r.Get("/heroes", router.handler.Heroes)
		r.Get("/heroes/{id}/clips", router.handler.HeroClips)

		r.Get("/tags", router.handler.Tags)
		r.Get("/tags/{tag}/clips", router.handler.TagClips)

		r.Post("/ingest/pending", router.handler.TriggerPendingScan)
		r.Get("/ingest/pending", router.handler.PendingReport)

		r.Post("/sweep", router.handler.TriggerSweep)
		r.Get("/sweep", router.handler.SweepStats)
	})

	return r
}

// metricsHandler refreshes the uptime gauge before each scrape.
func (router *Router) metricsHandler() http.Handler {
	prom := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordUptime(router.handler.startTime)
		prom.ServeHTTP(w, r)
	})
}
