// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/metrics"
)

// MiddlewareConfig configures CORS and rate limiting.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultMiddlewareConfig allows any origin and 100 requests per minute
// per client IP.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSMaxAge:         86400,
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
	}
}

// Middleware builds the chi middleware used by the router.
type Middleware struct {
	config MiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewMiddleware creates the middleware factory.
func NewMiddleware(config MiddlewareConfig) *Middleware {
	return &Middleware{
		config: config,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: config.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         config.CORSMaxAge,
		}),
	}
}

// CORS returns the go-chi/cors handler. It must be global so OPTIONS
// preflights are answered before routing.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits requests per client IP. Rejections are counted in
// api_rate_limit_hits_total and answered with the JSON envelope.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		m.config.RateLimitRequests,
		m.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(routePattern(r)).Inc()
			NewResponseWriter(w, r).TooManyRequests("Rate limit exceeded, retry later")
		}),
	)
}

// RequestIDWithLogging puts request and correlation ids on the context so
// logging.Ctx picks them up, and echoes X-Request-ID.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(chimiddleware.RequestIDHeader)
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set(chimiddleware.RequestIDHeader, requestID)
			}
			w.Header().Set(chimiddleware.RequestIDHeader, requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrometheusMetrics records request count, latency and in-flight requests.
// The endpoint label is the chi route pattern to keep cardinality bounded.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, routePattern(r), strconv.Itoa(status), time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
