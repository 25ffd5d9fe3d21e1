// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package resolver looks up match start times from OpenDota and backfills
// clips that were stored without one.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/clipvault/internal/cache"
	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/metrics"
)

const (
	breakerName = "opendota-api"

	// maxResponseBytes caps the match document. Full OpenDota match
	// payloads run to a few hundred kilobytes.
	maxResponseBytes = 8 << 20
)

var (
	// ErrResolverUnavailable wraps every failed lookup.
	ErrResolverUnavailable = errors.New("match resolver unavailable")

	// ErrMatchNotFound is returned when OpenDota has no such match.
	ErrMatchNotFound = errors.New("match not found")
)

type matchResponse struct {
	StartTime *int64 `json:"start_time"`
}

// Client fetches match metadata over HTTP behind a circuit breaker.
// Resolved start times are cached; absent ones are asked again next time.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	breaker   *breaker
	cache     *cache.LRU[string, int64] // nil when disabled
}

// NewClient creates a client for cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		breaker:   newBreaker(breakerName),
	}
	if cfg.CacheSize > 0 {
		c.cache = cache.New[string, int64](cfg.CacheSize, cfg.CacheTTL)
	}
	return c
}

// Lookup returns the start time of matchID as unix seconds. A match without
// a positive start_time yields 0 and no error.
func (c *Client) Lookup(ctx context.Context, matchID string) (int64, error) {
	if c.cache != nil {
		if ts, ok := c.cache.Get(matchID); ok {
			metrics.RecordResolverCacheHit()
			return ts, nil
		}
	}

	start := time.Now()
	ts, err := c.breaker.execute(func() (int64, error) {
		return c.fetch(ctx, matchID)
	})

	switch {
	case err != nil:
		metrics.RecordResolverLookup("error", time.Since(start))
		if errors.Is(err, ErrResolverUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrResolverUnavailable, err)
	case ts > 0:
		metrics.RecordResolverLookup("resolved", time.Since(start))
		if c.cache != nil {
			c.cache.Add(matchID, ts)
		}
	default:
		metrics.RecordResolverLookup("absent", time.Since(start))
	}
	return ts, nil
}

func (c *Client) fetch(ctx context.Context, matchID string) (int64, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(matchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", ErrResolverUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrResolverUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %w: %s", ErrResolverUnavailable, ErrMatchNotFound, matchID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: match %s: unexpected status %d", ErrResolverUnavailable, matchID, resp.StatusCode)
	}

	var body matchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: decode match %s: %w", ErrResolverUnavailable, matchID, err)
	}
	if body.StartTime == nil || *body.StartTime <= 0 {
		return 0, nil
	}
	return *body.StartTime, nil
}

// ResolveStartTime reports the start time of matchID, treating every
// failure as absent.
func (c *Client) ResolveStartTime(ctx context.Context, matchID string) (int64, bool) {
	ts, err := c.Lookup(ctx, matchID)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("match_id", matchID).Msg("Start time lookup failed")
		return 0, false
	}
	return ts, ts > 0
}
