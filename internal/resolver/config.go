// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package resolver

import (
	"fmt"
	"net/url"
	"time"
)

// Config configures OpenDota lookups and the start time sweep.
type Config struct {
	// BaseURL is the match endpoint; the match id is appended as a path
	// segment.
	BaseURL string `koanf:"base_url"`

	// Timeout bounds a single lookup. Expiry counts as "absent".
	Timeout time.Duration `koanf:"timeout"`

	// ResolveOnIngest looks up the start time while ingesting a clip.
	ResolveOnIngest bool `koanf:"resolve_on_ingest"`

	// SweepDelay is the minimum spacing between sweep lookups.
	SweepDelay time.Duration `koanf:"sweep_delay"`

	// SweepInterval is the time between background sweeps. Zero disables
	// the loop; manual triggers still work.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// UserAgent is sent with every lookup.
	UserAgent string `koanf:"user_agent"`

	// CacheSize bounds how many resolved start times are kept in memory.
	// Zero disables the cache.
	CacheSize int `koanf:"cache_size"`

	// CacheTTL is how long a resolved start time is reused.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://api.opendota.com/api/matches",
		Timeout:         10 * time.Second,
		ResolveOnIngest: true,
		SweepDelay:      1500 * time.Millisecond,
		SweepInterval:   6 * time.Hour,
		UserAgent:       "clipvault",
		CacheSize:       1024,
		CacheTTL:        24 * time.Hour,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("resolver base_url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("resolver timeout must be positive, got %v", c.Timeout)
	}
	if c.SweepDelay < 0 {
		return fmt.Errorf("resolver sweep_delay must not be negative, got %v", c.SweepDelay)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("resolver sweep_interval must not be negative, got %v", c.SweepInterval)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("resolver cache_size must not be negative, got %d", c.CacheSize)
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("resolver cache_ttl must be positive when the cache is enabled, got %v", c.CacheTTL)
	}
	return nil
}
