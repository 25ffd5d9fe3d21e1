// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package store

import (
	"time"
)

// Config holds BadgerDB settings for the clip store.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps the whole database in memory. Used by tests and
	// throwaway CLI runs; nothing survives Close.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync after every commit.
	SyncWrites bool `koanf:"sync_writes"`

	// Compression enables Snappy block compression.
	Compression bool `koanf:"compression"`

	// CounterLease is how many counter values a badger.Sequence leases per
	// disk write. Leased but unused values are skipped after a restart, which
	// only leaves gaps; ids stay unique.
	CounterLease uint64 `koanf:"counter_lease"`

	// GCInterval is the time between value log GC runs.
	GCInterval time.Duration `koanf:"gc_interval"`

	// GCRatio is the discard ratio passed to RunValueLogGC.
	GCRatio float64 `koanf:"gc_ratio"`

	// CloseTimeout bounds how long Close waits for BadgerDB.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:         "/data/clipvault/store",
		InMemory:     false,
		SyncWrites:   true,
		Compression:  true,
		CounterLease: 1,
		GCInterval:   time.Hour,
		GCRatio:      0.5,
		CloseTimeout: 30 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return &ConfigError{Field: "Path", Message: "store path is required unless in_memory is set"}
	}
	if c.CounterLease < 1 {
		return &ConfigError{Field: "CounterLease", Message: "must be at least 1"}
	}
	if c.GCInterval < time.Minute {
		return &ConfigError{Field: "GCInterval", Message: "must be at least 1 minute"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1 (exclusive)"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "store config error: " + e.Field + ": " + e.Message
}
