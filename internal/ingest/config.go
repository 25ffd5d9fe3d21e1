// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"fmt"
	"strings"
	"time"
)

// Config configures the pending directory scanner and its watcher.
type Config struct {
	// PendingDir is the drop folder of sidecars and videos.
	PendingDir string `koanf:"pending_dir"`

	// VideoExtensions are tried in order to find a sidecar's video.
	VideoExtensions []string `koanf:"video_extensions"`

	// Workers bounds how many sidecars are ingested at once.
	Workers int `koanf:"workers"`

	// ScanOnStartup runs one scan when the watcher starts.
	ScanOnStartup bool `koanf:"scan_on_startup"`

	// ScanInterval is the time between rescans. Zero disables periodic
	// scans; triggers still work.
	ScanInterval time.Duration `koanf:"scan_interval"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PendingDir:      "/data/clipvault/pending",
		VideoExtensions: []string{".mp4"},
		Workers:         2,
		ScanOnStartup:   true,
		ScanInterval:    15 * time.Minute,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.PendingDir == "" {
		return fmt.Errorf("ingest pending_dir is required")
	}
	if len(c.VideoExtensions) == 0 {
		return fmt.Errorf("ingest video_extensions must not be empty")
	}
	for _, ext := range c.VideoExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("ingest video extension %q must start with a dot", ext)
		}
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("ingest workers must be between 1 and 64, got %d", c.Workers)
	}
	if c.ScanInterval < 0 {
		return fmt.Errorf("ingest scan_interval must not be negative, got %v", c.ScanInterval)
	}
	return nil
}
