// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package config

import (
	"fmt"

	"github.com/tomtom215/clipvault/internal/logging"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStore,
		c.validateMedia,
		c.validateThumbnails,
		c.validateIngest,
		c.validateResolver,
		c.validateQuery,
		c.validateSecurity,
		c.validateLogging,
		c.validateSupervisor,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Section: "server", Field: "port", Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port)}
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return &ConfigError{Section: "server", Field: "read_timeout", Message: "read and write timeouts must be positive"}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return &ConfigError{Section: "server", Field: "shutdown_timeout", Message: "must be positive"}
	}
	return nil
}

func (c *Config) validateStore() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("config store: %w", err)
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.Root == "" {
		return &ConfigError{Section: "media", Field: "root", Message: "is required"}
	}
	if c.Media.FFprobePath == "" || c.Media.FFmpegPath == "" {
		return &ConfigError{Section: "media", Field: "ffprobe_path", Message: "ffprobe and ffmpeg paths are required"}
	}
	if c.Media.Timeout <= 0 {
		return &ConfigError{Section: "media", Field: "timeout", Message: "must be positive"}
	}
	if c.Media.ThumbnailFrame < 1 {
		return &ConfigError{Section: "media", Field: "thumbnail_frame", Message: "must be at least 1"}
	}
	return nil
}

func (c *Config) validateThumbnails() error {
	if c.Thumbnails.QueueSize < 0 {
		return &ConfigError{Section: "thumbnails", Field: "queue_size", Message: "must not be negative"}
	}
	if c.Thumbnails.MaxRetries < 0 {
		return &ConfigError{Section: "thumbnails", Field: "max_retries", Message: "must not be negative"}
	}
	if c.Thumbnails.MaxRetries > 0 && c.Thumbnails.RetryInterval <= 0 {
		return &ConfigError{Section: "thumbnails", Field: "retry_interval", Message: "must be positive when retries are enabled"}
	}
	return nil
}

func (c *Config) validateIngest() error {
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("config ingest: %w", err)
	}
	return nil
}

func (c *Config) validateResolver() error {
	if err := c.Resolver.Validate(); err != nil {
		return fmt.Errorf("config resolver: %w", err)
	}
	return nil
}

func (c *Config) validateQuery() error {
	if _, err := c.Query.Location(); err != nil {
		return &ConfigError{Section: "query", Field: "timezone", Message: fmt.Sprintf("unknown time zone %q", c.Query.Timezone)}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitRequests < 1 {
		return &ConfigError{Section: "security", Field: "rate_limit_requests", Message: "must be at least 1 unless the rate limit is disabled"}
	}
	if c.Security.RateLimitWindow <= 0 {
		return &ConfigError{Section: "security", Field: "rate_limit_window", Message: "must be positive"}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return &ConfigError{Section: "logging", Field: "level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return &ConfigError{Section: "logging", Field: "format", Message: fmt.Sprintf("must be json or console, got %q", c.Logging.Format)}
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold < 0 || c.Supervisor.FailureDecay < 0 || c.Supervisor.FailureBackoff < 0 {
		return &ConfigError{Section: "supervisor", Field: "failure_threshold", Message: "failure settings must not be negative"}
	}
	return nil
}
