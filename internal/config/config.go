// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package config loads Clipvault configuration.
//
// Values are layered, later layers winning:
//
//  1. struct defaults (defaultConfig)
//  2. a YAML file: $CONFIG_PATH, ./config.yaml or /etc/clipvault/config.yaml
//  3. environment variables listed in envMappings
//
// Component packages own their config structs; this package assembles them
// under one koanf tree and validates the result.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo

	"github.com/tomtom215/clipvault/internal/ingest"
	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/media"
	"github.com/tomtom215/clipvault/internal/resolver"
	"github.com/tomtom215/clipvault/internal/store"
	"github.com/tomtom215/clipvault/internal/thumbs"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      store.Config     `koanf:"store"`
	Media      media.Config     `koanf:"media"`
	Thumbnails thumbs.Config    `koanf:"thumbnails"`
	Ingest     ingest.Config    `koanf:"ingest"`
	Resolver   resolver.Config  `koanf:"resolver"`
	Registry   RegistryConfig   `koanf:"registry"`
	Query      QueryConfig      `koanf:"query"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    logging.Config   `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RegistryConfig points at the hero and tag registry.
type RegistryConfig struct {
	// Path is a YAML registry file. Empty uses the built-in registry.
	Path string `koanf:"path"`
}

// QueryConfig holds query engine settings.
type QueryConfig struct {
	// Timezone is the IANA zone used for display dates and monthly
	// headers.
	Timezone string `koanf:"timezone"`
}

// Location loads Timezone.
func (q QueryConfig) Location() (*time.Location, error) {
	return time.LoadLocation(q.Timezone)
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SupervisorConfig mirrors the suture failure settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// ConfigError reports an invalid setting.
type ConfigError struct {
	Section string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s.%s: %s", e.Section, e.Field, e.Message)
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store:      store.DefaultConfig(),
		Media:      media.DefaultConfig(),
		Thumbnails: thumbs.DefaultConfig(),
		Ingest:     ingest.DefaultConfig(),
		Resolver:   resolver.DefaultConfig(),
		Query:      QueryConfig{Timezone: "UTC"},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}
