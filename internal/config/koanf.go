// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/clipvault/config.yaml",
	"/etc/clipvault/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"ingest.video_extensions",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variables (lowercased) to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"store_path":          "store.path",
	"store_in_memory":     "store.in_memory",
	"store_sync_writes":   "store.sync_writes",
	"store_compression":   "store.compression",
	"store_counter_lease": "store.counter_lease",
	"store_gc_interval":   "store.gc_interval",
	"store_gc_ratio":      "store.gc_ratio",
	"store_close_timeout": "store.close_timeout",

	"media_root":            "media.root",
	"ffprobe_path":          "media.ffprobe_path",
	"ffmpeg_path":           "media.ffmpeg_path",
	"media_timeout":         "media.timeout",
	"thumbnail_frame":       "media.thumbnail_frame",
	"thumbnail_queue_size":  "thumbnails.queue_size",
	"thumbnail_max_retries": "thumbnails.max_retries",

	"pending_dir":            "ingest.pending_dir",
	"video_extensions":       "ingest.video_extensions",
	"ingest_workers":         "ingest.workers",
	"ingest_scan_on_startup": "ingest.scan_on_startup",
	"ingest_scan_interval":   "ingest.scan_interval",

	"opendota_base_url":   "resolver.base_url",
	"resolver_timeout":    "resolver.timeout",
	"resolve_on_ingest":   "resolver.resolve_on_ingest",
	"sweep_delay":         "resolver.sweep_delay",
	"sweep_interval":      "resolver.sweep_interval",
	"resolver_user_agent": "resolver.user_agent",
	"resolver_cache_size": "resolver.cache_size",
	"resolver_cache_ttl":  "resolver.cache_ttl",

	"registry_path":  "registry.path",
	"query_timezone": "query.timezone",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to its koanf path,
// or to "" to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
