// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Server.Port != 8420 || cfg.Server.Addr() != "0.0.0.0:8420" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if !reflect.DeepEqual(cfg.Ingest.VideoExtensions, []string{".mp4"}) {
		t.Errorf("video extensions = %v", cfg.Ingest.VideoExtensions)
	}
	if cfg.Resolver.SweepDelay != 1500*time.Millisecond || cfg.Resolver.Timeout != 10*time.Second {
		t.Errorf("resolver = %+v", cfg.Resolver)
	}
	if cfg.Resolver.BaseURL != "https://api.opendota.com/api/matches" {
		t.Errorf("base url = %s", cfg.Resolver.BaseURL)
	}
	if cfg.Media.ThumbnailFrame != 1 || cfg.Store.CounterLease != 1 {
		t.Errorf("media = %+v, store = %+v", cfg.Media, cfg.Store)
	}
	if cfg.Registry.Path != "" || cfg.Query.Timezone != "UTC" {
		t.Errorf("registry = %+v, query = %+v", cfg.Registry, cfg.Query)
	}
	if !cfg.Ingest.ScanOnStartup {
		t.Error("scan_on_startup should default to true")
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
store:
  path: /srv/clipvault/badger
ingest:
  pending_dir: /srv/pending
  video_extensions: [".mp4", ".mkv"]
  workers: 4
resolver:
  sweep_delay: 2s
  resolve_on_ingest: false
query:
  timezone: Europe/Berlin
registry:
  path: /etc/clipvault/registry.yaml
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Store.Path != "/srv/clipvault/badger" {
		t.Errorf("server/store = %+v / %+v", cfg.Server, cfg.Store)
	}
	if !reflect.DeepEqual(cfg.Ingest.VideoExtensions, []string{".mp4", ".mkv"}) || cfg.Ingest.Workers != 4 {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.Resolver.SweepDelay != 2*time.Second || cfg.Resolver.ResolveOnIngest {
		t.Errorf("resolver = %+v", cfg.Resolver)
	}
	loc, err := cfg.Query.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("location = %v, %v", loc, err)
	}
	// Untouched sections keep their defaults.
	if cfg.Media.Timeout != 60*time.Second {
		t.Errorf("media timeout = %v", cfg.Media.Timeout)
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("VIDEO_EXTENSIONS", ".mp4, .webm,")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SWEEP_DELAY", "3s")
	t.Setenv("RESOLVE_ON_INGEST", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_IN_MEMORY", "true")
	t.Setenv("SERVER_PORT", "1") // not a mapped name

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Ingest.VideoExtensions, []string{".mp4", ".webm"}) {
		t.Errorf("video extensions = %v", cfg.Ingest.VideoExtensions)
	}
	if !reflect.DeepEqual(cfg.Security.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("cors origins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Resolver.SweepDelay != 3*time.Second || cfg.Resolver.ResolveOnIngest {
		t.Errorf("resolver = %+v", cfg.Resolver)
	}
	if cfg.Logging.Level != "debug" || !cfg.Store.InMemory {
		t.Errorf("logging = %+v, in_memory = %v", cfg.Logging, cfg.Store.InMemory)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		section string
	}{
		{name: "bad port", env: map[string]string{"HTTP_PORT": "70000"}, section: "server"},
		{name: "bad timezone", env: map[string]string{"QUERY_TIMEZONE": "Mars/Olympus"}, section: "query"},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}, section: "logging"},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}, section: "logging"},
		{name: "zero rate limit", env: map[string]string{"RATE_LIMIT_REQUESTS": "0"}, section: "security"},
		{name: "zero thumbnail frame", env: map[string]string{"THUMBNAIL_FRAME": "0"}, section: "media"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile("")
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if cerr.Section != tt.section {
				t.Errorf("section = %q, want %q", cerr.Section, tt.section)
			}
		})
	}
}

func TestLoadFile_ComponentValidation(t *testing.T) {
	t.Setenv("INGEST_WORKERS", "0")
	_, err := LoadFile("")
	if err == nil || !strings.Contains(err.Error(), "ingest workers") {
		t.Fatalf("err = %v, want ingest workers error", err)
	}
}

func TestLoadFile_RateLimitDisabledSkipsChecks(t *testing.T) {
	t.Setenv("DISABLE_RATE_LIMIT", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")
	if _, err := LoadFile(""); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
}

func TestLoadFile_BadFile(t *testing.T) {
	if _, err := LoadFile(writeConfigFile(t, "server: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit file")
	}
}

func TestFindConfigFile_EnvVar(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9001\n")
	t.Setenv(ConfigPathEnvVar, path)

	if got := findConfigFile(); got != path {
		t.Fatalf("findConfigFile() = %q, want %q", got, path)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":                  "server.port",
		"PENDING_DIR":                "ingest.pending_dir",
		"OPENDOTA_BASE_URL":          "resolver.base_url",
		"supervisor_failure_backoff": "supervisor.failure_backoff",
		"PATH":                       "",
		"HOME":                       "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Section: "server", Field: "port", Message: "must be positive"}
	if err.Error() != "config server.port: must be positive" {
		t.Errorf("Error() = %q", err.Error())
	}
}
