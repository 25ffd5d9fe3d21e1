// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault
package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/clipvault/internal/app"
)

type fakeTools struct {
	mu     sync.Mutex
	frames int
}

func (f *fakeTools) Probe(context.Context, string) (int64, error) {
	return 95, nil
}

func (f *fakeTools) ExtractFrame(context.Context, string, string, float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	return nil
}

func (f *fakeTools) extracted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// setupTestCLI points every invocation at one on-disk store so commands see
// each other's writes.
func setupTestCLI(t *testing.T) (root string, tools *fakeTools) {
	t.Helper()
	root = t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(root, "absent.yaml"))
	t.Setenv("STORE_IN_MEMORY", "false")
	t.Setenv("STORE_PATH", filepath.Join(root, "store"))
	t.Setenv("MEDIA_ROOT", filepath.Join(root, "media"))
	t.Setenv("PENDING_DIR", filepath.Join(root, "pending"))
	t.Setenv("RESOLVE_ON_INGEST", "false")
	t.Setenv("SWEEP_DELAY", "0s")
	t.Setenv("LOG_LEVEL", "error")
	return root, &fakeTools{}
}

func runCLI(t *testing.T, tools *fakeTools, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, app.Options{Prober: tools, Thumbnailer: tools})
	return out.String(), err
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really a video"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestThenQuery(t *testing.T) {
	root, tools := setupTestCLI(t)
	video := writeVideo(t, filepath.Join(root, "incoming"), "wipe.mp4")

	out, err := runCLI(t, tools, "ingest", video,
		"--match", "7100000001",
		"--heroes", "5",
		"--tags", "roshan, team fight",
		"-d", "wipe at rosh")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	var ingested ingestOutput
	if err := json.Unmarshal([]byte(out), &ingested); err != nil {
		t.Fatalf("decode ingest output %q: %v", out, err)
	}
	if len(ingested.ClipID) != 32 || ingested.MatchID != "7100000001" || ingested.Duration != 95 {
		t.Errorf("ingest output = %+v", ingested)
	}
	if _, err := os.Stat(ingested.VideoPath); err != nil {
		t.Errorf("stored video: %v", err)
	}
	if tools.extracted() != 1 {
		t.Errorf("thumbnails extracted = %d, want 1", tools.extracted())
	}

	out, err = runCLI(t, tools, "clips", "--tag", "team fight")
	if err != nil {
		t.Fatalf("clips --tag: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode clips output %q: %v", out, err)
	}
	// Unset header plus the clip.
	if len(records) != 2 || records[1]["clip_id"] != ingested.ClipID || records[1]["duration"] != "01:35" {
		t.Fatalf("records = %v", records)
	}

	out, err = runCLI(t, tools, "clips", "--id", ingested.ClipID)
	if err != nil {
		t.Fatalf("clips --id: %v", err)
	}
	if !strings.Contains(out, "wipe at rosh") {
		t.Errorf("clips --id output = %s", out)
	}
}

func TestIngest_RequiresMatch(t *testing.T) {
	root, tools := setupTestCLI(t)
	video := writeVideo(t, root, "clip.mp4")

	if _, err := runCLI(t, tools, "ingest", video); err == nil {
		t.Fatal("expected error without --match")
	}
}

func TestIngest_UnknownHero(t *testing.T) {
	root, tools := setupTestCLI(t)
	video := writeVideo(t, root, "clip.mp4")

	_, err := runCLI(t, tools, "ingest", video, "--match", "7100000001", "--heroes", "9999")
	if err == nil {
		t.Fatal("expected validation error for an unknown hero")
	}
	if tools.extracted() != 0 {
		t.Error("no thumbnail should be extracted for a rejected clip")
	}
}

func TestPending(t *testing.T) {
	root, tools := setupTestCLI(t)
	matchDir := filepath.Join(root, "pending", "7100000002")
	writeVideo(t, matchDir, "gank.mp4")
	if err := os.WriteFile(filepath.Join(matchDir, "gank.txt"), []byte("5\ngank\nmid gank\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, tools, "pending")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if !strings.Contains(out, `"ingested": 1`) {
		t.Fatalf("pending output = %s", out)
	}

	// The ledger remembers the sidecar across invocations.
	out, err = runCLI(t, tools, "pending")
	if err != nil {
		t.Fatalf("second pending: %v", err)
	}
	if !strings.Contains(out, `"skipped": 1`) {
		t.Errorf("second pending output = %s", out)
	}
}

func TestSweep(t *testing.T) {
	root, tools := setupTestCLI(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"start_time": 1707000000}`))
	}))
	defer srv.Close()
	t.Setenv("OPENDOTA_BASE_URL", srv.URL)

	video := writeVideo(t, root, "clip.mp4")
	if _, err := runCLI(t, tools, "ingest", video, "--match", "7100000003"); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out, err := runCLI(t, tools, "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, `"patched": 1`) {
		t.Fatalf("sweep output = %s", out)
	}

	out, err = runCLI(t, tools, "clips")
	if err != nil {
		t.Fatalf("clips: %v", err)
	}
	if !strings.Contains(out, `"timestamp": 1707000000`) {
		t.Errorf("clips output = %s", out)
	}
}

func TestClips_ConflictingFilters(t *testing.T) {
	_, tools := setupTestCLI(t)

	_, err := runCLI(t, tools, "clips", "--hero", "5", "--tag", "gank")
	if !errors.Is(err, errConflictingFilters) {
		t.Fatalf("err = %v, want errConflictingFilters", err)
	}
}

func TestClips_UnknownHero(t *testing.T) {
	_, tools := setupTestCLI(t)

	if _, err := runCLI(t, tools, "clips", "--hero", "9999"); err == nil {
		t.Fatal("expected error for an unknown hero")
	}
}

func TestClips_Empty(t *testing.T) {
	_, tools := setupTestCLI(t)

	out, err := runCLI(t, tools, "clips")
	if err != nil {
		t.Fatalf("clips: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("output = %q, want []", out)
	}
}
