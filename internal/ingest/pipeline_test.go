// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/clipvault/internal/media"
	"github.com/tomtom215/clipvault/internal/registry"
	"github.com/tomtom215/clipvault/internal/store"
	"github.com/tomtom215/clipvault/internal/thumbs"
)

// fakeProber reports a fixed duration, or fails for videos whose content
// is "corrupt".
type fakeProber struct {
	duration int64
}

func (f *fakeProber) Probe(_ context.Context, path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", media.ErrProbe, err)
	}
	if string(data) == "corrupt" {
		return 0, fmt.Errorf("%w: no duration", media.ErrProbe)
	}
	return f.duration, nil
}

type fakeResolver struct {
	ts int64
}

func (f *fakeResolver) ResolveStartTime(context.Context, string) (int64, bool) {
	return f.ts, f.ts > 0
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []thumbs.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job thumbs.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// failingWriteStore passes everything through except Write.
type failingWriteStore struct {
	*store.Store
}

func (f *failingWriteStore) Write(context.Context, *store.Clip, ...store.Extra) error {
	return fmt.Errorf("write clip: %w: disk full", store.ErrUnavailable)
}

type testEnv struct {
	store    *store.Store
	layout   media.Layout
	srcDir   string
	queue    *fakeQueue
	pipeline *Pipeline
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		[]registry.Hero{{ID: 1, Name: "Anti-Mage"}, {ID: 5, Name: "Crystal Maiden"}, {ID: 10, Name: "Morphling"}},
		[]string{"team fight", "roshan", "gank"},
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func setupTestPipeline(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	s, err := store.OpenForTesting()
	if err != nil {
		t.Fatalf("OpenForTesting: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	layout := media.Layout{Root: filepath.Join(t.TempDir(), "media")}
	if err := layout.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	env := &testEnv{store: s, layout: layout, srcDir: t.TempDir(), queue: &fakeQueue{}}
	opts = append([]Option{WithThumbnails(env.queue, 1)}, opts...)
	env.pipeline = NewPipeline(s, testRegistry(t), &fakeProber{duration: 42}, layout, opts...)
	return env
}

func (e *testEnv) writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.srcDir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func (e *testEnv) stagedVideos(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.layout.VideosDir())
	if err != nil {
		t.Fatalf("read videos dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	n, err := e.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return n
}

func validTestRequest(src string) Request {
	return Request{
		SourcePath:  src,
		MatchID:     "7412",
		Description: "Rampage at the rosh pit",
		Heroes:      []int{5, 10},
		Tags:        []string{"team fight", "roshan"},
	}
}

func TestIngest_Success(t *testing.T) {
	env := setupTestPipeline(t, WithResolver(&fakeResolver{ts: 1700000000}))
	src := env.writeSource(t, "clip.MP4", "video-bytes")

	res, err := env.pipeline.Ingest(context.Background(), validTestRequest(src))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	wantID := store.ClipID("7412", 1)
	if res.Clip.ID != wantID {
		t.Errorf("id = %s, want %s", res.Clip.ID, wantID)
	}
	if res.VideoPath != env.layout.VideoPath(wantID, "mp4") {
		t.Errorf("video path = %s", res.VideoPath)
	}
	data, err := os.ReadFile(res.VideoPath)
	if err != nil || string(data) != "video-bytes" {
		t.Errorf("staged video = %q, %v", data, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should be left in place: %v", err)
	}

	got, err := env.store.Read(context.Background(), []string{wantID})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	clip := got[0].Clip
	if !got[0].Found || clip.Duration != 42 || clip.StartTime != 1700000000 || clip.MatchID != "7412" {
		t.Errorf("stored clip = %+v", clip)
	}
	if strings.Join(clip.Tags, ",") != "team-fight,roshan" {
		t.Errorf("tags = %v", clip.Tags)
	}

	if len(env.queue.jobs) != 1 {
		t.Fatalf("queued %d thumbnail jobs, want 1", len(env.queue.jobs))
	}
	job := env.queue.jobs[0]
	if job.Offset != 21 || job.VideoPath != res.VideoPath || job.OutPath != env.layout.ThumbnailPath(wantID, 1) {
		t.Errorf("thumbnail job = %+v", job)
	}
	if leftovers := env.stagedVideos(t); len(leftovers) != 1 {
		t.Errorf("videos dir = %v, want only the staged clip", leftovers)
	}
}

func TestIngest_WithoutResolver(t *testing.T) {
	env := setupTestPipeline(t)
	res, err := env.pipeline.Ingest(context.Background(), validTestRequest(env.writeSource(t, "a.mp4", "x")))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Clip.HasStartTime() {
		t.Errorf("start time = %d, want absent", res.Clip.StartTime)
	}
}

func TestIngest_ResolverAbsent(t *testing.T) {
	env := setupTestPipeline(t, WithResolver(&fakeResolver{}))
	res, err := env.pipeline.Ingest(context.Background(), validTestRequest(env.writeSource(t, "a.mp4", "x")))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Clip.HasStartTime() {
		t.Errorf("start time = %d, want absent", res.Clip.StartTime)
	}
}

func TestIngest_ValidationGate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Request)
		wantField string
	}{
		{name: "unknown hero", mutate: func(r *Request) { r.Heroes = []int{5, 999} }, wantField: "hero"},
		{name: "unknown tag", mutate: func(r *Request) { r.Tags = []string{"feed"} }, wantField: "tag"},
		{name: "non-positive hero", mutate: func(r *Request) { r.Heroes = []int{0} }, wantField: "heroes[0]"},
		{name: "missing match id", mutate: func(r *Request) { r.MatchID = "" }, wantField: "match_id"},
		{name: "path in match id", mutate: func(r *Request) { r.MatchID = "../../etc" }, wantField: "match_id"},
		{name: "long description", mutate: func(r *Request) { r.Description = strings.Repeat("d", MaxDescriptionLength+1) }, wantField: "description"},
		{name: "missing source", mutate: func(r *Request) { r.SourcePath = "/nonexistent/clip.mp4" }, wantField: "source"},
		{name: "source is a directory", mutate: func(r *Request) { r.SourcePath = os.TempDir() }, wantField: "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestPipeline(t)
			req := validTestRequest(env.writeSource(t, "clip.mp4", "x"))
			tt.mutate(&req)

			_, err := env.pipeline.Ingest(context.Background(), req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("validation error = %+v, want field %s", verr, tt.wantField)
			}
			if FailedStage(err) != StageValidate {
				t.Errorf("stage = %q, want %q", FailedStage(err), StageValidate)
			}

			// Nothing may have been written: no clip, no staged file and the
			// counter still hands out 1.
			if n := env.count(t); n != 0 {
				t.Errorf("store holds %d clips", n)
			}
			if v := env.stagedVideos(t); len(v) != 0 {
				t.Errorf("staged videos = %v", v)
			}
			id, err := env.store.NextID("7412")
			if err != nil {
				t.Fatalf("NextID: %v", err)
			}
			if id != store.ClipID("7412", 1) {
				t.Errorf("counter advanced by a rejected ingest")
			}
		})
	}
}

func TestIngest_TagMatchingIsNormalized(t *testing.T) {
	env := setupTestPipeline(t)
	req := validTestRequest(env.writeSource(t, "clip.mp4", "x"))
	req.Tags = []string{"team-fight"}

	if _, err := env.pipeline.Ingest(context.Background(), req); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
}

func TestIngest_PaddedTagsStoredCanonical(t *testing.T) {
	env := setupTestPipeline(t)
	req := validTestRequest(env.writeSource(t, "clip.mp4", "x"))
	req.Tags = []string{" team fight", "roshan ", "team-fight"}

	res, err := env.pipeline.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got := strings.Join(res.Clip.Tags, ","); got != "team-fight,roshan,team-fight" {
		t.Errorf("result tags = %q", got)
	}

	got, err := env.store.Read(context.Background(), []string{res.Clip.ID})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tags := strings.Join(got[0].Clip.Tags, ","); tags != "team-fight,roshan,team-fight" {
		t.Errorf("stored tags = %q", tags)
	}
	for _, slug := range []string{"team-fight", "roshan"} {
		ids, err := env.store.TagIDs(context.Background(), slug)
		if err != nil || len(ids) != 1 || ids[0] != res.Clip.ID {
			t.Errorf("TagIDs(%q) = %v, %v", slug, ids, err)
		}
	}
}

func TestIngest_SidecarLedgerEntry(t *testing.T) {
	env := setupTestPipeline(t)
	ledger := NewLedger(env.store.DB())
	req := validTestRequest(env.writeSource(t, "clip.mp4", "x"))
	req.Sidecar = "/pending/7412/clip.txt"

	res, err := env.pipeline.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	entry, found, err := ledger.Lookup(req.Sidecar)
	if err != nil || !found {
		t.Fatalf("Lookup = %v, %v", found, err)
	}
	if entry.ClipID != res.Clip.ID || entry.IngestedAt.IsZero() {
		t.Errorf("ledger entry = %+v, want clip %s", entry, res.Clip.ID)
	}
}

func TestIngest_FailedWriteLeavesNoLedgerEntry(t *testing.T) {
	env := setupTestPipeline(t)
	ledger := NewLedger(env.store.DB())
	p := NewPipeline(&failingWriteStore{Store: env.store}, testRegistry(t), &fakeProber{duration: 5}, env.layout)
	req := validTestRequest(env.writeSource(t, "clip.mp4", "x"))
	req.Sidecar = "/pending/7412/clip.txt"

	if _, err := p.Ingest(context.Background(), req); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if _, found, err := ledger.Lookup(req.Sidecar); err != nil || found {
		t.Errorf("ledger entry present after failed write (err %v)", err)
	}
}

func TestIngest_ProbeFailure(t *testing.T) {
	env := setupTestPipeline(t)
	_, err := env.pipeline.Ingest(context.Background(), validTestRequest(env.writeSource(t, "clip.mp4", "corrupt")))

	if !errors.Is(err, ErrProbeFailure) || !errors.Is(err, media.ErrProbe) {
		t.Fatalf("err = %v, want ErrProbeFailure wrapping media.ErrProbe", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageProbe || se.ClipID == "" {
		t.Errorf("stage error = %+v", se)
	}
	if v := env.stagedVideos(t); len(v) != 0 {
		t.Errorf("staged video not removed: %v", v)
	}
	if n := env.count(t); n != 0 {
		t.Errorf("store holds %d clips", n)
	}
	if len(env.queue.jobs) != 0 {
		t.Errorf("thumbnail queued for a failed ingest")
	}
}

func TestIngest_StagingConflict(t *testing.T) {
	env := setupTestPipeline(t)
	existing := env.layout.VideoPath(store.ClipID("7412", 1), "mp4")
	if err := os.WriteFile(existing, []byte("original"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := env.pipeline.Ingest(context.Background(), validTestRequest(env.writeSource(t, "clip.mp4", "new")))
	if !errors.Is(err, ErrStagingConflict) {
		t.Fatalf("err = %v, want ErrStagingConflict", err)
	}
	if data, _ := os.ReadFile(existing); string(data) != "original" {
		t.Errorf("existing video overwritten: %q", data)
	}
	if n := env.count(t); n != 0 {
		t.Errorf("store holds %d clips", n)
	}
}

func TestIngest_StoreUnavailable(t *testing.T) {
	env := setupTestPipeline(t)
	p := NewPipeline(&failingWriteStore{Store: env.store}, testRegistry(t), &fakeProber{duration: 5}, env.layout)

	_, err := p.Ingest(context.Background(), validTestRequest(env.writeSource(t, "clip.mp4", "x")))
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if FailedStage(err) != StagePersist {
		t.Errorf("stage = %q, want persist", FailedStage(err))
	}
	if v := env.stagedVideos(t); len(v) != 0 {
		t.Errorf("staged video not removed: %v", v)
	}
}

func TestIngest_ThumbnailFailureKeepsClip(t *testing.T) {
	env := setupTestPipeline(t)
	env.queue.err = fmt.Errorf("%w: %w", thumbs.ErrThumbnailFailure, thumbs.ErrNotRunning)

	res, err := env.pipeline.Ingest(context.Background(), validTestRequest(env.writeSource(t, "clip.mp4", "x")))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !errors.Is(res.ThumbnailErr, thumbs.ErrThumbnailFailure) {
		t.Errorf("ThumbnailErr = %v, want ErrThumbnailFailure", res.ThumbnailErr)
	}
	if n := env.count(t); n != 1 {
		t.Errorf("store holds %d clips, want 1", n)
	}
}

func TestIngest_ConcurrentUniqueIDs(t *testing.T) {
	env := setupTestPipeline(t)
	const n = 16

	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		src := env.writeSource(t, fmt.Sprintf("clip%d.mp4", i), "x")
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := validTestRequest(src)
			req.MatchID = fmt.Sprintf("%d", 1000+i)
			res, err := env.pipeline.Ingest(context.Background(), req)
			errs[i] = err
			if err == nil {
				ids[i] = res.Clip.ID
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("ingest %d: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Fatalf("duplicate id %s", ids[i])
		}
		seen[ids[i]] = true
	}
	if got := env.count(t); got != n {
		t.Errorf("store holds %d clips, want %d", got, n)
	}
}

func TestStageError(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", &StageError{Stage: StageProbe, ClipID: "abc", Err: base})

	if !errors.Is(err, base) {
		t.Error("StageError does not unwrap")
	}
	if FailedStage(err) != StageProbe {
		t.Errorf("FailedStage = %q", FailedStage(err))
	}
	if FailedStage(base) != "" {
		t.Error("FailedStage of a plain error should be empty")
	}
	if got := (&StageError{Stage: StageValidate, Err: base}).Error(); got != "ingest validate: boom" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&StageError{Stage: StageProbe, ClipID: "abc", Err: base}).Error(); got != "ingest probe (clip abc): boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "hero", Value: "999", Reason: "not in the hero registry"}
	if err.Error() != `invalid hero "999": not in the hero registry` {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
}
