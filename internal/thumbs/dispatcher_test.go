// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package thumbs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/clipvault/internal/media"
)

type fakeThumbnailer struct {
	mu       sync.Mutex
	calls    []Job
	failures int // fail this many calls before succeeding
	panicOn  string
}

func (f *fakeThumbnailer) ExtractFrame(_ context.Context, src, dst string, offset float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Job{VideoPath: src, OutPath: dst, Offset: offset})
	if f.panicOn != "" && src == f.panicOn {
		panic("ffmpeg exploded")
	}
	if f.failures > 0 {
		f.failures--
		return media.ErrThumbnail
	}
	return nil
}

func (f *fakeThumbnailer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type result struct {
	job Job
	err error
}

func setupTestDispatcher(t *testing.T, cfg Config, fake *fakeThumbnailer) (*Dispatcher, <-chan result) {
	t.Helper()
	d := NewDispatcher(cfg, fake)
	results := make(chan result, 16)
	d.onDone = func(job Job, err error) { results <- result{job: job, err: err} }

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return d, results
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryInterval = 5 * time.Millisecond
	cfg.CloseTimeout = time.Second
	return cfg
}

func waitResult(t *testing.T, results <-chan result) result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for thumbnail job")
		return result{}
	}
}

func TestDispatcher_ExtractsFrame(t *testing.T) {
	fake := &fakeThumbnailer{}
	d, results := setupTestDispatcher(t, testConfig(), fake)

	job := Job{ClipID: "abc", VideoPath: "/v/abc.mp4", OutPath: "/t/abc-1.jpg", Offset: 21.5}
	if err := d.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	r := waitResult(t, results)
	if r.err != nil {
		t.Fatalf("job failed: %v", r.err)
	}
	if r.job != job {
		t.Errorf("job = %+v, want %+v", r.job, job)
	}
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	fake := &fakeThumbnailer{failures: 2}
	d, results := setupTestDispatcher(t, testConfig(), fake)

	if err := d.Enqueue(context.Background(), Job{ClipID: "x", VideoPath: "/v/x.mp4", OutPath: "/t/x.jpg"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if r := waitResult(t, results); r.err != nil {
		t.Fatalf("job failed after retries: %v", r.err)
	}
	if got := fake.callCount(); got != 3 {
		t.Errorf("ExtractFrame called %d times, want 3", got)
	}
}

func TestDispatcher_FailureIsContained(t *testing.T) {
	fake := &fakeThumbnailer{failures: 100}
	d, results := setupTestDispatcher(t, testConfig(), fake)

	if err := d.Enqueue(context.Background(), Job{ClipID: "bad", VideoPath: "/v/bad.mp4", OutPath: "/t/bad.jpg"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	r := waitResult(t, results)
	if !errors.Is(r.err, ErrThumbnailFailure) {
		t.Fatalf("err = %v, want ErrThumbnailFailure", r.err)
	}
	if r.job.ClipID != "bad" {
		t.Errorf("clip id = %q, want bad", r.job.ClipID)
	}

	// The dropped job must not be redelivered.
	time.Sleep(100 * time.Millisecond)
	if got := fake.callCount(); got != 3 {
		t.Errorf("ExtractFrame called %d times, want 3", got)
	}
	if !d.IsRunning() {
		t.Error("dispatcher stopped after a failed job")
	}
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	fake := &fakeThumbnailer{panicOn: "/v/boom.mp4"}
	cfg := testConfig()
	cfg.MaxRetries = 0
	d, results := setupTestDispatcher(t, cfg, fake)

	if err := d.Enqueue(context.Background(), Job{ClipID: "boom", VideoPath: "/v/boom.mp4"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if r := waitResult(t, results); r.err == nil {
		t.Fatal("expected panic to surface as a failure")
	}

	if err := d.Enqueue(context.Background(), Job{ClipID: "ok", VideoPath: "/v/ok.mp4"}); err != nil {
		t.Fatalf("Enqueue after panic: %v", err)
	}
	if r := waitResult(t, results); r.err != nil {
		t.Fatalf("second job failed: %v", r.err)
	}
}

func TestDispatcher_EnqueueNotRunning(t *testing.T) {
	d := NewDispatcher(testConfig(), &fakeThumbnailer{})
	t.Cleanup(func() { _ = d.Stop() })

	err := d.Enqueue(context.Background(), Job{ClipID: "x"})
	if !errors.Is(err, ErrNotRunning) || !errors.Is(err, ErrThumbnailFailure) {
		t.Fatalf("err = %v, want ErrNotRunning wrapped in ErrThumbnailFailure", err)
	}
}

func TestDispatcher_EnqueueCanceled(t *testing.T) {
	d, _ := setupTestDispatcher(t, testConfig(), &fakeThumbnailer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Enqueue(ctx, Job{ClipID: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDispatcher_Restart(t *testing.T) {
	fake := &fakeThumbnailer{}
	d, results := setupTestDispatcher(t, testConfig(), fake)

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if d.IsRunning() {
		t.Fatal("IsRunning = true after Stop")
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := d.Enqueue(context.Background(), Job{ClipID: "again"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if r := waitResult(t, results); r.job.ClipID != "again" {
		t.Errorf("clip id = %q, want again", r.job.ClipID)
	}
}

func TestDispatcher_Drain(t *testing.T) {
	fake := &fakeThumbnailer{failures: 1}
	d, _ := setupTestDispatcher(t, testConfig(), fake)

	for _, id := range []string{"a", "b", "c"} {
		if err := d.Enqueue(context.Background(), Job{ClipID: id, VideoPath: "/v/" + id + ".mp4", OutPath: "/t/" + id + ".jpg"}); err != nil {
			t.Fatalf("Enqueue %s: %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	// Three jobs plus one retry.
	if got := fake.callCount(); got != 4 {
		t.Errorf("ExtractFrame called %d times, want 4", got)
	}
}

func TestDispatcher_DrainTimesOut(t *testing.T) {
	d := NewDispatcher(testConfig(), &fakeThumbnailer{})
	d.inflight.Store(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := d.Drain(ctx)
	if !errors.Is(err, ErrThumbnailFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want thumbnail failure wrapping deadline", err)
	}
}
