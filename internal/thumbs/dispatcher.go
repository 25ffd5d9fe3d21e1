// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package thumbs extracts clip thumbnails asynchronously.
//
// Jobs are published on an in-process Watermill GoChannel and consumed by a
// Watermill router handler that calls the media Thumbnailer. Extraction is
// best-effort: failures are retried a few times, then logged and counted,
// and never reach the code that enqueued the job.
package thumbs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/media"
	"github.com/tomtom215/clipvault/internal/metrics"
)

// Topic carries thumbnail jobs.
const Topic = "clips.thumbnail"

const handlerName = "thumbnail-extractor"

var (
	// ErrThumbnailFailure marks a thumbnail job that could not be queued or
	// completed.
	ErrThumbnailFailure = errors.New("thumbnail failure")

	// ErrNotRunning is returned by Enqueue before Start or after Stop.
	ErrNotRunning = errors.New("thumbnail dispatcher is not running")
)

// Job asks for one frame of a staged video.
type Job struct {
	ClipID    string  `json:"clip_id"`
	VideoPath string  `json:"video_path"`
	OutPath   string  `json:"out_path"`
	Offset    float64 `json:"offset_seconds"`
}

// Config configures the dispatcher.
type Config struct {
	// QueueSize is the GoChannel output buffer.
	QueueSize int64 `koanf:"queue_size"`

	// MaxRetries is how often a failed extraction is retried.
	MaxRetries int `koanf:"max_retries"`

	// RetryInterval is the initial retry backoff.
	RetryInterval time.Duration `koanf:"retry_interval"`

	// CloseTimeout bounds how long Stop waits for in-flight jobs.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:     256,
		MaxRetries:    2,
		RetryInterval: time.Second,
		CloseTimeout:  30 * time.Second,
	}
}

// Dispatcher publishes thumbnail jobs and runs the consuming router.
type Dispatcher struct {
	config      Config
	thumbnailer media.Thumbnailer
	logger      watermill.LoggerAdapter

	mu      sync.Mutex
	pubSub  *gochannel.GoChannel
	router  *message.Router
	running bool
	done    chan struct{}

	// inflight counts jobs published but not yet finished.
	inflight atomic.Int64

	// onDone, when set, observes every finished job. Tests use it to wait
	// for asynchronous completion.
	onDone func(Job, error)
}

// NewDispatcher creates a dispatcher that extracts frames with t.
func NewDispatcher(cfg Config, t media.Thumbnailer) *Dispatcher {
	return &Dispatcher{
		config:      cfg,
		thumbnailer: t,
		logger:      logging.NewWatermillAdapter("thumbs"),
	}
}

// Start builds a fresh GoChannel and router and returns once the router is
// consuming. Closing a router closes its subscriber, so every start gets a
// new channel; jobs still queued at Stop are lost.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: d.config.QueueSize,
	}, d.logger)
	router, err := d.newRouter(pubSub)
	if err != nil {
		_ = pubSub.Close()
		return err
	}

	done := make(chan struct{})
	runErr := make(chan error, 1)
	go func() {
		defer close(done)
		if err := router.Run(ctx); err != nil {
			runErr <- err
		}
	}()

	select {
	case <-router.Running():
	case err := <-runErr:
		_ = pubSub.Close()
		return fmt.Errorf("start thumbnail router: %w", err)
	case <-ctx.Done():
		_ = router.Close()
		_ = pubSub.Close()
		return ctx.Err()
	}

	d.pubSub = pubSub
	d.router = router
	d.done = done
	d.running = true
	d.inflight.Store(0)
	logging.Info().Str("topic", Topic).Msg("Thumbnail dispatcher started")
	return nil
}

func (d *Dispatcher) newRouter(sub message.Subscriber) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: d.config.CloseTimeout,
	}, d.logger)
	if err != nil {
		return nil, fmt.Errorf("create thumbnail router: %w", err)
	}

	// Outermost first: a job that still fails after retries is dropped
	// instead of nacked, since GoChannel would redeliver it forever.
	router.AddMiddleware(d.bestEffort)
	router.AddMiddleware(middleware.Recoverer)
	if d.config.MaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      d.config.MaxRetries,
			InitialInterval: d.config.RetryInterval,
			MaxInterval:     10 * d.config.RetryInterval,
			Multiplier:      2,
			Logger:          d.logger,
		}
		router.AddMiddleware(retry.Middleware)
	}

	router.AddConsumerHandler(handlerName, Topic, sub, d.handle)
	return router, nil
}

// Stop closes the router, waiting for in-flight jobs up to CloseTimeout.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	router, pubSub, done := d.router, d.pubSub, d.done
	d.running = false
	d.router = nil
	d.pubSub = nil
	d.mu.Unlock()

	err := router.Close()
	<-done
	if closeErr := pubSub.Close(); err == nil {
		err = closeErr
	}
	logging.Info().Msg("Thumbnail dispatcher stopped")
	return err
}

// Drain blocks until every enqueued job has finished or ctx is done. The
// one-shot CLI calls it before Stop.
func (d *Dispatcher) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for d.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d jobs still queued: %w", ErrThumbnailFailure, d.inflight.Load(), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// IsRunning reports whether the router is consuming.
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Enqueue publishes job. It returns once the job is handed to the consumer;
// extraction itself happens later.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrThumbnailFailure, err)
	}
	d.mu.Lock()
	pubSub := d.pubSub
	d.mu.Unlock()
	if pubSub == nil {
		return fmt.Errorf("%w: %w", ErrThumbnailFailure, ErrNotRunning)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: encode job: %w", ErrThumbnailFailure, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("clip_id", job.ClipID)

	d.inflight.Add(1)
	if err := pubSub.Publish(Topic, msg); err != nil {
		d.inflight.Add(-1)
		return fmt.Errorf("%w: publish: %w", ErrThumbnailFailure, err)
	}
	metrics.ThumbnailsQueued.Inc()
	return nil
}

func (d *Dispatcher) handle(msg *message.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		metrics.RecordThumbnail("malformed", 0)
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed thumbnail job")
		return nil
	}

	start := time.Now()
	err := d.thumbnailer.ExtractFrame(msg.Context(), job.VideoPath, job.OutPath, job.Offset)
	if err != nil {
		return fmt.Errorf("%w: clip %s: %w", ErrThumbnailFailure, job.ClipID, err)
	}

	metrics.RecordThumbnail("success", time.Since(start))
	logging.Info().Str("clip_id", job.ClipID).Str("path", job.OutPath).Msg("Thumbnail extracted")
	if d.onDone != nil {
		d.onDone(job, nil)
	}
	return nil
}

// bestEffort logs and swallows handler errors so the message is acked.
func (d *Dispatcher) bestEffort(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		defer d.inflight.Add(-1)

		out, err := h(msg)
		if err == nil {
			return out, nil
		}

		metrics.RecordThumbnail("failure", 0)
		clipID := msg.Metadata.Get("clip_id")
		logging.Error().Err(err).Str("clip_id", clipID).Msg("Thumbnail extraction failed")
		if d.onDone != nil {
			d.onDone(Job{ClipID: clipID}, err)
		}
		return nil, nil
	}
}
