// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package ingest turns source videos into stored clips.
//
// A Pipeline runs the stages of one ingest strictly in order:
//
//	validate -> assign id -> stage -> probe -> resolve -> persist -> thumbnail
//
// Nothing is written to the store unless every stage up to persist
// succeeds, and a validation failure leaves the id counter untouched.
// Thumbnails are queued after the clip is stored and never undo it.
//
// A Scanner feeds the pipeline from the pending drop folder, and a Watcher
// runs the scanner on startup, on an interval and on demand.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/media"
	"github.com/tomtom215/clipvault/internal/metrics"
	"github.com/tomtom215/clipvault/internal/store"
	"github.com/tomtom215/clipvault/internal/thumbs"
	"github.com/tomtom215/clipvault/internal/validation"
)

// MaxDescriptionLength is the longest accepted clip description.
const MaxDescriptionLength = 2000

// Request describes one clip to ingest.
type Request struct {
	SourcePath  string   `json:"source" validate:"required"`
	MatchID     string   `json:"match_id" validate:"required,matchid"`
	Description string   `json:"description" validate:"max=2000"`
	Heroes      []int    `json:"heroes" validate:"dive,gt=0"`
	Tags        []string `json:"tags" validate:"dive,tagname"`

	// Sidecar is the pending sidecar the request was read from. When set,
	// its ledger entry is committed in the clip's write transaction.
	Sidecar string `json:"-"`
}

// Result describes a stored clip.
type Result struct {
	// Clip carries tags as stored, in index key form.
	Clip          *store.Clip
	VideoPath     string
	ThumbnailPath string

	// ThumbnailErr is set when the thumbnail job could not be queued. The
	// clip is stored regardless.
	ThumbnailErr error
}

// ClipStore is the part of the clip repository the pipeline writes to.
type ClipStore interface {
	NextID(matchID string) (string, error)
	Write(ctx context.Context, c *store.Clip, extra ...store.Extra) error
}

// Registry reports which heroes and tags are known.
type Registry interface {
	HasHero(id int) bool
	CanonicalTag(tag string) (name, slug string, ok bool)
}

// StartTimeResolver resolves a match start time; failures are absent.
type StartTimeResolver interface {
	ResolveStartTime(ctx context.Context, matchID string) (int64, bool)
}

// ThumbnailQueue accepts asynchronous thumbnail jobs.
type ThumbnailQueue interface {
	Enqueue(ctx context.Context, job thumbs.Job) error
}

// Pipeline ingests single clips. It is safe for concurrent use.
type Pipeline struct {
	store    ClipStore
	registry Registry
	prober   media.Prober
	layout   media.Layout

	resolver       StartTimeResolver
	thumbnails     ThumbnailQueue
	thumbnailFrame int
}

// Option configures optional pipeline stages.
type Option func(*Pipeline)

// WithResolver looks up the match start time during ingest.
func WithResolver(r StartTimeResolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// WithThumbnails queues a thumbnail of frame number frame for every
// stored clip.
func WithThumbnails(q ThumbnailQueue, frame int) Option {
	return func(p *Pipeline) {
		p.thumbnails = q
		p.thumbnailFrame = frame
	}
}

// NewPipeline creates a pipeline. Videos are staged under layout, whose
// directories must exist.
func NewPipeline(s ClipStore, reg Registry, prober media.Prober, layout media.Layout, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:          s,
		registry:       reg,
		prober:         prober,
		layout:         layout,
		thumbnailFrame: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest runs every stage for req. Errors are *StageError values whose
// chain carries one of the package sentinels.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (result *Result, err error) {
	logger := logging.Ctx(ctx)
	defer func() {
		metrics.RecordIngestResult(FailedStage(err))
		if err != nil {
			logger.Warn().Err(err).Str("source", req.SourcePath).Str("match_id", req.MatchID).Msg("Ingest failed")
		}
	}()

	var tags, slugs []string
	err = p.timed(StageValidate, func() error {
		var vErr error
		tags, slugs, vErr = p.validate(req)
		return vErr
	})
	if err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}

	var id string
	err = p.timed(StageAssignID, func() error {
		var idErr error
		id, idErr = p.store.NextID(req.MatchID)
		return idErr
	})
	if err != nil {
		return nil, &StageError{Stage: StageAssignID, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, err)}
	}

	videoPath := p.layout.VideoPath(id, filepath.Ext(req.SourcePath))
	if err := p.timed(StageStage, func() error { return stageFile(ctx, req.SourcePath, videoPath) }); err != nil {
		return nil, &StageError{Stage: StageStage, ClipID: id, Err: err}
	}

	var duration int64
	err = p.timed(StageProbe, func() error {
		var probeErr error
		duration, probeErr = p.prober.Probe(ctx, videoPath)
		return probeErr
	})
	if err != nil {
		p.unstage(videoPath)
		return nil, &StageError{Stage: StageProbe, ClipID: id, Err: fmt.Errorf("%w: %w", ErrProbeFailure, err)}
	}

	clip := &store.Clip{
		ID:          id,
		MatchID:     req.MatchID,
		Description: req.Description,
		Duration:    duration,
		Heroes:      req.Heroes,
		Tags:        tags,
	}

	if p.resolver != nil {
		_ = p.timed(StageResolve, func() error {
			if ts, ok := p.resolver.ResolveStartTime(ctx, req.MatchID); ok {
				clip.StartTime = ts
			}
			return nil
		})
	}

	var extra []store.Extra
	if req.Sidecar != "" {
		e, encErr := ledgerExtra(req.Sidecar, id)
		if encErr != nil {
			p.unstage(videoPath)
			return nil, &StageError{Stage: StagePersist, ClipID: id, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, encErr)}
		}
		extra = append(extra, e)
	}
	if err := p.timed(StagePersist, func() error { return p.store.Write(ctx, clip, extra...) }); err != nil {
		p.unstage(videoPath)
		return nil, &StageError{Stage: StagePersist, ClipID: id, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, err)}
	}
	clip.Tags = slugs

	result = &Result{Clip: clip, VideoPath: videoPath}
	if p.thumbnails != nil {
		result.ThumbnailPath = p.layout.ThumbnailPath(id, p.thumbnailFrame)
		job := thumbs.Job{
			ClipID:    id,
			VideoPath: videoPath,
			OutPath:   result.ThumbnailPath,
			Offset:    float64(duration) / 2.0,
		}
		if qErr := p.thumbnails.Enqueue(ctx, job); qErr != nil {
			result.ThumbnailErr = &StageError{Stage: StageThumbnail, ClipID: id, Err: qErr}
			metrics.RecordThumbnail("failure", 0)
			logger.Warn().Err(qErr).Str("clip_id", id).Msg("Thumbnail not queued")
		}
	}

	logger.Info().
		Str("clip_id", id).
		Str("match_id", clip.MatchID).
		Int64("duration", clip.Duration).
		Bool("start_time_resolved", clip.HasStartTime()).
		Msg("Clip ingested")
	return result, nil
}

func (p *Pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordIngestStage(stage, time.Since(start))
	return err
}

// validate checks the request shape, the source file and registry
// membership. It has no side effects. It returns the registered display
// name and index key of every requested tag.
func (p *Pipeline) validate(req Request) (names, slugs []string, err error) {
	if verr := validation.ValidateStruct(&req); verr != nil {
		fe := verr.Errors()[0]
		return nil, nil, &ValidationError{Field: fe.Field(), Value: fmt.Sprint(fe.Value()), Reason: fe.Error()}
	}

	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return nil, nil, &ValidationError{Field: "source", Value: req.SourcePath, Reason: "cannot stat source video: " + err.Error()}
	}
	if !info.Mode().IsRegular() {
		return nil, nil, &ValidationError{Field: "source", Value: req.SourcePath, Reason: "source video is not a regular file"}
	}

	for _, hero := range req.Heroes {
		if !p.registry.HasHero(hero) {
			return nil, nil, &ValidationError{Field: "hero", Value: strconv.Itoa(hero), Reason: "not in the hero registry"}
		}
	}
	names = make([]string, 0, len(req.Tags))
	slugs = make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		name, slug, ok := p.registry.CanonicalTag(tag)
		if !ok {
			return nil, nil, &ValidationError{Field: "tag", Value: tag, Reason: "not in the tag registry"}
		}
		names = append(names, name)
		slugs = append(slugs, slug)
	}
	return names, slugs, nil
}

func (p *Pipeline) unstage(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Str("path", path).Msg("Failed to remove staged video")
	}
}
