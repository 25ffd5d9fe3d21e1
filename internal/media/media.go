// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package media wraps ffprobe and ffmpeg and owns the on-disk media layout:
//
//	{root}/videos/{clip id}.{ext}
//	{root}/thumbnails/{clip id}_{frame}.jpg
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrProbe is returned when ffprobe fails or reports no usable duration.
	ErrProbe = errors.New("media probe failed")

	// ErrThumbnail is returned when ffmpeg cannot extract a frame.
	ErrThumbnail = errors.New("thumbnail extraction failed")
)

// Prober reports the duration of a video in whole seconds.
type Prober interface {
	Probe(ctx context.Context, path string) (int64, error)
}

// Thumbnailer writes the frame at offset seconds of src to dst as JPEG.
type Thumbnailer interface {
	ExtractFrame(ctx context.Context, src, dst string, offset float64) error
}

// Layout resolves media paths under a root directory.
type Layout struct {
	Root string
}

// VideosDir is where staged videos live.
func (l Layout) VideosDir() string {
	return filepath.Join(l.Root, "videos")
}

// ThumbnailsDir is where extracted frames live.
func (l Layout) ThumbnailsDir() string {
	return filepath.Join(l.Root, "thumbnails")
}

// VideoPath returns the staged path of clip id. ext may be given with or
// without its leading dot.
func (l Layout) VideoPath(id, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp4"
	}
	return filepath.Join(l.VideosDir(), id+"."+strings.ToLower(ext))
}

// ThumbnailPath returns the path of frame number frame for clip id.
func (l Layout) ThumbnailPath(id string, frame int) string {
	return filepath.Join(l.ThumbnailsDir(), id+"_"+strconv.Itoa(frame)+".jpg")
}

// EnsureDirs creates the videos and thumbnails directories.
func (l Layout) EnsureDirs() error {
	if l.Root == "" {
		return fmt.Errorf("media root is not set")
	}
	for _, dir := range []string{l.VideosDir(), l.ThumbnailsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
