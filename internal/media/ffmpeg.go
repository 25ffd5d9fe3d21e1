// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/clipvault/internal/logging"
)

// Config configures the ffmpeg tool chain.
type Config struct {
	Root        string        `koanf:"root"`
	FFprobePath string        `koanf:"ffprobe_path"`
	FFmpegPath  string        `koanf:"ffmpeg_path"`
	Timeout     time.Duration `koanf:"timeout"`
	// ThumbnailFrame is the frame number used in thumbnail file names.
	ThumbnailFrame int `koanf:"thumbnail_frame"`
}

// DefaultConfig returns defaults that expect ffmpeg on PATH.
func DefaultConfig() Config {
	return Config{
		Root:           "/data/clipvault/media",
		FFprobePath:    "ffprobe",
		FFmpegPath:     "ffmpeg",
		Timeout:        60 * time.Second,
		ThumbnailFrame: 1,
	}
}

// FFmpeg implements Prober and Thumbnailer by shelling out to ffprobe and
// ffmpeg.
type FFmpeg struct {
	probePath  string
	ffmpegPath string
	timeout    time.Duration
}

// NewFFmpeg creates the tool wrapper from cfg.
func NewFFmpeg(cfg Config) *FFmpeg {
	f := &FFmpeg{
		probePath:  cfg.FFprobePath,
		ffmpegPath: cfg.FFmpegPath,
		timeout:    cfg.Timeout,
	}
	if f.probePath == "" {
		f.probePath = "ffprobe"
	}
	if f.ffmpegPath == "" {
		f.ffmpegPath = "ffmpeg"
	}
	if f.timeout <= 0 {
		f.timeout = 60 * time.Second
	}
	return f
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe and returns the container duration truncated to whole
// seconds.
func (f *FFmpeg) Probe(ctx context.Context, path string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	//nolint:gosec // binary path comes from operator config
	cmd := exec.CommandContext(ctx, f.probePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w: %s", ErrProbe, path, err, strings.TrimSpace(stderr.String()))
	}
	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(data []byte) (int64, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("%w: decode ffprobe output: %w", ErrProbe, err)
	}
	if out.Format.Duration == "" || out.Format.Duration == "N/A" {
		return 0, fmt.Errorf("%w: no duration reported", ErrProbe)
	}
	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q: %w", ErrProbe, out.Format.Duration, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("%w: negative duration %v", ErrProbe, seconds)
	}
	return int64(seconds), nil
}

// ExtractFrame writes one JPEG frame. An existing dst is never overwritten.
func (f *FFmpeg) ExtractFrame(ctx context.Context, src, dst string, offset float64) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if offset < 0 {
		offset = 0
	}

	//nolint:gosec // binary path comes from operator config
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-n",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", src,
		"-frames:v", "1",
		"-q:v", "2",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrThumbnail, src, err, strings.TrimSpace(stderr.String()))
	}
	logging.Debug().
		Str("src", src).
		Str("dst", dst).
		Dur("took", time.Since(start)).
		Msg("Extracted thumbnail")
	return nil
}

var (
	_ Prober      = (*FFmpeg)(nil)
	_ Thumbnailer = (*FFmpeg)(nil)
)
