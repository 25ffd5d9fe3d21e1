// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/metrics"
)

// Scan item outcomes.
const (
	OutcomeIngested = "ingested"
	OutcomeSkipped  = "skipped"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// ErrScanInProgress is returned when Scan is called during another scan.
var ErrScanInProgress = errors.New("pending scan already in progress")

// Ingester runs the pipeline for one request.
type Ingester interface {
	Ingest(ctx context.Context, req Request) (*Result, error)
}

// ScanItem is the outcome of one sidecar.
type ScanItem struct {
	Sidecar string `json:"sidecar"`
	Video   string `json:"video,omitempty"`
	MatchID string `json:"match_id,omitempty"`
	Outcome string `json:"outcome"`
	ClipID  string `json:"clip_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ScanReport summarizes one pass over the pending directory.
type ScanReport struct {
	Found     int        `json:"found"`
	Ingested  int        `json:"ingested"`
	Skipped   int        `json:"skipped"`
	Invalid   int        `json:"invalid"`
	Failed    int        `json:"failed"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Items     []ScanItem `json:"items"`
}

// Scanner ingests every new sidecar in the pending directory.
type Scanner struct {
	config   Config
	ingester Ingester
	ledger   *Ledger

	scanMu sync.Mutex
}

// NewScanner creates a scanner. ledger may be nil, in which case every
// sidecar is ingested on every scan and no report is persisted. A ledger
// must live in the same database the ingester writes clips to, since its
// entries are committed with the clips.
func NewScanner(cfg Config, ingester Ingester, ledger *Ledger) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Scanner{config: cfg, ingester: ingester, ledger: ledger}
}

// Scan walks the pending directory once. Item failures are recorded in the
// report and never stop other items; only a failure to walk the directory
// or a canceled context is returned as an error.
func (s *Scanner) Scan(ctx context.Context) (*ScanReport, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	report := &ScanReport{StartTime: time.Now().UTC(), Items: []ScanItem{}}
	sidecars, err := s.discover(ctx)
	if err != nil {
		return nil, err
	}
	report.Found = len(sidecars)
	report.Items = make([]ScanItem, len(sidecars))

	g := new(errgroup.Group)
	g.SetLimit(s.config.Workers)
	for i, path := range sidecars {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report.Items[i] = s.process(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, item := range report.Items {
		switch item.Outcome {
		case OutcomeIngested:
			report.Ingested++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeInvalid:
			report.Invalid++
		default:
			report.Failed++
		}
	}
	report.EndTime = time.Now().UTC()

	metrics.RecordPendingScan(report.EndTime.Sub(report.StartTime), report.Ingested, report.Skipped, report.Invalid, report.Failed)
	if s.ledger != nil {
		if err := s.ledger.SaveReport(report); err != nil {
			logging.Warn().Err(err).Msg("Failed to save pending scan report")
		}
	}

	logging.Info().
		Int("found", report.Found).
		Int("ingested", report.Ingested).
		Int("skipped", report.Skipped).
		Int("invalid", report.Invalid).
		Int("failed", report.Failed).
		Dur("duration", report.EndTime.Sub(report.StartTime)).
		Msg("Pending scan finished")
	return report, nil
}

// LastReport returns the last persisted scan report, or nil.
func (s *Scanner) LastReport() (*ScanReport, error) {
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.LastReport()
}

// discover lists sidecars in lexical order. A missing pending directory
// yields no sidecars.
func (s *Scanner) discover(ctx context.Context) ([]string, error) {
	root := s.config.PendingDir
	var sidecars []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".txt") {
			sidecars = append(sidecars, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		logging.Warn().Str("dir", root).Msg("Pending directory does not exist")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan pending dir %s: %w", root, err)
	}
	return sidecars, nil
}

func (s *Scanner) process(ctx context.Context, path string) ScanItem {
	item := ScanItem{Sidecar: path, MatchID: s.matchID(path)}

	if s.ledger != nil {
		entry, seen, err := s.ledger.Lookup(path)
		if err != nil {
			item.Outcome = OutcomeFailed
			item.Error = err.Error()
			return item
		}
		if seen {
			item.Outcome = OutcomeSkipped
			item.ClipID = entry.ClipID
			return item
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from walking the pending dir
	if err != nil {
		item.Outcome = OutcomeFailed
		item.Error = err.Error()
		return item
	}
	sc, err := ParseSidecar(data)
	if err != nil {
		item.Outcome = OutcomeInvalid
		item.Error = err.Error()
		return item
	}

	item.Video = s.findVideo(path)
	if item.Video == "" {
		item.Outcome = OutcomeInvalid
		item.Error = fmt.Sprintf("no video with extension %s next to sidecar", strings.Join(s.config.VideoExtensions, ", "))
		return item
	}

	req := Request{
		SourcePath:  item.Video,
		MatchID:     item.MatchID,
		Description: sc.Description,
		Heroes:      sc.Heroes,
		Tags:        sc.Tags,
	}
	if s.ledger != nil {
		req.Sidecar = path
	}
	res, err := s.ingester.Ingest(ctx, req)
	if err != nil {
		item.Stage = FailedStage(err)
		item.Error = err.Error()
		if errors.Is(err, ErrValidation) {
			item.Outcome = OutcomeInvalid
		} else {
			item.Outcome = OutcomeFailed
		}
		return item
	}

	item.Outcome = OutcomeIngested
	item.ClipID = res.Clip.ID
	return item
}

// matchID is the sidecar's parent directory name, or its file stem when it
// sits directly in the pending root.
func (s *Scanner) matchID(path string) string {
	dir := filepath.Dir(path)
	if filepath.Clean(dir) == filepath.Clean(s.config.PendingDir) {
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Base(dir)
}

func (s *Scanner) findVideo(sidecar string) string {
	stem := strings.TrimSuffix(sidecar, filepath.Ext(sidecar))
	for _, ext := range s.config.VideoExtensions {
		candidate := stem + ext
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}
