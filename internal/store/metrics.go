// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package store

import (
	"time"

	"github.com/tomtom215/clipvault/internal/metrics"
)

var clipsWritten = metrics.ClipsWritten

func recordOp(op string, start time.Time, err error) {
	metrics.RecordStoreOp(op, time.Since(start), err)
}

func recordGC(d time.Duration) {
	metrics.StoreGCDuration.Observe(d.Seconds())
}
