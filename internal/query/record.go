// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package query

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Record kinds.
const (
	KindClip   = "clip"
	KindHeader = "header"
)

// Date layouts used when rendering records.
const (
	DateLayout  = "Mon Jan 02 2006"
	MonthLayout = "Jan 2006"
	UnsetLabel  = "Unset"
)

// HeroRef is a hero as rendered in a clip record.
type HeroRef struct {
	// ID is zero-padded to three digits ("005").
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClipRecord is the denormalized, display-ready form of a clip.
type ClipRecord struct {
	ClipID      string `json:"clip_id"`
	MatchID     string `json:"match_id"`
	Description string `json:"description"`
	// Duration is "mm:ss".
	Duration string `json:"duration"`
	// StartTime is the match date, empty when the start time is unresolved.
	StartTime string `json:"start_time"`
	// Timestamp is the raw unix start time; nil when unresolved.
	Timestamp *int64    `json:"timestamp"`
	Heroes    []HeroRef `json:"heroes"`
	Tags      []string  `json:"tags"`
}

// Record is one element of a query result: either a clip or a month header.
type Record struct {
	Kind  string
	Label string
	Clip  *ClipRecord
}

// IsHeader reports whether r is a month header.
func (r Record) IsHeader() bool {
	return r.Kind == KindHeader
}

// MarshalJSON flattens clip fields next to "kind" so clients see
// {"kind":"clip","clip_id":...} and {"kind":"header","label":"Jan 2024"}.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Kind == KindHeader {
		return json.Marshal(struct {
			Kind  string `json:"kind"`
			Label string `json:"label"`
		}{KindHeader, r.Label})
	}
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*ClipRecord
	}{KindClip, r.Clip})
}

// FormatDuration renders seconds as mm:ss with at least two minute digits.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatHeroID zero-pads a hero id to three digits.
func FormatHeroID(id int) string {
	return fmt.Sprintf("%03d", id)
}

func formatDate(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format(DateLayout)
}
