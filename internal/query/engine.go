// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package query turns clip ids into ordered, display-ready records,
// optionally interleaved with month headers.
package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/clipvault/internal/store"
)

// Source is the subset of the clip store the engine reads from.
type Source interface {
	Read(ctx context.Context, ids []string) ([]store.Lookup, error)
	AllIDs(ctx context.Context) ([]string, error)
	HeroIDs(ctx context.Context, heroID int) ([]string, error)
	TagIDs(ctx context.Context, slug string) ([]string, error)
}

// Registry resolves hero display names and tag index keys.
type Registry interface {
	HeroName(id int) string
	TagSlug(tag string) (string, bool)
}

// Engine answers clip queries. It holds no state beyond its collaborators.
type Engine struct {
	source   Source
	registry Registry
	loc      *time.Location
}

// NewEngine creates a query engine. Dates and month headers are computed in
// loc; nil means UTC.
func NewEngine(source Source, reg Registry, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{source: source, registry: reg, loc: loc}
}

type entry struct {
	record   *ClipRecord
	matchID  string
	duration int64
	ts       int64
}

// Resolve reads ids and returns their records in display order. Unknown ids
// are dropped. With includeHeaders, a month header precedes the first clip
// of each month.
func (e *Engine) Resolve(ctx context.Context, ids []string, includeHeaders bool) ([]Record, error) {
	if len(ids) == 0 {
		return []Record{}, nil
	}

	lookups, err := e.source.Read(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read clips: %w", err)
	}

	entries := make([]*entry, 0, len(lookups))
	for _, l := range lookups {
		if !l.Found || l.Clip == nil {
			continue
		}
		entries = append(entries, e.render(l.Clip))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j])
	})

	records := make([]Record, 0, len(entries)+len(entries)/4)
	lastMonth := -1
	for i, en := range entries {
		if includeHeaders {
			if en.ts > 0 {
				t := time.Unix(en.ts, 0).In(e.loc)
				month := t.Year()*12 + int(t.Month())
				if month != lastMonth {
					lastMonth = month
					records = append(records, Record{Kind: KindHeader, Label: t.Format(MonthLayout)})
				}
			} else if i == 0 {
				records = append(records, Record{Kind: KindHeader, Label: UnsetLabel})
			}
		}
		records = append(records, Record{Kind: KindClip, Clip: en.record})
	}
	return records, nil
}

func (e *Engine) render(c *store.Clip) *entry {
	heroes := make([]HeroRef, 0, len(c.Heroes))
	for _, id := range c.Heroes {
		heroes = append(heroes, HeroRef{ID: FormatHeroID(id), Name: e.registry.HeroName(id)})
	}

	tags := make([]string, len(c.Tags))
	copy(tags, c.Tags)
	sort.Strings(tags)

	rec := &ClipRecord{
		ClipID:      c.ID,
		MatchID:     c.MatchID,
		Description: c.Description,
		Duration:    FormatDuration(c.Duration),
		Heroes:      heroes,
		Tags:        tags,
	}
	if c.HasStartTime() {
		ts := c.StartTime
		rec.StartTime = formatDate(ts, e.loc)
		rec.Timestamp = &ts
	}
	return &entry{record: rec, matchID: c.MatchID, duration: c.Duration, ts: c.StartTime}
}

// All returns every clip.
func (e *Engine) All(ctx context.Context, includeHeaders bool) ([]Record, error) {
	ids, err := e.source.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	return e.Resolve(ctx, ids, includeHeaders)
}

// ByHero returns the clips featuring heroID, with month headers.
func (e *Engine) ByHero(ctx context.Context, heroID int) ([]Record, error) {
	ids, err := e.source.HeroIDs(ctx, heroID)
	if err != nil {
		return nil, fmt.Errorf("list clips for hero %d: %w", heroID, err)
	}
	return e.Resolve(ctx, ids, true)
}

// ByTag returns the clips carrying tag, with month headers. The display
// name and the stored index key select the same clips.
func (e *Engine) ByTag(ctx context.Context, tag string) ([]Record, error) {
	slug, _ := e.registry.TagSlug(tag)
	ids, err := e.source.TagIDs(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("list clips for tag %q: %w", tag, err)
	}
	return e.Resolve(ctx, ids, true)
}

// ByID returns the single clip with id, or an empty result.
func (e *Engine) ByID(ctx context.Context, id string) ([]Record, error) {
	return e.Resolve(ctx, []string{id}, false)
}
