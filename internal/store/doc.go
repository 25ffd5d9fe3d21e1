// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package store is the clip repository backed by BadgerDB.
//
// A clip is spread over several keys: one key per scalar field, one list
// key for heroes, one list key for tags, a member key in the all-clips set
// and one member key per hero and tag inverted index. Every key belonging
// to a clip is written in a single Badger transaction, so readers either
// see the complete clip with its indexes or nothing at all.
//
// # Key Layout
//
//	counter:clip                      badger.Sequence backing NextID
//	clips\x00<id>                     all-clips set member
//	clip:<id>:match_id                raw string
//	clip:<id>:description             raw string
//	clip:<id>:duration                decimal seconds
//	clip:<id>:start_time              decimal unix seconds (absent until resolved)
//	heroes:<id>                       JSON []int, insertion order
//	tags:<id>                         JSON []string, normalized, insertion order
//	hero\x00<hero id>\x00<id>         hero inverted index member
//	tag\x00<tag>\x00<id>              tag inverted index member
//
// Set members carry empty values; membership is key presence. The NUL
// separator keeps a tag such as "a" from prefix-matching "a:b".
//
// # Usage
//
//	s, err := store.Open(&cfg)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	id, err := s.NextID(matchID)
//	err = s.Write(ctx, &store.Clip{ID: id, MatchID: matchID, Duration: 42})
//	lookups, err := s.Read(ctx, []string{id})
//
// # Maintenance
//
// Maintainer runs BadgerDB value log GC on an interval and refreshes the
// clip count gauge. It follows the Start/Stop/IsRunning lifecycle used by
// the supervisor service wrappers.
package store
