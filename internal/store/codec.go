// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package store

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

const (
	counterKey = "counter:clip"

	allClipsPrefix = "clips\x00"
	fieldPrefix    = "clip:"
	heroListPrefix = "heroes:"
	tagListPrefix  = "tags:"
	heroSetName    = "hero\x00"
	tagSetName     = "tag\x00"
	setSeparator   = "\x00"

	fieldMatchID     = "match_id"
	fieldDescription = "description"
	fieldDuration    = "duration"
	fieldStartTime   = "start_time"
)

func fieldKey(id, field string) []byte {
	return []byte(fieldPrefix + id + ":" + field)
}

func allClipsKey(id string) []byte {
	return []byte(allClipsPrefix + id)
}

func heroListKey(id string) []byte {
	return []byte(heroListPrefix + id)
}

func tagListKey(id string) []byte {
	return []byte(tagListPrefix + id)
}

func heroSetPrefix(heroID int) string {
	return heroSetName + strconv.Itoa(heroID) + setSeparator
}

func tagSetPrefix(tag string) string {
	return tagSetName + tag + setSeparator
}

// Field codecs. Every scalar lives in its own key so that patching one
// field never rewrites another.

func encodeInt(v int64) []byte {
	return strconv.AppendInt(nil, v, 10)
}

func decodeInt(field string, b []byte) (int64, error) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode %s %q: %w", field, b, err)
	}
	return v, nil
}

func encodeHeroes(heroes []int) ([]byte, error) {
	if heroes == nil {
		heroes = []int{}
	}
	return json.Marshal(heroes)
}

func decodeHeroes(b []byte) ([]int, error) {
	var heroes []int
	if err := json.Unmarshal(b, &heroes); err != nil {
		return nil, fmt.Errorf("decode heroes: %w", err)
	}
	return heroes, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func decodeTags(b []byte) ([]string, error) {
	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}
