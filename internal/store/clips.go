// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package store

import (
	"context"
	"crypto/md5" //nolint:gosec // identifier digest, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Clip is the stored form of a clip.
type Clip struct {
	ID          string
	MatchID     string
	Description string
	// Duration is in whole seconds.
	Duration int64
	// StartTime is the match start in unix seconds; zero means unresolved.
	StartTime int64
	// Heroes keeps insertion order and duplicates.
	Heroes []int
	// Tags holds normalized tags (see NormalizeTag).
	Tags []string
}

// HasStartTime reports whether the match start time has been resolved.
func (c *Clip) HasStartTime() bool {
	return c.StartTime > 0
}

// Lookup is one slot of a bulk Read. Found is false for ids the store has
// never seen; Clip is nil in that case.
type Lookup struct {
	ID    string
	Clip  *Clip
	Found bool
}

// ClipID derives the identifier for the given match and counter value.
func ClipID(matchID string, counter uint64) string {
	sum := md5.Sum([]byte(matchID + strconv.FormatUint(counter, 10))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// NextID increments the clip counter and returns the identifier for
// matchID. Concurrent callers always receive distinct counter values.
func (s *Store) NextID(matchID string) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	start := time.Now()
	n, err := s.seq.Next()
	recordOp("next_id", start, err)
	if err != nil {
		return "", fmt.Errorf("increment clip counter: %w: %w", ErrUnavailable, err)
	}
	// Sequences start at zero; the first clip gets counter value 1.
	return ClipID(matchID, n+1), nil
}

// Extra is a key written alongside a clip in the same transaction.
type Extra struct {
	Key   []byte
	Value []byte
}

// Write persists the clip fields, its all-clips membership, its hero and
// tag lists and the matching inverted index entries in one transaction.
// Tags are normalized on the way in. Start time is written only when set.
// extra keys commit or fail together with the clip.
func (s *Store) Write(ctx context.Context, c *Clip, extra ...Extra) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateClip(c); err != nil {
		return err
	}

	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := s.writeClip(txn, c); err != nil {
			return err
		}
		for _, e := range extra {
			if err := txn.Set(e.Key, e.Value); err != nil {
				return fmt.Errorf("set %s: %w", e.Key, err)
			}
		}
		return nil
	})
	recordOp("write", start, err)
	if err != nil {
		return fmt.Errorf("write clip %s: %w: %w", c.ID, ErrUnavailable, err)
	}

	clipsWritten.Inc()
	return nil
}

func validateClip(c *Clip) error {
	if c == nil {
		return fmt.Errorf("%w: nil clip", ErrInvalidClip)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidClip)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidClip, c.Duration)
	}
	if c.StartTime < 0 {
		return fmt.Errorf("%w: negative start time %d", ErrInvalidClip, c.StartTime)
	}
	return nil
}

func (s *Store) writeClip(txn *badger.Txn, c *Clip) error {
	fields := []struct {
		name  string
		value []byte
	}{
		{fieldMatchID, []byte(c.MatchID)},
		{fieldDescription, []byte(c.Description)},
		{fieldDuration, encodeInt(c.Duration)},
	}
	if c.HasStartTime() {
		fields = append(fields, struct {
			name  string
			value []byte
		}{fieldStartTime, encodeInt(c.StartTime)})
	}
	for _, f := range fields {
		if err := txn.Set(fieldKey(c.ID, f.name), f.value); err != nil {
			return fmt.Errorf("set %s: %w", f.name, err)
		}
	}
	if err := s.fault("fields"); err != nil {
		return err
	}

	if err := txn.Set(allClipsKey(c.ID), nil); err != nil {
		return fmt.Errorf("add to clip set: %w", err)
	}
	if err := s.fault("all-clips"); err != nil {
		return err
	}

	if err := s.indexHeroes(txn, c.ID, c.Heroes); err != nil {
		return err
	}
	return s.indexTags(txn, c.ID, c.Tags)
}

// Read fetches the given ids in one read transaction. The result has one
// Lookup per requested id, in request order.
func (s *Store) Read(ctx context.Context, ids []string) ([]Lookup, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	lookups := make([]Lookup, 0, len(ids))
	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			clip, found, err := readClip(txn, id)
			if err != nil {
				return fmt.Errorf("read clip %s: %w", id, err)
			}
			lookups = append(lookups, Lookup{ID: id, Clip: clip, Found: found})
		}
		return nil
	})
	recordOp("read", start, err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return lookups, nil
}

func readClip(txn *badger.Txn, id string) (*Clip, bool, error) {
	c := &Clip{ID: id}

	err := getValue(txn, fieldKey(id, fieldMatchID), func(val []byte) error {
		c.MatchID = string(val)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	err = getValue(txn, fieldKey(id, fieldDescription), func(val []byte) error {
		c.Description = string(val)
		return nil
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, err
	}

	err = getValue(txn, fieldKey(id, fieldDuration), func(val []byte) error {
		var err error
		c.Duration, err = decodeInt(fieldDuration, val)
		return err
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, err
	}

	err = getValue(txn, fieldKey(id, fieldStartTime), func(val []byte) error {
		var err error
		c.StartTime, err = decodeInt(fieldStartTime, val)
		return err
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, err
	}

	if c.Heroes, err = readHeroList(txn, id); err != nil {
		return nil, false, err
	}
	if c.Tags, err = readTagList(txn, id); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// PatchStartTime sets the start time of an existing clip. No other key is
// touched.
func (s *Store) PatchStartTime(ctx context.Context, id string, ts int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ts <= 0 {
		return ErrInvalidStartTime
	}

	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(allClipsKey(id)); err != nil {
			return err
		}
		return txn.Set(fieldKey(id, fieldStartTime), encodeInt(ts))
	})
	recordOp("patch_start_time", start, err)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrClipNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("patch start time %s: %w: %w", id, ErrUnavailable, err)
	}
	return nil
}

// AllIDs returns every member of the all-clips set.
func (s *Store) AllIDs(ctx context.Context) ([]string, error) {
	return s.members(ctx, "all_ids", allClipsPrefix)
}

// HeroIDs returns the ids of clips featuring heroID.
func (s *Store) HeroIDs(ctx context.Context, heroID int) ([]string, error) {
	return s.members(ctx, "hero_ids", heroSetPrefix(heroID))
}

// TagIDs returns the ids of clips carrying the tag whose index key is slug.
// slug is used as given; NormalizeTag is not idempotent, so callers pass the
// key produced once from the display name.
func (s *Store) TagIDs(ctx context.Context, slug string) ([]string, error) {
	return s.members(ctx, "tag_ids", tagSetPrefix(slug))
}

func (s *Store) members(ctx context.Context, op, prefix string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		ids = scanMembers(txn, prefix)
		return nil
	})
	recordOp(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return ids, nil
}

// MissingStartTimes returns the ids of clips whose start time has not been
// resolved yet, paired with their match ids.
func (s *Store) MissingStartTimes(ctx context.Context) ([]Clip, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var pending []Clip
	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range scanMembers(txn, allClipsPrefix) {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := txn.Get(fieldKey(id, fieldStartTime))
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			c := Clip{ID: id}
			err = getValue(txn, fieldKey(id, fieldMatchID), func(val []byte) error {
				c.MatchID = string(val)
				return nil
			})
			if err != nil {
				return fmt.Errorf("read match id of %s: %w", id, err)
			}
			pending = append(pending, c)
		}
		return nil
	})
	recordOp("missing_start_times", start, err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return pending, nil
}

// Count returns the size of the all-clips set.
func (s *Store) Count(ctx context.Context) (int, error) {
	ids, err := s.AllIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
