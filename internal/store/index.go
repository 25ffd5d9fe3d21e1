// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package store

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dgraph-io/badger/v4"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeTag replaces the first run of whitespace in tag with a single
// hyphen. Later runs are left alone: "smoke  gank fail" becomes
// "smoke-gank fail". Existing catalogs were built with this rule, so index
// keys depend on it.
func NormalizeTag(tag string) string {
	loc := whitespaceRun.FindStringIndex(tag)
	if loc == nil {
		return tag
	}
	return tag[:loc[0]] + "-" + tag[loc[1]:]
}

// indexHeroes appends heroes to the clip's hero list and adds the clip to
// each hero's inverted set. Must run inside the clip's write transaction.
func (s *Store) indexHeroes(txn *badger.Txn, id string, heroes []int) error {
	existing, err := readHeroList(txn, id)
	if err != nil {
		return err
	}
	list := append(existing, heroes...)

	for _, hero := range heroes {
		if err := txn.Set([]byte(heroSetPrefix(hero)+id), nil); err != nil {
			return fmt.Errorf("index hero %d: %w", hero, err)
		}
		if err := s.fault("hero-index"); err != nil {
			return err
		}
	}

	data, err := encodeHeroes(list)
	if err != nil {
		return err
	}
	if err := txn.Set(heroListKey(id), data); err != nil {
		return fmt.Errorf("set hero list: %w", err)
	}
	return nil
}

// indexTags normalizes tags, appends them to the clip's tag list and adds
// the clip to each tag's inverted set. Must run inside the clip's write
// transaction.
func (s *Store) indexTags(txn *badger.Txn, id string, tags []string) error {
	existing, err := readTagList(txn, id)
	if err != nil {
		return err
	}

	list := existing
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		list = append(list, normalized)
		if err := txn.Set([]byte(tagSetPrefix(normalized)+id), nil); err != nil {
			return fmt.Errorf("index tag %q: %w", normalized, err)
		}
		if err := s.fault("tag-index"); err != nil {
			return err
		}
	}

	data, err := encodeTags(list)
	if err != nil {
		return err
	}
	if err := txn.Set(tagListKey(id), data); err != nil {
		return fmt.Errorf("set tag list: %w", err)
	}
	return nil
}

func readHeroList(txn *badger.Txn, id string) ([]int, error) {
	var heroes []int
	err := getValue(txn, heroListKey(id), func(val []byte) error {
		var err error
		heroes, err = decodeHeroes(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []int{}, nil
	}
	return heroes, err
}

func readTagList(txn *badger.Txn, id string) ([]string, error) {
	var tags []string
	err := getValue(txn, tagListKey(id), func(val []byte) error {
		var err error
		tags, err = decodeTags(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []string{}, nil
	}
	return tags, err
}

// getValue fetches key and hands its value to fn. badger.ErrKeyNotFound is
// returned unwrapped so callers can test for it.
func getValue(txn *badger.Txn, key []byte, fn func(val []byte) error) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(fn)
}

// scanMembers returns the members of the set stored under prefix.
func scanMembers(txn *badger.Txn, prefix string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var members []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		key := it.Item().Key()
		members = append(members, string(key[len(p):]))
	}
	return members
}
