// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/clipvault/internal/logging"
)

// Errors
var (
	// ErrUnavailable wraps every BadgerDB failure. A failed write never
	// commits, so callers see either the whole clip or none of it.
	ErrUnavailable = errors.New("clip store unavailable")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("clip store is closed")

	// ErrClipNotFound is returned when patching an unknown clip.
	ErrClipNotFound = errors.New("clip not found")

	// ErrInvalidClip is returned when a clip fails basic field checks.
	ErrInvalidClip = errors.New("invalid clip")

	// ErrInvalidStartTime is returned for non-positive start times.
	ErrInvalidStartTime = errors.New("start time must be a positive unix timestamp")
)

// Store is the clip repository. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	config Config

	mu     sync.RWMutex
	closed bool

	// faultHook is invoked between the steps of a clip write. Tests use it
	// to fail a transaction half way through.
	faultHook func(step string) error
}

// Open validates cfg and opens (or creates) the store.
func Open(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	s, err := open(cfg)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Clip store opened")
	return s, nil
}

// OpenForTesting opens an in-memory store without config validation.
// WARNING: Do not use in production code.
func OpenForTesting() (*Store, error) {
	cfg := DefaultConfig()
	cfg.InMemory = true
	cfg.Path = ""
	cfg.SyncWrites = false
	cfg.CloseTimeout = 5 * time.Second
	return open(&cfg)
}

func open(cfg *Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w: %w", ErrUnavailable, err)
	}

	lease := cfg.CounterLease
	if lease < 1 {
		lease = 1
	}
	seq, err := db.GetSequence([]byte(counterKey), lease)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open clip counter: %w: %w", ErrUnavailable, err)
	}

	return &Store{
		db:     db,
		seq:    seq,
		config: *cfg,
	}, nil
}

// DB exposes the underlying BadgerDB handle for components that keep
// their own bookkeeping keys next to the clips (ingest ledger, scan reports).
func (s *Store) DB() *badger.DB {
	return s.db
}

// checkOpen returns ErrClosed once Close has been called.
func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// RunGC runs value log GC until Badger reports nothing left to rewrite.
func (s *Store) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.config.InMemory {
		return nil
	}

	start := time.Now()
	defer func() {
		recordGC(time.Since(start))
	}()

	ratio := s.config.GCRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	for {
		err := s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close releases the counter lease and closes BadgerDB, giving up after
// the configured CloseTimeout.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timeout := s.config.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s.mu.Unlock()

	if err := s.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release clip counter lease")
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Clip store closed")
		return nil
	case <-time.After(timeout):
		logging.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}

func (s *Store) fault(step string) error {
	if s.faultHook == nil {
		return nil
	}
	return s.faultHook(step)
}
