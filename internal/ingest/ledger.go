// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/clipvault/internal/store"
)

const (
	ledgerSourcePrefix = "ingest:source:"
	lastScanKey        = "ingest:pending:last_scan"
)

// LedgerEntry records one successfully ingested sidecar.
type LedgerEntry struct {
	ClipID     string    `json:"clip_id"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Ledger remembers which sidecars were ingested and the last scan report.
// It shares the clip store's BadgerDB under its own key prefix.
type Ledger struct {
	db *badger.DB
}

// NewLedger creates a ledger on db.
func NewLedger(db *badger.DB) *Ledger {
	return &Ledger{db: db}
}

// Lookup returns the entry for sidecar path, if any.
func (l *Ledger) Lookup(path string) (*LedgerEntry, bool, error) {
	var entry LedgerEntry
	found, err := l.get([]byte(ledgerSourcePrefix+path), &entry)
	if err != nil || !found {
		return nil, false, err
	}
	return &entry, true, nil
}

// ledgerExtra encodes the ledger entry for sidecar path. The pipeline hands
// it to the store so the entry commits with clip clipID.
func ledgerExtra(path, clipID string) (store.Extra, error) {
	key := []byte(ledgerSourcePrefix + path)
	data, err := json.Marshal(LedgerEntry{ClipID: clipID, IngestedAt: time.Now().UTC()})
	if err != nil {
		return store.Extra{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Extra{Key: key, Value: data}, nil
}

// Len returns the number of recorded sidecars.
func (l *Ledger) Len() (int, error) {
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(ledgerSourcePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

// SaveReport stores r as the last scan report.
func (l *Ledger) SaveReport(r *ScanReport) error {
	return l.set([]byte(lastScanKey), r)
}

// LastReport returns the last saved scan report, or nil when no scan has
// completed yet.
func (l *Ledger) LastReport() (*ScanReport, error) {
	var r ScanReport
	found, err := l.get([]byte(lastScanKey), &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

func (l *Ledger) get(key []byte, v interface{}) (bool, error) {
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return found, nil
}

func (l *Ledger) set(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
