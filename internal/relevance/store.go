// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	storePrefix = "relevance:"
	ledgerKey   = "ledger:snapshot"
)

// Store persists assessments per (video, market) in badger. Entries
// expire after the configured freshness window.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// NewStore wraps db. ttl <= 0 keeps entries until deleted.
func NewStore(db *badger.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

func storeKey(market, id string) []byte {
	return []byte(storePrefix + strings.ToUpper(market) + ":" + id)
}

// Get returns the fresh assessments found for ids. Missing ids are absent
// from the map.
func (s *Store) Get(ids []string, market string) (map[string]Assessment, error) {
	out := make(map[string]Assessment, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(storeKey(market, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var a Assessment
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &a) }); err != nil {
				return err
			}
			out[id] = a
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("relevance store get: %w", err)
	}
	return out, nil
}

// Put writes assessments in one transaction. Defaulted assessments are
// skipped so a failed batch is retried on the next request.
func (s *Store) Put(assessments []Assessment) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i := range assessments {
		a := &assessments[i]
		if a.Defaulted {
			continue
		}
		v, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("relevance store encode %s: %w", a.VideoID, err)
		}
		e := badger.NewEntry(storeKey(a.Market, a.VideoID), v)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		if err := wb.SetEntry(e); err != nil {
			return fmt.Errorf("relevance store put: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("relevance store flush: %w", err)
	}
	return nil
}

// SaveLedger persists a ledger snapshot.
func (s *Store) SaveLedger(snap LedgerSnapshot) error {
	v, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ledger snapshot: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ledgerKey), v)
	}); err != nil {
		return fmt.Errorf("save ledger snapshot: %w", err)
	}
	return nil
}

// LoadLedger reads the last snapshot. ok is false when none was saved.
func (s *Store) LoadLedger() (snap LedgerSnapshot, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ledgerKey))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &snap) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return LedgerSnapshot{}, false, nil
	}
	if err != nil {
		return LedgerSnapshot{}, false, fmt.Errorf("load ledger snapshot: %w", err)
	}
	return snap, true, nil
}
