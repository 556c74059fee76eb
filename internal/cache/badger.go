// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/logging"
)

// OpenBadger opens the embedded store used by the durable tier, the
// relevance store and ledger snapshots.
func OpenBadger(cfg config.BadgerConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{l: logging.WithComponent("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Badger store opened")
	return db, nil
}

// badgerLogger routes badger's internal logging into zerolog. Info is
// demoted to debug since badger is chatty on open and compaction.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.l.Error().Msgf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warn().Msgf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.l.Debug().Msgf(strings.TrimSpace(f), v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.l.Trace().Msgf(strings.TrimSpace(f), v...) }

// BadgerTier is the durable tier. Expiry is enforced by badger's native TTL.
type BadgerTier struct {
	db     *badger.DB
	prefix []byte
}

// NewBadgerTier stores keys under prefix in db (e.g. "cache:").
func NewBadgerTier(db *badger.DB, prefix string) *BadgerTier {
	return &BadgerTier{db: db, prefix: []byte(prefix)}
}

// Name implements Tier.
func (b *BadgerTier) Name() string { return TierDurable }

func (b *BadgerTier) key(k string) []byte {
	out := make([]byte, 0, len(b.prefix)+len(k))
	out = append(out, b.prefix...)
	return append(out, k...)
}

// Get implements Tier.
func (b *BadgerTier) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return out, nil
}

// Set implements Tier.
func (b *BadgerTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(b.key(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// Delete implements Tier.
func (b *BadgerTier) Delete(_ context.Context, key string) error {
	if err := b.db.Update(func(txn *badger.Txn) error { return txn.Delete(b.key(key)) }); err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

// DeletePattern implements Tier by iterating the literal prefix of pattern.
func (b *BadgerTier) DeletePattern(_ context.Context, pattern string) (int, error) {
	scanPrefix := b.key(literalPrefix(pattern))
	var matched [][]byte

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = scanPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			if MatchGlob(pattern, string(k[len(b.prefix):])) {
				matched = append(matched, k)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger scan: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range matched {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("badger batch delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("badger flush: %w", err)
	}
	return len(matched), nil
}

// RunValueLogGC runs one value-log GC cycle. badger.ErrNoRewrite means
// there was nothing to reclaim and is not reported as an error.
func RunValueLogGC(db *badger.DB, discardRatio float64) error {
	if db.Opts().InMemory {
		return nil
	}
	err := db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}
