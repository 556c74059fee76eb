// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/metrics"
)

// Layer is a tier with its default TTL.
type Layer struct {
	Tier Tier
	TTL  time.Duration
}

// Tiered reads layers in order (fastest first) and back-fills the faster
// layers on a hit. Writes go to every layer.
//
// Values are stored in an envelope carrying an absolute expiry so a
// back-filled copy never outlives the entry it was copied from.
type Tiered struct {
	layers []Layer
	now    func() time.Time

	counters []*tierCounters
	hits     atomic.Int64
	misses   atomic.Int64
}

type tierCounters struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewTiered builds a coordinator. Nil tiers are skipped, so an unavailable
// Redis can be passed as nil.
func NewTiered(layers ...Layer) *Tiered {
	kept := make([]Layer, 0, len(layers))
	for _, l := range layers {
		if l.Tier != nil {
			kept = append(kept, l)
		}
	}
	counters := make([]*tierCounters, len(kept))
	for i := range counters {
		counters[i] = &tierCounters{}
	}
	return &Tiered{layers: kept, now: time.Now, counters: counters}
}

// Layers returns the configured layers in read order.
func (t *Tiered) Layers() []Layer {
	return t.layers
}

const envelopeHeader = 8

func wrap(value []byte, expiresAt time.Time) []byte {
	out := make([]byte, envelopeHeader+len(value))
	binary.BigEndian.PutUint64(out, uint64(expiresAt.UnixNano()))
	copy(out[envelopeHeader:], value)
	return out
}

func unwrap(raw []byte) ([]byte, time.Time, error) {
	if len(raw) < envelopeHeader {
		return nil, time.Time{}, fmt.Errorf("cache envelope too short (%d bytes)", len(raw))
	}
	exp := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:envelopeHeader])))
	return raw[envelopeHeader:], exp, nil
}

// Get returns the value and the name of the tier that served it.
// It returns ErrMiss when no tier holds a live value.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, string, error) {
	now := t.now()
	for i, layer := range t.layers {
		name := layer.Tier.Name()
		raw, err := layer.Tier.Get(ctx, key)
		if errors.Is(err, ErrMiss) {
			t.counters[i].misses.Add(1)
			metrics.CacheMisses.WithLabelValues(name).Inc()
			continue
		}
		if err != nil {
			t.counters[i].errors.Add(1)
			metrics.CacheErrors.WithLabelValues(name, "get").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("tier", name).Str("key", key).Msg("Cache tier read failed")
			continue
		}

		value, expiresAt, err := unwrap(raw)
		if err != nil || !now.Before(expiresAt) {
			// Stale or corrupt; drop it so the next read does not pay again.
			_ = layer.Tier.Delete(ctx, key)
			t.counters[i].misses.Add(1)
			metrics.CacheMisses.WithLabelValues(name).Inc()
			continue
		}

		t.counters[i].hits.Add(1)
		t.hits.Add(1)
		metrics.CacheHits.WithLabelValues(name).Inc()
		t.backfill(ctx, key, value, expiresAt, i)
		return value, name, nil
	}
	t.misses.Add(1)
	return nil, "", ErrMiss
}

// TierStats counts the reads one tier answered since start.
type TierStats struct {
	Tier    string  `json:"tier"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// Stats summarizes Get calls since start. A lookup is a hit when any tier
// served it; per-tier counts only include the tiers a lookup reached.
type Stats struct {
	Lookups int64       `json:"lookups"`
	Hits    int64       `json:"hits"`
	Misses  int64       `json:"misses"`
	HitRate float64     `json:"hit_rate"`
	Tiers   []TierStats `json:"tiers"`
}

// Stats returns the current counters in read order.
func (t *Tiered) Stats() Stats {
	hits, misses := t.hits.Load(), t.misses.Load()
	st := Stats{
		Lookups: hits + misses,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
		Tiers:   make([]TierStats, 0, len(t.layers)),
	}
	for i, layer := range t.layers {
		c := t.counters[i]
		ts := TierStats{
			Tier:   layer.Tier.Name(),
			Hits:   c.hits.Load(),
			Misses: c.misses.Load(),
			Errors: c.errors.Load(),
		}
		ts.HitRate = hitRate(ts.Hits, ts.Misses+ts.Errors)
		st.Tiers = append(st.Tiers, ts)
	}
	return st
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func (t *Tiered) backfill(ctx context.Context, key string, value []byte, expiresAt time.Time, hitIndex int) {
	now := t.now()
	remaining := expiresAt.Sub(now)
	for _, layer := range t.layers[:hitIndex] {
		ttl := layer.TTL
		if remaining < ttl {
			ttl = remaining
		}
		if ttl <= 0 {
			continue
		}
		if err := layer.Tier.Set(ctx, key, wrap(value, now.Add(ttl)), ttl); err != nil {
			metrics.CacheErrors.WithLabelValues(layer.Tier.Name(), "backfill").Inc()
			logging.Ctx(ctx).Debug().Err(err).Str("tier", layer.Tier.Name()).Msg("Cache back-fill failed")
		}
	}
}

// Set writes value to every layer with the layer's own TTL.
func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	return t.set(ctx, key, value, 0)
}

// SetWithTTL writes value to every layer with ttl, ignoring layer defaults.
func (t *Tiered) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}
	return t.set(ctx, key, value, ttl)
}

func (t *Tiered) set(ctx context.Context, key string, value []byte, override time.Duration) error {
	if len(t.layers) == 0 {
		return nil
	}
	now := t.now()
	var errs []error
	for _, layer := range t.layers {
		ttl := layer.TTL
		if override > 0 {
			ttl = override
		}
		if err := layer.Tier.Set(ctx, key, wrap(value, now.Add(ttl)), ttl); err != nil {
			metrics.CacheErrors.WithLabelValues(layer.Tier.Name(), "set").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("tier", layer.Tier.Name()).Str("key", key).Msg("Cache tier write failed")
			errs = append(errs, fmt.Errorf("%s: %w", layer.Tier.Name(), err))
		}
	}
	if len(errs) == len(t.layers) {
		return errors.Join(errs...)
	}
	return nil
}

// Delete removes key from every layer.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, layer := range t.layers {
		if err := layer.Tier.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", layer.Tier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// DeletePattern removes matching keys from every layer and returns the
// largest per-layer count (the same key usually lives in several layers).
func (t *Tiered) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		errs []error
		most int
	)
	for _, layer := range t.layers {
		n, err := layer.Tier.DeletePattern(ctx, pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", layer.Tier.Name(), err))
		}
		if n > most {
			most = n
		}
	}
	return most, errors.Join(errs...)
}

// GetJSON decodes a cached JSON value into dst. It returns the serving tier.
func (t *Tiered) GetJSON(ctx context.Context, key string, dst interface{}) (string, error) {
	raw, tier, err := t.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		_ = t.Delete(ctx, key)
		return "", fmt.Errorf("decode cached %q: %w", key, err)
	}
	return tier, nil
}

// SetJSON encodes v and writes it with the layer TTLs.
func (t *Tiered) SetJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return t.Set(ctx, key, raw)
}

// SetJSONWithTTL encodes v and writes it to every layer with ttl.
func (t *Tiered) SetJSONWithTTL(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return t.SetWithTTL(ctx, key, raw, ttl)
}
