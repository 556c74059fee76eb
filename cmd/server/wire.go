// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/momentum/internal/api"
	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/relevance"
	trendsignal "github.com/tomtom215/momentum/internal/signal"
)

const (
	redisKeyPrefix   = "momentum:"
	badgerKeyPrefix  = "cache:"
	startupPingLimit = 5 * time.Second
)

// tierSet is the tiered cache plus the handles main must close.
type tierSet struct {
	tiered *cache.Tiered
	redis  *cache.RedisTier
}

// buildTiers assembles fast, memory and durable tiers. An unreachable
// Redis is skipped unless REDIS_REQUIRED is set.
func buildTiers(ctx context.Context, cfg *config.Config, db *badger.DB) (*tierSet, error) {
	set := &tierSet{}
	var layers []cache.Layer

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis client: %w", err)
		}
		tier := cache.NewRedisTier(client, redisKeyPrefix)

		pingCtx, cancel := context.WithTimeout(ctx, startupPingLimit)
		err = tier.Ping(pingCtx)
		cancel()

		switch {
		case err == nil:
			set.redis = tier
			layers = append(layers, cache.Layer{Tier: tier, TTL: cfg.Cache.FastTTL})
			logging.Info().Msg("Redis fast tier connected")
		case cfg.Redis.Required:
			_ = tier.Close()
			return nil, fmt.Errorf("redis required but unreachable: %w", err)
		default:
			_ = tier.Close()
			logging.Warn().Err(err).Msg("Redis unreachable, continuing without fast tier")
		}
	}

	layers = append(layers,
		cache.Layer{Tier: cache.NewMemoryTier(cfg.Cache.MemorySize), TTL: cfg.Cache.MemoryTTL},
		cache.Layer{Tier: cache.NewBadgerTier(db, badgerKeyPrefix), TTL: cfg.Cache.DurableTTL},
	)
	set.tiered = cache.NewTiered(layers...)
	return set, nil
}

// Close releases the Redis connection pool, if any.
func (s *tierSet) Close() {
	if s.redis == nil {
		return
	}
	if err := s.redis.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing redis")
	}
}

// scoring bundles the relevance scorer with its durable store and the
// optional Postgres usage log.
type scoring struct {
	scorer   *relevance.Scorer
	store    *relevance.Store
	postgres *relevance.PostgresRecorder
}

// buildScorer restores the spend ledger and builds the scorer. Without an
// API key every item receives the default assessment.
func buildScorer(ctx context.Context, cfg *config.Config, db *badger.DB, tiered *cache.Tiered) (*scoring, error) {
	store := relevance.NewStore(db, cfg.Scorer.StoreTTL)
	ledger := relevance.NewLedger(cfg.Scorer)

	snap, ok, err := store.LoadLedger()
	switch {
	case err != nil:
		return nil, err
	case ok:
		ledger.Restore(snap)
		logging.Info().
			Str("month", snap.Month).
			Float64("monthly_cost", snap.MonthlyCost).
			Msg("Budget ledger restored")
	}

	s := &scoring{store: store}
	recorders := relevance.MultiRecorder{relevance.LogRecorder{}}

	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		rec, err := relevance.OpenPostgresRecorder(ctx, dsn)
		if err != nil {
			logging.Warn().Err(err).Msg("Usage database unavailable, logging usage only")
		} else {
			s.postgres = rec
			recorders = append(recorders, rec)
			reconcileSpend(ctx, ledger, rec)
		}
	}

	opts := relevance.Options{
		Ledger:   ledger,
		Store:    store,
		Cache:    tiered,
		Recorder: recorders,
	}
	if cfg.Scorer.APIKey != "" {
		opts.Model = relevance.NewGeminiClient(cfg.Scorer)
	} else {
		logging.Warn().Msg("GEMINI_API_KEY not set, relevance scoring falls back to defaults")
	}
	s.scorer = relevance.NewScorer(cfg.Scorer, opts)
	return s, nil
}

// reconcileSpend raises the ledger to the spend recorded in Postgres when
// the local snapshot is behind, as after losing the badger directory.
func reconcileSpend(ctx context.Context, ledger *relevance.Ledger, rec *relevance.PostgresRecorder) {
	spent, err := rec.MonthlySpend(ctx, time.Now())
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to read recorded monthly spend")
		return
	}
	snap := ledger.Snapshot()
	if spent > snap.MonthlyCost {
		snap.MonthlyCost = spent
		ledger.Restore(snap)
		logging.Info().Float64("monthly_cost", spent).Msg("Budget ledger reconciled with usage log")
	}
}

// Close releases the usage database.
func (s *scoring) Close() {
	if s.postgres == nil {
		return
	}
	if err := s.postgres.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing usage database")
	}
}

// readinessChecks lists the dependencies checked by /health/ready. Badger
// is always required and Redis only with REDIS_REQUIRED. The signal
// upstream never fails readiness.
func readinessChecks(cfg *config.Config, db *badger.DB, tiers *tierSet, signals *trendsignal.Client) []api.ReadinessCheck {
	checks := []api.ReadinessCheck{
		{
			Name: "badger",
			Check: func(context.Context) error {
				if db.IsClosed() {
					return errors.New("badger is closed")
				}
				return nil
			},
		},
		{
			Name:     "signal",
			Optional: true,
			Check: func(context.Context) error {
				if !signals.Healthy() {
					return errors.New("signal circuit open")
				}
				return nil
			},
		},
	}
	if tiers.redis != nil {
		checks = append(checks, api.ReadinessCheck{
			Name:     "redis",
			Optional: !cfg.Redis.Required,
			Check:    tiers.redis.Ping,
		})
	}
	return checks
}
