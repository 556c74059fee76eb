// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/momentum/internal/api"
	"github.com/tomtom215/momentum/internal/backup"
	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/collect"
	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/metrics"
	"github.com/tomtom215/momentum/internal/middleware"
	"github.com/tomtom215/momentum/internal/momentum"
	trendsignal "github.com/tomtom215/momentum/internal/signal"
	"github.com/tomtom215/momentum/internal/supervisor"
	"github.com/tomtom215/momentum/internal/supervisor/services"
	"github.com/tomtom215/momentum/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	perfMonWindow     = 1000
	readHeaderTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
		stop()
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

//nolint:gocyclo // sequential component wiring
func run(ctx context.Context, cfg *config.Config) error {
	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Strs("markets", cfg.Markets).
		Msg("Starting Momentum")
	metrics.SetAppInfo(version)

	tp, err := tracing.NewProvider(tracing.FromAppConfig(cfg.Tracing, version))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down tracer provider")
		}
	}()

	db, err := cache.OpenBadger(cfg.Badger)
	if err != nil {
		return fmt.Errorf("open badger: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing badger")
		}
	}()

	tiers, err := buildTiers(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer tiers.Close()

	signals := trendsignal.NewClient(cfg.Signal, cfg.Cache, trendsignal.NewTrendsAPI(cfg.Signal.BaseURL), tiers.tiered)

	source := content.NewFeedCachingSource(
		content.NewCircuitBreakerSource(content.NewYouTubeClient(cfg.YouTube)),
		tiers.tiered,
		cfg.Cache.FeedTTL,
	)

	scoring, err := buildScorer(ctx, cfg, db, tiers.tiered)
	if err != nil {
		return err
	}
	defer scoring.Close()

	svc := momentum.NewService(cfg, momentum.Deps{
		Collector: collect.NewOrchestrator(cfg.Collection, source, signals),
		Scorer:    scoring.scorer,
		Signals:   signals,
		Cache:     tiers.tiered,
	})

	perfMon := middleware.NewPerformanceMonitor(perfMonWindow, middleware.DefaultSlowThreshold)
	apiDeps := api.Deps{
		Ranker:  svc,
		Signals: signals,
		Budget:  scoring.scorer.Ledger(),
		Cache:   tiers.tiered,
		Feed:    source,
		PerfMon: perfMon,
		Checks:  readinessChecks(cfg, db, tiers, signals),
		Version: version,
	}
	if scoring.postgres != nil {
		apiDeps.Usage = scoring.postgres
	}
	handler := api.NewHandler(apiDeps)

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Server.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	router := api.NewRouter(handler, api.NewChiMiddleware(mwCfg))

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           tracing.Handler(router.SetupChi(), "momentum.http"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	ledgerJob := services.LedgerSnapshotJob(scoring.scorer.Ledger(), scoring.store, cfg.Maintenance.SnapshotSchedule)
	if cfg.Maintenance.Enabled {
		jobs := []services.Job{
			services.ValueLogGCJob(db, cfg.Maintenance.GCSchedule),
			ledgerJob,
		}
		if cfg.Backup.Enabled {
			archives, err := backup.NewManager(cfg.Backup, db)
			if err != nil {
				return fmt.Errorf("init backups: %w", err)
			}
			jobs = append(jobs, services.BackupJob(archives, cfg.Backup.Schedule))
		}
		tree.AddDataService(services.NewMaintenanceService(jobs...))
	} else {
		logging.Info().Msg("Scheduled maintenance disabled (MAINTENANCE_ENABLED=false)")
		defer func() {
			if err := ledgerJob.Run(context.WithoutCancel(ctx)); err != nil {
				logging.Error().Err(err).Msg("Failed to persist budget ledger")
			}
		}()
	}

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, u := range report {
			logging.Warn().Str("service", u.Name).Msg("Service did not stop within shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}
