// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package services

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/momentum/internal/backup"
	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/metrics"
	"github.com/tomtom215/momentum/internal/relevance"
)

// Job names.
const (
	JobValueLogGC     = "badger_value_log_gc"
	JobLedgerSnapshot = "ledger_snapshot"
	JobBackup         = "badger_backup"
)

const gcDiscardRatio = 0.5

// LedgerSource reports scorer spend. Implemented by *relevance.Ledger.
type LedgerSource interface {
	Snapshot() relevance.LedgerSnapshot
}

// LedgerStore persists ledger snapshots. Implemented by *relevance.Store.
type LedgerStore interface {
	SaveLedger(snap relevance.LedgerSnapshot) error
}

// Archiver creates and prunes store archives. Implemented by
// *backup.Manager.
type Archiver interface {
	Create(ctx context.Context) (backup.Backup, error)
	Prune(ctx context.Context) (int, error)
}

// ValueLogGCJob reclaims badger value-log space, one GC cycle per run.
func ValueLogGCJob(db *badger.DB, schedule string) Job {
	return Job{
		Name:     JobValueLogGC,
		Schedule: schedule,
		Run: func(context.Context) error {
			return cache.RunValueLogGC(db, gcDiscardRatio)
		},
	}
}

// LedgerSnapshotJob persists the budget ledger and refreshes the budget
// gauges. It also runs on shutdown so spend survives a restart.
func LedgerSnapshotJob(ledger LedgerSource, store LedgerStore, schedule string) Job {
	return Job{
		Name:     JobLedgerSnapshot,
		Schedule: schedule,
		OnStop:   true,
		Run: func(context.Context) error {
			snap := ledger.Snapshot()
			metrics.UpdateBudgetUsage(snap.MonthlyCost, snap.DailyCost, snap.MonthlyBudget)
			return store.SaveLedger(snap)
		},
	}
}

// BackupJob archives the store, then applies retention. Pruning is skipped
// when the new archive could not be written.
func BackupJob(archiver Archiver, schedule string) Job {
	return Job{
		Name:     JobBackup,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if _, err := archiver.Create(ctx); err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
			if _, err := archiver.Prune(ctx); err != nil {
				return fmt.Errorf("prune backups: %w", err)
			}
			return nil
		},
	}
}
