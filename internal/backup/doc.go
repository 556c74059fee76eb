// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

// Package backup archives the embedded badger store.
//
// The store holds the durable cache tier, stored relevance assessments and
// the budget ledger snapshot. Losing it forfeits spend already paid for, so
// the maintenance scheduler takes periodic full snapshots and prunes old
// ones by retention policy.
//
// Archives:
//
//	<dir>/momentum-20261019T030000Z.badger.gz   gzip'd badger backup stream
//	<dir>/metadata.json                          index of archives + SHA-256
//
// Retention rules, applied in order:
//   - the newest MinCount archives are never deleted
//   - the newest archive of each day within KeepDailyForDays is kept
//   - unprotected archives older than MaxAgeDays are deleted
//   - the oldest archives beyond MaxCount are deleted, MinCount still applies
//
// Usage:
//
//	mgr, err := backup.NewManager(cfg.Backup, db)
//	b, err := mgr.Create(ctx)
//	deleted, err := mgr.Prune(ctx)
//
//	// Disaster recovery into a fresh store
//	err = mgr.Restore(ctx, b.ID)
package backup
