// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package backup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/tomtom215/momentum/internal/logging"
)

// Prune deletes archives the retention policy no longer keeps and returns
// how many were removed. Archives whose file cannot be removed stay in the
// index.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doomed := selectForDeletion(m.metadata.Backups, m.policy, m.now())
	if len(doomed) == 0 {
		return 0, nil
	}
	drop := make(map[string]bool, len(doomed))
	for _, b := range doomed {
		drop[b.ID] = true
	}

	var errs []error
	kept := make([]Backup, 0, len(m.metadata.Backups))
	deleted := 0
	for _, b := range m.metadata.Backups {
		if !drop[b.ID] {
			kept = append(kept, b)
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, b.File)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn().Err(err).Str("backup_id", b.ID).Msg("Failed to delete backup")
			errs = append(errs, err)
			kept = append(kept, b)
			continue
		}
		deleted++
	}
	m.metadata.Backups = kept
	if err := m.saveMetadataLocked(); err != nil {
		errs = append(errs, err)
	}

	logging.Info().Int("deleted", deleted).Int("remaining", len(kept)).Msg("Backup retention applied")
	return deleted, errors.Join(errs...)
}

func sortedNewestFirst(backups []Backup) []Backup {
	out := slices.Clone(backups)
	slices.SortStableFunc(out, func(a, b Backup) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// selectForDeletion applies the policy to backups as of now.
func selectForDeletion(backups []Backup, policy RetentionPolicy, now time.Time) []Backup {
	sorted := sortedNewestFirst(backups)

	pinned := make(map[string]bool)
	for i := 0; i < policy.MinCount && i < len(sorted); i++ {
		pinned[sorted[i].ID] = true
	}

	daily := make(map[string]bool)
	if policy.KeepDailyForDays > 0 {
		cutoff := now.AddDate(0, 0, -policy.KeepDailyForDays)
		seen := make(map[string]bool)
		for _, b := range sorted {
			if b.CreatedAt.Before(cutoff) {
				continue
			}
			day := b.CreatedAt.UTC().Format(time.DateOnly)
			if !seen[day] {
				seen[day] = true
				daily[b.ID] = true
			}
		}
	}

	var doomed, survivors []Backup
	for _, b := range sorted {
		if !pinned[b.ID] && !daily[b.ID] && policy.MaxAgeDays > 0 &&
			b.CreatedAt.Before(now.AddDate(0, 0, -policy.MaxAgeDays)) {
			doomed = append(doomed, b)
			continue
		}
		survivors = append(survivors, b)
	}

	if policy.MaxCount <= 0 || len(survivors) <= policy.MaxCount {
		return doomed
	}

	// Unprotected archives go first, then daily ones, oldest first in each
	// group. Pinned archives are never candidates.
	var loose, dailyOnly []Backup
	for i := len(survivors) - 1; i >= 0; i-- {
		b := survivors[i]
		switch {
		case pinned[b.ID]:
		case daily[b.ID]:
			dailyOnly = append(dailyOnly, b)
		default:
			loose = append(loose, b)
		}
	}
	excess := len(survivors) - policy.MaxCount
	for _, b := range append(loose, dailyOnly...) {
		if excess == 0 {
			break
		}
		doomed = append(doomed, b)
		excess--
	}
	return doomed
}
