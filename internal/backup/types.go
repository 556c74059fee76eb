// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package backup

import (
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown backup ID.
var ErrNotFound = errors.New("backup not found")

// ErrChecksumMismatch is returned when an archive no longer matches the
// checksum recorded at creation.
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// Backup describes one archive on disk.
type Backup struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	// Version is the badger version the snapshot covers.
	Version uint64 `json:"version"`
}

// RetentionPolicy decides which archives Prune keeps. Zero fields disable
// the corresponding rule.
type RetentionPolicy struct {
	// Keep at least this many archives regardless of age
	MinCount int `json:"min_count"`

	// Maximum number of archives to keep
	MaxCount int `json:"max_count"`

	// Maximum age of archives in days
	MaxAgeDays int `json:"max_age_days"`

	// Keep the newest archive of each day for the last N days
	KeepDailyForDays int `json:"keep_daily_for_days"`
}

type metadataStore struct {
	Backups []Backup `json:"backups"`
}
