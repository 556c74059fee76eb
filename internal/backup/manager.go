// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/logging"
)

const (
	metadataFile     = "metadata.json"
	filePrefix       = "momentum-"
	fileSuffix       = ".badger.gz"
	idLayout         = "20060102T150405Z"
	maxPendingWrites = 256
)

// Manager creates, restores and prunes badger archives in one directory.
type Manager struct {
	dir    string
	db     *badger.DB
	policy RetentionPolicy
	now    func() time.Time

	mu       sync.Mutex
	metadata metadataStore
}

// NewManager opens (creating if needed) the backup directory and loads its
// metadata index.
func NewManager(cfg config.BackupConfig, db *badger.DB) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("backup directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	m := &Manager{
		dir: cfg.Dir,
		db:  db,
		policy: RetentionPolicy{
			MinCount:         cfg.MinCount,
			MaxCount:         cfg.MaxCount,
			MaxAgeDays:       cfg.MaxAgeDays,
			KeepDailyForDays: cfg.KeepDailyForDays,
		},
		now: time.Now,
	}
	if err := m.loadMetadata(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(m.dir, metadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read backup metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m.metadata); err != nil {
		return fmt.Errorf("parse backup metadata: %w", err)
	}
	return nil
}

// saveMetadataLocked writes the index through a temp file so a crash never
// leaves it truncated. Caller holds m.mu.
func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.metadata, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(m.dir, metadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write backup metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

// List returns all known archives, newest first.
func (m *Manager) List() []Backup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedNewestFirst(m.metadata.Backups)
}

// Create writes a full snapshot of the store.
func (m *Manager) Create(ctx context.Context) (Backup, error) {
	if err := ctx.Err(); err != nil {
		return Backup{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	created := m.now().UTC()
	id := m.uniqueIDLocked(created)
	name := filePrefix + id + fileSuffix
	path := filepath.Join(m.dir, name)

	version, checksum, err := m.writeArchive(path)
	if err != nil {
		return Backup{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Backup{}, fmt.Errorf("stat backup: %w", err)
	}

	b := Backup{
		ID:        id,
		File:      name,
		CreatedAt: created,
		Size:      info.Size(),
		Checksum:  checksum,
		Version:   version,
	}
	m.metadata.Backups = append(m.metadata.Backups, b)
	if err := m.saveMetadataLocked(); err != nil {
		return Backup{}, err
	}

	logging.Info().
		Str("backup_id", b.ID).
		Int64("size_bytes", b.Size).
		Uint64("version", b.Version).
		Dur("duration", time.Since(start)).
		Msg("Badger backup created")
	return b, nil
}

// uniqueIDLocked derives an ID from the creation time, suffixed when two
// archives land in the same second.
func (m *Manager) uniqueIDLocked(t time.Time) string {
	base := t.Format(idLayout)
	id := base
	for n := 1; m.indexLocked(id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func (m *Manager) indexLocked(id string) int {
	return slices.IndexFunc(m.metadata.Backups, func(b Backup) bool { return b.ID == id })
}

// writeArchive streams a gzip'd badger backup to path and returns the
// snapshot version and the SHA-256 of the file.
func (m *Manager) writeArchive(path string) (version uint64, checksum string, err error) {
	tmp := path + ".partial"
	//nolint:gosec // path is built from the configured directory
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, "", fmt.Errorf("create backup file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	hasher := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(f, hasher))
	version, err = m.db.Backup(gz, 0)
	if err != nil {
		return 0, "", fmt.Errorf("badger backup: %w", err)
	}
	if err = gz.Close(); err != nil {
		return 0, "", fmt.Errorf("finish gzip stream: %w", err)
	}
	if err = f.Sync(); err != nil {
		return 0, "", fmt.Errorf("sync backup file: %w", err)
	}
	if err = f.Close(); err != nil {
		return 0, "", fmt.Errorf("close backup file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return 0, "", fmt.Errorf("finalize backup file: %w", err)
	}
	return version, hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify recomputes the archive checksum.
func (m *Manager) Verify(id string) error {
	m.mu.Lock()
	b, err := m.lookupLocked(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.verify(b)
}

func (m *Manager) lookupLocked(id string) (Backup, error) {
	i := m.indexLocked(id)
	if i < 0 {
		return Backup{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.metadata.Backups[i], nil
}

func (m *Manager) verify(b Backup) error {
	f, err := os.Open(filepath.Join(m.dir, b.File))
	if err != nil {
		return fmt.Errorf("open backup %s: %w", b.ID, err)
	}
	defer func() { _ = f.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("read backup %s: %w", b.ID, err)
	}
	if got := hex.EncodeToString(hasher.Sum(nil)); got != b.Checksum {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, b.ID)
	}
	return nil
}

// Restore verifies an archive and loads it into the open store. Keys
// already present are overwritten, so restore into a fresh store.
func (m *Manager) Restore(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.lookupLocked(id)
	if err != nil {
		return err
	}
	if err := m.verify(b); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(m.dir, b.File))
	if err != nil {
		return fmt.Errorf("open backup %s: %w", b.ID, err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read gzip header: %w", err)
	}
	defer func() { _ = gz.Close() }()

	if err := m.db.Load(gz, maxPendingWrites); err != nil {
		return fmt.Errorf("badger load: %w", err)
	}
	logging.Info().Str("backup_id", b.ID).Msg("Badger backup restored")
	return nil
}
