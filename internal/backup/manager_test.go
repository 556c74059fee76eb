// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/momentum/internal/config"
)

func openMemDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestManager(t *testing.T, dir string, db *badger.DB, cfg config.BackupConfig) *Manager {
	t.Helper()
	cfg.Dir = dir
	m, err := NewManager(cfg, db)
	if err != nil {
		t.Fatalf("NewManager() = %v", err)
	}
	return m
}

func put(t *testing.T, db *badger.DB, key, val string) {
	t.Helper()
	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(val))
	}); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
}

func get(t *testing.T, db *badger.DB, key string) string {
	t.Helper()
	var out string
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		out = string(v)
		return err
	})
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return out
}

func TestNewManager_RequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(config.BackupConfig{}, nil); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestManager_CreateAndRestore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := openMemDB(t)
	put(t, src, "ledger:snapshot", `{"month":"2026-10"}`)
	put(t, src, "cache:terms:DE", `["aktien"]`)

	m := newTestManager(t, dir, src, config.BackupConfig{})
	b, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if b.Size == 0 || b.Checksum == "" {
		t.Errorf("backup = %+v", b)
	}
	if _, err := os.Stat(filepath.Join(dir, b.File)); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if err := m.Verify(b.ID); err != nil {
		t.Errorf("Verify() = %v", err)
	}

	dst := openMemDB(t)
	restorer := newTestManager(t, dir, dst, config.BackupConfig{})
	if got := restorer.List(); len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("List() after reopen = %+v", got)
	}
	if err := restorer.Restore(context.Background(), b.ID); err != nil {
		t.Fatalf("Restore() = %v", err)
	}
	if got := get(t, dst, "cache:terms:DE"); got != `["aktien"]` {
		t.Errorf("restored value = %q", got)
	}
}

func TestManager_SameSecondIDs(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, t.TempDir(), openMemDB(t), config.BackupConfig{})
	fixed := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	first, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	second, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if first.ID == second.ID || first.File == second.File {
		t.Errorf("duplicate IDs %q and %q", first.ID, second.ID)
	}
}

func TestManager_VerifyAndRestoreErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newTestManager(t, dir, openMemDB(t), config.BackupConfig{})
	b, err := m.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, b.File), []byte("corrupt"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"unknown id", "nope", ErrNotFound},
		{"tampered archive", b.ID, ErrChecksumMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.Verify(tt.id); !errors.Is(err, tt.want) {
				t.Errorf("Verify() = %v, want %v", err, tt.want)
			}
			if err := m.Restore(context.Background(), tt.id); !errors.Is(err, tt.want) {
				t.Errorf("Restore() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestManager_Prune(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newTestManager(t, dir, openMemDB(t), config.BackupConfig{MinCount: 1, MaxCount: 2})

	clock := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	var created []Backup
	for range 4 {
		clock = clock.Add(time.Hour)
		m.now = func() time.Time { return clock }
		b, err := m.Create(context.Background())
		if err != nil {
			t.Fatalf("Create() = %v", err)
		}
		created = append(created, b)
	}

	deleted, err := m.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	list := m.List()
	if len(list) != 2 || list[0].ID != created[3].ID || list[1].ID != created[2].ID {
		t.Errorf("List() = %+v", list)
	}
	for _, b := range created[:2] {
		if _, err := os.Stat(filepath.Join(dir, b.File)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("archive %s still on disk: %v", b.ID, err)
		}
	}

	if deleted, err := m.Prune(context.Background()); err != nil || deleted != 0 {
		t.Errorf("second Prune() = %d, %v", deleted, err)
	}
}
