// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

//go:build integration

package relevance

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/momentum/internal/testinfra"
)

func TestPostgresRecorder_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg.Container)

	rec, err := OpenPostgresRecorder(ctx, pg.DSN)
	if err != nil {
		t.Fatalf("OpenPostgresRecorder: %v", err)
	}
	defer rec.Close()

	now := time.Now().UTC()
	for _, cost := range []float64{0.25, 0.5, 0} {
		err := rec.Record(ctx, UsageRecord{
			RequestID:    uuid.New(),
			Model:        "gemini-1.5-flash",
			InputTokens:  1000,
			OutputTokens: 500,
			CostDollars:  cost,
			Market:       "DE",
			Query:        "bundesliga",
			ItemCount:    20,
			Latency:      800 * time.Millisecond,
			CacheHit:     CacheHitNone,
			CreatedAt:    now,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	spent, err := rec.MonthlySpend(ctx, now)
	if err != nil {
		t.Fatalf("MonthlySpend: %v", err)
	}
	if spent != 0.75 {
		t.Errorf("MonthlySpend = %v, want 0.75", spent)
	}

	usage := []UsageRecord{
		{Market: "US", CostDollars: 1.5, ItemCount: 40, CacheHit: CacheHitPartial, CreatedAt: now},
		{Market: "DE", CostDollars: 0.1, ItemCount: 10, CacheHit: CacheHitFull, CreatedAt: now.AddDate(0, 0, -2)},
		{Market: "JP", CostDollars: 9, ItemCount: 5, CacheHit: CacheHitNone, CreatedAt: now.AddDate(0, 0, -45)},
	}
	for _, u := range usage {
		u.RequestID = uuid.New()
		u.Model = "gemini-1.5-flash"
		u.InputTokens, u.OutputTokens = 100, 50
		u.Latency = 200 * time.Millisecond
		if err := rec.Record(ctx, u); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	report, err := rec.Usage(ctx, 365, now)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if report.Days != MaxUsageDays {
		t.Errorf("Days = %d, want clamped to %d", report.Days, MaxUsageDays)
	}
	// The 45-day-old JP record falls outside the window.
	if report.Totals.Requests != 5 || math.Abs(report.Totals.CostDollars-2.35) > 1e-9 {
		t.Errorf("Totals = %+v, want 5 requests costing 2.35", report.Totals)
	}
	if len(report.Daily) != 2 || report.Daily[1].Day != now.Format(time.DateOnly) || report.Daily[1].Requests != 4 {
		t.Errorf("Daily = %+v", report.Daily)
	}
	if len(report.Markets) != 2 || report.Markets[0].Market != "US" || report.Markets[1].Market != "DE" {
		t.Fatalf("Markets = %+v, want US then DE", report.Markets)
	}
	if de := report.Markets[1]; de.Requests != 4 || de.Videos != 70 {
		t.Errorf("DE usage = %+v, want 4 requests over 70 videos", de)
	}
	wantHits := map[string]int64{CacheHitNone: 3, CacheHitFull: 1, CacheHitPartial: 1}
	if len(report.CacheHits) != len(wantHits) {
		t.Fatalf("CacheHits = %+v", report.CacheHits)
	}
	for _, h := range report.CacheHits {
		if h.Requests != wantHits[h.CacheHit] {
			t.Errorf("cache_hit %q requests = %d, want %d", h.CacheHit, h.Requests, wantHits[h.CacheHit])
		}
	}

	today, err := rec.Usage(ctx, 1, now)
	if err != nil {
		t.Fatalf("Usage(1): %v", err)
	}
	if today.Totals.Requests != 4 || len(today.Daily) != 1 {
		t.Errorf("1-day report = %+v", today.Totals)
	}

	// The table already exists on a second open.
	if _, err := NewPostgresRecorder(ctx, rec.db); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}
