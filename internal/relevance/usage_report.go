// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Bounds of the usage report window, in days.
const (
	DefaultUsageDays = 7
	MinUsageDays     = 1
	MaxUsageDays     = 30
)

// ClampUsageDays maps days into [MinUsageDays, MaxUsageDays]; zero selects
// DefaultUsageDays.
func ClampUsageDays(days int) int {
	if days == 0 {
		return DefaultUsageDays
	}
	return min(max(days, MinUsageDays), MaxUsageDays)
}

// UsageReport aggregates the usage log over the trailing Days calendar days
// (UTC), today included.
type UsageReport struct {
	Days      int             `json:"days"`
	Since     time.Time       `json:"since"`
	Totals    UsageTotals     `json:"totals"`
	Daily     []DailyUsage    `json:"daily"`
	Markets   []MarketUsage   `json:"markets"`
	CacheHits []CacheHitUsage `json:"cache_hits"`
}

// UsageTotals sums the whole window.
type UsageTotals struct {
	Requests     int64   `json:"requests"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostDollars  float64 `json:"cost_dollars"`
}

// DailyUsage is one UTC day of the window. Days without usage are omitted.
type DailyUsage struct {
	Day          string  `json:"day"`
	Requests     int64   `json:"requests"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostDollars  float64 `json:"cost_dollars"`
}

// MarketUsage is the spend of one market, most expensive first.
type MarketUsage struct {
	Market       string  `json:"country"`
	Requests     int64   `json:"requests"`
	Videos       int64   `json:"videos"`
	CostDollars  float64 `json:"cost_dollars"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// CacheHitUsage splits the window by the CacheHit value of each record.
type CacheHitUsage struct {
	CacheHit    string  `json:"cache_hit"`
	Requests    int64   `json:"requests"`
	CostDollars float64 `json:"cost_dollars"`
}

// usageWindowStart returns midnight UTC of the first day of a days-long
// window ending on now's day.
func usageWindowStart(now time.Time, days int) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1))
}

// Usage builds the report for the trailing days (clamped) ending at now.
func (p *PostgresRecorder) Usage(ctx context.Context, days int, now time.Time) (*UsageReport, error) {
	days = ClampUsageDays(days)
	since := usageWindowStart(now, days)
	inWindow := sq.GtOrEq{"created_at": since}

	report := &UsageReport{
		Days:      days,
		Since:     since,
		Daily:     []DailyUsage{},
		Markets:   []MarketUsage{},
		CacheHits: []CacheHitUsage{},
	}

	daily := p.sb.Select(
		"to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS usage_day",
		"COUNT(*)",
		"COALESCE(SUM(input_tokens), 0)",
		"COALESCE(SUM(output_tokens), 0)",
		"COALESCE(SUM(cost_dollars), 0)",
	).From(usageTable).Where(inWindow).GroupBy("usage_day").OrderBy("usage_day")
	err := p.scan(ctx, daily, func(rows rowScanner) error {
		var d DailyUsage
		if err := rows.Scan(&d.Day, &d.Requests, &d.InputTokens, &d.OutputTokens, &d.CostDollars); err != nil {
			return err
		}
		report.Daily = append(report.Daily, d)
		report.Totals.Requests += d.Requests
		report.Totals.InputTokens += d.InputTokens
		report.Totals.OutputTokens += d.OutputTokens
		report.Totals.CostDollars += d.CostDollars
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}

	markets := p.sb.Select(
		"COALESCE(country_code, '') AS market_code",
		"COUNT(*)",
		"COALESCE(SUM(video_count), 0)",
		"COALESCE(SUM(cost_dollars), 0) AS cost",
		"COALESCE(AVG(processing_time_ms), 0)",
	).From(usageTable).Where(inWindow).GroupBy("market_code").OrderBy("cost DESC", "market_code")
	err = p.scan(ctx, markets, func(rows rowScanner) error {
		var m MarketUsage
		if err := rows.Scan(&m.Market, &m.Requests, &m.Videos, &m.CostDollars, &m.AvgLatencyMs); err != nil {
			return err
		}
		report.Markets = append(report.Markets, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("market usage: %w", err)
	}

	hits := p.sb.Select(
		"COALESCE(cache_hit, '') AS hit_value",
		"COUNT(*)",
		"COALESCE(SUM(cost_dollars), 0)",
	).From(usageTable).Where(inWindow).GroupBy("hit_value").OrderBy("hit_value")
	err = p.scan(ctx, hits, func(rows rowScanner) error {
		var c CacheHitUsage
		if err := rows.Scan(&c.CacheHit, &c.Requests, &c.CostDollars); err != nil {
			return err
		}
		report.CacheHits = append(report.CacheHits, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache-hit usage: %w", err)
	}

	return report, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (p *PostgresRecorder) scan(ctx context.Context, b sq.SelectBuilder, each func(rowScanner) error) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
