// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver

	"github.com/tomtom215/momentum/internal/logging"
)

// Cache-hit values of UsageRecord.CacheHit.
const (
	CacheHitFull    = "true"
	CacheHitNone    = "false"
	CacheHitPartial = "partial"
)

// UsageRecord is one scorer invocation, written after every ScoreBatch.
type UsageRecord struct {
	RequestID    uuid.UUID
	Model        string
	InputTokens  int
	OutputTokens int
	CostDollars  float64
	Market       string
	Query        string
	ItemCount    int
	Latency      time.Duration
	CacheHit     string
	CreatedAt    time.Time
}

// UsageRecorder persists usage records.
type UsageRecorder interface {
	Record(ctx context.Context, rec UsageRecord) error
}

// LogRecorder writes usage records to the structured log.
type LogRecorder struct{}

// Record implements UsageRecorder.
func (LogRecorder) Record(ctx context.Context, rec UsageRecord) error {
	logging.Ctx(ctx).Info().
		Str("usage_id", rec.RequestID.String()).
		Str("model", rec.Model).
		Int("input_tokens", rec.InputTokens).
		Int("output_tokens", rec.OutputTokens).
		Float64("cost_dollars", rec.CostDollars).
		Str("query", rec.Query).
		Int("items", rec.ItemCount).
		Dur("latency", rec.Latency).
		Str("cache_hit", rec.CacheHit).
		Msg("Scorer usage")
	return nil
}

// MultiRecorder fans a record out to every recorder. All recorders run;
// their errors are joined.
type MultiRecorder []UsageRecorder

// Record implements UsageRecorder.
func (m MultiRecorder) Record(ctx context.Context, rec UsageRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const usageTable = "llm_usage_log"

const createUsageTable = `CREATE TABLE IF NOT EXISTS llm_usage_log (
	id SERIAL PRIMARY KEY,
	request_id UUID NOT NULL,
	model_name VARCHAR(100) NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	cost_dollars NUMERIC(10,6) NOT NULL,
	country_code VARCHAR(2),
	query TEXT,
	video_count INTEGER,
	processing_time_ms INTEGER,
	cache_hit VARCHAR(10),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresRecorder appends usage records to the llm_usage_log table.
type PostgresRecorder struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// OpenPostgresRecorder connects to dsn and ensures the table exists.
func OpenPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	r, err := NewPostgresRecorder(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRecorder uses an existing handle and ensures the table exists.
func NewPostgresRecorder(ctx context.Context, db *sql.DB) (*PostgresRecorder, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping usage database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createUsageTable); err != nil {
		return nil, fmt.Errorf("create %s: %w", usageTable, err)
	}
	return &PostgresRecorder{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// Record implements UsageRecorder.
func (p *PostgresRecorder) Record(ctx context.Context, rec UsageRecord) error {
	query, args, err := p.sb.Insert(usageTable).
		Columns("request_id", "model_name", "input_tokens", "output_tokens", "total_tokens",
			"cost_dollars", "country_code", "query", "video_count", "processing_time_ms",
			"cache_hit", "created_at").
		Values(rec.RequestID.String(), rec.Model, rec.InputTokens, rec.OutputTokens,
			rec.InputTokens+rec.OutputTokens, rec.CostDollars, rec.Market, rec.Query,
			rec.ItemCount, rec.Latency.Milliseconds(), rec.CacheHit, rec.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build usage insert: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// MonthlySpend sums the cost recorded since the start of the month of now.
func (p *PostgresRecorder) MonthlySpend(ctx context.Context, now time.Time) (float64, error) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	query, args, err := p.sb.Select("COALESCE(SUM(cost_dollars), 0)").
		From(usageTable).
		Where(sq.GtOrEq{"created_at": start}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build spend query: %w", err)
	}
	var total float64
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("query monthly spend: %w", err)
	}
	return total, nil
}

// Close closes the database handle.
func (p *PostgresRecorder) Close() error {
	return p.db.Close()
}
