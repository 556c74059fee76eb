// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables (in that order of precedence, lowest first).
//
// Configuration Categories:
//
//  1. Pipeline:
//     - Signal: trend-signal client resilience (breaker, retries, pacing)
//     - Scorer: generative relevance scorer and its monthly budget
//     - YouTube: content source credentials and quota pacing
//     - Collection, Ranking, Guarantee: ranking pipeline tuning
//     - Markets: supported two-letter market codes
//
//  2. Storage:
//     - Redis: fast distributed cache tier
//     - Badger: durable cache tier and relevance store
//     - Cache: per-tier TTLs
//     - Database: optional Postgres usage log
//
//  3. Process:
//     - Server, Logging, Tracing, Maintenance
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Redis       RedisConfig       `koanf:"redis"`
	Badger      BadgerConfig      `koanf:"badger"`
	Database    DatabaseConfig    `koanf:"database"`
	Cache       CacheConfig       `koanf:"cache"`
	Signal      SignalConfig      `koanf:"signal"`
	Scorer      ScorerConfig      `koanf:"scorer"`
	YouTube     YouTubeConfig     `koanf:"youtube"`
	Collection  CollectionConfig  `koanf:"collection"`
	Ranking     RankingConfig     `koanf:"ranking"`
	Guarantee   GuaranteeConfig   `koanf:"guarantee"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`
	Backup      BackupConfig      `koanf:"backup"`
	Markets     []string          `koanf:"markets"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ServiceName  string  `koanf:"service_name"`
	Environment  string  `koanf:"environment"`
	Endpoint     string  `koanf:"endpoint"`
	SamplingRate float64 `koanf:"sampling_rate"`
	Insecure     bool    `koanf:"insecure"`
}

// RedisConfig holds the fast cache tier connection settings.
// URL, when set, takes precedence over Addr/Password/DB.
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	// Required makes an unreachable Redis at startup fatal instead of
	// running with the in-process and durable tiers only.
	Required bool `koanf:"required"`
}

// BadgerConfig holds the durable tier settings.
type BadgerConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// DatabaseConfig holds the optional Postgres usage-log connection.
type DatabaseConfig struct {
	PostgresDSN string `koanf:"postgres_dsn"`
}

// CacheConfig holds per-tier TTLs.
type CacheConfig struct {
	FastTTL     time.Duration `koanf:"fast_ttl"`
	MemoryTTL   time.Duration `koanf:"memory_ttl"`
	DurableTTL  time.Duration `koanf:"durable_ttl"`
	MemorySize  int           `koanf:"memory_size"`
	ResponseTTL time.Duration `koanf:"response_ttl"`
	DegradedTTL time.Duration `koanf:"degraded_ttl"`
	TermsTTL    time.Duration `koanf:"terms_ttl"`
	FeedTTL     time.Duration `koanf:"feed_ttl"`
}

// SignalConfig configures the trend-signal client.
type SignalConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	FailureThreshold  uint32        `koanf:"failure_threshold"`
	Cooldown          time.Duration `koanf:"cooldown"`
	MaxRetries        int           `koanf:"max_retries"`
	BaseDelay         time.Duration `koanf:"base_delay"`
	MaxDelay          time.Duration `koanf:"max_delay"`
	PoolSize          int           `koanf:"pool_size"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	// FetchBudget bounds one FetchSignal call including every retry and
	// pacing delay. It must stay below the collection pipeline timeout.
	FetchBudget time.Duration `koanf:"fetch_budget"`
}

// ScorerConfig configures the generative relevance scorer.
type ScorerConfig struct {
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url"`
	Model           string        `koanf:"model"`
	BatchSize       int           `koanf:"batch_size"`
	MonthlyBudget   float64       `koanf:"monthly_budget"`
	BudgetPolicy    string        `koanf:"budget_policy"`
	PricePerMillion float64       `koanf:"price_per_million"`
	Temperature     float64       `koanf:"temperature"`
	MaxOutputTokens int           `koanf:"max_output_tokens"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	StoreTTL        time.Duration `koanf:"store_ttl"`
	Timeout         time.Duration `koanf:"timeout"`
	Concurrency     int           `koanf:"concurrency"`
}

// Budget policies accepted by ScorerConfig.BudgetPolicy.
const (
	BudgetPolicyHard     = "hard"
	BudgetPolicyAdvisory = "advisory"
)

// YouTubeConfig configures the content source.
type YouTubeConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// CollectionConfig tunes the collection orchestrator.
type CollectionConfig struct {
	TargetSize       int `koanf:"target_size"`
	MaxUnique        int `koanf:"max_unique"`
	DetailsBatch     int `koanf:"details_batch"`
	EnhancedCap      int `koanf:"enhanced_cap"`
	CategoryCap      int `koanf:"category_cap"`
	GenericCap       int `koanf:"generic_cap"`
	EnhancedResults  int `koanf:"enhanced_results"`
	CategoryResults  int `koanf:"category_results"`
	TrendingResults  int `koanf:"trending_results"`
	FallbackTrending int `koanf:"fallback_trending"`
	Concurrency      int `koanf:"concurrency"`
	// PipelineTimeout bounds one ranking run from collection to guarantee.
	PipelineTimeout time.Duration `koanf:"pipeline_timeout"`
}

// RankingConfig holds the composite score weights.
type RankingConfig struct {
	VelocityWeight   float64 `koanf:"velocity_weight"`
	EngagementWeight float64 `koanf:"engagement_weight"`
	DecayWeight      float64 `koanf:"decay_weight"`
	DecayHours       float64 `koanf:"decay_hours"`
	RelevanceFloor   float64 `koanf:"relevance_floor"`
	RelevanceSpread  float64 `koanf:"relevance_spread"`
	TrendingBoost    float64 `koanf:"trending_boost"`
	NormalizeScale   float64 `koanf:"normalize_scale"`
}

// GuaranteeConfig holds the descending relevance thresholds.
type GuaranteeConfig struct {
	Thresholds []float64 `koanf:"thresholds"`
}

// MaintenanceConfig holds cron schedules for background upkeep.
type MaintenanceConfig struct {
	Enabled          bool   `koanf:"enabled"`
	GCSchedule       string `koanf:"gc_schedule"`
	SnapshotSchedule string `koanf:"snapshot_schedule"`
}

// BackupConfig controls scheduled badger archives and their retention.
// Backups run inside the maintenance scheduler.
type BackupConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Dir              string `koanf:"dir"`
	Schedule         string `koanf:"schedule"`
	MinCount         int    `koanf:"min_count"`
	MaxCount         int    `koanf:"max_count"`
	MaxAgeDays       int    `koanf:"max_age_days"`
	KeepDailyForDays int    `koanf:"keep_daily_for_days"`
}

// Load loads configuration using Koanf (defaults, file, env).
func Load() (*Config, error) {
	return LoadWithKoanf()
}
