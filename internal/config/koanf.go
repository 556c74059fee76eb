// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/momentum/config.yaml",
	"/etc/momentum/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. File and env layers override them.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second, // a cold ranking request can take a minute
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ServiceName:  "momentum",
			Environment:  "development",
			SamplingRate: 0.1,
		},
		Redis: RedisConfig{
			Enabled: true,
			Addr:    "localhost:6379",
		},
		Badger: BadgerConfig{
			Path: "/data/momentum/badger",
		},
		Cache: CacheConfig{
			FastTTL:     4 * time.Hour,
			MemoryTTL:   time.Hour,
			DurableTTL:  24 * time.Hour,
			MemorySize:  1000,
			ResponseTTL: time.Hour,
			DegradedTTL: 5 * time.Minute,
			TermsTTL:    2 * time.Hour,
			FeedTTL:     time.Hour,
		},
		Signal: SignalConfig{
			BaseURL:           "https://trends.google.com",
			Timeout:           30 * time.Second,
			FailureThreshold:  5,
			Cooldown:          60 * time.Second,
			MaxRetries:        5,
			BaseDelay:         3 * time.Second,
			MaxDelay:          30 * time.Second,
			PoolSize:          3,
			RequestsPerMinute: 20,
			FetchBudget:       45 * time.Second,
		},
		Scorer: ScorerConfig{
			BaseURL:         "https://generativelanguage.googleapis.com",
			Model:           "gemini-1.5-flash",
			BatchSize:       20,
			MonthlyBudget:   500,
			BudgetPolicy:    BudgetPolicyHard,
			PricePerMillion: 0.20,
			Temperature:     0.1,
			MaxOutputTokens: 8192,
			CacheTTL:        6 * time.Hour,
			StoreTTL:        24 * time.Hour,
			Timeout:         30 * time.Second,
			Concurrency:     2,
		},
		YouTube: YouTubeConfig{
			BaseURL:           "https://www.googleapis.com/youtube/v3",
			Timeout:           20 * time.Second,
			RequestsPerSecond: 10,
		},
		Collection: CollectionConfig{
			TargetSize:       100,
			MaxUnique:        150,
			DetailsBatch:     50,
			EnhancedCap:      7,
			CategoryCap:      3,
			GenericCap:       2,
			EnhancedResults:  25,
			CategoryResults:  15,
			TrendingResults:  50,
			FallbackTrending: 100,
			Concurrency:      4,
			PipelineTimeout:  2 * time.Minute,
		},
		Ranking: RankingConfig{
			VelocityWeight:   0.6,
			EngagementWeight: 0.3,
			DecayWeight:      0.1,
			DecayHours:       24,
			RelevanceFloor:   0.5,
			RelevanceSpread:  1.5,
			TrendingBoost:    1.5,
			NormalizeScale:   10000,
		},
		Guarantee: GuaranteeConfig{
			Thresholds: []float64{0.4, 0.25, 0.15, 0.1, 0.05, 0.0},
		},
		Maintenance: MaintenanceConfig{
			Enabled:          true,
			GCSchedule:       "@every 10m",
			SnapshotSchedule: "@every 1m",
		},
		Backup: BackupConfig{
			Enabled:          false,
			Dir:              "./data/backups",
			Schedule:         "@daily",
			MinCount:         3,
			MaxCount:         14,
			MaxAgeDays:       30,
			KeepDailyForDays: 7,
		},
		Markets: []string{"DE", "US", "FR", "JP"},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: explicit mapping table, highest priority
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"guarantee.thresholds",
	"markets",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// normalize upper-cases market codes so env input like "de,us" works.
func (c *Config) normalize() {
	for i, m := range c.Markets {
		c.Markets[i] = strings.ToUpper(strings.TrimSpace(m))
	}
	c.Scorer.BudgetPolicy = strings.ToLower(strings.TrimSpace(c.Scorer.BudgetPolicy))
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so unrelated environment does not leak in.
//
// Examples:
//   - GEMINI_API_KEY -> scorer.api_key
//   - LLM_MONTHLY_BUDGET -> scorer.monthly_budget
//   - YOUTUBE_API_KEY -> youtube.api_key
//   - REDIS_URL -> redis.url
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":             "server.host",
		"http_port":             "server.port",
		"http_read_timeout":     "server.read_timeout",
		"http_write_timeout":    "server.write_timeout",
		"http_shutdown_timeout": "server.shutdown_timeout",
		"rate_limit_requests":   "server.rate_limit_reqs",
		"rate_limit_window":     "server.rate_limit_window",
		"cors_origins":          "server.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Tracing
		"tracing_enabled":       "tracing.enabled",
		"tracing_service_name":  "tracing.service_name",
		"tracing_environment":   "tracing.environment",
		"otel_endpoint":         "tracing.endpoint",
		"tracing_sampling_rate": "tracing.sampling_rate",
		"tracing_insecure":      "tracing.insecure",

		// Redis
		"redis_enabled":  "redis.enabled",
		"redis_url":      "redis.url",
		"redis_addr":     "redis.addr",
		"redis_password": "redis.password",
		"redis_db":       "redis.db",
		"redis_required": "redis.required",

		// Badger
		"badger_path":      "badger.path",
		"badger_in_memory": "badger.in_memory",

		// Postgres usage log
		"database_url": "database.postgres_dsn",

		// Cache TTLs
		"cache_fast_ttl":     "cache.fast_ttl",
		"cache_memory_ttl":   "cache.memory_ttl",
		"cache_durable_ttl":  "cache.durable_ttl",
		"cache_memory_size":  "cache.memory_size",
		"cache_response_ttl": "cache.response_ttl",
		"cache_degraded_ttl": "cache.degraded_ttl",
		"cache_terms_ttl":    "cache.terms_ttl",
		"cache_feed_ttl":     "cache.feed_ttl",

		// Signal client
		"trends_base_url":            "signal.base_url",
		"trends_timeout":             "signal.timeout",
		"trends_failure_threshold":   "signal.failure_threshold",
		"trends_cooldown":            "signal.cooldown",
		"trends_max_retries":         "signal.max_retries",
		"trends_base_delay":          "signal.base_delay",
		"trends_max_delay":           "signal.max_delay",
		"trends_pool_size":           "signal.pool_size",
		"trends_requests_per_minute": "signal.requests_per_minute",
		"trends_fetch_budget":        "signal.fetch_budget",

		// Relevance scorer
		"gemini_api_key":        "scorer.api_key",
		"gemini_base_url":       "scorer.base_url",
		"llm_model":             "scorer.model",
		"llm_batch_size":        "scorer.batch_size",
		"llm_monthly_budget":    "scorer.monthly_budget",
		"llm_budget_policy":     "scorer.budget_policy",
		"llm_price_per_million": "scorer.price_per_million",
		"llm_temperature":       "scorer.temperature",
		"llm_max_output_tokens": "scorer.max_output_tokens",
		"llm_cache_ttl":         "scorer.cache_ttl",
		"llm_store_ttl":         "scorer.store_ttl",
		"llm_timeout":           "scorer.timeout",
		"llm_concurrency":       "scorer.concurrency",

		// Content source
		"youtube_api_key":             "youtube.api_key",
		"youtube_base_url":            "youtube.base_url",
		"youtube_timeout":             "youtube.timeout",
		"youtube_requests_per_second": "youtube.requests_per_second",

		// Collection
		"collection_target_size":       "collection.target_size",
		"collection_max_unique":        "collection.max_unique",
		"collection_details_batch":     "collection.details_batch",
		"collection_trending_results":  "collection.trending_results",
		"collection_fallback_trending": "collection.fallback_trending",
		"collection_concurrency":       "collection.concurrency",
		"collection_pipeline_timeout":  "collection.pipeline_timeout",

		// Ranking weights
		"ranking_velocity_weight":   "ranking.velocity_weight",
		"ranking_engagement_weight": "ranking.engagement_weight",
		"ranking_decay_weight":      "ranking.decay_weight",
		"ranking_decay_hours":       "ranking.decay_hours",
		"ranking_relevance_floor":   "ranking.relevance_floor",
		"ranking_relevance_spread":  "ranking.relevance_spread",
		"ranking_trending_boost":    "ranking.trending_boost",
		"ranking_normalize_scale":   "ranking.normalize_scale",

		// Guarantee
		"guarantee_thresholds": "guarantee.thresholds",

		// Maintenance
		"maintenance_enabled":           "maintenance.enabled",
		"maintenance_gc_schedule":       "maintenance.gc_schedule",
		"maintenance_snapshot_schedule": "maintenance.snapshot_schedule",

		// Backup
		"backup_enabled":             "backup.enabled",
		"backup_dir":                 "backup.dir",
		"backup_schedule":            "backup.schedule",
		"backup_min_count":           "backup.min_count",
		"backup_max_count":           "backup.max_count",
		"backup_max_age_days":        "backup.max_age_days",
		"backup_keep_daily_for_days": "backup.keep_daily_for_days",

		"supported_markets": "markets",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
