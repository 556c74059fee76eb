// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks that configuration is present and internally consistent.
// API keys are not required here: a missing key surfaces as a degraded
// component at request time instead of preventing startup.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateTracing,
		c.validateRedis,
		c.validateBadger,
		c.validateCache,
		c.validateSignal,
		c.validateScorer,
		c.validateYouTube,
		c.validateCollection,
		c.validateRanking,
		c.validateGuarantee,
		c.validateMaintenance,
		c.validateBackup,
		c.validateMarkets,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP read and write timeouts must be positive")
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be non-negative, got %d", c.Server.RateLimitReqs)
	}
	if c.Server.RateLimitReqs > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
		"error": true, "fatal": true, "panic": true, "disabled": true, "off": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic or disabled, got: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateTracing() error {
	if !c.Tracing.Enabled {
		return nil
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("TRACING_SAMPLING_RATE must be between 0 and 1, got %v", c.Tracing.SamplingRate)
	}
	if c.Tracing.ServiceName == "" {
		return fmt.Errorf("TRACING_SERVICE_NAME is required when TRACING_ENABLED=true")
	}
	return nil
}

func (c *Config) validateRedis() error {
	if !c.Redis.Enabled {
		if c.Redis.Required {
			return fmt.Errorf("REDIS_REQUIRED=true conflicts with REDIS_ENABLED=false")
		}
		return nil
	}
	if c.Redis.URL != "" {
		return validateRedisURL(c.Redis.URL)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR or REDIS_URL is required when REDIS_ENABLED=true")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("REDIS_DB must be non-negative, got %d", c.Redis.DB)
	}
	return nil
}

func (c *Config) validateBadger() error {
	if !c.Badger.InMemory && c.Badger.Path == "" {
		return fmt.Errorf("BADGER_PATH is required unless BADGER_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateCache() error {
	ttls := map[string]int64{
		"CACHE_FAST_TTL":     int64(c.Cache.FastTTL),
		"CACHE_MEMORY_TTL":   int64(c.Cache.MemoryTTL),
		"CACHE_DURABLE_TTL":  int64(c.Cache.DurableTTL),
		"CACHE_RESPONSE_TTL": int64(c.Cache.ResponseTTL),
		"CACHE_DEGRADED_TTL": int64(c.Cache.DegradedTTL),
		"CACHE_TERMS_TTL":    int64(c.Cache.TermsTTL),
		"CACHE_FEED_TTL":     int64(c.Cache.FeedTTL),
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Cache.DegradedTTL > c.Cache.ResponseTTL {
		return fmt.Errorf("CACHE_DEGRADED_TTL (%v) must not exceed CACHE_RESPONSE_TTL (%v)", c.Cache.DegradedTTL, c.Cache.ResponseTTL)
	}
	if c.Cache.MemorySize < 1 {
		return fmt.Errorf("CACHE_MEMORY_SIZE must be at least 1, got %d", c.Cache.MemorySize)
	}
	return nil
}

func (c *Config) validateSignal() error {
	if err := validateHTTPURL(c.Signal.BaseURL, "TRENDS_BASE_URL"); err != nil {
		return err
	}
	if c.Signal.FailureThreshold < 1 {
		return fmt.Errorf("TRENDS_FAILURE_THRESHOLD must be at least 1")
	}
	if c.Signal.Cooldown <= 0 {
		return fmt.Errorf("TRENDS_COOLDOWN must be positive")
	}
	if c.Signal.MaxRetries < 1 {
		return fmt.Errorf("TRENDS_MAX_RETRIES must be at least 1, got %d", c.Signal.MaxRetries)
	}
	if c.Signal.BaseDelay < 0 || c.Signal.MaxDelay < c.Signal.BaseDelay {
		return fmt.Errorf("TRENDS_MAX_DELAY (%v) must be >= TRENDS_BASE_DELAY (%v) >= 0", c.Signal.MaxDelay, c.Signal.BaseDelay)
	}
	if c.Signal.PoolSize < 1 {
		return fmt.Errorf("TRENDS_POOL_SIZE must be at least 1, got %d", c.Signal.PoolSize)
	}
	if c.Signal.RequestsPerMinute < 1 {
		return fmt.Errorf("TRENDS_REQUESTS_PER_MINUTE must be at least 1, got %d", c.Signal.RequestsPerMinute)
	}
	if c.Signal.FetchBudget <= 0 {
		return fmt.Errorf("TRENDS_FETCH_BUDGET must be positive")
	}
	if c.Collection.PipelineTimeout > 0 && c.Signal.FetchBudget >= c.Collection.PipelineTimeout {
		return fmt.Errorf("TRENDS_FETCH_BUDGET (%v) must be below COLLECTION_PIPELINE_TIMEOUT (%v)", c.Signal.FetchBudget, c.Collection.PipelineTimeout)
	}
	return nil
}

func (c *Config) validateScorer() error {
	if err := validateHTTPURL(c.Scorer.BaseURL, "GEMINI_BASE_URL"); err != nil {
		return err
	}
	if c.Scorer.Model == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	if c.Scorer.BatchSize < 1 {
		return fmt.Errorf("LLM_BATCH_SIZE must be at least 1, got %d", c.Scorer.BatchSize)
	}
	if c.Scorer.MonthlyBudget < 0 {
		return fmt.Errorf("LLM_MONTHLY_BUDGET must be non-negative, got %v", c.Scorer.MonthlyBudget)
	}
	if c.Scorer.BudgetPolicy != BudgetPolicyHard && c.Scorer.BudgetPolicy != BudgetPolicyAdvisory {
		return fmt.Errorf("LLM_BUDGET_POLICY must be %q or %q, got: %s", BudgetPolicyHard, BudgetPolicyAdvisory, c.Scorer.BudgetPolicy)
	}
	if c.Scorer.PricePerMillion < 0 {
		return fmt.Errorf("LLM_PRICE_PER_MILLION must be non-negative")
	}
	if c.Scorer.Temperature < 0 || c.Scorer.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.Scorer.Temperature)
	}
	if c.Scorer.MaxOutputTokens < 1 {
		return fmt.Errorf("LLM_MAX_OUTPUT_TOKENS must be at least 1")
	}
	if c.Scorer.Concurrency < 1 {
		return fmt.Errorf("LLM_CONCURRENCY must be at least 1, got %d", c.Scorer.Concurrency)
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if err := validateHTTPURL(c.YouTube.BaseURL, "YOUTUBE_BASE_URL"); err != nil {
		return err
	}
	if c.YouTube.RequestsPerSecond <= 0 {
		return fmt.Errorf("YOUTUBE_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

func (c *Config) validateCollection() error {
	cc := c.Collection
	if cc.TargetSize < 1 || cc.MaxUnique < cc.TargetSize {
		return fmt.Errorf("COLLECTION_MAX_UNIQUE (%d) must be >= COLLECTION_TARGET_SIZE (%d) >= 1", cc.MaxUnique, cc.TargetSize)
	}
	if cc.DetailsBatch < 1 || cc.DetailsBatch > 50 {
		return fmt.Errorf("COLLECTION_DETAILS_BATCH must be between 1 and 50, got %d", cc.DetailsBatch)
	}
	if cc.EnhancedCap < 0 || cc.CategoryCap < 0 || cc.GenericCap < 0 {
		return fmt.Errorf("collection tier caps must be non-negative")
	}
	if cc.Concurrency < 1 {
		return fmt.Errorf("COLLECTION_CONCURRENCY must be at least 1, got %d", cc.Concurrency)
	}
	return nil
}

func (c *Config) validateRanking() error {
	r := c.Ranking
	if r.VelocityWeight < 0 || r.EngagementWeight < 0 || r.DecayWeight < 0 {
		return fmt.Errorf("ranking weights must be non-negative")
	}
	if r.DecayHours <= 0 {
		return fmt.Errorf("RANKING_DECAY_HOURS must be positive")
	}
	if r.NormalizeScale <= 0 {
		return fmt.Errorf("RANKING_NORMALIZE_SCALE must be positive")
	}
	if r.TrendingBoost < 1 {
		return fmt.Errorf("RANKING_TRENDING_BOOST must be >= 1, got %v", r.TrendingBoost)
	}
	return nil
}

// validateGuarantee requires a strictly descending ladder ending at 0.
func (c *Config) validateGuarantee() error {
	th := c.Guarantee.Thresholds
	if len(th) == 0 {
		return fmt.Errorf("GUARANTEE_THRESHOLDS must not be empty")
	}
	for i, v := range th {
		if v < 0 || v > 1 {
			return fmt.Errorf("GUARANTEE_THRESHOLDS values must be in [0,1], got %v", v)
		}
		if i > 0 && v >= th[i-1] {
			return fmt.Errorf("GUARANTEE_THRESHOLDS must be strictly descending, got %v after %v", v, th[i-1])
		}
	}
	if th[len(th)-1] != 0 {
		return fmt.Errorf("GUARANTEE_THRESHOLDS must end with 0")
	}
	return nil
}

func (c *Config) validateMaintenance() error {
	if !c.Maintenance.Enabled {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"MAINTENANCE_GC_SCHEDULE":       c.Maintenance.GCSchedule,
		"MAINTENANCE_SNAPSHOT_SCHEDULE": c.Maintenance.SnapshotSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s is invalid: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}
	if c.Badger.InMemory {
		return fmt.Errorf("BACKUP_ENABLED requires a persistent badger store (BADGER_IN_MEMORY=false)")
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when backups are enabled")
	}
	if c.Backup.MinCount < 0 || c.Backup.MaxCount < 0 || c.Backup.MaxAgeDays < 0 || c.Backup.KeepDailyForDays < 0 {
		return fmt.Errorf("backup retention values must not be negative")
	}
	if c.Backup.MaxCount > 0 && c.Backup.MinCount > c.Backup.MaxCount {
		return fmt.Errorf("BACKUP_MIN_COUNT (%d) must not exceed BACKUP_MAX_COUNT (%d)", c.Backup.MinCount, c.Backup.MaxCount)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Backup.Schedule); err != nil {
		return fmt.Errorf("BACKUP_SCHEDULE is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateMarkets() error {
	if len(c.Markets) == 0 {
		return fmt.Errorf("SUPPORTED_MARKETS must not be empty")
	}
	for _, m := range c.Markets {
		if len(m) != 2 {
			return fmt.Errorf("SUPPORTED_MARKETS entries must be two-letter codes, got: %q", m)
		}
	}
	return nil
}

// SupportsMarket reports whether code is in the configured market list.
func (c *Config) SupportsMarket(code string) bool {
	code = strings.ToUpper(code)
	for _, m := range c.Markets {
		if m == code {
			return true
		}
	}
	return false
}
