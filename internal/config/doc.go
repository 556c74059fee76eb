// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package config provides centralized configuration management for Momentum.

Configuration is layered with knadh/koanf/v2, lowest precedence first:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (CONFIG_PATH, ./config.yaml, /etc/momentum/config.yaml)
 3. Environment variables mapped through an explicit table

Only mapped environment variables are read. The most common ones:

  - GEMINI_API_KEY: relevance scorer credential
  - YOUTUBE_API_KEY: content source credential
  - LLM_MONTHLY_BUDGET: monthly scorer budget in dollars (default: 500)
  - LLM_BUDGET_POLICY: hard or advisory (default: hard)
  - LLM_BATCH_SIZE: items per scorer call (default: 20)
  - REDIS_URL / REDIS_ADDR: fast cache tier
  - BADGER_PATH: durable cache tier and relevance store
  - DATABASE_URL: optional Postgres usage log
  - HTTP_PORT: listen port (default: 8000)
  - LOG_LEVEL, LOG_FORMAT: logging

Comma-separated values are accepted for CORS_ORIGINS, SUPPORTED_MARKETS and
GUARANTEE_THRESHOLDS.

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

# Thread Safety

Config is immutable after Load() returns and is safe for concurrent reads.
*/
package config
