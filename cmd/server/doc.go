// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

/*
Package main is the entry point for the Momentum ranking server.

Momentum answers "what is trending for this query in this market right
now": it collects candidate videos, scores their market relevance with a
generative model under a monthly budget, blends in a trend signal and
ranks by view velocity, engagement and freshness.

# Application Architecture

	RootSupervisor ("momentum")
	├── DataSupervisor ("data-layer")
	│   └── MaintenanceService (badger GC, ledger snapshots, backups)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment
 2. Logging: zerolog, JSON or console
 3. Tracing: OpenTelemetry OTLP/HTTP exporter (optional)
 4. Storage: Badger, then the Redis, memory and Badger cache tiers
 5. Signal client, content source (breaker and feed cache), relevance scorer
 6. Collection orchestrator and ranking service
 7. HTTP API and supervisor tree

# Configuration

Common environment variables:

	HTTP_PORT=8080
	YOUTUBE_API_KEY=...
	GEMINI_API_KEY=...          # unset: default relevance for every video
	LLM_MONTHLY_BUDGET=50
	REDIS_ENABLED=true
	REDIS_URL=redis://localhost:6379/0
	BADGER_PATH=/data/badger
	DATABASE_URL=postgres://... # optional usage log
	SUPPORTED_MARKETS=DE,US,FR,JP
	BACKUP_ENABLED=true         # daily badger archives with retention
	BACKUP_DIR=/data/backups

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests for up to HTTP_SHUTDOWN_TIMEOUT before the budget
ledger is persisted and Badger closed.
*/
package main
