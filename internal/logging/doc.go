// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

// Package logging provides the zerolog-based structured logging used across Momentum.
//
// A single global logger is configured once from main via Init and read through
// the level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("market", "DE").Msg("Ranking request")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Signal unavailable")
//
// Ctx attaches the request_id and market stored in the context, so every line
// written while serving a ranking request can be correlated. NewSlogLogger
// bridges the same stream into libraries that speak log/slog, such as the
// supervisor's sutureslog event hook.
//
// Always terminate event chains with Msg or Send; an unterminated chain is
// never written.
package logging
