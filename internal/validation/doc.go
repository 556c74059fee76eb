// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator caches struct metadata and carries the
// custom tags used by ranking requests (market, timeframe, notblank).
// Failures translate to the VALIDATION_ERROR envelope used by the HTTP layer.
//
//	type RankRequest struct {
//	    Query     string `json:"query" validate:"required,notblank,max=200"`
//	    Market    string `json:"market" validate:"required,market"`
//	    Timeframe string `json:"timeframe" validate:"required,timeframe"`
//	    Limit     int    `json:"limit" validate:"min=1,max=50"`
//	}
package validation
