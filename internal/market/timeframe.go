// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package market

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Timeframe is a ranking window.
type Timeframe string

// Supported timeframes.
const (
	Timeframe24h Timeframe = "24h"
	Timeframe48h Timeframe = "48h"
	Timeframe7d  Timeframe = "7d"
)

// ErrInvalidTimeframe is returned by ParseTimeframe for unknown input.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

var timeframeAliases = map[string]Timeframe{
	"24h": Timeframe24h, "24": Timeframe24h, "1d": Timeframe24h, "day": Timeframe24h,
	"48h": Timeframe48h, "48": Timeframe48h, "2d": Timeframe48h,
	"7d": Timeframe7d, "1w": Timeframe7d, "week": Timeframe7d, "168h": Timeframe7d,
}

// ParseTimeframe normalizes s and its aliases to a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if tf, ok := timeframeAliases[s]; ok {
		return tf, nil
	}
	return "", fmt.Errorf("%w: %q (want 24h, 48h or 7d)", ErrInvalidTimeframe, s)
}

// Hours returns the window length in hours.
func (tf Timeframe) Hours() int {
	switch tf {
	case Timeframe24h:
		return 24
	case Timeframe7d:
		return 168
	default:
		return 48
	}
}

// Duration returns the window as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Hours()) * time.Hour
}

// TrendsRange returns the trend-signal API's time range string.
func (tf Timeframe) TrendsRange() string {
	switch tf {
	case Timeframe24h:
		return "now 1-d"
	case Timeframe7d:
		return "now 7-d"
	default:
		return "now 2-d"
	}
}

// Since returns the start of the window ending at now.
func (tf Timeframe) Since(now time.Time) time.Time {
	return now.Add(-tf.Duration())
}

func (tf Timeframe) String() string { return string(tf) }
