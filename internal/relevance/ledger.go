// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/metrics"
)

// ErrBudgetExceeded is returned when a batch would push the month's spend
// past the ceiling under the hard policy.
var ErrBudgetExceeded = errors.New("relevance: monthly budget exceeded")

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// Ledger tracks scorer spend per UTC day and month.
//
// Spend is reserved before a model call and settled after it, so
// concurrent batches cannot jointly overshoot the ceiling.
//
// Thread Safety: all methods are safe for concurrent use.
type Ledger struct {
	mu              sync.Mutex
	budget          float64
	policy          string
	pricePerMillion float64
	batchSize       int

	month       string
	day         string
	monthSpent  float64
	daySpent    float64
	monthTokens int64
	reserved    float64

	now func() time.Time
}

// NewLedger creates an empty ledger from cfg.
func NewLedger(cfg config.ScorerConfig) *Ledger {
	policy := cfg.BudgetPolicy
	if policy == "" {
		policy = config.BudgetPolicyHard
	}
	l := &Ledger{
		budget:          cfg.MonthlyBudget,
		policy:          policy,
		pricePerMillion: cfg.PricePerMillion,
		batchSize:       cfg.BatchSize,
		now:             time.Now,
	}
	l.rollover(l.now())
	return l
}

// Cost returns the dollar cost of a call.
func (l *Ledger) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens+outputTokens) * l.pricePerMillion / 1_000_000
}

// Projected returns the expected cost of a call with inputTokens, assuming
// the answer is half as long as the prompt.
func (l *Ledger) Projected(inputTokens int) float64 {
	return l.Cost(inputTokens, inputTokens/2)
}

// rollover must be called with mu held.
func (l *Ledger) rollover(now time.Time) {
	now = now.UTC()
	if m := now.Format(monthLayout); m != l.month {
		l.month = m
		l.monthSpent = 0
		l.monthTokens = 0
	}
	if d := now.Format(dayLayout); d != l.day {
		l.day = d
		l.daySpent = 0
	}
}

// Reserve holds projected dollars against the budget. Under the hard
// policy it fails with ErrBudgetExceeded when spent plus outstanding
// reservations plus projected would exceed the ceiling. Under the advisory
// policy the overshoot is logged and the reservation granted.
func (l *Ledger) Reserve(projected float64) (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(l.now())

	if total := l.monthSpent + l.reserved + projected; total > l.budget {
		metrics.ScorerBudgetRefusals.WithLabelValues(l.policy).Inc()
		if l.policy != config.BudgetPolicyAdvisory {
			return nil, ErrBudgetExceeded
		}
		logging.Warn().
			Float64("projected", projected).
			Float64("month_spent", l.monthSpent).
			Float64("budget", l.budget).
			Msg("Scorer budget exceeded, continuing under advisory policy")
	}
	l.reserved += projected
	return &Reservation{ledger: l, amount: projected}, nil
}

// Reservation is an outstanding hold on the budget. Exactly one of Commit
// or Release takes effect; later calls are no-ops.
type Reservation struct {
	ledger *Ledger
	amount float64
	once   sync.Once
}

// Commit settles the hold with the actual usage and returns its cost.
func (r *Reservation) Commit(inputTokens, outputTokens int) float64 {
	var cost float64
	r.once.Do(func() {
		cost = r.ledger.settle(r.amount, inputTokens, outputTokens)
	})
	return cost
}

// Release drops the hold without spending.
func (r *Reservation) Release() {
	r.once.Do(func() {
		l := r.ledger
		l.mu.Lock()
		l.reserved -= r.amount
		if l.reserved < 0 {
			l.reserved = 0
		}
		l.mu.Unlock()
	})
}

func (l *Ledger) settle(held float64, in, out int) float64 {
	cost := l.Cost(in, out)

	l.mu.Lock()
	l.rollover(l.now())
	l.reserved -= held
	if l.reserved < 0 {
		l.reserved = 0
	}
	l.monthSpent += cost
	l.daySpent += cost
	l.monthTokens += int64(in + out)
	month, day, budget := l.monthSpent, l.daySpent, l.budget
	l.mu.Unlock()

	metrics.RecordScorerUsage(in, out, cost)
	metrics.UpdateBudgetUsage(month, day, budget)
	return cost
}

// LedgerSnapshot is the ledger's state as served by the budget endpoint
// and persisted between restarts.
type LedgerSnapshot struct {
	Month           string  `json:"month"`
	Day             string  `json:"day"`
	DailyCost       float64 `json:"daily_cost"`
	MonthlyCost     float64 `json:"monthly_cost"`
	MonthlyBudget   float64 `json:"monthly_budget"`
	Remaining       float64 `json:"budget_remaining"`
	UsedPercent     float64 `json:"budget_used_percentage"`
	Tokens          int64   `json:"estimated_tokens_processed"`
	PricePerMillion float64 `json:"cost_per_million_tokens"`
	BatchSize       int     `json:"batch_size"`
	Policy          string  `json:"budget_policy"`
}

// Snapshot returns the current state.
func (l *Ledger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(l.now())

	s := LedgerSnapshot{
		Month:           l.month,
		Day:             l.day,
		DailyCost:       l.daySpent,
		MonthlyCost:     l.monthSpent,
		MonthlyBudget:   l.budget,
		Remaining:       l.budget - l.monthSpent,
		Tokens:          l.monthTokens,
		PricePerMillion: l.pricePerMillion,
		BatchSize:       l.batchSize,
		Policy:          l.policy,
	}
	if l.budget > 0 {
		s.UsedPercent = l.monthSpent / l.budget * 100
	}
	return s
}

// Restore loads persisted spend. Periods that have already rolled over
// are ignored.
func (l *Ledger) Restore(s LedgerSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(l.now())

	if s.Month != l.month {
		return
	}
	l.monthSpent = s.MonthlyCost
	l.monthTokens = s.Tokens
	if s.Day == l.day {
		l.daySpent = s.DailyCost
	}
	metrics.UpdateBudgetUsage(l.monthSpent, l.daySpent, l.budget)
}
