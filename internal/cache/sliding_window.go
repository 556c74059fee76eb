// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package cache

import (
	"sync"
	"time"
)

// OutcomeWindow tracks success and failure counts over a sliding time
// window. Time is split into buckets; a bucket is cleared when the window
// moves past it.
//
// Complexity:
//   - Record: O(1) amortized
//   - Rate: O(k) where k = number of buckets
//   - Memory: O(k)
type OutcomeWindow struct {
	mu         sync.Mutex
	successes  []int64
	totals     []int64
	bucketSize time.Duration
	current    int
	lastUpdate time.Time
	now        func() time.Time
}

// NewOutcomeWindow creates a window of windowSize split into numBuckets.
//
// NewOutcomeWindow(10*time.Minute, 10) keeps one-minute buckets.
func NewOutcomeWindow(windowSize time.Duration, numBuckets int) *OutcomeWindow {
	return newOutcomeWindow(windowSize, numBuckets, time.Now)
}

func newOutcomeWindow(windowSize time.Duration, numBuckets int, now func() time.Time) *OutcomeWindow {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	if windowSize <= 0 {
		windowSize = 10 * time.Minute
	}
	return &OutcomeWindow{
		successes:  make([]int64, numBuckets),
		totals:     make([]int64, numBuckets),
		bucketSize: windowSize / time.Duration(numBuckets),
		lastUpdate: now(),
		now:        now,
	}
}

// Record adds one outcome to the current bucket.
func (w *OutcomeWindow) Record(success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.advance()
	w.totals[w.current]++
	if success {
		w.successes[w.current]++
	}
}

// Rate returns the success ratio in the window. An empty window reports 1,
// so a fresh client starts at full speed.
func (w *OutcomeWindow) Rate() float64 {
	ok, total := w.Counts()
	if total == 0 {
		return 1
	}
	return float64(ok) / float64(total)
}

// Counts returns successes and total outcomes within the window.
func (w *OutcomeWindow) Counts() (successes, total int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.advance()
	for i := range w.totals {
		successes += w.successes[i]
		total += w.totals[i]
	}
	return successes, total
}

// Reset clears all buckets.
func (w *OutcomeWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.totals {
		w.totals[i] = 0
		w.successes[i] = 0
	}
	w.current = 0
	w.lastUpdate = w.now()
}

// advance moves the window forward. Must be called with mu held.
func (w *OutcomeWindow) advance() {
	now := w.now()
	elapsed := int(now.Sub(w.lastUpdate) / w.bucketSize)
	if elapsed <= 0 {
		return
	}

	n := len(w.totals)
	if elapsed >= n {
		for i := range w.totals {
			w.totals[i] = 0
			w.successes[i] = 0
		}
		w.current = 0
	} else {
		for i := 0; i < elapsed; i++ {
			w.current = (w.current + 1) % n
			w.totals[w.current] = 0
			w.successes[w.current] = 0
		}
	}
	// Keep bucket boundaries aligned instead of drifting with each call.
	w.lastUpdate = w.lastUpdate.Add(time.Duration(elapsed) * w.bucketSize)
}
