// Momentum - Market Momentum Video Ranking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/momentum

package relevance

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/momentum/internal/cache"
	"github.com/tomtom215/momentum/internal/config"
	"github.com/tomtom215/momentum/internal/content"
	"github.com/tomtom215/momentum/internal/logging"
	"github.com/tomtom215/momentum/internal/market"
	"github.com/tomtom215/momentum/internal/metrics"
	"github.com/tomtom215/momentum/internal/tracing"
)

// BatchResult is the outcome of one ScoreBatch call.
type BatchResult struct {
	// Assessments has exactly one entry per distinct input id.
	Assessments map[string]Assessment
	CostCents   float64
	// CacheHit is true when no model call was needed.
	CacheHit       bool
	BudgetExceeded bool
	ModelCalls     int
	// Scored counts the assessments produced by the model in this call.
	Scored int
}

// Err returns ErrBudgetExceeded when any batch was refused by the budget gate.
func (r *BatchResult) Err() error {
	if r.BudgetExceeded {
		return ErrBudgetExceeded
	}
	return nil
}

// Options wires a Scorer's collaborators. Model, Store, Cache and Recorder
// are optional.
type Options struct {
	Model    Model
	Ledger   *Ledger
	Store    *Store
	Cache    *cache.Tiered
	Recorder UsageRecorder
}

// Scorer assesses market relevance for batches of videos through a
// generative model, reading through a durable store and a fingerprint
// cache first.
//
// Thread Safety: safe for concurrent use.
type Scorer struct {
	model       Model
	ledger      *Ledger
	store       *Store
	cache       *cache.Tiered
	recorder    UsageRecorder
	batchSize   int
	cacheTTL    time.Duration
	concurrency int

	flight singleflight.Group
	now    func() time.Time
}

// NewScorer creates a scorer. A nil Ledger is replaced by one built from cfg.
func NewScorer(cfg config.ScorerConfig, opts Options) *Scorer {
	s := &Scorer{
		model:       opts.Model,
		ledger:      opts.Ledger,
		store:       opts.Store,
		cache:       opts.Cache,
		recorder:    opts.Recorder,
		batchSize:   cfg.BatchSize,
		cacheTTL:    cfg.CacheTTL,
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}
	if s.ledger == nil {
		s.ledger = NewLedger(cfg)
	}
	if s.recorder == nil {
		s.recorder = LogRecorder{}
	}
	if s.batchSize <= 0 {
		s.batchSize = 20
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	return s
}

// Available reports whether a model is configured.
func (s *Scorer) Available() bool { return s.model != nil }

// Ledger returns the spend ledger.
func (s *Scorer) Ledger() *Ledger { return s.ledger }

// ScoreBatch assesses items for marketCode. Model failures and budget
// refusals degrade the affected items to default assessments instead of
// failing the call; only an unsupported market or a cancelled context
// returns an error. Concurrent calls for the same id set share one
// computation. The returned result is owned by the caller.
func (s *Scorer) ScoreBatch(ctx context.Context, items []content.Item, marketCode, query string) (*BatchResult, error) {
	profile, err := market.Lookup(marketCode)
	if err != nil {
		return nil, err
	}
	items = uniqueItems(items)
	if len(items) == 0 {
		return &BatchResult{Assessments: map[string]Assessment{}, CacheHit: true}, nil
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	key := cache.RelevanceKey(profile.Code, ids)

	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		return s.score(ctx, items, ids, profile, key, query)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*BatchResult)
	if shared {
		logging.Ctx(ctx).Debug().Str("key", key).Msg("Joined in-flight relevance batch")
	}
	out := *res
	out.Assessments = maps.Clone(res.Assessments)
	return &out, nil
}

func (s *Scorer) score(ctx context.Context, items []content.Item, ids []string, profile *market.Profile, key, query string) (*BatchResult, error) {
	start := s.now()
	ctx, end := tracing.StartSpan(ctx, "relevance.ScoreBatch",
		attribute.String("market", profile.Code),
		attribute.Int("items", len(items)),
	)
	var spanErr error
	defer func() { end(spanErr) }()

	res := &BatchResult{Assessments: make(map[string]Assessment, len(ids))}

	if s.store != nil {
		found, err := s.store.Get(ids, profile.Code)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Relevance store read failed")
		}
		for id, a := range found {
			res.Assessments[id] = a
		}
		metrics.ScorerItems.WithLabelValues("store").Add(float64(len(found)))
	}

	if len(res.Assessments) < len(ids) && s.cache != nil {
		var cached []Assessment
		if tier, err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			n := 0
			for _, a := range cached {
				if _, ok := res.Assessments[a.VideoID]; !ok {
					res.Assessments[a.VideoID] = a
					n++
				}
			}
			metrics.ScorerItems.WithLabelValues("cache").Add(float64(n))
			tracing.AddEvent(ctx, "fingerprint_hit", attribute.String("tier", tier))
		}
	}

	missing := make([]content.Item, 0, len(items))
	for i := range items {
		if _, ok := res.Assessments[items[i].ID]; !ok {
			missing = append(missing, items[i])
		}
	}

	if len(missing) == 0 {
		res.CacheHit = true
		s.record(ctx, UsageRecord{
			Market: profile.Code, Query: query, ItemCount: len(ids),
			Latency: s.now().Sub(start), CacheHit: CacheHitFull,
		})
		return res, nil
	}

	if s.model == nil {
		now := s.now()
		for i := range missing {
			id := missing[i].ID
			res.Assessments[id] = defaultAssessment(id, profile.Code, "", ReasonUnconfigured, now)
		}
		metrics.ScorerItems.WithLabelValues("default").Add(float64(len(missing)))
		return res, nil
	}

	usage, clean, err := s.scoreMissing(ctx, missing, profile, res)
	if err != nil {
		spanErr = err
		return nil, err
	}

	if s.store != nil && res.Scored > 0 {
		fresh := make([]Assessment, 0, len(missing))
		for i := range missing {
			fresh = append(fresh, res.Assessments[missing[i].ID])
		}
		if err := s.store.Put(fresh); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Relevance store write failed")
		}
	}
	if clean && s.cache != nil {
		all := make([]Assessment, 0, len(ids))
		for _, id := range ids {
			all = append(all, res.Assessments[id])
		}
		if err := s.cache.SetJSONWithTTL(ctx, key, all, s.cacheTTL); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Relevance fingerprint cache write failed")
		}
	}

	hit := CacheHitNone
	if len(missing) < len(ids) {
		hit = CacheHitPartial
	}
	usage.Market = profile.Code
	usage.Query = query
	usage.ItemCount = len(ids)
	usage.Latency = s.now().Sub(start)
	usage.CacheHit = hit
	s.record(ctx, usage)

	res.CostCents = usage.CostDollars * 100
	return res, nil
}

// chunkOutcome is one model batch's contribution.
type chunkOutcome struct {
	assessments map[string]Assessment
	in, out     int
	cost        float64
	err         error
}

// scoreMissing runs the model over missing in bounded-concurrency batches
// and merges the outcomes into res. clean is false when any batch failed.
func (s *Scorer) scoreMissing(ctx context.Context, missing []content.Item, profile *market.Profile, res *BatchResult) (usage UsageRecord, clean bool, err error) {
	var (
		mu       sync.Mutex
		outcomes []chunkOutcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for lo := 0; lo < len(missing); lo += s.batchSize {
		chunk := missing[lo:min(lo+s.batchSize, len(missing))]
		g.Go(func() error {
			o := s.scoreChunk(gctx, chunk, profile)
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return UsageRecord{}, false, err
	}

	usage = UsageRecord{Model: s.model.Name()}
	clean = true
	for _, o := range outcomes {
		usage.InputTokens += o.in
		usage.OutputTokens += o.out
		usage.CostDollars += o.cost
		switch {
		case errors.Is(o.err, ErrBudgetExceeded):
			res.BudgetExceeded = true
			clean = false
		case o.err != nil:
			clean = false
		default:
			res.ModelCalls++
		}
		for id, a := range o.assessments {
			res.Assessments[id] = a
			if a.Defaulted {
				metrics.ScorerItems.WithLabelValues("default").Inc()
			} else {
				res.Scored++
				metrics.ScorerItems.WithLabelValues("model").Inc()
			}
		}
	}
	return usage, clean, nil
}

func (s *Scorer) scoreChunk(ctx context.Context, chunk []content.Item, profile *market.Profile) chunkOutcome {
	start := s.now()
	ids := make([]string, len(chunk))
	for i := range chunk {
		ids[i] = chunk[i].ID
	}
	log := logging.Ctx(ctx)
	fail := func(reason string, err error) chunkOutcome {
		now := s.now()
		out := make(map[string]Assessment, len(ids))
		for _, id := range ids {
			out[id] = defaultAssessment(id, profile.Code, s.model.Name(), reason, now)
		}
		return chunkOutcome{assessments: out, err: err}
	}

	prompt := BuildPrompt(chunk, profile)
	in, err := s.model.CountTokens(ctx, prompt)
	if err != nil || in <= 0 {
		if err != nil {
			log.Debug().Err(err).Msg("Token count failed, estimating")
		}
		in = estimateTokens(prompt)
	}

	reservation, err := s.ledger.Reserve(s.ledger.Projected(in))
	if err != nil {
		log.Warn().Int("items", len(chunk)).Msg("Relevance batch refused by budget gate")
		metrics.ScorerBatchDuration.WithLabelValues("budget").Observe(s.now().Sub(start).Seconds())
		return fail(ReasonBudget, err)
	}

	gen, err := s.model.Generate(ctx, prompt)
	if err != nil {
		reservation.Release()
		log.Error().Err(err).Int("items", len(chunk)).Msg("Relevance model call failed")
		metrics.ScorerBatchDuration.WithLabelValues("error").Observe(s.now().Sub(start).Seconds())
		return fail(ReasonModelError, err)
	}

	actualIn, actualOut := gen.InputTokens, gen.OutputTokens
	if actualIn <= 0 {
		actualIn = in
	}
	if actualOut <= 0 {
		actualOut = estimateTokens(gen.Text)
	}
	cost := reservation.Commit(actualIn, actualOut)
	metrics.ScorerBatchDuration.WithLabelValues("success").Observe(s.now().Sub(start).Seconds())

	return chunkOutcome{
		assessments: ParseResponse(gen.Text, ids, profile.Code, s.model.Name(), s.now()),
		in:          actualIn,
		out:         actualOut,
		cost:        cost,
	}
}

func (s *Scorer) record(ctx context.Context, rec UsageRecord) {
	rec.RequestID = uuid.New()
	rec.CreatedAt = s.now()
	if rec.Model == "" && s.model != nil {
		rec.Model = s.model.Name()
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Usage record failed")
	}
}

// uniqueItems drops items without an id and repeats of an id.
func uniqueItems(items []content.Item) []content.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]content.Item, 0, len(items))
	for i := range items {
		id := items[i].ID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, items[i])
	}
	return out
}
