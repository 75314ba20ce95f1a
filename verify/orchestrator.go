// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package verify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/articles"
	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/search"
)

// Orchestrator runs verifications. It holds no per-run state and is safe
// for concurrent use.
type Orchestrator struct {
	judge            ai.Judge
	embedder         ai.Embedder
	config           *Config
	pool             *ants.Pool
	monitor          Monitor
	retrievalMonitor search.RetrievalMonitor
	// base is the untagged logger handed to collaborators.
	base             *slog.Logger
	logger           *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(o *Orchestrator) error {
		if config == nil {
			config = DefaultConfig()
		}
		cfg := *config
		o.config = &cfg
		return nil
	}
}

// WithEmbedder embeds article sub-items before retrieval.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *Orchestrator) error {
		o.embedder = embedder
		return nil
	}
}

// WithMonitor observes claims, duplicates and missing units.
func WithMonitor(monitor Monitor) Option {
	return func(o *Orchestrator) error {
		if monitor == nil {
			monitor = noopMonitor{}
		}
		o.monitor = monitor
		return nil
	}
}

// WithRetrievalMonitor observes every hybrid search of a run.
func WithRetrievalMonitor(monitor search.RetrievalMonitor) Option {
	return func(o *Orchestrator) error {
		o.retrievalMonitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator that asks judge for every verdict.
func NewOrchestrator(judge ai.Judge, opts ...Option) (*Orchestrator, error) {
	if judge == nil {
		return nil, ErrJudgeRequired
	}
	o := &Orchestrator{
		judge:   judge,
		config:  DefaultConfig(),
		monitor: noopMonitor{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if o.config.Workers < 1 {
		o.config.Workers = 1
	}

	pool, err := ants.NewPool(o.config.Workers)
	if err != nil {
		return nil, err
	}
	o.pool = pool
	o.base = o.logger
	o.logger = o.logger.With("component", "verifier")
	return o, nil
}

// Release releases the worker pool. The orchestrator must not be used afterwards.
func (o *Orchestrator) Release() {
	o.pool.Release()
}

// Config returns a copy of the active configuration.
func (o *Orchestrator) Config() Config {
	return *o.config
}

// unit is one thing being verified: an article or a single clause record.
type unit struct {
	record core.ClauseRecord
	// article is set under article granularity.
	article *clause.Article
}

func (u unit) id() string {
	return u.record.ID
}

func (u unit) title() string {
	if u.record.Title != "" {
		return u.record.Title
	}
	return u.record.ID
}

// run bundles what one verification needs. It is discarded afterwards.
type run struct {
	*Orchestrator
	standard      *clause.Store
	standardUnits []unit
	userUnits     []unit
	retriever     *search.Retriever
	matcher       *articles.Matcher
	userRetriever *search.Retriever
	userIndex     map[string]int
}

// Run verifies user against standard. Only configuration problems and
// cancellation are returned as errors. Failed judge calls and retrieval
// degradation show up in the result instead.
func (o *Orchestrator) Run(ctx context.Context, standard, user *clause.Store) (*core.VerificationResult, error) {
	if standard == nil || user == nil {
		return nil, ErrStoreRequired
	}
	started := time.Now()

	r, err := o.prepare(standard, user)
	if err != nil {
		return nil, err
	}
	if r.matcher != nil {
		defer r.matcher.Release()
	}

	o.logger.Info("verification started",
		"granularity", o.config.Granularity,
		"standardUnits", len(r.standardUnits),
		"userUnits", len(r.userUnits))
	o.monitor.Start(len(r.standardUnits), len(r.userUnits))

	// Reverse pass: score in parallel, claim in order.
	outcomes, err := r.scoreUserUnits(ctx)
	if err != nil {
		return nil, err
	}
	rev := r.reduce(outcomes)

	// Forward pass over everything left unclaimed.
	missing := make([]unit, 0)
	for _, su := range r.standardUnits {
		if !rev.claimed[su.id()] {
			missing = append(missing, su)
		}
	}
	analyses, err := r.analyzeMissing(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, a := range analyses {
		o.monitor.Missing(a.StandardClause.ID, a.IsTrulyMissing)
	}

	result := &core.VerificationResult{
		RunID:                uuid.NewString(),
		TotalStandardUnits:   len(r.standardUnits),
		MatchedUnits:         len(rev.claimed),
		MissingClauses:       analyses,
		MatchResults:         rev.matches,
		DuplicateMatches:     rev.duplicates,
		UnmatchedUserClauses: rev.unmatched,
		TotalUserUnits:       len(r.userUnits),
		MatchedUserUnits:     len(rev.matchedUsers),
		CreatedAt:            time.Now().UTC(),
	}

	elapsed := time.Since(started)
	o.monitor.Finish(result, elapsed)
	o.logger.Info("verification finished",
		"runID", result.RunID,
		"matched", result.MatchedUnits,
		"missing", len(result.MissingClauses),
		"duplicates", len(result.DuplicateMatches),
		"completionRate", result.CompletionRate(),
		"elapsed", elapsed)
	return result, nil
}

func (o *Orchestrator) prepare(standard, user *clause.Store) (*run, error) {
	cfg := o.config
	opts := []search.Option{
		search.WithWeights(cfg.DenseWeight, cfg.SparseWeight),
		search.WithFieldWeights(cfg.TextWeight, cfg.TitleWeight),
		search.WithMonitor(o.retrievalMonitor),
		search.WithLogger(o.base),
	}
	retriever, err := search.NewStoreRetriever(standard, opts...)
	if err != nil {
		return nil, err
	}

	r := &run{
		Orchestrator:  o,
		standard:      standard,
		retriever:     retriever,
		standardUnits: unitsOf(standard, cfg.Granularity),
		userUnits:     unitsOf(user, cfg.Granularity),
	}
	r.userIndex = make(map[string]int, len(r.userUnits))
	for i, u := range r.userUnits {
		r.userIndex[u.id()] = i
	}

	if cfg.Granularity == GranularityArticle {
		matcherOpts := []articles.Option{
			articles.WithPoolSize(cfg.Workers),
			articles.WithLogger(o.base),
		}
		if o.embedder != nil {
			matcherOpts = append(matcherOpts, articles.WithEmbedder(o.embedder))
		}
		r.matcher, err = articles.NewMatcher(retriever, standard, matcherOpts...)
		if err != nil {
			return nil, err
		}
	}

	// The forward pass ranks user units by embedding alone. A standard unit
	// without an embedding degrades to keyword search.
	if user.Len() > 0 {
		r.userRetriever, err = search.NewStoreRetriever(user,
			search.WithWeights(1.0, 0.0),
			search.WithFieldWeights(cfg.TextWeight, cfg.TitleWeight),
			search.WithMonitor(o.retrievalMonitor),
			search.WithLogger(o.base),
		)
		if err != nil {
			if r.matcher != nil {
				r.matcher.Release()
			}
			return nil, err
		}
	}
	return r, nil
}

func unitsOf(store *clause.Store, g Granularity) []unit {
	if g == GranularityClause {
		records := store.Records()
		units := make([]unit, len(records))
		for i, rec := range records {
			units[i] = unit{record: rec}
		}
		return units
	}
	arts := store.Articles()
	units := make([]unit, len(arts))
	for i, a := range arts {
		units[i] = unit{record: a.AsRecord(), article: a}
	}
	return units
}

// standardUnit resolves a retrieval hit to the standard unit it belongs to.
func (r *run) standardUnit(id string) (core.ClauseRecord, bool) {
	if r.config.Granularity == GranularityArticle {
		a, ok := r.standard.Article(id)
		if !ok {
			return core.ClauseRecord{}, false
		}
		return a.AsRecord(), true
	}
	return r.standard.Get(id)
}

// parallel runs fn(i) for i in [0,n) on the pool and waits for all of them.
// A canceled context wins over any other error.
func (r *run) parallel(ctx context.Context, n int, fn func(i int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = fn(i)
		}
		if err := r.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
