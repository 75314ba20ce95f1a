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

// Package clausematch wires clause verification end to end: an AI provider,
// store embedding with an optional cache, the verification orchestrator,
// result persistence and metrics.
package clausematch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/ai/openai"
	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/config"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/embed"
	"github.com/poiesic/clausematch/metrics"
	"github.com/poiesic/clausematch/search"
	"github.com/poiesic/clausematch/storage"
	"github.com/poiesic/clausematch/storage/badger"
	"github.com/poiesic/clausematch/verify"
)

// ErrNoStorage is returned by result operations on an engine opened without
// storage.
var ErrNoStorage = errors.New("result storage is not configured")

type Engine struct {
	config       *config.Config
	backend      *badger.Backend
	results      storage.ResultRepository
	provider     ai.AIProvider
	embedder     *embed.StoreEmbedder
	orchestrator *verify.Orchestrator
	collector    *metrics.Collector
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider  ai.AIProvider
	collector *metrics.Collector
	progress  io.Writer
	logger    *slog.Logger
}

// WithProvider uses provider instead of an OpenAI-compatible provider built
// from the AI configuration. The engine closes it on Close.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithMetrics records verification and retrieval metrics in collector.
func WithMetrics(collector *metrics.Collector) EngineOption {
	return func(o *engineOptions) {
		o.collector = collector
	}
}

// WithProgress reports embedding progress to w.
func WithProgress(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine creates an engine from cfg. A nil cfg uses config.Default().
// Storage is opened when cfg.Storage is persistent.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	e := &Engine{
		config:    cfg,
		collector: options.collector,
		logger:    options.logger.With("component", "engine"),
	}

	// Open storage
	var cache storage.EmbeddingCache
	if cfg.Storage.Persistent() {
		backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
		if err != nil {
			return nil, err
		}
		e.backend = backend
		e.results = badger.NewResultRepository(backend)
		if cfg.Embedding.Cache {
			cache = badger.NewEmbeddingCache(backend)
		}
	}

	// Create AI provider with configured settings
	e.provider = options.provider
	if e.provider == nil {
		provider, err := openai.NewProvider(&cfg.AI)
		if err != nil {
			e.closeBackend()
			return nil, err
		}
		e.provider = provider
	}

	embedOpts := []embed.Option{
		embed.WithBatchSize(cfg.Embedding.BatchSize),
		embed.WithRetry(cfg.Embedding.MaxAttempts, cfg.Embedding.RetryDelay),
		embed.WithConcurrency(cfg.Embedding.Concurrency),
		embed.WithLogger(options.logger),
	}
	if cache != nil {
		embedOpts = append(embedOpts, embed.WithCache(cache, cfg.AI.EmbeddingModel))
	}
	if options.progress != nil {
		embedOpts = append(embedOpts, embed.WithProgress(options.progress))
	}
	embedder, err := embed.NewStoreEmbedder(e.provider.Embedder(), embedOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.embedder = embedder

	verifyOpts := []verify.Option{
		verify.WithConfig(&cfg.Verify),
		verify.WithEmbedder(e.provider.Embedder()),
		verify.WithLogger(options.logger),
	}
	if e.collector != nil {
		verifyOpts = append(verifyOpts,
			verify.WithMonitor(e.collector.Verification()),
			verify.WithRetrievalMonitor(e.collector.Retrieval()))
	}
	orchestrator, err := verify.NewOrchestrator(e.provider.Judge(), verifyOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.orchestrator = orchestrator

	return e, nil
}

// Close releases the worker pools, the provider and the storage backend.
func (e *Engine) Close() error {
	if e.orchestrator != nil {
		e.orchestrator.Release()
	}
	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := e.closeBackend(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) closeBackend() error {
	if e.backend == nil || e.backend.IsClosed() {
		return nil
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Results returns the result repository, or nil without storage.
func (e *Engine) Results() storage.ResultRepository {
	return e.results
}

// Metrics returns the metrics collector, or nil when none was configured.
func (e *Engine) Metrics() *metrics.Collector {
	return e.collector
}

// EmbedStore builds a store of the given variant and embeds every record
// that has no embedding yet.
func (e *Engine) EmbedStore(ctx context.Context, variant clause.Variant, records []core.ClauseRecord) (*clause.Store, error) {
	store, err := clause.NewStore(variant, records)
	if err != nil {
		return nil, fmt.Errorf("%s store: %w", variant, err)
	}
	return e.embedder.EmbedStore(ctx, store)
}

// Verify embeds both contracts, verifies user against standard and saves
// the result when storage is configured.
func (e *Engine) Verify(ctx context.Context, standard, user []core.ClauseRecord) (*core.VerificationResult, error) {
	standardStore, err := e.EmbedStore(ctx, clause.Standard, standard)
	if err != nil {
		return nil, err
	}
	userStore, err := e.EmbedStore(ctx, clause.User, user)
	if err != nil {
		return nil, err
	}

	result, err := e.orchestrator.Run(ctx, standardStore, userStore)
	if err != nil {
		return nil, err
	}

	if e.results != nil {
		if err := e.results.SaveResult(ctx, result); err != nil {
			return result, fmt.Errorf("failed to save result %s: %w", result.RunID, err)
		}
		e.logger.Debug("saved result", "runID", result.RunID)
	}
	return result, nil
}

// Search runs one hybrid query against records. Text queries are embedded
// first; when embedding fails the query stays keyword-only.
func (e *Engine) Search(ctx context.Context, records []core.ClauseRecord, q search.Query, topK int) ([]core.ScoredCandidate, error) {
	store, err := e.EmbedStore(ctx, clause.Standard, records)
	if err != nil {
		return nil, err
	}

	if len(q.Embedding) == 0 && strings.TrimSpace(q.Text) != "" {
		vector, err := e.provider.Embedder().EmbedText(ctx, q.Text)
		switch {
		case err == nil:
			q.Embedding = embed.NormalizeVector(vector)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			e.logger.Warn("query embedding failed, searching by keyword", "err", err)
		}
	}

	opts := []search.Option{
		search.WithWeights(e.config.Verify.DenseWeight, e.config.Verify.SparseWeight),
		search.WithFieldWeights(e.config.Verify.TextWeight, e.config.Verify.TitleWeight),
		search.WithLogger(e.logger),
	}
	if e.collector != nil {
		opts = append(opts, search.WithMonitor(e.collector.Retrieval()))
	}
	retriever, err := search.NewStoreRetriever(store, opts...)
	if err != nil {
		return nil, err
	}
	return retriever.Search(ctx, q, topK)
}

// GetResult returns a stored result.
func (e *Engine) GetResult(ctx context.Context, runID string) (*core.VerificationResult, error) {
	if e.results == nil {
		return nil, ErrNoStorage
	}
	return e.results.GetResult(ctx, runID)
}

// ListResults returns up to limit stored results, most recent first.
func (e *Engine) ListResults(ctx context.Context, limit int) ([]*core.VerificationResult, error) {
	if e.results == nil {
		return nil, ErrNoStorage
	}
	return e.results.ListResults(ctx, limit)
}
