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

package embed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/storage"
)

const (
	// DefaultBatchSize is the number of clauses sent per embedding call.
	DefaultBatchSize = 32
	// DefaultMaxAttempts is the number of tries per batch.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the backoff before the second attempt.
	DefaultRetryDelay = 500 * time.Millisecond
	// DefaultConcurrency is the number of batches in flight.
	DefaultConcurrency = 4
)

// StoreEmbedder fills in clause embeddings for a store.
type StoreEmbedder struct {
	embedder    ai.Embedder
	cache       storage.EmbeddingCache
	model       string
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	concurrency int
	overwrite   bool
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a StoreEmbedder.
type Option func(*StoreEmbedder) error

// WithCache persists vectors in cache under keys derived from model and text.
func WithCache(cache storage.EmbeddingCache, model string) Option {
	return func(e *StoreEmbedder) error {
		e.cache = cache
		e.model = model
		return nil
	}
}

// WithBatchSize sets the number of clauses per embedding call.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(e *StoreEmbedder) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		e.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts per batch and the initial backoff.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(e *StoreEmbedder) error {
		if maxAttempts <= 0 {
			return fmt.Errorf("%w: %w", core.ErrConfiguration, ErrInvalidMaxAttempts)
		}
		e.maxAttempts = maxAttempts
		e.retryDelay = baseDelay
		return nil
	}
}

// WithConcurrency sets the number of batches embedded at once.
// Default is DefaultConcurrency, with a minimum of 1.
func WithConcurrency(n int) Option {
	return func(e *StoreEmbedder) error {
		e.concurrency = max(n, 1)
		return nil
	}
}

// WithOverwrite re-embeds records that already carry an embedding.
func WithOverwrite(overwrite bool) Option {
	return func(e *StoreEmbedder) error {
		e.overwrite = overwrite
		return nil
	}
}

// WithProgress reports progress to w. Default is no reporting.
func WithProgress(w io.Writer) Option {
	return func(e *StoreEmbedder) error {
		e.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *StoreEmbedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewStoreEmbedder creates a StoreEmbedder backed by embedder.
func NewStoreEmbedder(embedder ai.Embedder, opts ...Option) (*StoreEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	e := &StoreEmbedder{
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "embedder")
	return e, nil
}

// CacheKey is the content address of text embedded by model.
func CacheKey(model, text string) core.ID {
	return core.IDFromContent(model + "\x00" + text)
}

type pending struct {
	id   string
	text string
	key  core.ID
}

// EmbedStore returns a new store whose records carry embeddings of their
// query text. The input store is not modified. Records of a batch that
// fails every attempt keep their current embedding (possibly none).
func (e *StoreEmbedder) EmbedStore(ctx context.Context, store *clause.Store) (*clause.Store, error) {
	var todo []pending
	for _, r := range store.Records() {
		if r.HasEmbedding() && !e.overwrite {
			continue
		}
		text := r.QueryText()
		todo = append(todo, pending{id: r.ID, text: text, key: CacheKey(e.model, text)})
	}
	if len(todo) == 0 {
		return store, nil
	}

	vectors := make(map[string][]float32, len(todo))
	todo, err := e.fromCache(ctx, todo, vectors)
	if err != nil {
		return nil, err
	}

	if len(todo) > 0 {
		fresh, err := e.embedAll(ctx, todo)
		if err != nil {
			return nil, err
		}
		e.toCache(ctx, todo, fresh)
		for i, p := range todo {
			if fresh[i] != nil {
				vectors[p.id] = fresh[i]
			}
		}
	}

	e.logger.Info("embedded store", "variant", store.Variant(), "records", store.Len(), "embedded", len(vectors))
	return store.WithEmbeddings(vectors)
}

// fromCache moves cached vectors into vectors and returns what is left.
func (e *StoreEmbedder) fromCache(ctx context.Context, todo []pending, vectors map[string][]float32) ([]pending, error) {
	if e.cache == nil {
		return todo, nil
	}
	keys := make([]core.ID, len(todo))
	for i, p := range todo {
		keys[i] = p.key
	}
	cached, err := e.cache.GetEmbeddings(ctx, keys...)
	if err != nil {
		// A broken cache only costs recomputation.
		e.logger.Warn("embedding cache read failed", "err", err)
		return todo, nil
	}

	remaining := todo[:0:0]
	for _, p := range todo {
		if v, ok := cached[p.key]; ok {
			vectors[p.id] = v
			continue
		}
		remaining = append(remaining, p)
	}
	e.logger.Debug("embedding cache lookup", "hits", len(todo)-len(remaining), "misses", len(remaining))
	return remaining, nil
}

func (e *StoreEmbedder) toCache(ctx context.Context, todo []pending, fresh [][]float32) {
	if e.cache == nil {
		return
	}
	entries := make(map[core.ID][]float32, len(todo))
	for i, p := range todo {
		if fresh[i] != nil {
			entries[p.key] = fresh[i]
		}
	}
	if err := e.cache.PutEmbeddings(ctx, e.model, entries); err != nil {
		e.logger.Warn("embedding cache write failed", "err", err)
	}
}

// embedAll embeds todo in batches and returns vectors aligned with todo.
// Entries of failed batches are nil.
func (e *StoreEmbedder) embedAll(ctx context.Context, todo []pending) ([][]float32, error) {
	pool, err := ants.NewPool(e.concurrency)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var tracker *ProgressTracker
	if e.progress != nil {
		tracker = NewProgressTracker(e.progress, len(todo), e.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	out := make([][]float32, len(todo))
	var wg sync.WaitGroup
	for start := 0; start < len(todo); start += e.batchSize {
		end := min(start+e.batchSize, len(todo))
		wg.Add(1)
		task := func() {
			defer wg.Done()
			e.embedBatch(ctx, todo[start:end], out[start:end])
			if tracker != nil {
				tracker.Increment(end - start)
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *StoreEmbedder) embedBatch(ctx context.Context, batch []pending, out [][]float32) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.text
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, e.logger, func() error {
		var err error
		vectors, err = e.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(texts), len(vectors))
		}
		return nil
	}, e.maxAttempts, e.retryDelay)
	if err != nil {
		e.logger.Warn("embedding batch failed, clauses left without vectors",
			"first", batch[0].id, "size", len(batch), "err", err)
		return
	}

	for i, v := range vectors {
		if len(v) > 0 {
			out[i] = NormalizeVector(v)
		}
	}
}
