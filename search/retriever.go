package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
)

const (
	// DefaultDenseWeight is the dense share of the fused score.
	DefaultDenseWeight = 0.85
	// DefaultSparseWeight is the sparse share of the fused score.
	DefaultSparseWeight = 0.15
	// DefaultTextWeight is the text share of the field-weighted sparse score.
	DefaultTextWeight = 0.7
	// DefaultTitleWeight is the title share of the field-weighted sparse score.
	DefaultTitleWeight = 0.3

	defaultCandidatePool = 50
)

// Query is a hybrid search request. Any part may be empty.
type Query struct {
	Text      string
	Title     string
	Embedding []float32
}

// Retriever fuses dense and sparse scores into one ranked candidate list.
// It only reads its indices and is safe for concurrent use.
type Retriever struct {
	sparse        *SparseIndex
	dense         *DenseIndex
	denseWeight   float64
	sparseWeight  float64
	textWeight    float64
	titleWeight   float64
	candidatePool int
	monitor       RetrievalMonitor
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithWeights sets the dense and sparse shares of the fused score.
// They must sum to 1.0.
func WithWeights(dense, sparse float64) Option {
	return func(r *Retriever) error {
		r.denseWeight = dense
		r.sparseWeight = sparse
		return nil
	}
}

// WithFieldWeights sets the text and title shares of the sparse score.
// They must sum to 1.0.
func WithFieldWeights(text, title float64) Option {
	return func(r *Retriever) error {
		r.textWeight = text
		r.titleWeight = title
		return nil
	}
}

// WithCandidatePool sets how many hits each side contributes before fusion.
// The pool never shrinks below the requested topK.
func WithCandidatePool(n int) Option {
	return func(r *Retriever) error {
		if n < 1 {
			return ErrInvalidCandidatePool
		}
		r.candidatePool = n
		return nil
	}
}

// WithMonitor observes every Search call. SearchWithMonitor overrides it
// per call.
func WithMonitor(monitor RetrievalMonitor) Option {
	return func(r *Retriever) error {
		r.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over prebuilt indices. Either index may
// be nil; a retriever with no usable index returns no candidates.
func NewRetriever(sparse *SparseIndex, dense *DenseIndex, opts ...Option) (*Retriever, error) {
	r := &Retriever{
		sparse:        sparse,
		dense:         dense,
		denseWeight:   DefaultDenseWeight,
		sparseWeight:  DefaultSparseWeight,
		textWeight:    DefaultTextWeight,
		titleWeight:   DefaultTitleWeight,
		candidatePool: defaultCandidatePool,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if err := core.ValidateWeightPair(r.denseWeight, r.sparseWeight); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeightSum, err)
	}
	if err := core.ValidateWeightPair(r.textWeight, r.titleWeight); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFieldWeightSum, err)
	}

	r.logger = r.logger.With("component", "hybrid-retriever")
	return r, nil
}

// NewStoreRetriever builds both indices over store and wraps them in a Retriever.
func NewStoreRetriever(store *clause.Store, opts ...Option) (*Retriever, error) {
	sparse, err := BuildSparseIndex(store)
	if err != nil {
		return nil, err
	}
	dense, err := BuildDenseIndex(store)
	if err != nil {
		return nil, err
	}
	return NewRetriever(sparse, dense, opts...)
}

// Search returns up to topK candidates ordered by fused score descending,
// ties broken by clause id ascending.
func (r *Retriever) Search(ctx context.Context, q Query, topK int) ([]core.ScoredCandidate, error) {
	return r.SearchWithMonitor(ctx, q, topK, r.monitor)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (r *Retriever) SearchWithMonitor(ctx context.Context, q Query, topK int, monitor RetrievalMonitor) ([]core.ScoredCandidate, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	monitor.Start(q, topK)

	if topK <= 0 {
		monitor.Finish(nil)
		return []core.ScoredCandidate{}, nil
	}
	pool := max(r.candidatePool, topK)

	// 1. Dense nearest neighbors
	denseHits, err := r.dense.Search(q.Embedding, pool)
	if err != nil {
		// Degrade to sparse-only for this query.
		r.logger.Warn("dense search unavailable for query", "err", err)
		denseHits = nil
	}
	monitor.AfterDenseSearch(denseHits)

	denseRaw := make(map[string]float64, len(denseHits))
	for _, h := range denseHits {
		denseRaw[h.ClauseID] = h.Similarity
	}

	// 2. Sparse keyword search, text and title separately
	textHits := r.sparse.Search(FieldText, q.Text, pool)
	titleHits := r.sparse.Search(FieldTitle, q.Title, pool)
	monitor.AfterSparseSearch(textHits, titleHits)

	// 3. Field-weighted sparse score
	sparseRaw := make(map[string]float64, len(textHits)+len(titleHits))
	for _, h := range textHits {
		sparseRaw[h.ClauseID] += r.textWeight * h.Score
	}
	for _, h := range titleHits {
		sparseRaw[h.ClauseID] += r.titleWeight * h.Score
	}

	if len(denseRaw) == 0 && len(sparseRaw) == 0 {
		monitor.Finish(nil)
		return []core.ScoredCandidate{}, nil
	}

	// 4. Normalize each side independently
	denseNorm := minMaxNormalize(denseRaw)
	sparseNorm := minMaxNormalize(sparseRaw)

	// 5. Adaptive weighting when one side is empty
	dw, sw := r.denseWeight, r.sparseWeight
	switch {
	case len(sparseRaw) == 0:
		dw, sw = 1.0, 0.0
	case len(denseRaw) == 0:
		dw, sw = 0.0, 1.0
	}
	if dw != r.denseWeight || sw != r.sparseWeight {
		r.logger.Debug("adaptive weighting applied", "denseWeight", dw, "sparseWeight", sw)
		monitor.AdaptiveWeighting(dw, sw)
	}

	// 6. Fuse, sort, truncate
	results := make([]core.ScoredCandidate, 0, len(denseNorm)+len(sparseNorm))
	seen := make(map[string]bool, len(denseNorm)+len(sparseNorm))
	for _, ids := range [][]string{sortedKeys(denseNorm), sortedKeys(sparseNorm)} {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			d, s := denseNorm[id], sparseNorm[id]
			results = append(results, core.ScoredCandidate{
				ClauseID:    id,
				ParentID:    r.parentOf(id),
				DenseScore:  d,
				SparseScore: s,
				FusedScore:  dw*d + sw*s,
			})
		}
	}

	slices.SortFunc(results, func(a, b core.ScoredCandidate) int {
		if a.FusedScore > b.FusedScore {
			return -1
		}
		if a.FusedScore < b.FusedScore {
			return 1
		}
		return strings.Compare(a.ClauseID, b.ClauseID)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	monitor.Finish(results)

	return results, nil
}

func (r *Retriever) parentOf(id string) string {
	if p, ok := r.sparse.parentOf(id); ok {
		return p
	}
	if p, ok := r.dense.parentOf(id); ok {
		return p
	}
	return id
}

// minMaxNormalize rescales scores into [0,1]. A set where every score ties
// normalizes to all 1.0.
func minMaxNormalize(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	first := true
	var lo, hi float64
	for _, v := range raw {
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	for id, v := range raw {
		if span == 0 {
			out[id] = 1.0
			continue
		}
		out[id] = (v - lo) / span
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
