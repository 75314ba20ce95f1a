package search

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *clause.Store {
	t.Helper()
	store, err := clause.NewStore(clause.Standard, []core.ClauseRecord{
		{
			ID: "c1", ParentID: "art-1", Title: "Payment terms",
			TextRaw:   "The buyer pays the invoice within thirty days of delivery.",
			Embedding: []float32{1, 0, 0}, OrderIndex: 1,
		},
		{
			ID: "c2", ParentID: "art-2", Title: "Confidentiality",
			TextRaw:   "Each party keeps confidential information secret.",
			Embedding: []float32{0, 1, 0}, OrderIndex: 2,
		},
		{
			ID: "c3", ParentID: "art-3", Title: "Termination",
			TextRaw:   "Either party may terminate the agreement with written notice.",
			Embedding: []float32{0, 0, 1}, OrderIndex: 3,
		},
		{
			ID: "c4", ParentID: "art-3",
			TextRaw:   "Termination does not affect accrued payment obligations.",
			Embedding: []float32{0, 0.6, 0.8}, OrderIndex: 4,
		},
	})
	require.NoError(t, err)
	return store
}

func TestNewRetriever_Weights(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"defaults", nil, nil},
		{"custom weights", []Option{WithWeights(0.8, 0.2), WithFieldWeights(0.5, 0.5)}, nil},
		{"dense weights do not sum to one", []Option{WithWeights(0.8, 0.3)}, ErrWeightSum},
		{"dense weights below one", []Option{WithWeights(0.5, 0.4)}, ErrWeightSum},
		{"field weights do not sum to one", []Option{WithFieldWeights(0.7, 0.7)}, ErrFieldWeightSum},
		{"negative weight", []Option{WithWeights(1.5, -0.5)}, ErrWeightSum},
		{"nan dense weight", []Option{WithWeights(math.NaN(), 0.15)}, ErrWeightSum},
		{"infinite sparse weight", []Option{WithWeights(0.85, math.Inf(1))}, ErrWeightSum},
		{"nan field weight", []Option{WithFieldWeights(0.7, math.NaN())}, ErrFieldWeightSum},
		{"invalid pool", []Option{WithCandidatePool(0)}, ErrInvalidCandidatePool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewStoreRetriever(store, tt.opts...)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotNil(t, r)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Nil(t, r)
		})
	}
}

func TestRetriever_Search(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r, err := NewStoreRetriever(store, WithWeights(0.8, 0.2))
	require.NoError(t, err)

	t.Run("dense and sparse agree", func(t *testing.T) {
		results, err := r.Search(ctx, Query{
			Text:      "buyer pays invoice",
			Title:     "payment",
			Embedding: []float32{0.9, 0.1, 0},
		}, 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "c1", results[0].ClauseID)
		assert.Equal(t, "art-1", results[0].ParentID)
		assert.InDelta(t, 1.0, results[0].FusedScore, 1e-9)
		assert.LessOrEqual(t, len(results), 3)
	})

	t.Run("ordered by fused score descending", func(t *testing.T) {
		results, err := r.Search(ctx, Query{Text: "termination notice", Embedding: []float32{0, 0.5, 0.5}}, 4)
		require.NoError(t, err)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].FusedScore, results[i].FusedScore)
		}
		for _, c := range results {
			assert.GreaterOrEqual(t, c.DenseScore, 0.0)
			assert.LessOrEqual(t, c.DenseScore, 1.0)
			assert.GreaterOrEqual(t, c.SparseScore, 0.0)
			assert.LessOrEqual(t, c.SparseScore, 1.0)
		}
	})

	t.Run("truncates to topK", func(t *testing.T) {
		results, err := r.Search(ctx, Query{Embedding: []float32{1, 1, 1}}, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("zero topK returns nothing", func(t *testing.T) {
		results, err := r.Search(ctx, Query{Text: "payment"}, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Search(canceled, Query{Text: "payment"}, 3)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetriever_Determinism(t *testing.T) {
	ctx := context.Background()
	// Two records with identical text and embeddings tie on every score.
	store, err := clause.NewStore(clause.Standard, []core.ClauseRecord{
		{ID: "b", TextRaw: "governing law of the contract", Embedding: []float32{0.5, 0.5}},
		{ID: "a", TextRaw: "governing law of the contract", Embedding: []float32{0.5, 0.5}},
		{ID: "c", TextRaw: "dispute resolution by arbitration", Embedding: []float32{0.1, 0.9}},
	})
	require.NoError(t, err)
	r, err := NewStoreRetriever(store)
	require.NoError(t, err)

	q := Query{Text: "governing law", Embedding: []float32{0.5, 0.5}}
	first, err := r.Search(ctx, q, 3)
	require.NoError(t, err)
	second, err := r.Search(ctx, q, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].ClauseID, "ties break by clause id ascending")
	assert.Equal(t, "b", first[1].ClauseID)
	assert.Equal(t, first[0].FusedScore, first[1].FusedScore)
}

func TestRetriever_AdaptiveWeighting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r, err := NewStoreRetriever(store, WithWeights(0.8, 0.2))
	require.NoError(t, err)

	t.Run("sparse empty gives dense full weight", func(t *testing.T) {
		monitor := &recordingMonitor{}
		results, err := r.SearchWithMonitor(ctx, Query{
			Text:      "zzzz qqqq",
			Title:     "xxxx",
			Embedding: []float32{0, 1, 0},
		}, 3, monitor)
		require.NoError(t, err)
		require.NotEmpty(t, results)

		top := results[0]
		assert.Equal(t, "c2", top.ClauseID)
		assert.Equal(t, top.DenseScore, top.FusedScore, "fused score must equal the dense-normalized score")
		assert.Equal(t, 1.0, top.FusedScore, "fused score must not be capped at the configured dense weight")
		assert.Equal(t, []float64{1.0, 0.0}, monitor.adaptive)
	})

	t.Run("missing embedding falls back to sparse only", func(t *testing.T) {
		results, err := r.Search(ctx, Query{Text: "confidential information"}, 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "c2", results[0].ClauseID)
		assert.Equal(t, results[0].SparseScore, results[0].FusedScore)
		assert.Equal(t, 0.0, results[0].DenseScore)
	})

	t.Run("wrong embedding dimension degrades to sparse", func(t *testing.T) {
		results, err := r.Search(ctx, Query{Text: "terminate agreement", Embedding: []float32{1, 0}}, 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "c3", results[0].ClauseID)
	})
}

func TestRetriever_EmptyIndices(t *testing.T) {
	r, err := NewRetriever(nil, nil)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), Query{Text: "payment", Embedding: []float32{1, 0}}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetriever_StoreWithoutEmbeddings(t *testing.T) {
	store, err := clause.NewStore(clause.User, []core.ClauseRecord{
		{ID: "u1", TextRaw: "The supplier delivers goods."},
	})
	require.NoError(t, err)
	r, err := NewStoreRetriever(store)
	require.NoError(t, err)

	results, err := r.Search(context.Background(), Query{Embedding: []float32{1, 0}}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMinMaxNormalize(t *testing.T) {
	t.Run("spreads into unit interval", func(t *testing.T) {
		got := minMaxNormalize(map[string]float64{"a": 2, "b": 4, "c": 3})
		assert.Equal(t, map[string]float64{"a": 0, "b": 1, "c": 0.5}, got)
	})

	t.Run("zero variance is all ones", func(t *testing.T) {
		got := minMaxNormalize(map[string]float64{"a": 0.3, "b": 0.3})
		assert.Equal(t, map[string]float64{"a": 1, "b": 1}, got)
	})

	t.Run("single value is one", func(t *testing.T) {
		got := minMaxNormalize(map[string]float64{"a": 7})
		assert.Equal(t, map[string]float64{"a": 1}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, minMaxNormalize(nil))
	})
}

type recordingMonitor struct {
	noopMonitor
	adaptive []float64
	finished []core.ScoredCandidate
}

func (m *recordingMonitor) AdaptiveWeighting(dense, sparse float64) {
	m.adaptive = []float64{dense, sparse}
}

func (m *recordingMonitor) Finish(results []core.ScoredCandidate) {
	m.finished = results
}

func TestRetriever_WithMonitor(t *testing.T) {
	monitor := &recordingMonitor{}
	r, err := NewStoreRetriever(newTestStore(t), WithMonitor(monitor))
	require.NoError(t, err)

	// Dense only: sparse returns nothing, so dense takes the full weight.
	results, err := r.Search(context.Background(), Query{Embedding: []float32{1, 0, 0}}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, results, monitor.finished)
	assert.Equal(t, []float64{1.0, 0.0}, monitor.adaptive)
}
