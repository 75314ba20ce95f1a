package embed

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/clausematch/ai/mock"
	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, texts ...string) *clause.Store {
	t.Helper()
	records := make([]core.ClauseRecord, len(texts))
	for i, text := range texts {
		records[i] = core.ClauseRecord{
			ID:         string(rune('a' + i)),
			TextRaw:    text,
			OrderIndex: i,
		}
	}
	store, err := clause.NewStore(clause.Standard, records)
	require.NoError(t, err)
	return store
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNewStoreEmbedder_Validation(t *testing.T) {
	_, err := NewStoreEmbedder(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewStoreEmbedder(mock.NewMockEmbedder(), WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewStoreEmbedder(mock.NewMockEmbedder(), WithRetry(0, time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestEmbedStore_EmbedsAllRecords(t *testing.T) {
	embedder := &mock.MockEmbedder{Dimension: 8}
	e, err := NewStoreEmbedder(embedder, WithBatchSize(2), WithConcurrency(2))
	require.NoError(t, err)

	store := newStore(t, "first clause", "second clause", "third clause", "fourth clause", "fifth clause")
	embedded, err := e.EmbedStore(context.Background(), store)
	require.NoError(t, err)

	for _, r := range embedded.Records() {
		require.Len(t, r.Embedding, 8, r.ID)
		assert.InDelta(t, 1.0, norm(r.Embedding), 1e-5)
	}
	// Five records in batches of two.
	assert.Equal(t, 3, embedder.CallCount())

	// The input store is untouched.
	for _, r := range store.Records() {
		assert.False(t, r.HasEmbedding())
	}
}

func TestEmbedStore_SkipsEmbeddedRecords(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	e, err := NewStoreEmbedder(embedder)
	require.NoError(t, err)

	store, err := clause.NewStore(clause.User, []core.ClauseRecord{
		{ID: "u1", TextRaw: "already done", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	got, err := e.EmbedStore(context.Background(), store)
	require.NoError(t, err)
	assert.Same(t, store, got)
	assert.Zero(t, embedder.CallCount())
}

func TestEmbedStore_UsesCache(t *testing.T) {
	_, cache, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	embedder := &mock.MockEmbedder{Dimension: 4}
	e, err := NewStoreEmbedder(embedder, WithCache(cache, "bge-m3"))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := e.EmbedStore(ctx, newStore(t, "payment terms", "confidentiality"))
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount())

	second, err := e.EmbedStore(ctx, newStore(t, "payment terms", "confidentiality"))
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount(), "second run is served from the cache")

	for i, r := range second.Records() {
		assert.Equal(t, first.Records()[i].Embedding, r.Embedding)
	}
}

func TestEmbedStore_FailedBatchLeavesRecordsUnembedded(t *testing.T) {
	var calls atomic.Int64
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		for _, text := range texts {
			if strings.Contains(text, "broken") {
				return nil, errors.New("embedding service down")
			}
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{2, 0}
		}
		return out, nil
	}
	e, err := NewStoreEmbedder(embedder, WithBatchSize(1), WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	embedded, err := e.EmbedStore(context.Background(), newStore(t, "fine", "broken"))
	require.NoError(t, err)

	good, _ := embedded.Get("a")
	assert.Equal(t, []float32{1, 0}, good.Embedding)
	bad, _ := embedded.Get("b")
	assert.False(t, bad.HasEmbedding())
	// One call for the good batch, two attempts for the broken one.
	assert.Equal(t, int64(3), calls.Load())
}

func TestEmbedStore_CountMismatchIsRetried(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	e, err := NewStoreEmbedder(embedder, WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	embedded, err := e.EmbedStore(context.Background(), newStore(t, "one", "two"))
	require.NoError(t, err)
	for _, r := range embedded.Records() {
		assert.False(t, r.HasEmbedding())
	}
	assert.Equal(t, 2, embedder.CallCount())
}

func TestEmbedStore_Canceled(t *testing.T) {
	e, err := NewStoreEmbedder(mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.EmbedStore(ctx, newStore(t, "one"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedStore_ReportsProgress(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewStoreEmbedder(&mock.MockEmbedder{Dimension: 4}, WithBatchSize(1), WithProgress(&buf))
	require.NoError(t, err)

	_, err = e.EmbedStore(context.Background(), newStore(t, "one", "two"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "2/2")
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("m", "text"), CacheKey("m", "text"))
	assert.NotEqual(t, CacheKey("m1", "text"), CacheKey("m2", "text"))
	assert.NotEqual(t, CacheKey("m", "text a"), CacheKey("m", "text b"))
}
