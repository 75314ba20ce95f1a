package clausematch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/clausematch/ai/mock"
	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/config"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/metrics"
	"github.com/poiesic/clausematch/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardClauses() []core.ClauseRecord {
	return []core.ClauseRecord{
		{ID: "s1", Title: "제1조 (대금 지급)", OrderIndex: 1, TextRaw: "The buyer pays the invoice within thirty days of delivery."},
		{ID: "s2", Title: "제2조 (비밀 유지)", OrderIndex: 2, TextRaw: "Each party keeps confidential information secret."},
	}
}

func userClauses() []core.ClauseRecord {
	return []core.ClauseRecord{
		{ID: "u1", Title: "제1조 (대금)", OrderIndex: 1, TextRaw: "The buyer pays the invoice within thirty days of delivery."},
	}
}

func newMemoryEngine(t *testing.T, opts ...EngineOption) (*Engine, *mock.MockProvider) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.InMemory = true
	provider := mock.NewMockProvider().(*mock.MockProvider)
	engine, err := NewEngine(cfg, append([]EngineOption{WithProvider(provider)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine, provider
}

func TestNewEngine(t *testing.T) {
	t.Run("in-memory storage", func(t *testing.T) {
		engine, _ := newMemoryEngine(t)
		assert.NotNil(t, engine.Results())
		assert.NotNil(t, engine.backend)
		assert.Nil(t, engine.Metrics())
	})

	t.Run("without storage", func(t *testing.T) {
		engine, err := NewEngine(nil, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer engine.Close()

		assert.Nil(t, engine.Results())
		_, err = engine.ListResults(context.Background(), 0)
		assert.ErrorIs(t, err, ErrNoStorage)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		cfg := config.Default()
		cfg.Storage.Path = tmpFile
		engine, err := NewEngine(cfg, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("invalid verification config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Verify.MinConfidence = 2
		provider := mock.NewMockProvider().(*mock.MockProvider)
		engine, err := NewEngine(cfg, WithProvider(provider))
		assert.ErrorIs(t, err, core.ErrConfiguration)
		assert.Nil(t, engine)
		assert.True(t, provider.Closed())
	})
}

func TestEngine_Close(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Path = t.TempDir()
	provider := mock.NewMockProvider().(*mock.MockProvider)
	engine, err := NewEngine(cfg, WithProvider(provider))
	require.NoError(t, err)

	assert.NoError(t, engine.Close())
	assert.True(t, provider.Closed())
	assert.True(t, engine.backend.IsClosed())
}

func TestEngine_Verify(t *testing.T) {
	collector := metrics.NewCollector(false)
	engine, provider := newMemoryEngine(t, WithMetrics(collector))
	ctx := context.Background()

	result, err := engine.Verify(ctx, standardClauses(), userClauses())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalStandardUnits)
	assert.Equal(t, 1, result.MatchedUnits)
	assert.Equal(t, 1, result.TotalUserUnits)
	assert.Equal(t, 1, result.MatchedUserUnits)
	assert.Equal(t, 100.0, result.CompletionRate())
	require.Len(t, result.MissingClauses, 1)
	assert.Equal(t, "s2", result.MissingClauses[0].StandardClause.ID)
	assert.True(t, result.MissingClauses[0].IsTrulyMissing)

	// Both stores were embedded through the provider.
	assert.Positive(t, provider.GetMockEmbedder().CallCount())
	assert.Equal(t, 1.0, counterValue(t, collector, "clausematch_verify_runs_total"))

	stored, err := engine.GetResult(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, stored.RunID)
	assert.Equal(t, result.MatchedUnits, stored.MatchedUnits)

	listed, err := engine.ListResults(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, result.RunID, listed[0].RunID)
}

func TestEngine_VerifyCachesEmbeddings(t *testing.T) {
	engine, provider := newMemoryEngine(t)
	ctx := context.Background()

	_, err := engine.Verify(ctx, standardClauses(), userClauses())
	require.NoError(t, err)
	embedder := provider.GetMockEmbedder()
	first := embedder.CallCount()

	// Every clause text is cached now.
	store, err := engine.EmbedStore(ctx, clause.Standard, standardClauses())
	require.NoError(t, err)
	assert.Equal(t, first, embedder.CallCount())
	for _, r := range store.Records() {
		assert.True(t, r.HasEmbedding(), r.ID)
	}
}

func TestEngine_VerifyInvalidRecords(t *testing.T) {
	engine, _ := newMemoryEngine(t)
	_, err := engine.Verify(context.Background(), []core.ClauseRecord{{ID: "s1"}}, userClauses())
	assert.Error(t, err)

	_, err = engine.EmbedStore(context.Background(), clause.Variant(0), standardClauses())
	assert.ErrorIs(t, err, clause.ErrUnknownVariant)
}

func TestEngine_VerifyCanceled(t *testing.T) {
	engine, _ := newMemoryEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Verify(ctx, standardClauses(), userClauses())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestEngine_Search(t *testing.T) {
	engine, _ := newMemoryEngine(t)

	results, err := engine.Search(context.Background(), standardClauses(),
		search.Query{Text: "Each party keeps confidential information secret."}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "s2", results[0].ClauseID)
}

func counterValue(t *testing.T, collector *metrics.Collector, name string) float64 {
	t.Helper()
	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.NotEmpty(t, f.GetMetric())
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
