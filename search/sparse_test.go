package search

import (
	"testing"

	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and drops stop words",
			text: "The Buyer shall pay, in full.",
			want: []string{"buyer", "pay", "full"},
		},
		{
			name: "hangul words emit bigrams",
			text: "계약을 해지",
			want: []string{"계약을", "계약", "약을", "해지"},
		},
		{
			name: "digits are kept",
			text: "within 30 days",
			want: []string{"within", "30", "days"},
		},
		{
			name: "only punctuation",
			text: "-- // ..",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.text))
		})
	}
}

func TestBuildSparseIndex(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		store, err := clause.NewStore(clause.Standard, nil)
		require.NoError(t, err)

		_, err = BuildSparseIndex(store)
		assert.ErrorIs(t, err, ErrEmptyStore)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		_, err := BuildSparseIndex(newTestStore(t), WithBM25Params(1.2, 1.5))
		assert.ErrorIs(t, err, ErrInvalidBM25Params)
	})
}

func TestSparseIndex_Search(t *testing.T) {
	ix, err := BuildSparseIndex(newTestStore(t))
	require.NoError(t, err)
	assert.Equal(t, 4, ix.Len())

	t.Run("text field", func(t *testing.T) {
		hits := ix.Search(FieldText, "termination payment", 0)
		require.NotEmpty(t, hits)
		// Only c4 mentions either term.
		assert.Equal(t, "c4", hits[0].ClauseID)
		for _, h := range hits {
			assert.Greater(t, h.Score, 0.0)
		}
	})

	t.Run("title field inherits article title", func(t *testing.T) {
		hits := ix.Search(FieldTitle, "termination", 0)
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.ClauseID
		}
		assert.ElementsMatch(t, []string{"c3", "c4"}, ids)
		assert.Equal(t, "c3", hits[0].ClauseID, "equal scores break by clause id")
	})

	t.Run("limit", func(t *testing.T) {
		hits := ix.Search(FieldText, "party", 1)
		assert.Len(t, hits, 1)
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.Empty(t, ix.Search(FieldText, "warranty", 0))
	})

	t.Run("repeated query terms count once", func(t *testing.T) {
		once := ix.Search(FieldText, "invoice", 0)
		twice := ix.Search(FieldText, "invoice invoice", 0)
		assert.Equal(t, once, twice)
	})
}

func TestDenseIndex(t *testing.T) {
	t.Run("nearest first", func(t *testing.T) {
		ix, err := BuildDenseIndex(newTestStore(t))
		require.NoError(t, err)
		assert.Equal(t, 4, ix.Len())
		assert.Equal(t, 3, ix.Dim())

		hits, err := ix.Search([]float32{0, 0, 1}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "c3", hits[0].ClauseID)
		assert.Equal(t, 1.0, hits[0].Similarity)
		assert.Equal(t, "c4", hits[1].ClauseID)
		assert.Less(t, hits[1].Similarity, hits[0].Similarity)
	})

	t.Run("dimension mismatch at build", func(t *testing.T) {
		store, err := clause.NewStore(clause.Standard, []core.ClauseRecord{
			{ID: "a", TextRaw: "x", Embedding: []float32{1, 0}},
			{ID: "b", TextRaw: "y", Embedding: []float32{1, 0, 0}},
		})
		require.NoError(t, err)
		_, err = BuildDenseIndex(store)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("dimension mismatch at query", func(t *testing.T) {
		ix, err := BuildDenseIndex(newTestStore(t))
		require.NoError(t, err)
		_, err = ix.Search([]float32{1}, 2)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("nil query", func(t *testing.T) {
		ix, err := BuildDenseIndex(newTestStore(t))
		require.NoError(t, err)
		hits, err := ix.Search(nil, 2)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("records without embeddings are skipped", func(t *testing.T) {
		store, err := clause.NewStore(clause.Standard, []core.ClauseRecord{
			{ID: "a", TextRaw: "x"},
			{ID: "b", TextRaw: "y", Embedding: []float32{1, 0}},
		})
		require.NoError(t, err)
		ix, err := BuildDenseIndex(store)
		require.NoError(t, err)
		assert.Equal(t, 1, ix.Len())
	})
}
