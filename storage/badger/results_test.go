package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResults(t *testing.T) storage.ResultRepository {
	t.Helper()
	results, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return results
}

func sampleResult(runID string, createdAt time.Time) *core.VerificationResult {
	return &core.VerificationResult{
		RunID:              runID,
		TotalStandardUnits: 2,
		MatchedUnits:       1,
		TotalUserUnits:     4,
		MatchedUserUnits:   1,
		MatchResults: []core.MatchResult{{
			StandardClause: core.ClauseRecord{ID: "s1", Title: "제1조 (목적)"},
			MatchedClause:  &core.ClauseRecord{ID: "u1"},
			FusedScore:     0.8,
			IsMatched:      true,
		}},
		MissingClauses: []core.MissingClauseAnalysis{{
			StandardClause: core.ClauseRecord{ID: "s2", Title: "제2조 (정의)"},
			IsTrulyMissing: true,
		}},
		CreatedAt: createdAt,
	}
}

func TestResultRepository_SaveAndGet(t *testing.T) {
	repo := newResults(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.SaveResult(ctx, sampleResult("run-1", now)))

	got, err := repo.GetResult(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, now.Equal(got.CreatedAt))
	require.Len(t, got.MatchResults, 1)
	assert.Equal(t, "u1", got.MatchResults[0].MatchedClause.ID)
	assert.Equal(t, 25.0, got.CompletionRate())
}

func TestResultRepository_GetMissing(t *testing.T) {
	repo := newResults(t)
	_, err := repo.GetResult(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResultRepository_SaveInvalid(t *testing.T) {
	repo := newResults(t)
	assert.ErrorIs(t, repo.SaveResult(context.Background(), nil), storage.ErrInvalidResult)
	assert.ErrorIs(t, repo.SaveResult(context.Background(), &core.VerificationResult{}), storage.ErrInvalidResult)
}

func TestResultRepository_ListMostRecentFirst(t *testing.T) {
	repo := newResults(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.SaveResult(ctx, sampleResult(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := repo.ListResults(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "run-4", all[0].RunID)
	assert.Equal(t, "run-0", all[4].RunID)

	limited, err := repo.ListResults(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-4", limited[0].RunID)
	assert.Equal(t, "run-3", limited[1].RunID)
}

func TestResultRepository_ResaveMovesIndex(t *testing.T) {
	repo := newResults(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveResult(ctx, sampleResult("a", base)))
	require.NoError(t, repo.SaveResult(ctx, sampleResult("b", base.Add(time.Hour))))
	require.NoError(t, repo.SaveResult(ctx, sampleResult("a", base.Add(2*time.Hour))))

	all, err := repo.ListResults(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].RunID)
	assert.Equal(t, "b", all[1].RunID)
}

func TestResultRepository_Delete(t *testing.T) {
	repo := newResults(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveResult(ctx, sampleResult("run-1", time.Now().UTC())))
	require.NoError(t, repo.DeleteResult(ctx, "run-1"))

	_, err := repo.GetResult(ctx, "run-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := repo.ListResults(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, repo.DeleteResult(ctx, "run-1"), storage.ErrNotFound)
}
