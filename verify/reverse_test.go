package verify

import (
	"fmt"
	"testing"

	"github.com/poiesic/clausematch/ai/mock"
	"github.com/poiesic/clausematch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(t *testing.T) *run {
	t.Helper()
	return &run{Orchestrator: newOrchestrator(t, mock.NewMockJudge())}
}

func userUnit(id string) unit {
	return unit{record: core.ClauseRecord{ID: id, TextRaw: id}}
}

func cand(id string, score float64) candidate {
	return candidate{record: core.ClauseRecord{ID: id, TextRaw: id}, fused: score}
}

var (
	accept = core.Judgment{IsMatch: true, Confidence: 0.9, Reasoning: "same obligation"}
	weak   = core.Judgment{IsMatch: true, Confidence: 0.3, Reasoning: "loosely related"}
	reject = core.Judgment{IsMatch: false, Confidence: 0.8, Reasoning: "different subject"}
)

func TestReduce_FirstInOrderClaims(t *testing.T) {
	r := testRun(t)
	res := r.reduce([]outcome{
		{user: userUnit("u1"), candidates: []candidate{cand("S1", 0.9)}, judgments: []core.Judgment{accept}},
		{user: userUnit("u2"), candidates: []candidate{cand("S1", 0.95), cand("S2", 0.5)}, judgments: []core.Judgment{accept, accept}},
	})

	assert.Equal(t, map[string]bool{"S1": true, "S2": true}, res.claimed)
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, res.matchedUsers)
	require.Len(t, res.matches, 2)
	assert.Equal(t, "S1", res.matches[0].StandardClause.ID)
	assert.Equal(t, "u1", res.matches[0].MatchedClause.ID)
	assert.Equal(t, "S2", res.matches[1].StandardClause.ID)
	assert.Equal(t, "u2", res.matches[1].MatchedClause.ID)

	require.Len(t, res.duplicates, 1)
	assert.Equal(t, "u2", res.duplicates[0].MatchedClause.ID)
	assert.Equal(t, "S1 already claimed", res.duplicates[0].DuplicateReason)
	assert.Equal(t, 0.95, res.duplicates[0].FusedScore)
	assert.Empty(t, res.unmatched)
}

func TestReduce_StopsAtFirstAccept(t *testing.T) {
	r := testRun(t)
	res := r.reduce([]outcome{{
		user:       userUnit("u1"),
		candidates: []candidate{cand("S1", 0.9), cand("S2", 0.8), cand("S3", 0.7)},
		judgments:  []core.Judgment{reject, accept, accept},
	}})

	require.Len(t, res.matches, 1)
	assert.Equal(t, "S2", res.matches[0].StandardClause.ID)
	assert.False(t, res.claimed["S3"])
}

func TestReduce_ConfidenceBelowThresholdIsRejected(t *testing.T) {
	r := testRun(t)
	res := r.reduce([]outcome{{
		user:       userUnit("u1"),
		candidates: []candidate{cand("S1", 0.9)},
		judgments:  []core.Judgment{weak},
	}})

	assert.Empty(t, res.claimed)
	require.Len(t, res.matches, 1)
	assert.False(t, res.matches[0].IsMatched)
	require.Len(t, res.unmatched, 1)
	assert.Equal(t, "S1", res.unmatched[0].ClosestStandard)
	assert.Equal(t, 0.9, res.unmatched[0].ClosestScore)
	assert.Contains(t, res.unmatched[0].Reason, "0.50")
}

func TestReduce_KeepsTopFailedCandidates(t *testing.T) {
	r := testRun(t)
	var cands []candidate
	var judgments []core.Judgment
	for i := 0; i < 5; i++ {
		cands = append(cands, cand(fmt.Sprintf("S%d", i), 1-float64(i)/10))
		judgments = append(judgments, reject)
	}
	res := r.reduce([]outcome{{user: userUnit("u1"), candidates: cands, judgments: judgments}})

	assert.Equal(t, []string{"S0", "S1", "S2"}, standardIDs(res.matches))
	for _, mr := range res.matches {
		assert.False(t, mr.IsMatched)
		assert.False(t, mr.IsDuplicate)
		require.NotNil(t, mr.Judgment)
		assert.Equal(t, "different subject", mr.Judgment.Reasoning)
	}
	require.Len(t, res.unmatched, 1)
}

func TestReduce_DuplicatesAreNotKeptAsFailures(t *testing.T) {
	r := testRun(t)
	res := r.reduce([]outcome{
		{user: userUnit("u1"), candidates: []candidate{cand("S1", 0.9)}, judgments: []core.Judgment{accept}},
		{user: userUnit("u2"), candidates: []candidate{cand("S1", 0.9)}, judgments: []core.Judgment{accept}},
	})

	require.Len(t, res.matches, 1)
	require.Len(t, res.duplicates, 1)
	require.Len(t, res.unmatched, 1)
	assert.Equal(t, "every matching standard clause was already claimed", res.unmatched[0].Reason)
}

func TestReduce_ClaimedButRejectedIsNotDuplicate(t *testing.T) {
	r := testRun(t)
	res := r.reduce([]outcome{
		{user: userUnit("u1"), candidates: []candidate{cand("S1", 0.9)}, judgments: []core.Judgment{accept}},
		{user: userUnit("u2"), candidates: []candidate{cand("S1", 0.9)}, judgments: []core.Judgment{reject}},
	})
	assert.Empty(t, res.duplicates)
	require.Len(t, res.matches, 2)
	assert.False(t, res.matches[1].IsMatched)
}

func TestReduce_NoCandidates(t *testing.T) {
	r := testRun(t)
	res := r.reduce([]outcome{{user: userUnit("u1")}})

	assert.Empty(t, res.matches)
	require.Len(t, res.unmatched, 1)
	assert.Equal(t, "no retrieval candidates", res.unmatched[0].Reason)
	assert.Empty(t, res.unmatched[0].ClosestStandard)
}
