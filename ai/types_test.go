package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/clausematch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairJudge func(standard, user Passage) (core.Judgment, error)

func (f pairJudge) Judge(ctx context.Context, standard, user Passage) (core.Judgment, error) {
	return f(standard, user)
}

func TestSequentialJudge(t *testing.T) {
	single := pairJudge(func(standard, user Passage) (core.Judgment, error) {
		if user.ID != "u1" {
			return core.Judgment{}, errors.New("pair out of order")
		}
		if standard.ID == "bad" {
			return core.Judgment{}, errors.New("model timeout")
		}
		return core.Judgment{IsMatch: standard.ID == "s1", Confidence: 0.9}, nil
	})
	judge := SequentialJudge(single)

	verdict, err := judge.JudgeBatch(context.Background(), BatchRequest{
		Direction:  Reverse,
		Anchor:     Passage{ID: "u1"},
		Candidates: []Passage{{ID: "s1"}, {ID: "bad"}, {ID: "s2"}},
	})
	require.NoError(t, err)
	require.Len(t, verdict.Judgments, 3)

	assert.True(t, verdict.Judgments[0].IsMatch)
	assert.False(t, verdict.Judgments[1].IsMatch)
	assert.Equal(t, 0.0, verdict.Judgments[1].Confidence)
	assert.Equal(t, "model timeout", verdict.Judgments[1].Reasoning)
	assert.False(t, verdict.Judgments[2].IsMatch)
}

func TestSequentialJudge_Canceled(t *testing.T) {
	judge := SequentialJudge(pairJudge(func(standard, user Passage) (core.Judgment, error) {
		return core.Judgment{IsMatch: true, Confidence: 1}, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := judge.JudgeBatch(ctx, BatchRequest{Candidates: []Passage{{ID: "s1"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchRequest_Pair(t *testing.T) {
	reverse := BatchRequest{Direction: Reverse, Anchor: Passage{ID: "u1"}, Candidates: []Passage{{ID: "s1"}}}
	standard, user := reverse.Pair(0)
	assert.Equal(t, "s1", standard.ID)
	assert.Equal(t, "u1", user.ID)

	forward := BatchRequest{Direction: Forward, Anchor: Passage{ID: "s1"}, Candidates: []Passage{{ID: "u1"}}}
	standard, user = forward.Pair(0)
	assert.Equal(t, "s1", standard.ID)
	assert.Equal(t, "u1", user.ID)
}

func TestBatchVerdict_Pad(t *testing.T) {
	v := &BatchVerdict{Judgments: []core.Judgment{{IsMatch: true, Confidence: 0.8}}}
	v.Pad(3)
	require.Len(t, v.Judgments, 3)
	assert.True(t, v.Judgments[0].IsMatch)
	assert.Equal(t, core.FailedJudgment(nil), v.Judgments[2])

	v.Pad(1)
	assert.Len(t, v.Judgments, 1)
}

func TestPassage(t *testing.T) {
	p := PassageFromRecord(core.ClauseRecord{ID: "s1", Title: "Exhibit", TextRaw: "세부 내용은 [별지 1]에 따른다."}, 0.7)
	assert.Equal(t, "s1", p.ID)
	assert.Equal(t, 0.7, p.Score)
	assert.True(t, p.ReferencesAppendix())
	assert.False(t, Passage{Text: "plain"}.ReferencesAppendix())

	assert.Equal(t, "reverse", Reverse.String())
	assert.Equal(t, "forward", Forward.String())
	assert.Equal(t, "unknown", Direction(0).String())
}
