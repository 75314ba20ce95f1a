package mock

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/core"
)

// MockJudge is a test double for ai.Judge.
// It is safe for concurrent use as long as the function fields are not
// reassigned while calls are in flight.
type MockJudge struct {
	// JudgeFunc decides every pair, in single and batch calls alike.
	// If nil, passages match when their words overlap by at least half.
	JudgeFunc func(ctx context.Context, standard, user ai.Passage) (core.Judgment, error)

	// JudgeBatchFunc replaces the whole batch call if set.
	JudgeBatchFunc func(ctx context.Context, req ai.BatchRequest) (*ai.BatchVerdict, error)

	callCount      atomic.Int64
	batchCallCount atomic.Int64
}

// NewMockJudge creates a mock judge with default word-overlap behavior.
func NewMockJudge() *MockJudge {
	return &MockJudge{}
}

// Judge judges one pair.
func (m *MockJudge) Judge(ctx context.Context, standard, user ai.Passage) (core.Judgment, error) {
	m.callCount.Add(1)
	return m.pair(ctx, standard, user)
}

// JudgeBatch judges every candidate against the anchor. A pair error fails
// the whole batch, as a real batch request would.
func (m *MockJudge) JudgeBatch(ctx context.Context, req ai.BatchRequest) (*ai.BatchVerdict, error) {
	m.batchCallCount.Add(1)

	if m.JudgeBatchFunc != nil {
		return m.JudgeBatchFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verdict := &ai.BatchVerdict{Judgments: make([]core.Judgment, len(req.Candidates))}
	for i := range req.Candidates {
		standard, user := req.Pair(i)
		j, err := m.pair(ctx, standard, user)
		if err != nil {
			return nil, err
		}
		verdict.Judgments[i] = j
	}
	return verdict, nil
}

func (m *MockJudge) pair(ctx context.Context, standard, user ai.Passage) (core.Judgment, error) {
	if m.JudgeFunc != nil {
		return m.JudgeFunc(ctx, standard, user)
	}
	overlap := wordOverlap(standard.Text, user.Text)
	return core.Judgment{
		IsMatch:    overlap >= 0.5,
		Confidence: overlap,
		Reasoning:  "word overlap",
	}, nil
}

// CallCount returns the number of single-pair calls.
func (m *MockJudge) CallCount() int {
	return int(m.callCount.Load())
}

// BatchCallCount returns the number of batch calls.
func (m *MockJudge) BatchCallCount() int {
	return int(m.batchCallCount.Load())
}

// Reset clears the call counts and custom functions.
func (m *MockJudge) Reset() {
	m.callCount.Store(0)
	m.batchCallCount.Store(0)
	m.JudgeFunc = nil
	m.JudgeBatchFunc = nil
}

// words returns the lowercase letter-and-digit runs of s.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// wordOverlap is the Jaccard index of the word sets of a and b.
func wordOverlap(a, b string) float64 {
	set := func(s string) map[string]bool {
		m := make(map[string]bool)
		for _, w := range words(s) {
			m[w] = true
		}
		return m
	}
	wa, wb := set(a), set(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(wa)+len(wb)-inter)
}
