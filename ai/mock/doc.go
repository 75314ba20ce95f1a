// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Judge, and
// ai.AIProvider for use in unit tests. The mocks need no external service
// and behave deterministically.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	embeddings, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Scripted judgments
//	judge := mock.NewMockJudge()
//	judge.JudgeFunc = func(ctx context.Context, standard, user ai.Passage) (core.Judgment, error) {
//	    return core.Judgment{IsMatch: standard.ID == "s1", Confidence: 0.9}, nil
//	}
//
//	// Check call counts
//	count := judge.BatchCallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockJudge: Matches passages by word overlap of their text
//   - MockProvider: Aggregates mock embedder and judge
package mock
