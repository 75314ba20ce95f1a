package ai

import (
	"context"

	"github.com/poiesic/clausematch/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Judge decides whether two clauses express the same obligation.
// Implementations must be thread-safe for concurrent use.
type Judge interface {
	// Judge compares one standard clause with one user clause.
	Judge(ctx context.Context, standard, user Passage) (core.Judgment, error)

	// JudgeBatch compares one anchor clause with every candidate in a single
	// request. The returned judgments are aligned with req.Candidates; a
	// verdict may carry fewer judgments than candidates when the backend
	// drops some, and callers treat the missing ones as failed.
	JudgeBatch(ctx context.Context, req BatchRequest) (*BatchVerdict, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Judge returns the clause judgment service.
	Judge() Judge

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
