package storage

import (
	"context"

	"github.com/poiesic/clausematch/core"
)

// ResultRepository persists verification results.
// Implementations must be thread-safe and support concurrent access.
type ResultRepository interface {
	// SaveResult stores a result under its RunID, replacing any previous
	// result with the same RunID.
	// Returns ErrInvalidResult if the RunID is empty.
	SaveResult(ctx context.Context, result *core.VerificationResult) error

	// GetResult retrieves a result by RunID.
	// Returns ErrNotFound if the result doesn't exist.
	GetResult(ctx context.Context, runID string) (*core.VerificationResult, error)

	// ListResults returns up to limit results, most recent first.
	// A limit of 0 or less returns every result.
	ListResults(ctx context.Context, limit int) ([]*core.VerificationResult, error)

	// DeleteResult removes a result and its index entry.
	// Returns ErrNotFound if the result doesn't exist.
	DeleteResult(ctx context.Context, runID string) error
}

// EmbeddingCache stores embeddings by a content-derived key.
// Implementations must be thread-safe and support concurrent access.
type EmbeddingCache interface {
	// GetEmbeddings returns the cached vectors for the keys that are present.
	// Missing keys are absent from the map; that is not an error.
	GetEmbeddings(ctx context.Context, keys ...core.ID) (map[core.ID][]float32, error)

	// PutEmbeddings stores vectors produced by the named model.
	PutEmbeddings(ctx context.Context, model string, vectors map[core.ID][]float32) error
}
