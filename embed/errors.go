package embed

import (
	"errors"
	"fmt"

	"github.com/poiesic/clausematch/core"
)

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidBatchSize is returned for a batch size below one.
	ErrInvalidBatchSize = fmt.Errorf("%w: batch size must be at least 1", core.ErrConfiguration)

	// ErrCountMismatch is returned when the embedder returns a different
	// number of vectors than texts.
	ErrCountMismatch = errors.New("embedding count mismatch")
)
