package articles

import (
	"errors"
	"fmt"

	"github.com/poiesic/clausematch/core"
)

var (
	// ErrRetrieverRequired is returned when a matcher is created without a retriever.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrStandardStoreRequired is returned when a matcher is created without the standard store.
	ErrStandardStoreRequired = errors.New("standard clause store is required")

	// ErrInvalidTopK is returned when a per-sub-item or per-article limit is below 1.
	ErrInvalidTopK = fmt.Errorf("%w: top-k limits must be at least 1", core.ErrConfiguration)
)
