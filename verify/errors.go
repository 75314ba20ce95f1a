package verify

import (
	"errors"
	"fmt"

	"github.com/poiesic/clausematch/core"
)

var (
	// ErrJudgeRequired is returned when no judge is supplied.
	ErrJudgeRequired = errors.New("judge required")

	// ErrStoreRequired is returned when Run is given a nil store.
	ErrStoreRequired = errors.New("standard and user stores required")

	// ErrInvalidMinConfidence is returned for a threshold outside [0,1].
	ErrInvalidMinConfidence = fmt.Errorf("%w: min_confidence must be within [0,1]", core.ErrConfiguration)

	// ErrInvalidTopK is returned for a non-positive top-k setting.
	ErrInvalidTopK = fmt.Errorf("%w: top-k values must be at least 1", core.ErrConfiguration)

	// ErrInvalidGranularity is returned for an unknown granularity.
	ErrInvalidGranularity = fmt.Errorf("%w: granularity must be article or clause", core.ErrConfiguration)
)
