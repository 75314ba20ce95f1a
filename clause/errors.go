package clause

import (
	"errors"
	"fmt"

	"github.com/poiesic/clausematch/core"
)

var (
	// ErrDuplicateClauseID is returned when two records in one store share an ID.
	ErrDuplicateClauseID = fmt.Errorf("%w: duplicate clause id", core.ErrInvalidClauseRecord)

	// ErrUnknownVariant is returned for a variant other than standard or user.
	ErrUnknownVariant = errors.New("unknown contract variant")
)
