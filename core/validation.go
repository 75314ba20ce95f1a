// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidateClauseRecord checks the field invariants of a single record.
// Uniqueness of IDs is a store-level property and is checked by the store.
func ValidateClauseRecord(record *ClauseRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidClauseRecord)
	}

	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidClauseRecord, ErrEmptyClauseID)
	}

	if strings.TrimSpace(record.TextRaw) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidClauseRecord, record.ID, ErrEmptyText)
	}

	if err := ValidateUnitType(record.UnitType); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidClauseRecord, record.ID, err)
	}

	if err := ValidateEmbedding(record.Embedding); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidClauseRecord, record.ID, err)
	}

	return nil
}

// ValidateEmbedding rejects vectors containing NaN or Inf. A nil vector is valid.
func ValidateEmbedding(v []float32) error {
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: non-finite value at %d", ErrInvalidEmbedding, i)
		}
	}
	return nil
}

// ValidateWeightPair checks that two finite, non-negative weights sum to 1.0
// within 1e-6.
func ValidateWeightPair(a, b float64) error {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return fmt.Errorf("%w: weights must be finite (%v, %v)", ErrConfiguration, a, b)
	}
	if a < 0 || b < 0 {
		return fmt.Errorf("%w: weights must be non-negative (%.4f, %.4f)", ErrConfiguration, a, b)
	}
	if math.Abs(a+b-1.0) > 1e-6 {
		return fmt.Errorf("%w: weights must sum to 1.0, got %.6f", ErrConfiguration, a+b)
	}
	return nil
}
