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

package search

import (
	"errors"
	"fmt"

	"github.com/poiesic/clausematch/core"
)

var (
	// ErrEmptyStore is returned when an index is built over a store with no records.
	ErrEmptyStore = fmt.Errorf("%w: cannot build an index over an empty clause store", core.ErrConfiguration)

	// ErrWeightSum is returned when dense and sparse weights do not sum to 1.0.
	ErrWeightSum = fmt.Errorf("%w: dense_weight + sparse_weight must equal 1.0", core.ErrConfiguration)

	// ErrFieldWeightSum is returned when text and title weights do not sum to 1.0.
	ErrFieldWeightSum = fmt.Errorf("%w: text_weight + title_weight must equal 1.0", core.ErrConfiguration)

	// ErrInvalidBM25Params is returned for a negative k1 or b outside [0,1].
	ErrInvalidBM25Params = fmt.Errorf("%w: invalid BM25 parameters", core.ErrConfiguration)

	// ErrDimensionMismatch is returned when vectors of different lengths meet.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidCandidatePool is returned for a candidate pool size below 1.
	ErrInvalidCandidatePool = fmt.Errorf("%w: candidate pool must be at least 1", core.ErrConfiguration)
)
