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

import "errors"

var (
	// ErrConfiguration is the root of every construction-time error: weights
	// that do not sum to 1.0, thresholds out of range, empty stores passed to
	// index builds.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidClauseRecord indicates a ClauseRecord failed validation.
	ErrInvalidClauseRecord = errors.New("invalid clause record")

	// ErrEmptyClauseID indicates the ID field is empty.
	ErrEmptyClauseID = errors.New("clause id cannot be empty")

	// ErrEmptyText indicates the TextRaw field is empty.
	ErrEmptyText = errors.New("clause text cannot be empty")

	// ErrInvalidUnitType indicates an unknown UnitType value.
	ErrInvalidUnitType = errors.New("invalid unit type")

	// ErrInvalidEmbedding indicates an embedding containing NaN or Inf values.
	ErrInvalidEmbedding = errors.New("invalid embedding")
)
