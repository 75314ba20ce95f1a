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

package storage

import "errors"

var (
	// ErrNotFound is returned when no result is stored under a run id.
	ErrNotFound = errors.New("verification result not found")

	// ErrStorageClosed is returned by operations on a closed backend.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidResult is returned when a result cannot be stored, e.g. it
	// has no run id.
	ErrInvalidResult = errors.New("invalid verification result")

	// ErrSerializationFailed wraps codec failures of results and cached vectors.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData is returned when a cached vector is shorter than its
	// encoded length.
	ErrTruncatedData = errors.New("truncated embedding data")
)
