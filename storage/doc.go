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

// Package storage provides the persistence abstraction layer for clausematch.
//
// The verification engine itself is pure: it neither reads nor writes
// storage. This package holds the collaborators around it that do:
//
//   - ResultRepository: Saves, lists and loads frozen verification results
//   - EmbeddingCache: Content-addressed cache of computed clause embeddings
//
// # Constructor Return Type Pattern
//
// Public constructors return interface types to keep consumers decoupled
// from BadgerDB specifics:
//
//	repo, err := badger.NewResultRepository(backend)  // returns storage.ResultRepository
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	results, cache, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Serialization
//
// Results are stored as JSON so that stored runs stay readable by other
// tools. Cached embeddings use a compact mus binary encoding.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
