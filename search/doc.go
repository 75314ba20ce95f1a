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


// Package search provides hybrid dense and sparse retrieval over clause stores.
//
// Three pieces cooperate:
//   - SparseIndex scores records with BM25 over normalized text and,
//     separately, over titles
//   - DenseIndex performs exact L2 nearest-neighbor search over embeddings
//   - Retriever runs both, min-max normalizes each score set, and fuses them
//     with configurable weights
//
// When one side returns nothing for a query the Retriever gives the other
// side the full weight, so a missing embedding or a query without keyword
// overlap never caps the fused score.
package search
