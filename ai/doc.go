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

// Package ai provides abstractions for the AI services the clause matcher
// depends on.
//
// The engine never computes embeddings or judgments itself. It talks to
// two interfaces:
//
//   - Embedder: Generates vector embeddings from clause text
//   - Judge: Decides whether two clauses express the same obligation
//
// AIProvider aggregates both for convenient initialization.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Deterministic test doubles
//
// Public constructors (openai.NewProvider, openai.NewJudge) return interface
// types. Test constructors (mock.NewMockEmbedder, mock.NewMockJudge) return
// concrete types so tests can inject behavior and read call counts.
//
// # Batch Judgments
//
// A verification run judges one anchor clause against all of its candidates
// in a single JudgeBatch call. Judges without a batch form can be adapted
// with SequentialJudge:
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	verdict, err := provider.Judge().JudgeBatch(ctx, ai.BatchRequest{
//	    Direction:  ai.Reverse,
//	    Anchor:     ai.PassageFromRecord(userClause, 0),
//	    Candidates: candidates,
//	})
package ai
