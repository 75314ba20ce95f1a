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

// Package articles matches a user article to standard articles through its
// enumerated sub-items.
//
// A user article is first decomposed into sub-items using the enumeration
// markers found in contracts (circled numbers "①", numbered items "1.",
// and parenthesized letters "(가)" or "(a)"). Each sub-item is an independent
// hybrid query against the standard clause indices. The best standard
// article is selected per sub-item, and the selections are aggregated:
//
//	matcher, err := articles.NewMatcher(retriever, standardStore)
//	if err != nil {
//		return err
//	}
//	defer matcher.Release()
//
//	match, err := matcher.MatchArticle(ctx, userArticle, 1, 5)
//
// Candidates are ranked by matched sub-item count, then mean fused score,
// then ascending article number. The ranking is fully deterministic.
package articles
