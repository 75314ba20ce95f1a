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

// Package verify checks a user contract against a standard contract.
//
// An Orchestrator runs two passes. The reverse pass takes every user unit in
// document order, retrieves its standard candidates and asks the judge to
// compare them in one batched request. A single-threaded reducer then walks
// the precomputed verdicts and claims the first accepted standard unit for
// each user unit. A standard unit is claimed at most once; later accepted
// verdicts against it are recorded as duplicates.
//
// The forward pass takes every standard unit left unclaimed, retrieves the
// closest user units and asks the judge whether any of them covers it after
// all. Units no candidate covers are reported as truly missing, always with
// reasoning and a recommendation.
//
// Basic usage:
//
//	orch, err := verify.NewOrchestrator(judge, verify.WithConfig(cfg))
//	if err != nil {
//		return err
//	}
//	defer orch.Release()
//
//	result, err := orch.Run(ctx, standard, user)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("%.1f%% of the contract matched\n", result.CompletionRate())
package verify
