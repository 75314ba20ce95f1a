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

package ai

import (
	"context"
	"strings"

	"github.com/poiesic/clausematch/core"
)

// Direction tells a judge which side of a batch comparison is the anchor.
type Direction int

const (
	// Reverse anchors on a user clause and judges standard candidates.
	Reverse Direction = iota + 1
	// Forward anchors on a missing standard clause and judges user candidates.
	Forward
)

func (d Direction) String() string {
	switch d {
	case Reverse:
		return "reverse"
	case Forward:
		return "forward"
	default:
		return "unknown"
	}
}

// Passage is the part of a clause record a judge sees.
type Passage struct {
	ID    string
	Title string
	Text  string
	// Score is the retrieval score that surfaced the passage, 0 for anchors.
	Score float64
}

// PassageFromRecord builds a passage from a clause record.
func PassageFromRecord(r core.ClauseRecord, score float64) Passage {
	return Passage{ID: r.ID, Title: r.Title, Text: r.NormalizedText(), Score: score}
}

// ReferencesAppendix reports whether the passage points at an exhibit or
// appendix whose content is not part of the passage itself.
func (p Passage) ReferencesAppendix() bool {
	return strings.Contains(p.Text, "[별지") || strings.Contains(p.Text, "[별표")
}

// BatchRequest is one anchor judged against several candidates.
type BatchRequest struct {
	Direction  Direction
	Anchor     Passage
	Candidates []Passage
}

// Pair returns the i-th comparison ordered as (standard, user).
func (r BatchRequest) Pair(i int) (standard, user Passage) {
	if r.Direction == Forward {
		return r.Anchor, r.Candidates[i]
	}
	return r.Candidates[i], r.Anchor
}

// BatchVerdict is the outcome of a batch judgment.
type BatchVerdict struct {
	// Judgments are aligned with BatchRequest.Candidates.
	Judgments []core.Judgment

	// Summary, Risk and Recommendation are filled by forward judgments and
	// may be empty.
	Summary        string
	Risk           string
	Recommendation string
}

// Pad extends the verdict to n judgments, filling the gap with failed
// judgments, and drops any surplus.
func (v *BatchVerdict) Pad(n int) {
	if len(v.Judgments) > n {
		v.Judgments = v.Judgments[:n]
	}
	for len(v.Judgments) < n {
		v.Judgments = append(v.Judgments, core.FailedJudgment(nil))
	}
}

// SingleJudge is the single-pair form of a judge.
type SingleJudge interface {
	Judge(ctx context.Context, standard, user Passage) (core.Judgment, error)
}

type sequentialJudge struct {
	single SingleJudge
}

// SequentialJudge adapts a judge that only understands single pairs to the
// batch form by judging candidates one at a time. A failed pair becomes a
// failed judgment; the batch itself only fails when ctx is done.
func SequentialJudge(single SingleJudge) Judge {
	return &sequentialJudge{single: single}
}

func (s *sequentialJudge) Judge(ctx context.Context, standard, user Passage) (core.Judgment, error) {
	return s.single.Judge(ctx, standard, user)
}

func (s *sequentialJudge) JudgeBatch(ctx context.Context, req BatchRequest) (*BatchVerdict, error) {
	verdict := &BatchVerdict{Judgments: make([]core.Judgment, 0, len(req.Candidates))}
	for i := range req.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		standard, user := req.Pair(i)
		j, err := s.single.Judge(ctx, standard, user)
		if err != nil {
			j = core.FailedJudgment(err)
		}
		verdict.Judgments = append(verdict.Judgments, j)
	}
	return verdict, nil
}
