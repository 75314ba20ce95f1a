package core

import (
	"math"
	"time"
)

// MatchResult records one matching attempt between a standard unit and a user unit.
// Values are built once by the verification reducer and never modified.
type MatchResult struct {
	StandardClause  ClauseRecord  `json:"standard_clause"`
	MatchedClause   *ClauseRecord `json:"matched_clause,omitempty"`
	DenseScore      float64       `json:"dense_score"`
	SparseScore     float64       `json:"sparse_score"`
	FusedScore      float64       `json:"fused_score"`
	Judgment        *Judgment     `json:"judgment,omitempty"`
	IsMatched       bool          `json:"is_matched"`
	IsDuplicate     bool          `json:"is_duplicate"`
	DuplicateReason string        `json:"duplicate_reason,omitempty"`
}

// ForwardCandidate is a user unit considered as the counterpart of a missing
// standard unit.
type ForwardCandidate struct {
	UserClause ClauseRecord `json:"user_clause"`
	Similarity float64      `json:"similarity"`
	Judgment   Judgment     `json:"judgment"`
}

// MissingClauseAnalysis explains a standard unit that no user unit claimed.
type MissingClauseAnalysis struct {
	StandardClause ClauseRecord `json:"standard_clause"`
	// IsTrulyMissing is false when a user unit was judged equivalent during
	// the forward pass even though it claimed something else (or nothing)
	// in the reverse pass.
	IsTrulyMissing bool               `json:"is_truly_missing"`
	ClosestUser    *ClauseRecord      `json:"closest_user,omitempty"`
	Confidence     float64            `json:"confidence"`
	Reasoning      string             `json:"reasoning"`
	Recommendation string             `json:"recommendation"`
	RiskAssessment string             `json:"risk_assessment"`
	Evidence       []string           `json:"evidence,omitempty"`
	Candidates     []ForwardCandidate `json:"candidates,omitempty"`
}

// UnmatchedUserClause is a user unit that did not claim any standard unit.
type UnmatchedUserClause struct {
	UserClause      ClauseRecord `json:"user_clause"`
	ClosestStandard string       `json:"closest_standard,omitempty"`
	ClosestScore    float64      `json:"closest_score"`
	Reason          string       `json:"reason"`
}

// VerificationResult is the frozen outcome of one verification run.
type VerificationResult struct {
	RunID                string                  `json:"run_id"`
	TotalStandardUnits   int                     `json:"total_standard_units"`
	MatchedUnits         int                     `json:"matched_units"`
	MissingClauses       []MissingClauseAnalysis `json:"missing_clauses"`
	MatchResults         []MatchResult           `json:"match_results"`
	DuplicateMatches     []MatchResult           `json:"duplicate_matches"`
	UnmatchedUserClauses []UnmatchedUserClause   `json:"unmatched_user_clauses"`
	TotalUserUnits       int                     `json:"total_user_units"`
	// MatchedUserUnits is the number of distinct user unit ids with an
	// accepted match.
	MatchedUserUnits int       `json:"matched_user_units"`
	CreatedAt        time.Time `json:"created_at"`
}

// CompletionRate is the percentage of the user's own units that found an
// accepted standard match. It is 0 when the user contract has no units.
func (r *VerificationResult) CompletionRate() float64 {
	if r.TotalUserUnits == 0 {
		return 0
	}
	return float64(r.MatchedUserUnits) / float64(r.TotalUserUnits) * 100
}

// Summary condenses a result into headline numbers.
type Summary struct {
	TotalStandardUnits int     `json:"total_standard_units"`
	MatchedUnits       int     `json:"matched_units"`
	MissingCount       int     `json:"missing_count"`
	TrulyMissingCount  int     `json:"truly_missing_count"`
	DuplicateCount     int     `json:"duplicate_count"`
	TotalUserUnits     int     `json:"total_user_units"`
	CompletionRate     float64 `json:"completion_rate"`
	IsComplete         bool    `json:"is_complete"`
}

// Summary returns headline numbers with the completion rate rounded to two decimals.
func (r *VerificationResult) Summary() Summary {
	truly := 0
	for _, m := range r.MissingClauses {
		if m.IsTrulyMissing {
			truly++
		}
	}
	return Summary{
		TotalStandardUnits: r.TotalStandardUnits,
		MatchedUnits:       r.MatchedUnits,
		MissingCount:       len(r.MissingClauses),
		TrulyMissingCount:  truly,
		DuplicateCount:     len(r.DuplicateMatches),
		TotalUserUnits:     r.TotalUserUnits,
		CompletionRate:     math.Round(r.CompletionRate()*100) / 100,
		IsComplete:         r.MatchedUnits == r.TotalStandardUnits,
	}
}
