package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain text", "test content"},
		{"empty string", ""},
		{"korean text", "제5조(계약의 해지) 갑은 을이 다음 각 호에 해당하는 경우 계약을 해지할 수 있다."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestClauseRecord_QueryText(t *testing.T) {
	tests := []struct {
		name   string
		record ClauseRecord
		want   string
	}{
		{
			name:   "falls back to raw text",
			record: ClauseRecord{TextRaw: "The buyer  pays.", UnitType: UnitClause},
			want:   "The buyer pays.",
		},
		{
			name:   "segment markers become spaces",
			record: ClauseRecord{TextRaw: "raw", TextNorm: "payment terms//late fees", UnitType: UnitClause},
			want:   "payment terms late fees",
		},
		{
			name:   "table separators collapse",
			record: ClauseRecord{TextRaw: "item | price\t| qty", UnitType: UnitTable},
			want:   "item price qty",
		},
		{
			name:   "exhibit heading dropped",
			record: ClauseRecord{TextRaw: "[별지 1] 개인정보 처리 위탁 계약서", UnitType: UnitExhibit},
			want:   "개인정보 처리 위탁 계약서",
		},
		{
			name:   "latin exhibit heading dropped",
			record: ClauseRecord{TextRaw: "[Exhibit A] Service levels", UnitType: UnitExhibit},
			want:   "Service levels",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.QueryText(); got != tt.want {
				t.Errorf("QueryText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseUnitType(t *testing.T) {
	tests := []struct {
		in      string
		want    UnitType
		wantErr bool
	}{
		{"article", UnitArticle, false},
		{"Clause", UnitClause, false},
		{"sub_clause", UnitSubClause, false},
		{"sub-clause", UnitSubClause, false},
		{"table", UnitTable, false},
		{"exhibit", UnitExhibit, false},
		{"", UnitClause, false},
		{"chapter", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnitType(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidUnitType) {
					t.Errorf("ParseUnitType(%q) error = %v, want %v", tt.in, err, ErrInvalidUnitType)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseUnitType(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestClauseRecord_JSONOmitsEmbedding(t *testing.T) {
	record := ClauseRecord{
		ID:        "std-1",
		TextRaw:   "text",
		UnitType:  UnitArticle,
		Embedding: []float32{0.1, 0.2},
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if _, ok := decoded["embedding"]; ok {
		t.Errorf("serialized record contains an embedding: %s", data)
	}
	if decoded["unit_type"] != "article" {
		t.Errorf("unit_type = %v, want article", decoded["unit_type"])
	}
}

func TestVerificationResult_CompletionRate(t *testing.T) {
	tests := []struct {
		name   string
		result VerificationResult
		want   float64
	}{
		{
			name:   "no user units",
			result: VerificationResult{TotalStandardUnits: 5},
			want:   0,
		},
		{
			name:   "user denominated",
			result: VerificationResult{TotalStandardUnits: 10, MatchedUnits: 2, TotalUserUnits: 4, MatchedUserUnits: 2},
			want:   50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.CompletionRate(); got != tt.want {
				t.Errorf("CompletionRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerificationResult_Summary(t *testing.T) {
	result := VerificationResult{
		TotalStandardUnits: 3,
		MatchedUnits:       2,
		MissingClauses: []MissingClauseAnalysis{
			{IsTrulyMissing: true},
		},
		DuplicateMatches: []MatchResult{{IsDuplicate: true}},
		TotalUserUnits:   3,
		MatchedUserUnits: 2,
	}

	summary := result.Summary()
	if summary.CompletionRate != 66.67 {
		t.Errorf("CompletionRate = %v, want 66.67", summary.CompletionRate)
	}
	if summary.IsComplete {
		t.Errorf("IsComplete = true, want false")
	}
	if summary.MissingCount != 1 || summary.TrulyMissingCount != 1 || summary.DuplicateCount != 1 {
		t.Errorf("unexpected counts: %+v", summary)
	}
}

func TestJudgment_Accepts(t *testing.T) {
	if !(Judgment{IsMatch: true, Confidence: 0.5}).Accepts(0.5) {
		t.Errorf("confidence equal to threshold should be accepted")
	}
	if (Judgment{IsMatch: true, Confidence: 0.49}).Accepts(0.5) {
		t.Errorf("confidence below threshold should be rejected")
	}
	if (Judgment{IsMatch: false, Confidence: 0.99}).Accepts(0.5) {
		t.Errorf("non-match should be rejected")
	}

	failed := FailedJudgment(errors.New("timeout"))
	if failed.IsMatch || failed.Confidence != 0 || failed.Reasoning != "timeout" {
		t.Errorf("FailedJudgment() = %+v", failed)
	}
}
