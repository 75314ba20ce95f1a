package core

import (
	"encoding/binary"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-addressed identifier.
// It keys cached embeddings and other values derived from text.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ClauseRecord is one unit of a contract variant: an article, a clause within
// an article, a table, or an exhibit.
type ClauseRecord struct {
	// ID is unique within the store holding the record.
	ID string `json:"id"`
	// ParentID groups sub-items into an article. All chunks of "Article 5"
	// share one ParentID.
	ParentID   string   `json:"parent_id"`
	Title      string   `json:"title"`
	TextRaw    string   `json:"text_raw"`
	TextNorm   string   `json:"text_norm,omitempty"` // may contain "//" segment markers
	UnitType   UnitType `json:"unit_type"`
	OrderIndex int      `json:"order_index"`

	// Embedding is present once computed. It is never serialized.
	Embedding []float32 `json:"-"`
}

// NormalizedText returns TextNorm, falling back to TextRaw when absent.
func (r ClauseRecord) NormalizedText() string {
	if strings.TrimSpace(r.TextNorm) == "" {
		return r.TextRaw
	}
	return r.TextNorm
}

// QueryText returns the text used to index and query this record.
func (r ClauseRecord) QueryText() string {
	return r.UnitType.NormalizeForQuery(r.NormalizedText())
}

// HasEmbedding reports whether a vector has been computed for the record.
func (r ClauseRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// ScoredCandidate is one hybrid retrieval hit. Scores are normalized to [0,1].
type ScoredCandidate struct {
	ClauseID    string
	ParentID    string
	DenseScore  float64
	SparseScore float64
	FusedScore  float64
}

// ArticleCandidate is a standard article matched by one or more sub-items of
// a user article.
type ArticleCandidate struct {
	ParentID      string `json:"parent_id"`
	Title         string `json:"title"`
	ArticleNumber int    `json:"article_number"`

	// AggregateScore is the mean of the contributing sub-item scores.
	AggregateScore        float64  `json:"aggregate_score"`
	DenseScore            float64  `json:"dense_score"`
	SparseScore           float64  `json:"sparse_score"`
	MatchedSubItemCount   int      `json:"matched_sub_item_count"`
	ContributingClauseIDs []string `json:"contributing_clause_ids"`
}

// Judgment is a semantic-equivalence verdict for one candidate pair.
type Judgment struct {
	IsMatch        bool    `json:"is_match"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	Recommendation string  `json:"recommendation,omitempty"`
	Evidence       string  `json:"evidence,omitempty"`
	Risk           string  `json:"risk,omitempty"`
}

// FailedJudgment is the conservative verdict recorded when a judge call fails.
func FailedJudgment(err error) Judgment {
	reasoning := "judgment unavailable"
	if err != nil {
		reasoning = err.Error()
	}
	return Judgment{IsMatch: false, Confidence: 0.0, Reasoning: reasoning}
}

// Accepts reports whether the judgment is a match at or above minConfidence.
func (j Judgment) Accepts(minConfidence float64) bool {
	return j.IsMatch && j.Confidence >= minConfidence
}
