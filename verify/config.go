package verify

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/search"
)

// Granularity selects what a verification unit is.
type Granularity string

const (
	// GranularityArticle compares whole articles, matched through their sub-items.
	GranularityArticle Granularity = "article"
	// GranularityClause compares individual clause records.
	GranularityClause Granularity = "clause"
)

// ParseGranularity converts a string to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case GranularityArticle, GranularityClause:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
}

// Config holds the tuning knobs of a verification run.
type Config struct {
	DenseWeight  float64 `mapstructure:"dense_weight"`
	SparseWeight float64 `mapstructure:"sparse_weight"`
	TextWeight   float64 `mapstructure:"text_weight"`
	TitleWeight  float64 `mapstructure:"title_weight"`

	// TopKCandidates bounds the standard candidates judged per user unit.
	TopKCandidates int `mapstructure:"top_k_candidates"`
	// TopKPerSubItem is the retrieval depth of one sub-item.
	TopKPerSubItem int `mapstructure:"top_k_per_sub_item"`
	// TopKTitles bounds the article candidates kept per user article.
	TopKTitles int `mapstructure:"top_k_titles"`
	// ForwardTopK is the number of user units judged per missing standard unit.
	ForwardTopK int `mapstructure:"forward_top_k"`
	// FailedCandidatesKept is the number of rejected candidates recorded for
	// a user unit without an accepted match.
	FailedCandidatesKept int `mapstructure:"failed_candidates_kept"`

	MinConfidence float64     `mapstructure:"min_confidence"`
	Granularity   Granularity `mapstructure:"granularity"`
	// Workers is the number of units processed concurrently.
	Workers int `mapstructure:"workers"`
}

// DefaultConfig returns the default verification settings.
func DefaultConfig() *Config {
	return &Config{
		DenseWeight:          search.DefaultDenseWeight,
		SparseWeight:         search.DefaultSparseWeight,
		TextWeight:           search.DefaultTextWeight,
		TitleWeight:          search.DefaultTitleWeight,
		TopKCandidates:       10,
		TopKPerSubItem:       1,
		TopKTitles:           5,
		ForwardTopK:          3,
		FailedCandidatesKept: 3,
		MinConfidence:        0.5,
		Granularity:          GranularityArticle,
		Workers:              runtime.NumCPU(),
	}
}

// Validate checks the configuration. Any failure wraps core.ErrConfiguration.
func (c *Config) Validate() error {
	if err := core.ValidateWeightPair(c.DenseWeight, c.SparseWeight); err != nil {
		return fmt.Errorf("%w: %w", search.ErrWeightSum, err)
	}
	if err := core.ValidateWeightPair(c.TextWeight, c.TitleWeight); err != nil {
		return fmt.Errorf("%w: %w", search.ErrFieldWeightSum, err)
	}
	if !(c.MinConfidence >= 0 && c.MinConfidence <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidMinConfidence, c.MinConfidence)
	}
	for name, v := range map[string]int{
		"TopKCandidates": c.TopKCandidates,
		"TopKPerSubItem": c.TopKPerSubItem,
		"TopKTitles":     c.TopKTitles,
		"ForwardTopK":    c.ForwardTopK,
	} {
		if v < 1 {
			return fmt.Errorf("%w: %s is %d", ErrInvalidTopK, name, v)
		}
	}
	if c.FailedCandidatesKept < 0 {
		return fmt.Errorf("%w: FailedCandidatesKept must not be negative", core.ErrConfiguration)
	}
	if _, err := ParseGranularity(string(c.Granularity)); err != nil {
		return err
	}
	return nil
}

// articleTopK is the number of article candidates judged per user article.
func (c *Config) articleTopK() int {
	return min(c.TopKTitles, c.TopKCandidates)
}
