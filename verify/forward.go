package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/search"
)

const defaultRisk = "Without this clause, ambiguity may arise during contract performance."

func defaultRecommendation(title string) string {
	return fmt.Sprintf("Recommend adding the '%s' clause.", title)
}

// analyzeMissing runs the forward pass for every unclaimed standard unit.
// The result is in document order.
func (r *run) analyzeMissing(ctx context.Context, missing []unit) ([]core.MissingClauseAnalysis, error) {
	analyses := make([]core.MissingClauseAnalysis, len(missing))
	err := r.parallel(ctx, len(missing), func(i int) error {
		a, err := r.analyze(ctx, missing[i])
		if err != nil {
			return err
		}
		analyses[i] = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

type forwardHit struct {
	record core.ClauseRecord
	score  float64
}

func (r *run) analyze(ctx context.Context, su unit) (core.MissingClauseAnalysis, error) {
	hits, err := r.closestUserUnits(ctx, su)
	if err != nil {
		return core.MissingClauseAnalysis{}, err
	}
	if len(hits) == 0 {
		return missingWithoutCandidates(su), nil
	}

	req := ai.BatchRequest{
		Direction:  ai.Forward,
		Anchor:     ai.PassageFromRecord(su.record, 0),
		Candidates: make([]ai.Passage, len(hits)),
	}
	for i, h := range hits {
		req.Candidates[i] = ai.PassageFromRecord(h.record, h.score)
	}
	verdict, err := r.judgeBatch(ctx, req)
	if err != nil {
		return core.MissingClauseAnalysis{}, err
	}

	analysis := core.MissingClauseAnalysis{
		StandardClause: su.record,
		Candidates:     make([]core.ForwardCandidate, len(hits)),
		Evidence:       make([]string, len(hits)),
	}
	closest := -1
	for i, h := range hits {
		j := verdict.Judgments[i]
		analysis.Candidates[i] = core.ForwardCandidate{UserClause: h.record, Similarity: h.score, Judgment: j}
		analysis.Evidence[i] = evidenceLine(h, j)
		if j.Accepts(r.config.MinConfidence) && (closest < 0 || j.Confidence > verdict.Judgments[closest].Confidence) {
			closest = i
		}
	}

	analysis.IsTrulyMissing = closest < 0
	if closest >= 0 {
		best := verdict.Judgments[closest]
		user := hits[closest].record
		analysis.ClosestUser = &user
		analysis.Confidence = best.Confidence
		analysis.Reasoning = firstNonEmpty(verdict.Summary, best.Reasoning,
			fmt.Sprintf("User clause '%s' covers the '%s' clause but was not matched to it in the primary pass.", user.ID, su.title()))
		analysis.Recommendation = firstNonEmpty(verdict.Recommendation, best.Recommendation,
			fmt.Sprintf("Review user clause '%s' against the '%s' clause.", user.ID, su.title()))
		analysis.RiskAssessment = firstNonEmpty(verdict.Risk, best.Risk)
		return analysis, nil
	}

	for _, j := range verdict.Judgments {
		analysis.Confidence = max(analysis.Confidence, j.Confidence)
	}
	analysis.Reasoning = firstNonEmpty(verdict.Summary,
		fmt.Sprintf("None of the %d closest user clauses is equivalent to the '%s' clause. %s",
			len(hits), su.title(), strings.Join(analysis.Evidence, "; ")))
	analysis.Recommendation = firstNonEmpty(verdict.Recommendation, defaultRecommendation(su.title()))
	analysis.RiskAssessment = firstNonEmpty(verdict.Risk, defaultRisk)
	return analysis, nil
}

// closestUserUnits retrieves the ForwardTopK user units nearest to su,
// independent of what they claimed in the reverse pass.
func (r *run) closestUserUnits(ctx context.Context, su unit) ([]forwardHit, error) {
	if r.userRetriever == nil {
		return nil, nil
	}
	q := search.Query{Embedding: su.record.Embedding}
	if !su.record.HasEmbedding() {
		q = search.Query{Text: su.record.QueryText(), Title: su.record.Title}
	}

	// Several records can belong to one user article.
	depth := r.config.ForwardTopK
	if r.config.Granularity == GranularityArticle {
		depth *= 4
	}
	results, err := r.userRetriever.Search(ctx, q, depth)
	if err == nil && len(results) == 0 && q.Embedding != nil {
		// User records without embeddings can still be found by keyword.
		results, err = r.userRetriever.Search(ctx, search.Query{Text: su.record.QueryText(), Title: su.record.Title}, depth)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("forward retrieval failed", "standardID", su.id(), "err", err)
		return nil, nil
	}

	hits := make([]forwardHit, 0, r.config.ForwardTopK)
	seen := make(map[string]bool)
	for _, sc := range results {
		id := sc.ClauseID
		if r.config.Granularity == GranularityArticle {
			id = sc.ParentID
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, ok := r.userUnit(id)
		if !ok {
			continue
		}
		hits = append(hits, forwardHit{record: rec, score: sc.FusedScore})
		if len(hits) == r.config.ForwardTopK {
			break
		}
	}
	return hits, nil
}

func (r *run) userUnit(id string) (core.ClauseRecord, bool) {
	i, ok := r.userIndex[id]
	if !ok {
		return core.ClauseRecord{}, false
	}
	return r.userUnits[i].record, true
}

// missingWithoutCandidates explains a missing unit from its own content.
func missingWithoutCandidates(su unit) core.MissingClauseAnalysis {
	return core.MissingClauseAnalysis{
		StandardClause: su.record,
		IsTrulyMissing: true,
		Reasoning: fmt.Sprintf("No user clause corresponds to the '%s' clause: %s",
			su.title(), excerpt(su.record.NormalizedText(), 200)),
		Recommendation: defaultRecommendation(su.title()),
		RiskAssessment: defaultRisk,
	}
}

func evidenceLine(h forwardHit, j core.Judgment) string {
	return fmt.Sprintf("user clause '%s' (similarity %.2f): %s", h.record.ID, h.score, j.Reasoning)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + " …"
}
