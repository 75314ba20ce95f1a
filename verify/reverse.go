package verify

import (
	"context"
	"fmt"

	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/search"
)

// candidate is one standard unit proposed for a user unit.
type candidate struct {
	record core.ClauseRecord
	dense  float64
	sparse float64
	fused  float64
}

// outcome is everything the reducer needs about one user unit. It is
// computed independently of every other user unit.
type outcome struct {
	user       unit
	candidates []candidate
	judgments  []core.Judgment
}

// scoreUserUnits retrieves and judges candidates for every user unit
// concurrently. The result is in document order.
func (r *run) scoreUserUnits(ctx context.Context) ([]outcome, error) {
	outcomes := make([]outcome, len(r.userUnits))
	err := r.parallel(ctx, len(r.userUnits), func(i int) error {
		u := r.userUnits[i]
		cands, err := r.candidatesFor(ctx, u)
		if err != nil {
			return err
		}
		judgments, err := r.judgeReverse(ctx, u, cands)
		if err != nil {
			return err
		}
		outcomes[i] = outcome{user: u, candidates: cands, judgments: judgments}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// candidatesFor ranks standard units for a user unit. Retrieval problems
// other than cancellation leave the unit without candidates.
func (r *run) candidatesFor(ctx context.Context, u unit) ([]candidate, error) {
	var cands []candidate

	if r.matcher != nil {
		match, err := r.matcher.MatchArticle(ctx, u.article, r.config.TopKPerSubItem, r.config.articleTopK())
		if err != nil {
			return r.degraded(ctx, u, err)
		}
		for _, ac := range match.Candidates {
			rec, ok := r.standardUnit(ac.ParentID)
			if !ok {
				continue
			}
			cands = append(cands, candidate{
				record: rec,
				dense:  ac.DenseScore,
				sparse: ac.SparseScore,
				fused:  ac.AggregateScore,
			})
		}
		return cands, nil
	}

	results, err := r.retriever.Search(ctx, search.Query{
		Text:      u.record.QueryText(),
		Title:     u.record.Title,
		Embedding: u.record.Embedding,
	}, r.config.TopKCandidates)
	if err != nil {
		return r.degraded(ctx, u, err)
	}
	for _, sc := range results {
		rec, ok := r.standardUnit(sc.ClauseID)
		if !ok {
			continue
		}
		cands = append(cands, candidate{
			record: rec,
			dense:  sc.DenseScore,
			sparse: sc.SparseScore,
			fused:  sc.FusedScore,
		})
	}
	return cands, nil
}

func (r *run) degraded(ctx context.Context, u unit, err error) ([]candidate, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	r.logger.Warn("retrieval failed, unit has no candidates", "userID", u.id(), "err", err)
	return nil, nil
}

// judgeReverse asks for one verdict per candidate in a single batch call.
// A failed call yields failed judgments rather than an error.
func (r *run) judgeReverse(ctx context.Context, u unit, cands []candidate) ([]core.Judgment, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	req := ai.BatchRequest{
		Direction:  ai.Reverse,
		Anchor:     ai.PassageFromRecord(u.record, 0),
		Candidates: make([]ai.Passage, len(cands)),
	}
	for i, c := range cands {
		req.Candidates[i] = ai.PassageFromRecord(c.record, c.fused)
	}
	verdict, err := r.judgeBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return verdict.Judgments, nil
}

// judgeBatch converts a failed judge call into failed judgments. Only
// cancellation is returned.
func (r *run) judgeBatch(ctx context.Context, req ai.BatchRequest) (*ai.BatchVerdict, error) {
	verdict, err := r.judge.JudgeBatch(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("judge call failed, recording failed judgments",
			"direction", req.Direction, "anchor", req.Anchor.ID, "candidates", len(req.Candidates), "err", err)
		verdict = &ai.BatchVerdict{Judgments: make([]core.Judgment, len(req.Candidates))}
		for i := range verdict.Judgments {
			verdict.Judgments[i] = core.FailedJudgment(err)
		}
		return verdict, nil
	}
	if verdict == nil {
		verdict = &ai.BatchVerdict{}
	}
	verdict.Pad(len(req.Candidates))
	return verdict, nil
}

// reverseResult is the output of the claim reducer.
type reverseResult struct {
	claimed      map[string]bool
	matchedUsers map[string]bool
	matches      []core.MatchResult
	duplicates   []core.MatchResult
	unmatched    []core.UnmatchedUserClause
}

// reduce applies claims in document order. It is the only place the claim
// set is written.
func (r *run) reduce(outcomes []outcome) reverseResult {
	res := reverseResult{
		claimed:      make(map[string]bool),
		matchedUsers: make(map[string]bool),
		matches:      make([]core.MatchResult, 0),
		duplicates:   make([]core.MatchResult, 0),
		unmatched:    make([]core.UnmatchedUserClause, 0),
	}
	minConf := r.config.MinConfidence

	for _, oc := range outcomes {
		userID := oc.user.id()
		if len(oc.candidates) == 0 {
			res.unmatched = append(res.unmatched, core.UnmatchedUserClause{
				UserClause: oc.user.record,
				Reason:     "no retrieval candidates",
			})
			continue
		}

		accepted := false
		duplicate := make([]bool, len(oc.candidates))
		for i, c := range oc.candidates {
			j := oc.judgments[i]
			standardID := c.record.ID
			if res.claimed[standardID] {
				if j.Accepts(minConf) {
					mr := newMatchResult(c, oc.user.record, j)
					mr.IsDuplicate = true
					mr.DuplicateReason = fmt.Sprintf("%s already claimed", standardID)
					res.duplicates = append(res.duplicates, mr)
					duplicate[i] = true
					r.monitor.Duplicate(userID, standardID)
				}
				continue
			}
			if j.Accepts(minConf) {
				mr := newMatchResult(c, oc.user.record, j)
				mr.IsMatched = true
				res.matches = append(res.matches, mr)
				res.claimed[standardID] = true
				res.matchedUsers[userID] = true
				accepted = true
				r.monitor.Claimed(userID, standardID, j.Confidence)
				break
			}
		}
		if accepted {
			continue
		}

		kept := 0
		for i, c := range oc.candidates {
			if kept >= r.config.FailedCandidatesKept {
				break
			}
			if duplicate[i] {
				continue
			}
			res.matches = append(res.matches, newMatchResult(c, oc.user.record, oc.judgments[i]))
			kept++
		}
		best := oc.candidates[0]
		res.unmatched = append(res.unmatched, core.UnmatchedUserClause{
			UserClause:      oc.user.record,
			ClosestStandard: best.record.ID,
			ClosestScore:    best.fused,
			Reason:          unmatchedReason(oc, duplicate, minConf),
		})
	}
	return res
}

func unmatchedReason(oc outcome, duplicate []bool, minConf float64) string {
	dups := 0
	for _, d := range duplicate {
		if d {
			dups++
		}
	}
	if dups == len(oc.candidates) {
		return "every matching standard clause was already claimed"
	}
	return fmt.Sprintf("no candidate accepted at confidence %.2f or higher; closest: %s", minConf, oc.judgments[0].Reasoning)
}

func newMatchResult(c candidate, user core.ClauseRecord, j core.Judgment) core.MatchResult {
	matched := user
	judgment := j
	return core.MatchResult{
		StandardClause: c.record,
		MatchedClause:  &matched,
		DenseScore:     c.dense,
		SparseScore:    c.sparse,
		FusedScore:     c.fused,
		Judgment:       &judgment,
	}
}
