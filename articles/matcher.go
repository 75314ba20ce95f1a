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

package articles

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/search"
)

// Retriever is the hybrid search the matcher queries once per sub-item.
type Retriever interface {
	Search(ctx context.Context, q search.Query, topK int) ([]core.ScoredCandidate, error)
}

var _ Retriever = (*search.Retriever)(nil)

// Matcher maps user articles onto standard articles through their sub-items.
type Matcher struct {
	retriever Retriever
	standard  *clause.Store
	embedder  ai.Embedder
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithPoolSize sets the number of sub-items retrieved concurrently.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(m *Matcher) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if m.pool != nil {
			m.pool.Release()
		}
		m.pool = pool
		return nil
	}
}

// WithEmbedder embeds sub-item query text before retrieval. Without an
// embedder a sub-item reuses the embedding of the record it came from.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(m *Matcher) error {
		m.embedder = embedder
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewMatcher creates a matcher that retrieves from the indices of the
// standard store.
func NewMatcher(retriever Retriever, standard *clause.Store, opts ...Option) (*Matcher, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if standard == nil {
		return nil, ErrStandardStoreRequired
	}

	m := &Matcher{
		retriever: retriever,
		standard:  standard,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			m.Release()
			return nil, err
		}
	}

	if m.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
		if err != nil {
			return nil, err
		}
		m.pool = pool
	}
	m.logger = m.logger.With("component", "article-matcher")

	return m, nil
}

// Release releases the worker pool. The matcher must not be used afterwards.
func (m *Matcher) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}

// TraceEntry records how one sub-item was matched.
type TraceEntry struct {
	Index     int     `json:"index"`
	Marker    string  `json:"marker,omitempty"`
	RawText   string  `json:"raw_text"`
	QueryText string  `json:"query_text"`
	Matched   bool    `json:"matched"`
	ParentID  string  `json:"parent_id,omitempty"`
	Title     string  `json:"title,omitempty"`
	Score     float64 `json:"score"`
	ClauseID  string  `json:"clause_id,omitempty"`
}

// Match is the article-level outcome for one user article.
type Match struct {
	Matched      bool
	Candidates   []core.ArticleCandidate
	SubItemTrace []TraceEntry
}

// selection is the single best standard article chosen for one sub-item.
type selection struct {
	parentID string
	title    string
	number   int
	score    float64
	dense    float64
	sparse   float64
	clauseID string
}

// MatchArticle decomposes a user article into sub-items, retrieves the best
// standard chunk for each, and aggregates the selections into ranked
// article candidates. An article whose sub-items retrieve nothing yields
// Matched=false rather than an error.
func (m *Matcher) MatchArticle(ctx context.Context, article *clause.Article, topKPerSubItem, topKTitles int) (*Match, error) {
	if topKPerSubItem < 1 || topKTitles < 1 {
		return nil, ErrInvalidTopK
	}

	// 1. Decompose into sub-items
	items := Decompose(article)
	if len(items) == 0 {
		return &Match{Matched: false, Candidates: []core.ArticleCandidate{}}, nil
	}
	if len(items) == 1 && items[0].Marker == "" {
		m.logger.Debug("no sub-item markers, matching article as a whole", "parentID", article.ParentID)
	}
	m.embedSubItems(ctx, items)

	// 2. Retrieve per sub-item concurrently, joined by index
	selections := make([]*selection, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			selections[i], errs[i] = m.matchSubItem(ctx, items[i], article.Title, topKPerSubItem)
		}
		if err := m.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	trace := make([]TraceEntry, len(items))
	for i, item := range items {
		trace[i] = TraceEntry{
			Index:     item.Index,
			Marker:    item.Marker,
			RawText:   item.RawText,
			QueryText: item.QueryText,
		}
		if sel := selections[i]; sel != nil {
			trace[i].Matched = true
			trace[i].ParentID = sel.parentID
			trace[i].Title = sel.title
			trace[i].Score = sel.score
			trace[i].ClauseID = sel.clauseID
		}
	}

	// 3. Aggregate and 4. rank
	candidates := aggregate(selections)
	if len(candidates) > topKTitles {
		candidates = candidates[:topKTitles]
	}

	return &Match{
		Matched:      len(candidates) > 0,
		Candidates:   candidates,
		SubItemTrace: trace,
	}, nil
}

// embedSubItems replaces inherited embeddings with embeddings of the
// sub-item text. Failures keep the inherited vectors.
func (m *Matcher) embedSubItems(ctx context.Context, items []SubItem) {
	if m.embedder == nil || len(items) < 2 {
		return
	}
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.QueryText
	}
	vectors, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vectors) != len(items) {
		m.logger.Warn("sub-item embedding failed, using record embeddings", "items", len(items), "err", err)
		return
	}
	for i := range items {
		if len(vectors[i]) > 0 {
			items[i].embedding = vectors[i]
		}
	}
}

func (m *Matcher) matchSubItem(ctx context.Context, item SubItem, title string, topK int) (*selection, error) {
	if strings.TrimSpace(item.QueryText) == "" && len(item.embedding) == 0 {
		return nil, nil
	}
	results, err := m.retriever.Search(ctx, search.Query{
		Text:      item.QueryText,
		Title:     title,
		Embedding: item.embedding,
	}, topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	// Keep the best chunk per standard article.
	best := make(map[string]core.ScoredCandidate)
	for _, c := range results {
		parent := c.ParentID
		if parent == "" {
			parent = c.ClauseID
		}
		if cur, ok := best[parent]; !ok || c.FusedScore > cur.FusedScore {
			best[parent] = c
		}
	}

	var chosen *selection
	for parent, c := range best {
		sel := &selection{
			parentID: parent,
			score:    c.FusedScore,
			dense:    c.DenseScore,
			sparse:   c.SparseScore,
			clauseID: c.ClauseID,
			number:   clause.ArticleNumber(parent, ""),
		}
		if a, ok := m.standard.Article(parent); ok {
			sel.title = a.Title
			sel.number = a.Number
		}
		if chosen == nil || betterSelection(sel, chosen) {
			chosen = sel
		}
	}
	return chosen, nil
}

func betterSelection(a, b *selection) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.number != b.number {
		return a.number < b.number
	}
	return a.parentID < b.parentID
}

// aggregate groups sub-item selections by standard article and ranks them by
// (matched sub-item count DESC, mean score DESC, article number ASC).
func aggregate(selections []*selection) []core.ArticleCandidate {
	type group struct {
		candidate core.ArticleCandidate
		seen      map[string]bool
	}
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, sel := range selections {
		if sel == nil {
			continue
		}
		g, ok := groups[sel.parentID]
		if !ok {
			g = &group{
				candidate: core.ArticleCandidate{
					ParentID:      sel.parentID,
					Title:         sel.title,
					ArticleNumber: sel.number,
				},
				seen: make(map[string]bool),
			}
			groups[sel.parentID] = g
			order = append(order, sel.parentID)
		}
		c := &g.candidate
		c.MatchedSubItemCount++
		c.AggregateScore += sel.score
		c.DenseScore += sel.dense
		c.SparseScore += sel.sparse
		if !g.seen[sel.clauseID] {
			g.seen[sel.clauseID] = true
			c.ContributingClauseIDs = append(c.ContributingClauseIDs, sel.clauseID)
		}
	}

	candidates := make([]core.ArticleCandidate, 0, len(order))
	for _, parent := range order {
		c := groups[parent].candidate
		n := float64(c.MatchedSubItemCount)
		c.AggregateScore /= n
		c.DenseScore /= n
		c.SparseScore /= n
		candidates = append(candidates, c)
	}

	RankCandidates(candidates)
	return candidates
}

// RankCandidates sorts candidates by matched sub-item count descending, then
// aggregate score descending, then article number ascending. Parent id breaks
// any remaining tie.
func RankCandidates(candidates []core.ArticleCandidate) {
	slices.SortStableFunc(candidates, func(a, b core.ArticleCandidate) int {
		if c := cmp.Compare(b.MatchedSubItemCount, a.MatchedSubItemCount); c != 0 {
			return c
		}
		if c := cmp.Compare(b.AggregateScore, a.AggregateScore); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ArticleNumber, b.ArticleNumber); c != 0 {
			return c
		}
		return strings.Compare(a.ParentID, b.ParentID)
	})
}
