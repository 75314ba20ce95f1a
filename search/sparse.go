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

package search

import (
	"math"
	"slices"
	"strings"

	"github.com/poiesic/clausematch/clause"
)

// Field selects which text of a record a sparse query runs against.
type Field int

const (
	// FieldText is the normalized clause text.
	FieldText Field = iota
	// FieldTitle is the article title.
	FieldTitle
)

const (
	defaultK1 = 1.2
	defaultB  = 0.75
)

// SparseHit is a raw BM25 score for one record.
type SparseHit struct {
	ClauseID string
	Score    float64
}

type posting struct {
	doc int
	tf  int
}

// bm25Field is the inverted index of a single field.
type bm25Field struct {
	postings map[string][]posting
	lengths  []int
	avgLen   float64
}

// SparseIndex is a BM25 keyword index over clause text and, separately,
// clause titles. It is immutable once built.
type SparseIndex struct {
	ids     []string
	parents map[string]string
	text    *bm25Field
	title   *bm25Field
	k1      float64
	b       float64
}

// SparseOption configures a SparseIndex.
type SparseOption func(*SparseIndex) error

// WithBM25Params overrides the BM25 term-saturation (k1) and length
// normalization (b) parameters. Defaults are k1=1.2, b=0.75.
func WithBM25Params(k1, b float64) SparseOption {
	return func(ix *SparseIndex) error {
		if !(k1 >= 0) || !(b >= 0 && b <= 1) {
			return ErrInvalidBM25Params
		}
		ix.k1 = k1
		ix.b = b
		return nil
	}
}

// BuildSparseIndex indexes every record of the store. Records without a
// title of their own are indexed under their article's title.
func BuildSparseIndex(store *clause.Store, opts ...SparseOption) (*SparseIndex, error) {
	if store.Len() == 0 {
		return nil, ErrEmptyStore
	}

	ix := &SparseIndex{
		parents: make(map[string]string, store.Len()),
		k1:      defaultK1,
		b:       defaultB,
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	records := store.Records()
	textDocs := make([][]string, len(records))
	titleDocs := make([][]string, len(records))
	for i, r := range records {
		ix.ids = append(ix.ids, r.ID)
		ix.parents[r.ID] = r.ParentID

		title := r.Title
		if strings.TrimSpace(title) == "" {
			if a, ok := store.Article(r.ParentID); ok {
				title = a.Title
			}
		}
		textDocs[i] = tokenize(r.QueryText())
		titleDocs[i] = tokenize(title)
	}

	ix.text = newBM25Field(textDocs)
	ix.title = newBM25Field(titleDocs)
	return ix, nil
}

func newBM25Field(docs [][]string) *bm25Field {
	f := &bm25Field{
		postings: make(map[string][]posting),
		lengths:  make([]int, len(docs)),
	}
	total := 0
	for doc, tokens := range docs {
		f.lengths[doc] = len(tokens)
		total += len(tokens)

		counts := make(map[string]int, len(tokens))
		order := make([]string, 0, len(tokens))
		for _, t := range tokens {
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
		for _, t := range order {
			f.postings[t] = append(f.postings[t], posting{doc: doc, tf: counts[t]})
		}
	}
	if len(docs) > 0 {
		f.avgLen = float64(total) / float64(len(docs))
	}
	return f
}

// Len returns the number of indexed records.
func (ix *SparseIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

// parentOf returns the parent id of an indexed record.
func (ix *SparseIndex) parentOf(id string) (string, bool) {
	if ix == nil {
		return "", false
	}
	parent, ok := ix.parents[id]
	return parent, ok
}

// Search scores the query against one field and returns hits with a
// positive score, best first, ties broken by clause id. A limit <= 0 returns
// every hit.
func (ix *SparseIndex) Search(field Field, query string, limit int) []SparseHit {
	if ix == nil || len(ix.ids) == 0 {
		return nil
	}
	f := ix.text
	if field == FieldTitle {
		f = ix.title
	}

	terms := uniqueTerms(tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	n := float64(len(ix.ids))
	scores := make(map[int]float64)
	for _, term := range terms {
		postings := f.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			tf := float64(p.tf)
			norm := 1.0
			if f.avgLen > 0 {
				norm = 1 - ix.b + ix.b*float64(f.lengths[p.doc])/f.avgLen
			}
			scores[p.doc] += idf * tf * (ix.k1 + 1) / (tf + ix.k1*norm)
		}
	}

	hits := make([]SparseHit, 0, len(scores))
	for doc, score := range scores {
		if score > 0 {
			hits = append(hits, SparseHit{ClauseID: ix.ids[doc], Score: score})
		}
	}
	slices.SortFunc(hits, func(a, b SparseHit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ClauseID, b.ClauseID)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
