package search

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/poiesic/clausematch/clause"
)

// DenseHit is one nearest-neighbor result.
type DenseHit struct {
	ClauseID string
	Distance float64
	// Similarity is 1/(1+Distance): 1 for an identical vector, approaching 0
	// as the distance grows.
	Similarity float64
}

// DenseIndex is a flat, exact L2 index over record embeddings.
// Records without an embedding are not indexed.
type DenseIndex struct {
	ids     []string
	parents map[string]string
	vectors [][]float32
	dim     int
}

// BuildDenseIndex indexes every record of the store that carries an
// embedding. A store without embeddings yields an empty index. All
// embeddings must have the same dimension.
func BuildDenseIndex(store *clause.Store) (*DenseIndex, error) {
	if store.Len() == 0 {
		return nil, ErrEmptyStore
	}

	ix := &DenseIndex{parents: make(map[string]string)}
	for _, r := range store.Records() {
		if !r.HasEmbedding() {
			continue
		}
		if ix.dim == 0 {
			ix.dim = len(r.Embedding)
		} else if len(r.Embedding) != ix.dim {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				ErrDimensionMismatch, r.ID, len(r.Embedding), ix.dim)
		}
		ix.ids = append(ix.ids, r.ID)
		ix.parents[r.ID] = r.ParentID
		ix.vectors = append(ix.vectors, r.Embedding)
	}
	return ix, nil
}

// Len returns the number of indexed vectors.
func (ix *DenseIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

// Dim returns the vector dimension, 0 for an empty index.
func (ix *DenseIndex) Dim() int {
	if ix == nil {
		return 0
	}
	return ix.dim
}

func (ix *DenseIndex) parentOf(id string) (string, bool) {
	if ix == nil {
		return "", false
	}
	parent, ok := ix.parents[id]
	return parent, ok
}

// Search returns up to limit nearest vectors, closest first, ties broken by
// clause id. A nil query or an empty index returns no hits. A query whose
// dimension differs from the index returns ErrDimensionMismatch.
func (ix *DenseIndex) Search(query []float32, limit int) ([]DenseHit, error) {
	if ix.Len() == 0 || len(query) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), ix.dim)
	}

	hits := make([]DenseHit, len(ix.ids))
	for i, v := range ix.vectors {
		d := l2Distance(query, v)
		hits[i] = DenseHit{ClauseID: ix.ids[i], Distance: d, Similarity: 1 / (1 + d)}
	}
	slices.SortFunc(hits, func(a, b DenseHit) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		return strings.Compare(a.ClauseID, b.ClauseID)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// l2Distance calculates the Euclidean distance of two equal-length vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
