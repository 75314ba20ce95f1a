package search

import "github.com/poiesic/clausematch/core"

// RetrievalMonitor provides hooks to observe a hybrid search.
// Implement this interface to track intermediate steps and results during search.
type RetrievalMonitor interface {
	Start(query Query, topK int)
	AfterDenseSearch(hits []DenseHit)
	AfterSparseSearch(text, title []SparseHit)
	// AdaptiveWeighting is called when one side returned nothing and the
	// effective weights differ from the configured ones.
	AdaptiveWeighting(denseWeight, sparseWeight float64)
	Finish(results []core.ScoredCandidate)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query, _ int)               {}
func (n *noopMonitor) AfterDenseSearch(_ []DenseHit)      {}
func (n *noopMonitor) AfterSparseSearch(_, _ []SparseHit) {}
func (n *noopMonitor) AdaptiveWeighting(_, _ float64)     {}
func (n *noopMonitor) Finish(_ []core.ScoredCandidate)    {}
