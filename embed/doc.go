// Package embed computes embeddings for clause stores.
//
// Records are embedded in batches on a worker pool. Each batch call is
// retried with exponential backoff, vectors are normalized to unit length,
// and results can be persisted in a content-addressed storage.EmbeddingCache
// so unchanged clauses are never embedded twice.
//
// A record whose batch keeps failing is left without an embedding. The
// retriever then falls back to keyword search for it.
package embed
