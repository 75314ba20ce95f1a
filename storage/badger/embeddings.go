package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/storage"
)

// EmbeddingCache implements storage.EmbeddingCache for BadgerDB.
type EmbeddingCache struct {
	backend *Backend
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates a new EmbeddingCache.
func NewEmbeddingCache(backend *Backend) storage.EmbeddingCache {
	return &EmbeddingCache{backend: backend}
}

// GetEmbeddings returns the cached vectors present for keys.
func (c *EmbeddingCache) GetEmbeddings(ctx context.Context, keys ...core.ID) (map[core.ID][]float32, error) {
	found := make(map[core.ID][]float32, len(keys))
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			item, err := tx.Get(makeEmbeddingKey(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				cached, err := storage.UnmarshalEmbedding(val)
				if err != nil {
					return err
				}
				found[key] = cached.Vector
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// PutEmbeddings stores vectors in batches small enough for one transaction.
func (c *EmbeddingCache) PutEmbeddings(ctx context.Context, model string, vectors map[core.ID][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	wb := c.backend.db.NewWriteBatch()
	defer wb.Cancel()

	for key, vector := range vectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		value := storage.MarshalEmbedding(storage.CachedEmbedding{Model: model, Vector: vector})
		if err := wb.Set(makeEmbeddingKey(key), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}
