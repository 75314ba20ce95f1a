package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/storage"
)

// ResultRepository implements storage.ResultRepository for BadgerDB.
type ResultRepository struct {
	backend *Backend
}

var _ storage.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(backend *Backend) storage.ResultRepository {
	return &ResultRepository{backend: backend}
}

// SaveResult stores a result and indexes it by creation time.
func (r *ResultRepository) SaveResult(ctx context.Context, result *core.VerificationResult) error {
	if result == nil || result.RunID == "" {
		return storage.ErrInvalidResult
	}
	value, err := storage.MarshalResult(result)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeResultKey(result.RunID)

		// Replace the index entry of an earlier version of this run.
		old, err := readResult(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			if err := tx.Delete(makeResultDateKey(old.CreatedAt, old.RunID)); err != nil {
				return err
			}
		}

		if err := tx.Set(key, value); err != nil {
			return err
		}
		if err := tx.Set(makeResultDateKey(result.CreatedAt, result.RunID), []byte(result.RunID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetResult retrieves a result by run id.
func (r *ResultRepository) GetResult(ctx context.Context, runID string) (*core.VerificationResult, error) {
	var result *core.VerificationResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readResult(tx, makeResultKey(runID))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

// ListResults walks the creation-time index backwards.
func (r *ResultRepository) ListResults(ctx context.Context, limit int) ([]*core.VerificationResult, error) {
	var results []*core.VerificationResult

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := resultDateIndexPrefix()
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration seeks to the last key <= seek, so seek past the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seek); iter.ValidForPrefix(prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			runID, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			result, err := readResult(tx, makeResultKey(string(runID)))
			if err != nil {
				return err
			}
			if result == nil {
				continue
			}
			results = append(results, result)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteResult removes a result and its index entry.
func (r *ResultRepository) DeleteResult(ctx context.Context, runID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeResultKey(runID)
		old, err := readResult(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeResultDateKey(old.CreatedAt, old.RunID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readResult returns nil, nil when the key is absent.
func readResult(tx *badger.Txn, key []byte) (*core.VerificationResult, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result *core.VerificationResult
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		result, unmarshalErr = storage.UnmarshalResult(val)
		return unmarshalErr
	})
	return result, err
}
