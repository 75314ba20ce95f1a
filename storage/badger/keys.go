package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/clausematch/core"
)

// Key prefixes for different data types
const (
	resultPrefix     = "vrun"
	resultDatePrefix = "vrund"
	embeddingPrefix  = "emb"
)

// makeResultKey generates a key for a verification result by run id.
func makeResultKey(runID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", resultPrefix, runID))
}

// makeResultDateKey generates a composite key for the creation-time index.
// Format: prefix:timestamp:runID
func makeResultDateKey(createdAt time.Time, runID string) []byte {
	prefixBytes := []byte(resultDatePrefix + ":")
	buf := make([]byte, len(prefixBytes)+8+len(runID))
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], runID)
	return buf
}

// resultDateIndexPrefix is the prefix of every creation-time index key.
func resultDateIndexPrefix() []byte {
	return []byte(resultDatePrefix + ":")
}

// makeEmbeddingKey generates a key for a cached embedding.
func makeEmbeddingKey(key core.ID) []byte {
	prefixBytes := []byte(embeddingPrefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(key))
	return buf
}
