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

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/clausematch/core"
)

// CachedEmbedding is a vector together with the model that produced it.
type CachedEmbedding struct {
	Model  string
	Vector []float32
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalEmbedding serializes a cached embedding as
// model string, vector length, then raw float32 values.
func MarshalEmbedding(e CachedEmbedding) []byte {
	size := ord.String.Size(e.Model) + varint.Uint64.Size(uint64(len(e.Vector)))
	for _, v := range e.Vector {
		size += raw.Float32.Size(v)
	}

	buf := make([]byte, size)
	n := ord.String.Marshal(e.Model, buf)
	n += varint.Uint64.Marshal(uint64(len(e.Vector)), buf[n:])
	for _, v := range e.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	return buf
}

// UnmarshalEmbedding deserializes a cached embedding.
func UnmarshalEmbedding(data []byte) (CachedEmbedding, error) {
	var e CachedEmbedding

	model, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return e, fmt.Errorf("%w: model: %w", ErrSerializationFailed, err)
	}
	e.Model = model

	length, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return e, fmt.Errorf("%w: length: %w", ErrSerializationFailed, err)
	}
	n += m

	// Each float32 takes four bytes.
	if length > uint64(len(data)-n)/4 {
		return e, ErrTruncatedData
	}
	e.Vector = make([]float32, length)
	for i := range e.Vector {
		v, m, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return e, fmt.Errorf("%w: value %d: %w", ErrSerializationFailed, i, err)
		}
		e.Vector[i] = v
		n += m
	}
	return e, nil
}

// MarshalResult serializes a verification result.
func MarshalResult(result *core.VerificationResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalResult deserializes a verification result.
func UnmarshalResult(data []byte) (*core.VerificationResult, error) {
	var result core.VerificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &result, nil
}
