package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
)

// DefaultDimension is the vector size of the default mock embeddings.
const DefaultDimension = 384

// MockEmbedder is a test double for ai.Embedder.
//
// The default vectors hash each word into a bucket and add a small
// text-seeded perturbation, so equal texts embed identically and texts that
// share words land close together.
type MockEmbedder struct {
	// EmbedTextFunc replaces EmbedText if set.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc replaces EmbedTexts if set.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension of the default vectors. Zero means DefaultDimension.
	Dimension int

	callCount atomic.Int64
	mu        sync.Mutex
	texts     []string
}

// NewMockEmbedder creates a mock embedder with the default vectors.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record(text)
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wordVector(text, m.dim()), nil
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record(texts...)
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = wordVector(text, m.dim())
	}
	return out, nil
}

// record counts one call and remembers the texts it carried.
func (m *MockEmbedder) record(texts ...string) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.texts = append(m.texts, texts...)
	m.mu.Unlock()
}

func (m *MockEmbedder) dim() int {
	if m.Dimension > 0 {
		return m.Dimension
	}
	return DefaultDimension
}

// CallCount returns the number of EmbedText and EmbedTexts calls.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Texts returns every text sent so far, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call count, the recorded texts and custom functions.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.texts = nil
	m.mu.Unlock()
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// wordVector builds a unit vector from the words of text.
func wordVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	for _, w := range words(text) {
		h := fnv.New64a()
		h.Write([]byte(w))
		sum := h.Sum64()
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vector[sum%uint64(dim)] += sign
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] += 0.25 * (float32(seed%1000)/1000 - 0.5)
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		scale := float32(1 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}
