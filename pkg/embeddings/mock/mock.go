// Package mock provides a deterministic offline Embedder for tests and
// local development without an embedding backend.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/papercomputeco/engram/pkg/embeddings"
)

// DefaultDimensions is the vector size produced when none is configured.
const DefaultDimensions = 128

// Embedder produces deterministic pseudo-embeddings derived from a hash
// of the input text. Equal texts always embed to equal vectors.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a mock embedder producing vectors of the given
// dimensionality. Non-positive dimensions fall back to DefaultDimensions.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed converts text into a deterministic unit-length vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(text))
	seed := hasher.Sum64()

	vec := make([]float32, e.dimensions)
	var norm float64
	for i := range vec {
		// xorshift over the seed keeps components reproducible.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		component := float64(int64(seed%2000)-1000) / 1000.0
		vec[i] = float32(component)
		norm += component * component
	}

	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}

// EmbedBatch embeds each text independently.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Close is a no-op for the mock embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
