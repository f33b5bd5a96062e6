// Package inmemory provides a process-local vector driver using brute-force
// cosine similarity. Intended for tests and local development without a
// vector database.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
)

// InMemoryDriver implements vector.VectorDriver with a map and a linear
// scan. Correctness over performance.
type InMemoryDriver struct {
	dimensions uint
	logger     *zap.Logger

	mu   sync.RWMutex
	docs map[string]vector.Document
}

// Config holds configuration for the in-memory driver.
type Config struct {
	// Dimensions is the expected embedding dimensionality. Documents and
	// queries with a different dimensionality are rejected.
	Dimensions uint
}

// NewInMemoryDriver creates an empty in-memory vector store.
func NewInMemoryDriver(c Config, logger *zap.Logger) (*InMemoryDriver, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("in-memory embedding dimensions cannot be 0, must be configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InMemoryDriver{
		dimensions: c.Dimensions,
		logger:     logger,
		docs:       make(map[string]vector.Document),
	}, nil
}

// Add stores documents, replacing any existing document with the same ID.
func (d *InMemoryDriver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		if len(doc.Embedding) != int(d.dimensions) {
			return fmt.Errorf("%w: doc %s has %d dimensions, store expects %d",
				vector.ErrDimensions, doc.ID, len(doc.Embedding), d.dimensions)
		}
		d.docs[doc.ID] = doc
	}

	return nil
}

// Query scans all documents and returns the topK by cosine similarity.
func (d *InMemoryDriver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if len(embedding) != int(d.dimensions) {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			vector.ErrDimensions, len(embedding), d.dimensions)
	}
	if topK <= 0 {
		topK = 10
	}

	d.mu.RLock()
	results := make([]vector.QueryResult, 0, len(d.docs))
	for _, doc := range d.docs {
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    cosineSimilarity(embedding, doc.Embedding),
		})
	}
	d.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Get retrieves documents by ID, skipping unknown ids.
func (d *InMemoryDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Delete removes documents by ID. Unknown ids are ignored.
func (d *InMemoryDriver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.docs, id)
	}
	return nil
}

// Clear removes every stored document.
func (d *InMemoryDriver) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.docs = make(map[string]vector.Document)
	return nil
}

// Stats reports the stored document count and configured dimensions.
func (d *InMemoryDriver) Stats(_ context.Context) (vector.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return vector.Stats{
		Count:      int64(len(d.docs)),
		Dimensions: d.dimensions,
	}, nil
}

// Close is a no-op for the in-memory driver.
func (d *InMemoryDriver) Close() error {
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ vector.VectorDriver = (*InMemoryDriver)(nil)
