// Package vector provides interfaces and implementations for vector storage and embedding.
package vector

import "context"

// Document represents a stored item with its embedding and payload.
type Document struct {
	// ID is a unique identifier for the document (memory item id or chunk id).
	ID string

	// Embedding is the vector representation of the document content.
	Embedding []float32

	// Payload carries searchable metadata. The "content" field holds the
	// document text and is what lexical channels match against.
	Payload map[string]any
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Stats reports store-level counters.
type Stats struct {
	// Count is the number of stored documents.
	Count int64

	// Dimensions is the configured embedding dimensionality.
	Dimensions uint
}

// VectorDriver handles storage and retrieval of vector embeddings.
type VectorDriver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Clear removes every stored document.
	Clear(ctx context.Context) error

	// Stats reports document count and dimensionality.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the driver.
	Close() error
}

// Content returns the payload "content" field, or empty when absent.
func (d *Document) Content() string {
	if d.Payload == nil {
		return ""
	}
	if content, ok := d.Payload["content"].(string); ok {
		return content
	}
	return ""
}
