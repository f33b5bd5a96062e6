package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LearnFailure records one chunk that could not be ingested.
type LearnFailure struct {
	ChunkID string `json:"chunk_id"`
	Reason  string `json:"reason"`
}

// LearnResult reports a best-effort document ingest.
type LearnResult struct {
	ChunksTotal int            `json:"chunks_total"`
	Succeeded   int            `json:"succeeded"`
	Failures    []LearnFailure `json:"failures,omitempty"`
}

// Learn splits a document into chunks and ingests each one into both
// long-term channels. Ingest is best-effort: per-chunk failures are
// collected and the rest of the document still lands.
func (e *Engine) Learn(ctx context.Context, text, source string) (*LearnResult, error) {
	chunks, err := e.chunker.Split(text, source)
	if err != nil {
		return nil, fmt.Errorf("chunking %s: %w", source, err)
	}

	result := &LearnResult{ChunksTotal: len(chunks)}
	now := time.Now().UTC().Format(time.RFC3339)

	for _, chunk := range chunks {
		embedding, err := e.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			result.Failures = append(result.Failures, LearnFailure{
				ChunkID: chunk.ID,
				Reason:  fmt.Sprintf("embedding: %v", err),
			})
			continue
		}

		err = e.search.AddMemory(ctx, chunk.ID, chunk.Content, embedding, map[string]any{
			"source":      chunk.Source,
			"chunk_index": chunk.Metadata.ChunkIndex,
			"created_at":  now,
		})
		if err != nil {
			result.Failures = append(result.Failures, LearnFailure{
				ChunkID: chunk.ID,
				Reason:  fmt.Sprintf("indexing: %v", err),
			})
			continue
		}

		e.bm25.Add(chunk.ID, chunk.Content)
		result.Succeeded++
	}

	e.logger.Info("learned document",
		zap.String("source", source),
		zap.Int("chunks", result.ChunksTotal),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failures)),
	)

	return result, nil
}

// Forget removes a previously learned chunk or archived summary from both
// long-term channels.
func (e *Engine) Forget(ctx context.Context, id string) error {
	if err := e.search.RemoveMemory(ctx, id); err != nil {
		return err
	}
	e.bm25.Delete(id)
	return nil
}
