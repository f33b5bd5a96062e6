// Package search provides hybrid retrieval over the long-term store:
// a vector-similarity channel fused with a lexical channel.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
)

// ErrSearch is the sentinel error for failed searches.
var ErrSearch = errors.New("search failed")

// Result is a ranked retrieval hit.
type Result struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Config controls one hybrid search invocation.
type Config struct {
	// VectorWeight scales the similarity channel's contribution.
	VectorWeight float64

	// KeywordWeight scales the lexical channel's contribution.
	KeywordWeight float64

	// Limit caps the number of returned results.
	Limit int

	// MinScore, when set, filters out results scoring below it after
	// normalization.
	MinScore *float64
}

// DefaultConfig returns the weights used when the caller does not care.
func DefaultConfig() Config {
	return Config{
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		Limit:         10,
	}
}

// Engine fuses vector and keyword retrieval against a vector driver.
type Engine struct {
	driver vector.VectorDriver
	logger *zap.Logger
}

// NewEngine creates a hybrid search engine over the given driver.
func NewEngine(driver vector.VectorDriver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{driver: driver, logger: logger}
}

// Search runs the vector channel (when a query vector is supplied and
// VectorWeight > 0) and the keyword channel (when KeywordWeight > 0 and
// the query text is non-empty), merges scores by id with a sum, and
// normalizes by VectorWeight + KeywordWeight.
//
// An item hit by only one channel is still normalized by the full weight
// sum. That lets single-channel hits rank below dual-channel ones by
// construction; kept as documented behavior.
//
// When one channel fails and the other succeeds, the partial results are
// returned and the failure logged; the query only errors when every
// active channel fails.
func (e *Engine) Search(ctx context.Context, queryText string, queryVector []float32, cfg Config) ([]Result, error) {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 10
	}

	type merged struct {
		score   float64
		content string
		payload map[string]any
	}
	scores := make(map[string]*merged)

	upsert := func(id, content string, payload map[string]any, contribution float64) {
		entry, ok := scores[id]
		if !ok {
			entry = &merged{content: content, payload: payload}
			scores[id] = entry
		}
		if entry.content == "" {
			entry.content = content
		}
		entry.score += contribution
	}

	activeChannels := 0
	failedChannels := 0
	var channelErr error

	if len(queryVector) > 0 && cfg.VectorWeight > 0 {
		activeChannels++
		hits, err := e.driver.Query(ctx, queryVector, limit)
		if err != nil {
			failedChannels++
			channelErr = err
			e.logger.Warn("vector channel failed", zap.Error(err))
		} else {
			for _, hit := range hits {
				upsert(hit.ID, hit.Content(), hit.Payload, float64(hit.Score)*cfg.VectorWeight)
			}
		}
	}

	if queryText != "" && cfg.KeywordWeight > 0 {
		activeChannels++
		hits, err := e.keywordScan(ctx, queryText)
		if err != nil {
			failedChannels++
			channelErr = err
			e.logger.Warn("keyword channel failed", zap.Error(err))
		} else {
			for _, hit := range hits {
				upsert(hit.ID, hit.Content, hit.Payload, hit.Score*cfg.KeywordWeight)
			}
		}
	}

	if activeChannels > 0 && failedChannels == activeChannels {
		return nil, fmt.Errorf("%w: %v", ErrSearch, channelErr)
	}

	weightSum := cfg.VectorWeight + cfg.KeywordWeight
	if weightSum == 0 {
		weightSum = 1
	}

	results := make([]Result, 0, len(scores))
	for id, entry := range scores {
		normalized := entry.score / weightSum
		if cfg.MinScore != nil && normalized < *cfg.MinScore {
			continue
		}
		results = append(results, Result{
			ID:      id,
			Content: entry.content,
			Score:   normalized,
			Payload: entry.payload,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// keywordScan is a naive full-scan, case-insensitive substring match over
// every stored document's content payload. A correctness-over-performance
// fallback standing in for a real inverted index.
func (e *Engine) keywordScan(ctx context.Context, queryText string) ([]Result, error) {
	stats, err := e.driver.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store stats: %w", err)
	}
	if stats.Count == 0 {
		return nil, nil
	}

	// Listing every document goes through a zero-vector similarity query;
	// drivers rank arbitrarily for it but return all payloads.
	zero := make([]float32, stats.Dimensions)
	docs, err := e.driver.Query(ctx, zero, int(stats.Count))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	needle := strings.ToLower(queryText)
	var hits []Result
	for _, doc := range docs {
		content := doc.Content()
		if content == "" {
			continue
		}
		if strings.Contains(strings.ToLower(content), needle) {
			hits = append(hits, Result{
				ID:      doc.ID,
				Content: content,
				Score:   1.0,
				Payload: doc.Payload,
			})
		}
	}

	return hits, nil
}

// AddMemory upserts a document into the long-term store with its content
// folded into the payload for lexical matching.
func (e *Engine) AddMemory(ctx context.Context, id, content string, embedding []float32, metadata map[string]any) error {
	payload := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		payload[k] = v
	}
	payload["content"] = content

	return e.driver.Add(ctx, []vector.Document{{
		ID:        id,
		Embedding: embedding,
		Payload:   payload,
	}})
}

// RemoveMemory deletes a document from the long-term store.
func (e *Engine) RemoveMemory(ctx context.Context, id string) error {
	return e.driver.Delete(ctx, []string{id})
}

// Clear removes every document from the long-term store.
func (e *Engine) Clear(ctx context.Context) error {
	return e.driver.Clear(ctx)
}

// Stats passes through to the underlying store.
func (e *Engine) Stats(ctx context.Context) (vector.Stats, error) {
	return e.driver.Stats(ctx)
}
