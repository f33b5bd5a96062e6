package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/search"
)

// longTermArchiver moves evicted summaries into the long-term index: the
// text is embedded, stored with its provenance payload and added to the
// lexical index. The archived item is rewritten in place as a vector
// reference.
type longTermArchiver struct {
	embedder embeddings.Embedder
	search   *search.Engine
	bm25     *search.BM25Index
}

func (a *longTermArchiver) Archive(ctx context.Context, item *memory.Item) (string, error) {
	text := item.Text()

	embedding, err := a.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embedding summary: %w", err)
	}

	preview := truncate(text, archivePreviewLength)
	err = a.search.AddMemory(ctx, item.ID, preview, embedding, map[string]any{
		"memory_id":  item.ID,
		"level":      string(memory.LevelLongTerm),
		"importance": item.ImportanceScore,
		"created_at": item.CreatedAt.UTC().Format(time.RFC3339),
		"session_id": item.Metadata.SessionID,
	})
	if err != nil {
		return "", fmt.Errorf("indexing summary: %w", err)
	}

	a.bm25.Add(item.ID, text)

	item.Content = memory.Content{
		Kind:     memory.ContentVectorRef,
		VectorID: item.ID,
		Preview:  preview,
	}

	return item.ID, nil
}

// truncate cuts text to at most n runes, marking the cut with an
// ellipsis.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// parseTimestamp reads an RFC3339 stamp, returning the zero time for
// anything unparseable.
func parseTimestamp(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
