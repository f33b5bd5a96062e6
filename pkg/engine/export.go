package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
)

// ExportMarkdown renders every tier and the fact set as a Markdown
// document, optionally with occupancy statistics appended.
func (e *Engine) ExportMarkdown(ctx context.Context, includeStats bool) string {
	var b strings.Builder

	b.WriteString("# Memory Export\n\n")
	fmt.Fprintf(&b, "Exported at: %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("## Working Memory\n\n")
	writeItems(&b, e.tiers.GetAll())

	b.WriteString("## Short-Term Memory\n\n")
	writeItems(&b, e.tiers.Summaries())

	b.WriteString("## Extracted Facts\n\n")
	factSet := e.Facts()
	if len(factSet) == 0 {
		b.WriteString("*empty*\n\n")
	} else {
		for _, fact := range factSet {
			fmt.Fprintf(&b, "- **[%s]** %s\n", fact.Category, fact.Content)
		}
		b.WriteString("\n")
	}

	if includeStats {
		b.WriteString("## Statistics\n\n")
		stats := e.Stats(ctx)
		fmt.Fprintf(&b, "- Working items: %d\n", stats.Memory.WorkingCount)
		fmt.Fprintf(&b, "- Working tokens: %d\n", stats.Memory.WorkingTokens)
		fmt.Fprintf(&b, "- Short-term items: %d\n", stats.Memory.ShortTermCount)
		fmt.Fprintf(&b, "- Long-term documents: %d\n", stats.LongTermCount)
		fmt.Fprintf(&b, "- Lexical index documents: %d\n", stats.LexicalCount)
		fmt.Fprintf(&b, "- Extracted facts: %d\n", stats.FactCount)
	}

	return b.String()
}

func writeItems(b *strings.Builder, items []*memory.Item) {
	if len(items) == 0 {
		b.WriteString("*empty*\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "### %s\n", item.ID)
		fmt.Fprintf(b, "- Level: %s\n", item.Level)
		fmt.Fprintf(b, "- Accesses: %d\n", item.AccessCount)
		fmt.Fprintf(b, "- Importance: %.2f\n", item.ImportanceScore)
		fmt.Fprintf(b, "- Created: %s\n", item.CreatedAt.UTC().Format("2006-01-02 15:04"))
		fmt.Fprintf(b, "- Content: %s\n\n", item.Text())
	}
}

// EngineStats reports occupancy across every store the engine touches.
type EngineStats struct {
	Memory        memory.Stats `json:"memory"`
	LongTermCount int64        `json:"long_term_count"`
	LexicalCount  int          `json:"lexical_count"`
	FactCount     int          `json:"fact_count"`
}

// Stats aggregates tier, index and fact occupancy. A failing long-term
// store reports zero documents rather than failing the call.
func (e *Engine) Stats(ctx context.Context) EngineStats {
	stats := EngineStats{
		Memory:       e.tiers.Stats(),
		LexicalCount: e.bm25.Len(),
	}

	vectorStats, err := e.search.Stats(ctx)
	if err != nil {
		e.logger.Warn("long-term stats unavailable", zap.Error(err))
	} else {
		stats.LongTermCount = vectorStats.Count
	}

	e.mu.RLock()
	stats.FactCount = len(e.facts)
	e.mu.RUnlock()

	return stats
}

// Clear empties every tier, the lexical index and the fact set. Long-term
// documents are removed from the vector store as well.
func (e *Engine) Clear(ctx context.Context) error {
	e.tiers.Clear()
	e.bm25.Clear()
	e.ClearFacts()

	if err := e.search.Clear(ctx); err != nil {
		return fmt.Errorf("clearing long-term store: %w", err)
	}

	return nil
}
