// Package memory provides the tiered memory layer for the engram system.
//
// Memory items live in one of three tiers: Working (a bounded ring of recent
// conversational turns), ShortTerm (a bounded set of Summary items produced
// by compression), and LongTerm (an external vector/BM25 index reached
// through an Archiver). Items move between tiers only through explicit
// compression and archival steps; an item is never silently re-tiered.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Level identifies the tier an item currently belongs to.
type Level string

const (
	LevelWorking   Level = "working"
	LevelShortTerm Level = "short_term"
	LevelLongTerm  Level = "long_term"
)

// Content kinds.
const (
	ContentMessage   = "message"
	ContentSummary   = "summary"
	ContentVectorRef = "vector_ref"
)

// Content is the tagged payload of a memory item. Kind determines which
// other fields are populated.
type Content struct {
	Kind string `json:"kind"` // "message", "summary", "vector_ref"

	// Message content (kind="message") - a verbatim conversational turn
	Role string `json:"role,omitempty"`
	Text string `json:"text,omitempty"`

	// Summary content (kind="summary") - compressed text plus the number
	// of items it replaced
	OriginalCount int `json:"original_count,omitempty"`

	// Vector reference (kind="vector_ref") - pointer into the long-term
	// index plus a short preview
	VectorID string `json:"vector_id,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// Metadata carries optional provenance attached at ingestion.
type Metadata struct {
	SessionID string   `json:"session_id,omitempty"`
	Channel   string   `json:"channel,omitempty"`
	PeerID    string   `json:"peer_id,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Entities  []string `json:"entities,omitempty"`
}

// Item is the atomic unit held at any tier.
type Item struct {
	ID      string  `json:"id"`
	Level   Level   `json:"level"`
	Content Content `json:"content"`

	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`

	// ImportanceScore is assigned once at ingestion and never recomputed.
	ImportanceScore float64 `json:"importance_score"`

	// TokenCount is a precomputed estimate used for tier-capacity accounting.
	TokenCount int `json:"token_count"`

	Metadata Metadata `json:"metadata,omitzero"`
}

// NewMessageItem creates a Working-tier item from a conversational turn.
func NewMessageItem(role, text string) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:    uuid.NewString(),
		Level: LevelWorking,
		Content: Content{
			Kind: ContentMessage,
			Role: role,
			Text: text,
		},
		CreatedAt:    now,
		LastAccessed: now,
		TokenCount:   EstimateTokens(text),
	}
}

// NewSummaryItem creates a ShortTerm-tier item replacing originalCount items.
func NewSummaryItem(text string, originalCount, tokenCount int) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:    uuid.NewString(),
		Level: LevelShortTerm,
		Content: Content{
			Kind:          ContentSummary,
			Text:          text,
			OriginalCount: originalCount,
		},
		CreatedAt:    now,
		LastAccessed: now,
		TokenCount:   tokenCount,
	}
}

// Text returns the textual payload of the item regardless of content kind.
func (i *Item) Text() string {
	switch i.Content.Kind {
	case ContentVectorRef:
		return i.Content.Preview
	default:
		return i.Content.Text
	}
}

// Touch records an access. This is the only mutation allowed after creation.
func (i *Item) Touch() {
	i.AccessCount++
	i.LastAccessed = time.Now().UTC()
}

// EstimateTokens approximates the token count of text for capacity
// accounting. Roughly four characters per token, never zero for
// non-empty text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
