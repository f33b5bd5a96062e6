package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/engram/pkg/llm"
)

// Compressor turns a batch of drained Working items into exactly one
// ShortTerm Summary item. Implementations must never receive an empty
// batch; the tier store's overflow trigger guarantees at least one item.
type Compressor interface {
	Compress(ctx context.Context, items []*Item) (*Item, error)
}

// previewLength is the per-message preview budget used by the
// PreviewCompressor.
const previewLength = 50

// PreviewCompressor builds summaries by concatenating role-tagged message
// previews. The summary's token count is estimated at 25% of the combined
// originals, an approximation pending true LLM summarization.
type PreviewCompressor struct{}

// NewPreviewCompressor creates the preview-based compressor.
func NewPreviewCompressor() *PreviewCompressor {
	return &PreviewCompressor{}
}

// Compress concatenates truncated previews of the drained items into a
// single Summary item.
func (c *PreviewCompressor) Compress(_ context.Context, items []*Item) (*Item, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items to compress", ErrCompression)
	}

	previews := make([]string, 0, len(items))
	totalTokens := 0
	for _, item := range items {
		text := item.Text()
		if len(text) > previewLength {
			text = text[:previewLength] + "..."
		}
		role := item.Content.Role
		if role == "" {
			role = string(item.Level)
		}
		previews = append(previews, fmt.Sprintf("[%s] %s", role, text))
		totalTokens += item.TokenCount
	}

	summary := fmt.Sprintf("Compressed %d messages: %s", len(items), strings.Join(previews, " | "))
	summaryTokens := totalTokens / 4
	if summaryTokens == 0 {
		summaryTokens = 1
	}

	return NewSummaryItem(summary, len(items), summaryTokens), nil
}

// LLMCompressor summarizes drained items through a chat model.
type LLMCompressor struct {
	chatter llm.Chatter
	model   string
}

// NewLLMCompressor creates a compressor backed by the given chat client.
func NewLLMCompressor(chatter llm.Chatter, model string) *LLMCompressor {
	return &LLMCompressor{chatter: chatter, model: model}
}

const compressPrompt = "Summarize the following conversation excerpt into a " +
	"single short paragraph. Preserve names, decisions, and commitments. " +
	"Reply with the summary only."

// Compress asks the chat model for a one-paragraph summary of the drained
// items. Falls back to an error, never to silent data loss; the caller
// restores the drained items on failure.
func (c *LLMCompressor) Compress(ctx context.Context, items []*Item) (*Item, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items to compress", ErrCompression)
	}

	var transcript strings.Builder
	for _, item := range items {
		role := item.Content.Role
		if role == "" {
			role = string(item.Level)
		}
		transcript.WriteString(role)
		transcript.WriteString(": ")
		transcript.WriteString(item.Text())
		transcript.WriteString("\n")
	}

	resp, err := c.chatter.Chat(ctx, &llm.ChatRequest{
		Model:  c.model,
		System: compressPrompt,
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, transcript.String()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}

	text := strings.TrimSpace(resp.Message.GetText())
	if text == "" {
		return nil, fmt.Errorf("%w: empty summary from model", ErrCompression)
	}

	tokens := EstimateTokens(text)
	if resp.Usage != nil && resp.Usage.CompletionTokens > 0 {
		tokens = resp.Usage.CompletionTokens
	}

	return NewSummaryItem(text, len(items), tokens), nil
}

var (
	_ Compressor = (*PreviewCompressor)(nil)
	_ Compressor = (*LLMCompressor)(nil)
)
