// Package chunker splits raw text into token-bounded, overlapping segments
// for embedding and long-term indexing.
//
// The window is sized in characters to approximate the configured token
// budget; each produced chunk's true token count is then verified with a
// real tokenizer pass (tiktoken cl100k_base).
package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tiktoken-go/tokenizer"
)

const (
	// DefaultChunkSize is the target chunk size in tokens.
	DefaultChunkSize = 512

	// DefaultOverlap is the number of tokens shared between consecutive
	// chunks.
	DefaultOverlap = 50

	// charsPerToken approximates how many characters one token spans.
	// Exact boundaries would need a tokenizer pass per candidate window.
	charsPerToken = 4
)

// Metadata carries chunk positioning within its source document.
// TotalChunks is only known once the whole document is chunked, so it is
// filled in a second pass.
type Metadata struct {
	ChunkIndex  int `json:"chunk_index"`
	TotalChunks int `json:"total_chunks"`
}

// Chunk is a token-bounded slice of a source document. StartIndex and
// EndIndex are character offsets into the source.
type Chunk struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	TokenCount int      `json:"token_count"`
	StartIndex int      `json:"start_index"`
	EndIndex   int      `json:"end_index"`
	Source     string   `json:"source"`
	Metadata   Metadata `json:"metadata"`
}

// Chunker splits text using a sliding character window.
type Chunker struct {
	chunkSize int
	overlap   int
	codec     tokenizer.Codec
}

// Config holds chunker settings.
type Config struct {
	// ChunkSize is the target size of a chunk in tokens.
	// Defaults to DefaultChunkSize if zero.
	ChunkSize int

	// Overlap is the token overlap between consecutive chunks.
	// Defaults to DefaultOverlap if zero.
	Overlap int
}

// NewChunker creates a chunker with a cl100k_base tokenizer.
func NewChunker(cfg Config) (*Chunker, error) {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := cfg.Overlap
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}

	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		codec:     codec,
	}, nil
}

// CountTokens returns the true token count of text.
func (c *Chunker) CountTokens(text string) (int, error) {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encoding text: %w", err)
	}
	return len(ids), nil
}

// Split chunks text with a sliding character window. The window advances
// by window minus overlap characters, so consecutive chunks share an
// overlap-sized tail. Empty text yields no chunks; a zero-token window
// ends chunking early.
func (c *Chunker) Split(text, source string) ([]Chunk, error) {
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	window := c.chunkSize * charsPerToken
	overlap := c.overlap * charsPerToken
	step := window - overlap
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}

		content := string(runes[start:end])
		tokens, err := c.CountTokens(content)
		if err != nil {
			return nil, err
		}
		if tokens == 0 {
			break
		}

		chunks = append(chunks, newChunk(content, source, len(chunks), tokens, start, end))

		if end == len(runes) {
			break
		}
	}

	fillTotals(chunks)
	return chunks, nil
}

// SplitParagraphs packs whole paragraphs (separated by blank lines) into
// chunks until the next paragraph would exceed the chunk size, producing
// fewer, more coherent chunks at the cost of variable sizing.
func (c *Chunker) SplitParagraphs(text, source string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	paragraphs := splitParagraphs(text)

	var (
		chunks      []Chunk
		buffer      []string
		bufferStart int
		cursor      int
	)

	flush := func(end int) error {
		if len(buffer) == 0 {
			return nil
		}
		content := strings.Join(buffer, "\n\n")
		tokens, err := c.CountTokens(content)
		if err != nil {
			return err
		}
		chunks = append(chunks, newChunk(content, source, len(chunks), tokens, bufferStart, end))
		buffer = nil
		return nil
	}

	bufferTokens := 0
	for _, para := range paragraphs {
		paraTokens, err := c.CountTokens(para.text)
		if err != nil {
			return nil, err
		}

		if len(buffer) > 0 && bufferTokens+paraTokens > c.chunkSize {
			if err := flush(cursor); err != nil {
				return nil, err
			}
			bufferTokens = 0
		}

		if len(buffer) == 0 {
			bufferStart = para.start
		}
		buffer = append(buffer, para.text)
		bufferTokens += paraTokens
		cursor = para.end
	}

	if err := flush(cursor); err != nil {
		return nil, err
	}

	fillTotals(chunks)
	return chunks, nil
}

// paragraph is a trimmed block of text with its character span.
type paragraph struct {
	text  string
	start int
	end   int
}

// splitParagraphs splits text on blank lines, tracking character offsets.
func splitParagraphs(text string) []paragraph {
	runes := []rune(text)

	var paragraphs []paragraph
	start := 0
	for start < len(runes) {
		end := start
		blank := -1
		for end < len(runes) {
			if runes[end] == '\n' {
				next := end + 1
				for next < len(runes) && (runes[next] == ' ' || runes[next] == '\t') {
					next++
				}
				if next < len(runes) && runes[next] == '\n' {
					blank = end
					break
				}
			}
			end++
		}
		if blank == -1 {
			blank = len(runes)
		}

		block := strings.TrimSpace(string(runes[start:blank]))
		if block != "" {
			paragraphs = append(paragraphs, paragraph{text: block, start: start, end: blank})
		}

		start = blank
		for start < len(runes) && (runes[start] == '\n' || runes[start] == ' ' || runes[start] == '\t') {
			start++
		}
	}

	return paragraphs
}

// newChunk builds a chunk with a globally unique id. The random suffix
// keeps ids unique across re-chunking of the same document.
func newChunk(content, source string, index, tokens, start, end int) Chunk {
	return Chunk{
		ID:         fmt.Sprintf("%s_%d_%s", source, index, uuid.NewString()[:8]),
		Content:    content,
		TokenCount: tokens,
		StartIndex: start,
		EndIndex:   end,
		Source:     source,
		Metadata:   Metadata{ChunkIndex: index},
	}
}

// fillTotals records the final chunk count into every chunk's metadata.
func fillTotals(chunks []Chunk) {
	for i := range chunks {
		chunks[i].Metadata.TotalChunks = len(chunks)
	}
}
