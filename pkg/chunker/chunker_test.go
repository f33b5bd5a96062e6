package chunker_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/chunker"
)

var _ = Describe("Chunker", func() {
	newChunker := func(size, overlap int) *chunker.Chunker {
		c, err := chunker.NewChunker(chunker.Config{ChunkSize: size, Overlap: overlap})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("Split", func() {
		It("returns no chunks for empty text", func() {
			c := newChunker(16, 4)
			chunks, err := c.Split("", "doc")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(BeEmpty())
		})

		It("produces a single chunk for short text", func() {
			c := newChunker(128, 16)
			chunks, err := c.Split("a short document", "doc")
			Expect(err).NotTo(HaveOccurred())

			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Content).To(Equal("a short document"))
			Expect(chunks[0].StartIndex).To(Equal(0))
			Expect(chunks[0].EndIndex).To(Equal(len("a short document")))
			Expect(chunks[0].TokenCount).To(BeNumerically(">", 0))
		})

		It("covers the full character span without gaps", func() {
			c := newChunker(16, 4)
			text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

			chunks, err := c.Split(text, "doc")
			Expect(err).NotTo(HaveOccurred())
			Expect(len(chunks)).To(BeNumerically(">", 1))

			Expect(chunks[0].StartIndex).To(Equal(0))
			for i := 1; i < len(chunks); i++ {
				// Next chunk must start at or before the previous end.
				Expect(chunks[i].StartIndex).To(BeNumerically("<=", chunks[i-1].EndIndex))
				Expect(chunks[i].StartIndex).To(BeNumerically(">", chunks[i-1].StartIndex))
			}
			Expect(chunks[len(chunks)-1].EndIndex).To(Equal(len([]rune(text))))
		})

		It("shares an overlap tail between consecutive chunks", func() {
			c := newChunker(16, 4)
			text := strings.Repeat("abcdefghij", 30)

			chunks, err := c.Split(text, "doc")
			Expect(err).NotTo(HaveOccurred())
			Expect(len(chunks)).To(BeNumerically(">", 1))

			first := chunks[0]
			second := chunks[1]
			overlapChars := first.EndIndex - second.StartIndex
			Expect(overlapChars).To(Equal(4 * 4)) // overlap tokens * chars-per-token

			tail := first.Content[len(first.Content)-overlapChars:]
			head := second.Content[:overlapChars]
			Expect(head).To(Equal(tail))
		})

		It("assigns unique ids embedding source and index", func() {
			c := newChunker(16, 4)
			text := strings.Repeat("some repeated filler text here. ", 20)

			chunks, err := c.Split(text, "notes.md")
			Expect(err).NotTo(HaveOccurred())

			seen := map[string]bool{}
			for i, chunk := range chunks {
				Expect(chunk.ID).To(HavePrefix("notes.md_"))
				Expect(chunk.Metadata.ChunkIndex).To(Equal(i))
				Expect(seen[chunk.ID]).To(BeFalse())
				seen[chunk.ID] = true
			}

			// Re-chunking produces fresh ids.
			again, err := c.Split(text, "notes.md")
			Expect(err).NotTo(HaveOccurred())
			Expect(again[0].ID).NotTo(Equal(chunks[0].ID))
		})

		It("fills total chunks in a second pass", func() {
			c := newChunker(16, 4)
			text := strings.Repeat("more filler text to split across windows. ", 20)

			chunks, err := c.Split(text, "doc")
			Expect(err).NotTo(HaveOccurred())
			for _, chunk := range chunks {
				Expect(chunk.Metadata.TotalChunks).To(Equal(len(chunks)))
			}
		})
	})

	Describe("SplitParagraphs", func() {
		It("returns no chunks for blank text", func() {
			c := newChunker(64, 8)
			chunks, err := c.SplitParagraphs("   \n\n  ", "doc")
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(BeEmpty())
		})

		It("packs paragraphs until the token budget is reached", func() {
			c := newChunker(24, 4)
			para := strings.Repeat("word ", 15)
			text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

			chunks, err := c.SplitParagraphs(text, "doc")
			Expect(err).NotTo(HaveOccurred())

			// Each paragraph is ~15 tokens, so two never fit in 24.
			Expect(len(chunks)).To(Equal(3))
			for _, chunk := range chunks {
				Expect(chunk.TokenCount).To(BeNumerically("<=", 24))
			}
		})

		It("keeps short paragraphs together", func() {
			c := newChunker(256, 16)
			text := "first paragraph.\n\nsecond paragraph.\n\nthird paragraph."

			chunks, err := c.SplitParagraphs(text, "doc")
			Expect(err).NotTo(HaveOccurred())

			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Content).To(ContainSubstring("first paragraph."))
			Expect(chunks[0].Content).To(ContainSubstring("third paragraph."))
		})
	})
})
