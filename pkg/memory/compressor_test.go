package memory_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/memory"
)

// stubChatter replies with a fixed summary, or fails when broken.
type stubChatter struct {
	reply  string
	broken bool

	lastRequest *llm.ChatRequest
}

func (s *stubChatter) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.lastRequest = req
	if s.broken {
		return nil, errors.New("model offline")
	}
	return &llm.ChatResponse{
		Message: llm.NewTextMessage(llm.RoleAssistant, s.reply),
		Usage:   &llm.Usage{CompletionTokens: 8},
	}, nil
}

var _ = Describe("PreviewCompressor", func() {
	var (
		ctx        context.Context
		compressor *memory.PreviewCompressor
	)

	BeforeEach(func() {
		ctx = context.Background()
		compressor = memory.NewPreviewCompressor()
	})

	It("produces exactly one summary carrying the original count", func() {
		items := []*memory.Item{
			memory.NewMessageItem(llm.RoleUser, "first message"),
			memory.NewMessageItem(llm.RoleAssistant, "second message"),
			memory.NewMessageItem(llm.RoleUser, "third message"),
		}

		summary, err := compressor.Compress(ctx, items)
		Expect(err).NotTo(HaveOccurred())

		Expect(summary.Level).To(Equal(memory.LevelShortTerm))
		Expect(summary.Content.Kind).To(Equal(memory.ContentSummary))
		Expect(summary.Content.OriginalCount).To(Equal(3))
		Expect(summary.Content.Text).To(ContainSubstring("[user] first message"))
		Expect(summary.Content.Text).To(ContainSubstring("[assistant] second message"))
	})

	It("truncates long messages to a preview", func() {
		long := strings.Repeat("x", 200)
		summary, err := compressor.Compress(ctx, []*memory.Item{
			memory.NewMessageItem(llm.RoleUser, long),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(summary.Content.Text).To(ContainSubstring("..."))
		Expect(summary.Content.Text).NotTo(ContainSubstring(long))
	})

	It("estimates summary tokens at a quarter of the originals", func() {
		items := []*memory.Item{
			memory.NewMessageItem(llm.RoleUser, strings.Repeat("a", 400)),
			memory.NewMessageItem(llm.RoleUser, strings.Repeat("b", 400)),
		}
		originalTokens := items[0].TokenCount + items[1].TokenCount

		summary, err := compressor.Compress(ctx, items)
		Expect(err).NotTo(HaveOccurred())

		Expect(summary.TokenCount).To(Equal(originalTokens / 4))
	})

	It("rejects an empty batch", func() {
		_, err := compressor.Compress(ctx, nil)
		Expect(err).To(MatchError(memory.ErrCompression))
	})
})

var _ = Describe("LLMCompressor", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("summarizes through the chat model", func() {
		chatter := &stubChatter{reply: "they agreed on the friday deadline"}
		compressor := memory.NewLLMCompressor(chatter, "llama3.2")

		summary, err := compressor.Compress(ctx, []*memory.Item{
			memory.NewMessageItem(llm.RoleUser, "can we ship friday?"),
			memory.NewMessageItem(llm.RoleAssistant, "yes, friday works"),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(summary.Content.Text).To(Equal("they agreed on the friday deadline"))
		Expect(summary.Content.OriginalCount).To(Equal(2))
		Expect(summary.TokenCount).To(Equal(8))

		Expect(chatter.lastRequest.Messages).To(HaveLen(1))
		Expect(chatter.lastRequest.Messages[0].GetText()).To(ContainSubstring("can we ship friday?"))
	})

	It("wraps model failures in ErrCompression", func() {
		compressor := memory.NewLLMCompressor(&stubChatter{broken: true}, "llama3.2")

		_, err := compressor.Compress(ctx, []*memory.Item{
			memory.NewMessageItem(llm.RoleUser, "hello"),
		})
		Expect(err).To(MatchError(memory.ErrCompression))
	})
})
