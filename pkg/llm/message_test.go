package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/llm"
)

var _ = Describe("Message", func() {
	Describe("NewTextMessage", func() {
		It("wraps text in a single text block", func() {
			msg := llm.NewTextMessage(llm.RoleUser, "hello")

			Expect(msg.Role).To(Equal(llm.RoleUser))
			Expect(msg.Content).To(HaveLen(1))
			Expect(msg.Content[0].Type).To(Equal(llm.BlockText))
			Expect(msg.Content[0].Text).To(Equal("hello"))
		})
	})

	Describe("GetText", func() {
		It("concatenates text blocks and skips tool blocks", func() {
			msg := llm.Message{
				Role: llm.RoleAssistant,
				Content: []llm.ContentBlock{
					{Type: llm.BlockText, Text: "part one "},
					{Type: llm.BlockToolUse, ToolName: "search"},
					{Type: llm.BlockText, Text: "part two"},
				},
			}

			Expect(msg.GetText()).To(Equal("part one part two"))
		})

		It("returns empty string for a message without text", func() {
			msg := llm.Message{
				Role: llm.RoleAssistant,
				Content: []llm.ContentBlock{
					{Type: llm.BlockToolUse, ToolName: "search"},
				},
			}

			Expect(msg.GetText()).To(BeEmpty())
		})
	})

	Describe("ToolUseCount", func() {
		It("counts tool_use blocks only", func() {
			msg := llm.Message{
				Role: llm.RoleAssistant,
				Content: []llm.ContentBlock{
					{Type: llm.BlockText, Text: "running tools"},
					{Type: llm.BlockToolUse, ToolName: "search"},
					{Type: llm.BlockToolUse, ToolName: "fetch"},
					{Type: llm.BlockToolResult, ToolOutput: "done"},
				},
			}

			Expect(msg.ToolUseCount()).To(Equal(2))
		})
	})
})
