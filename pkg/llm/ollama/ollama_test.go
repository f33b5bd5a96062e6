package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/llm/ollama"
)

var _ = Describe("Chatter", func() {
	var (
		server  *httptest.Server
		chatter *ollama.Chatter
		gotBody map[string]any
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":             "llama3.2",
				"message":           map[string]any{"role": "assistant", "content": "summary text"},
				"done":              true,
				"done_reason":       "stop",
				"prompt_eval_count": 12,
				"eval_count":        5,
			})
		}))

		var err error
		chatter, err = ollama.NewChatter(ollama.ChatterConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends messages and decodes the assistant reply", func() {
		resp, err := chatter.Chat(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "summarize this")},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(resp.Message.GetText()).To(Equal("summary text"))
		Expect(resp.StopReason).To(Equal("stop"))
		Expect(resp.Usage.TotalTokens).To(Equal(17))
	})

	It("prepends the system prompt as a system message", func() {
		_, err := chatter.Chat(context.Background(), &llm.ChatRequest{
			System:   "you are terse",
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
		})
		Expect(err).NotTo(HaveOccurred())

		messages, ok := gotBody["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(messages).To(HaveLen(2))

		first, ok := messages[0].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(first["role"]).To(Equal("system"))
		Expect(first["content"]).To(Equal("you are terse"))
	})

	It("falls back to the configured default model", func() {
		_, err := chatter.Chat(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(gotBody["model"]).To(Equal(ollama.DefaultChatModel))
	})

	It("wraps non-200 responses in ErrChat", func() {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer failing.Close()

		c, err := ollama.NewChatter(ollama.ChatterConfig{BaseURL: failing.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Chat(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
		})
		Expect(err).To(MatchError(llm.ErrChat))
	})
})
