package facts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/llm"
)

// ErrExtraction wraps failures while extracting facts from conversation
// text.
var ErrExtraction = errors.New("fact extraction failed")

const extractPrompt = `Extract discrete fact entries from the following conversation. Each fact must be an independent, verifiable statement.

Rules:
1. Only extract facts about the user, never about the assistant or the system.
2. Each fact must be atomic and not further divisible.
3. Include preferences, background, goals and decisions.
4. Phrase each fact from the user's perspective.
5. Mark negative statements (such as "does not like") with is_negative.

Return a JSON array:
[{"content": "the user likes Python", "category": "user_preference", "confidence": 0.9}]

Conversation:
%s`

// Extractor pulls atomic facts out of conversation text using a chat
// model.
type Extractor struct {
	chatter llm.Chatter
	model   string
	logger  *zap.Logger
}

// NewExtractor creates an Extractor bound to a model.
func NewExtractor(chatter llm.Chatter, model string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		chatter: chatter,
		model:   model,
		logger:  logger,
	}
}

// Extract asks the model for a fact list and parses its reply. Replies
// that are not a direct fact array are re-parsed as generic JSON values
// and coerced field by field; entries without content are skipped.
func (e *Extractor) Extract(ctx context.Context, conversation string) ([]*AtomicFact, error) {
	temperature := 0.3
	maxTokens := 4000

	resp, err := e.chatter.Chat(ctx, &llm.ChatRequest{
		Model:       e.model,
		Messages:    []llm.Message{llm.NewTextMessage(llm.RoleUser, fmt.Sprintf(extractPrompt, conversation))},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	reply := strings.TrimSpace(resp.Message.GetText())
	facts, err := parseFacts(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	e.logger.Debug("extracted facts",
		zap.Int("count", len(facts)),
		zap.String("model", e.model),
	)

	return facts, nil
}

// parseFacts decodes a model reply into facts. It first tries the exact
// AtomicFact array shape, then falls back to generic values so replies
// with extra or missing fields still yield usable facts.
func parseFacts(reply string) ([]*AtomicFact, error) {
	var direct []*AtomicFact
	if err := json.Unmarshal([]byte(reply), &direct); err == nil {
		kept := make([]*AtomicFact, 0, len(direct))
		for _, fact := range direct {
			if fact.Content == "" {
				continue
			}
			if fact.ID == "" {
				withDefaults := NewFact(fact.Content, ParseCategory(string(fact.Category)))
				withDefaults.SourceMessageID = fact.SourceMessageID
				withDefaults.IsNegative = fact.IsNegative
				if fact.Confidence > 0 {
					withDefaults.Confidence = fact.Confidence
				}
				*fact = *withDefaults
			} else {
				fact.Category = ParseCategory(string(fact.Category))
			}
			kept = append(kept, fact)
		}
		return kept, nil
	}

	var values []map[string]any
	if err := json.Unmarshal([]byte(reply), &values); err != nil {
		return nil, fmt.Errorf("parsing fact reply: %v", err)
	}

	facts := make([]*AtomicFact, 0, len(values))
	for _, value := range values {
		content, ok := value["content"].(string)
		if !ok || content == "" {
			continue
		}

		category := CategoryOther
		if raw, ok := value["category"].(string); ok {
			category = ParseCategory(raw)
		}

		fact := NewFact(content, category)
		if confidence, ok := value["confidence"].(float64); ok {
			fact.Confidence = confidence
		}
		if negative, ok := value["is_negative"].(bool); ok {
			fact.IsNegative = negative
		}
		facts = append(facts, fact)
	}

	return facts, nil
}
