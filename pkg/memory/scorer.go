package memory

import (
	"regexp"
	"strings"

	"github.com/papercomputeco/engram/pkg/llm"
)

// Scorer assigns importance in [0,1] to a conversational turn. It is
// deterministic and stateless: the same turn always produces the same
// score given the same lexicons.
type Scorer struct {
	entityPatterns []*regexp.Regexp
	keywords       []string
}

// Base scores by role.
var roleBaseScores = map[string]float64{
	llm.RoleSystem:    0.3,
	llm.RoleUser:      0.2,
	llm.RoleAssistant: 0.15,
	llm.RoleTool:      0.1,
}

// importanceKeywords is the bilingual lexicon of terms that mark a turn
// as carrying durable information.
var importanceKeywords = []string{
	"important", "critical", "must", "confirm", "decision", "decide",
	"task", "password", "account", "remember", "deadline", "urgent",
	"重要", "关键", "必须", "确认", "决定", "任务", "密码", "账号",
}

// NewScorer compiles the entity patterns and returns a ready scorer.
func NewScorer() *Scorer {
	return &Scorer{
		entityPatterns: []*regexp.Regexp{
			regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), // email
			regexp.MustCompile(`\+?\d{1,3}[-\s]?\d{3,4}[-\s]?\d{4,}`),            // phone
			regexp.MustCompile(`https?://[^\s]+`),                                // url
			regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`),                    // date
			regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),                              // time
		},
		keywords: importanceKeywords,
	}
}

// Score computes the importance of a turn from its role and text.
// Base score by role, plus capped additive bonuses for entities,
// importance keywords, substantive length, questions, and tool calls.
func (s *Scorer) Score(msg llm.Message) float64 {
	score := roleBaseScores[msg.Role]
	text := msg.GetText()
	lower := strings.ToLower(text)

	// Entities: +0.1 each, capped at +0.3.
	entities := 0
	for _, pattern := range s.entityPatterns {
		entities += len(pattern.FindAllString(text, -1))
	}
	entityBonus := 0.1 * float64(entities)
	if entityBonus > 0.3 {
		entityBonus = 0.3
	}
	score += entityBonus

	// Keywords: +0.05 each, capped at +0.2.
	matched := 0
	for _, keyword := range s.keywords {
		if strings.Contains(lower, keyword) {
			matched++
		}
	}
	keywordBonus := 0.05 * float64(matched)
	if keywordBonus > 0.2 {
		keywordBonus = 0.2
	}
	score += keywordBonus

	// Substantive length band.
	if len(text) > 50 && len(text) < 500 {
		score += 0.1
	}

	// Questions tend to set up information worth keeping.
	if strings.ContainsAny(text, "?？") {
		score += 0.1
	}

	// Tool calls: +0.15 per tool_use block.
	score += 0.15 * float64(msg.ToolUseCount())

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
