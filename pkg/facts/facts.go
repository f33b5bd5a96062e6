// Package facts extracts discrete, verifiable statements about the user
// from conversation text and detects contradictions between them.
package facts

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category classifies an extracted fact. The set is closed; anything a
// model invents outside it maps to CategoryOther.
type Category string

const (
	CategoryUserPreference Category = "user_preference"
	CategoryUserBackground Category = "user_background"
	CategoryUserGoal       Category = "user_goal"
	CategoryPersonalInfo   Category = "personal_info"
	CategoryWorkInfo       Category = "work_info"
	CategoryProjectInfo    Category = "project_info"
	CategoryDecision       Category = "decision"
	CategoryNote           Category = "note"
	CategorySummary        Category = "summary"
	CategoryError          Category = "error"
	CategoryAction         Category = "action"
	CategoryFeedback       Category = "feedback"
	CategoryOther          Category = "other"
)

// ParseCategory maps a raw category string to a known Category, falling
// back to CategoryOther.
func ParseCategory(raw string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryUserPreference, CategoryUserBackground, CategoryUserGoal,
		CategoryPersonalInfo, CategoryWorkInfo, CategoryProjectInfo,
		CategoryDecision, CategoryNote, CategorySummary,
		CategoryError, CategoryAction, CategoryFeedback:
		return Category(strings.ToLower(strings.TrimSpace(raw)))
	default:
		return CategoryOther
	}
}

// ClassifyText guesses a category from keywords alone. It is the offline
// fallback used when no model is available.
func ClassifyText(text string) Category {
	lower := strings.ToLower(text)

	contains := func(keywords ...string) bool {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("喜欢", "偏好", "不爱", "爱", "prefer", "like", "favorite"):
		return CategoryUserPreference
	case contains("工作", "公司", "职业", "在", "work", "company", "job"):
		return CategoryWorkInfo
	case contains("目标", "想要", "计划", "想", "学习", "goal", "plan", "want to"):
		return CategoryUserGoal
	case contains("背景", "经历", "background", "experience"):
		return CategoryUserBackground
	case contains("决定", "选择", "decided", "chose"):
		return CategoryDecision
	default:
		return CategoryOther
	}
}

// AtomicFact is a single indivisible statement about the user.
type AtomicFact struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	Category        Category  `json:"category"`
	SourceMessageID string    `json:"source_message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Confidence      float64   `json:"confidence"`
	IsNegative      bool      `json:"is_negative"`
}

// NewFact creates a fact with full confidence.
func NewFact(content string, category Category) *AtomicFact {
	return &AtomicFact{
		ID:         uuid.New().String(),
		Content:    content,
		Category:   category,
		CreatedAt:  time.Now().UTC(),
		Confidence: 1.0,
	}
}

// WithConfidence overrides the confidence score.
func (f *AtomicFact) WithConfidence(confidence float64) *AtomicFact {
	f.Confidence = confidence
	return f
}

// WithSource links the fact to the message it was extracted from.
func (f *AtomicFact) WithSource(messageID string) *AtomicFact {
	f.SourceMessageID = messageID
	return f
}

// negationPairs lists affirmation/negation surface forms that mark two
// same-category facts as contradicting.
var negationPairs = [][2]string{
	{"喜欢", "不喜欢"},
	{"爱", "不爱"},
	{"会", "不会"},
	{"能", "不能"},
	{"有", "没有"},
	{"是", "不是"},
	{"在", "不在"},
	{"like", "dislike"},
	{"can ", "cannot "},
	{"is ", "is not "},
	{"does ", "does not "},
}

// Contradicts reports whether two facts make opposing claims. Facts in
// different categories never contradict. The check is symmetric.
func (f *AtomicFact) Contradicts(other *AtomicFact) bool {
	if f.Category != other.Category {
		return false
	}

	a := strings.ToLower(f.Content)
	b := strings.ToLower(other.Content)

	for _, pair := range negationPairs {
		positive, negative := pair[0], pair[1]
		if strings.Contains(a, positive) && strings.Contains(b, negative) {
			return true
		}
		if strings.Contains(a, negative) && strings.Contains(b, positive) {
			return true
		}
	}

	return false
}
