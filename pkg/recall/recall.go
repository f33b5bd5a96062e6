// Package recall re-ranks retrieval candidates using relevance, recency
// decay, access frequency and importance.
package recall

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Item is a retrieval candidate entering the re-ranker. Score is the
// relevance assigned by the retrieval channel that produced it.
type Item struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
	Importance float64   `json:"importance"`
}

// ScoredItem is a candidate with its computed final score.
type ScoredItem struct {
	Item
	FinalScore float64 `json:"final_score"`
}

// Config holds the re-ranking weights.
type Config struct {
	// VectorWeight and BM25Weight jointly scale the candidate's
	// retrieval relevance.
	VectorWeight float64
	BM25Weight   float64

	// RecencyWeight scales the exponential recency decay term.
	RecencyWeight float64

	// ImportanceWeight scales the importance term; the access-frequency
	// term uses half of it.
	ImportanceWeight float64

	// HalfLifeDays is the recency half-life. Defaults to
	// DefaultHalfLifeDays when non-positive.
	HalfLifeDays float64

	// MinScore filters results scoring below it when set.
	MinScore *float64

	// MaxResults caps the returned list. Defaults to DefaultMaxResults
	// when non-positive.
	MaxResults int
}

const (
	// DefaultHalfLifeDays halves an item's recency score every week.
	DefaultHalfLifeDays = 7.0

	// DefaultMaxResults caps re-ranked output.
	DefaultMaxResults = 10
)

// DefaultConfig returns the weights used when the caller does not care.
func DefaultConfig() Config {
	return Config{
		VectorWeight:     0.4,
		BM25Weight:       0.2,
		RecencyWeight:    0.2,
		ImportanceWeight: 0.2,
		HalfLifeDays:     DefaultHalfLifeDays,
		MaxResults:       DefaultMaxResults,
	}
}

// accessRecord tracks how often and how recently an item was recalled.
type accessRecord struct {
	count      int
	lastAccess time.Time
}

// Strategy re-ranks candidates. The access history map is the only
// mutable state and is cumulative across calls.
type Strategy struct {
	config Config

	mu     sync.RWMutex
	access map[string]accessRecord
}

// NewStrategy creates a re-ranker with the given weights.
func NewStrategy(config Config) *Strategy {
	if config.HalfLifeDays <= 0 {
		config.HalfLifeDays = DefaultHalfLifeDays
	}
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultMaxResults
	}
	return &Strategy{
		config: config,
		access: make(map[string]accessRecord),
	}
}

// Rerank scores each candidate and returns them sorted descending by
// final score, filtered by MinScore and capped at MaxResults. Candidates
// are not touched; access history changes only through RecordAccess.
func (s *Strategy) Rerank(items []Item) []ScoredItem {
	now := time.Now().UTC()

	s.mu.RLock()
	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		record := s.access[item.ID]

		final := item.Score*(s.config.VectorWeight+s.config.BM25Weight) +
			recencyScore(item.Timestamp, now, s.config.HalfLifeDays)*s.config.RecencyWeight +
			accessScore(record.count)*s.config.ImportanceWeight*0.5 +
			item.Importance*s.config.ImportanceWeight

		scored = append(scored, ScoredItem{Item: item, FinalScore: final})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	if s.config.MinScore != nil {
		filtered := scored[:0]
		for _, item := range scored {
			if item.FinalScore >= *s.config.MinScore {
				filtered = append(filtered, item)
			}
		}
		scored = filtered
	}

	if len(scored) > s.config.MaxResults {
		scored = scored[:s.config.MaxResults]
	}

	return scored
}

// RecordAccess increments the access counter and stamps the last access
// time for future rerank calls.
func (s *Strategy) RecordAccess(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.access[id]
	record.count++
	record.lastAccess = time.Now().UTC()
	s.access[id] = record
}

// AccessCount returns the recorded access count for an item.
func (s *Strategy) AccessCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access[id].count
}

// recencyScore is an exponential decay over the item's age, clamped to
// [0,1]. An item from the future scores 1.
func recencyScore(timestamp, now time.Time, halfLifeDays float64) float64 {
	ageDays := now.Sub(timestamp).Hours() / 24
	if ageDays <= 0 {
		return 1
	}
	score := math.Pow(0.5, ageDays/halfLifeDays)
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// accessScore rewards frequently recalled items with diminishing returns.
func accessScore(count int) float64 {
	score := math.Sqrt(float64(count)) / 10
	if score > 1 {
		return 1
	}
	return score
}

// HybridRecall fuses two pre-scored candidate lists by id with a weighted
// sum, normalizing the weights over their sum. Stateless.
func HybridRecall(a, b []Item, weightA, weightB float64) []Item {
	total := weightA + weightB
	if total == 0 {
		total = 1
	}
	wa := weightA / total
	wb := weightB / total

	merged := make(map[string]*Item)
	order := make([]string, 0, len(a)+len(b))

	fold := func(items []Item, weight float64) {
		for _, item := range items {
			existing, ok := merged[item.ID]
			if !ok {
				copied := item
				copied.Score = 0
				merged[item.ID] = &copied
				order = append(order, item.ID)
				existing = merged[item.ID]
			}
			existing.Score += item.Score * weight
		}
	}
	fold(a, wa)
	fold(b, wb)

	results := make([]Item, 0, len(order))
	for _, id := range order {
		results = append(results, *merged[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// TimeWindowRecall drops items older than windowDays. Stateless.
func TimeWindowRecall(items []Item, windowDays float64) []Item {
	cutoff := time.Now().UTC().Add(-time.Duration(windowDays * 24 * float64(time.Hour)))

	var kept []Item
	for _, item := range items {
		if !item.Timestamp.Before(cutoff) {
			kept = append(kept, item)
		}
	}
	return kept
}
