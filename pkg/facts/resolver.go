package facts

import (
	"time"

	"github.com/google/uuid"
)

// ConflictType describes how two facts disagree.
type ConflictType string

const (
	ConflictDirect   ConflictType = "direct"
	ConflictImplied  ConflictType = "implied"
	ConflictTemporal ConflictType = "temporal"
)

// ResolutionMethod selects how a conflict's winner is chosen.
type ResolutionMethod string

const (
	// ResolveLatest keeps the fact with the newer timestamp.
	ResolveLatest ResolutionMethod = "latest"

	// ResolveHighestConfidence keeps the fact the model was more sure
	// about; ties go to the first fact.
	ResolveHighestConfidence ResolutionMethod = "highest_confidence"
)

// Conflict pairs two contradicting facts.
type Conflict struct {
	ID         string       `json:"id"`
	FactA      *AtomicFact  `json:"fact_a"`
	FactB      *AtomicFact  `json:"fact_b"`
	Type       ConflictType `json:"conflict_type"`
	DetectedAt time.Time    `json:"detected_at"`
}

// Resolution records which fact survived a conflict and why.
type Resolution struct {
	Winner     string           `json:"winner"`
	Loser      string           `json:"loser"`
	Reason     string           `json:"reason"`
	ResolvedAt time.Time        `json:"resolved_at"`
	Method     ResolutionMethod `json:"method"`
}

// Resolver detects and settles contradictions in a fact set. Category
// weights bias the weighted strategy toward decisions over loose notes.
type Resolver struct {
	categoryWeights map[Category]float64
}

// NewResolver creates a Resolver with the default category weights.
func NewResolver() *Resolver {
	return &Resolver{
		categoryWeights: map[Category]float64{
			CategoryUserPreference: 1.0,
			CategoryUserGoal:       1.0,
			CategoryDecision:       1.2,
			CategoryPersonalInfo:   0.9,
			CategoryUserBackground: 0.8,
			CategoryWorkInfo:       0.9,
			CategoryProjectInfo:    1.0,
			CategoryNote:           0.7,
			CategoryOther:          0.5,
		},
	}
}

// WithCategoryWeight overrides the weight for a category.
func (r *Resolver) WithCategoryWeight(category Category, weight float64) *Resolver {
	r.categoryWeights[category] = weight
	return r
}

// DetectConflicts returns every contradicting pair in the set.
func (r *Resolver) DetectConflicts(facts []*AtomicFact) []*Conflict {
	var conflicts []*Conflict
	for i, a := range facts {
		for _, b := range facts[i+1:] {
			if a.Contradicts(b) {
				conflicts = append(conflicts, &Conflict{
					ID:         uuid.New().String(),
					FactA:      a,
					FactB:      b,
					Type:       ConflictDirect,
					DetectedAt: time.Now().UTC(),
				})
			}
		}
	}
	return conflicts
}

// ResolveConflict picks a winner for one conflict.
func (r *Resolver) ResolveConflict(conflict *Conflict, method ResolutionMethod) Resolution {
	var winner, loser *AtomicFact
	var reason string

	switch method {
	case ResolveHighestConfidence:
		if conflict.FactA.Confidence >= conflict.FactB.Confidence {
			winner, loser = conflict.FactA, conflict.FactB
		} else {
			winner, loser = conflict.FactB, conflict.FactA
		}
		reason = "kept the higher-confidence fact"
	default:
		if conflict.FactA.CreatedAt.After(conflict.FactB.CreatedAt) {
			winner, loser = conflict.FactA, conflict.FactB
		} else {
			winner, loser = conflict.FactB, conflict.FactA
		}
		method = ResolveLatest
		reason = "kept the most recent fact"
	}

	return Resolution{
		Winner:     winner.ID,
		Loser:      loser.ID,
		Reason:     reason,
		ResolvedAt: time.Now().UTC(),
		Method:     method,
	}
}

// Resolve detects conflicts and removes each conflict's loser, returning
// the surviving facts in their original order.
func (r *Resolver) Resolve(facts []*AtomicFact, method ResolutionMethod) []*AtomicFact {
	conflicts := r.DetectConflicts(facts)
	if len(conflicts) == 0 {
		return facts
	}

	losers := make(map[string]bool, len(conflicts))
	for _, conflict := range conflicts {
		resolution := r.ResolveConflict(conflict, method)
		losers[resolution.Loser] = true
	}

	survivors := make([]*AtomicFact, 0, len(facts))
	for _, fact := range facts {
		if !losers[fact.ID] {
			survivors = append(survivors, fact)
		}
	}
	return survivors
}

// WeightedResolve scores each fact as confidence times its category
// weight and drops the lower-scored side of every conflict.
func (r *Resolver) WeightedResolve(facts []*AtomicFact) []*AtomicFact {
	conflicts := r.DetectConflicts(facts)
	if len(conflicts) == 0 {
		return facts
	}

	scores := make(map[string]float64, len(facts))
	for _, fact := range facts {
		weight, ok := r.categoryWeights[fact.Category]
		if !ok {
			weight = 0.5
		}
		scores[fact.ID] = fact.Confidence * weight
	}

	dropped := make(map[string]bool)
	for _, conflict := range conflicts {
		if scores[conflict.FactA.ID] >= scores[conflict.FactB.ID] {
			dropped[conflict.FactB.ID] = true
		} else {
			dropped[conflict.FactA.ID] = true
		}
	}

	survivors := make([]*AtomicFact, 0, len(facts))
	for _, fact := range facts {
		if !dropped[fact.ID] {
			survivors = append(survivors, fact)
		}
	}
	return survivors
}
