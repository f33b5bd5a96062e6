package memory

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PruneConfig bounds what the Pruner removes from the ephemeral tiers.
type PruneConfig struct {
	// MaxAge makes Working items not accessed within this window
	// candidates for removal. Non-positive disables the age pass.
	MaxAge time.Duration

	// MaxWorking caps the Working tier after a prune; the least
	// important items beyond the cap are dropped. Non-positive
	// disables the cap.
	MaxWorking int

	// MaxSummaries caps the ShortTerm tier after a prune; the oldest
	// summaries beyond the cap are dropped. Non-positive disables
	// the cap.
	MaxSummaries int

	// ProtectImportant keeps items scoring at or above
	// ImportanceThreshold regardless of age or occupancy.
	ProtectImportant    bool
	ImportanceThreshold float64
}

// DefaultPruneConfig returns the pruning bounds used when none are
// configured.
func DefaultPruneConfig() PruneConfig {
	return PruneConfig{
		MaxAge:              30 * 24 * time.Hour,
		MaxWorking:          50,
		MaxSummaries:        10,
		ProtectImportant:    true,
		ImportanceThreshold: 0.7,
	}
}

// PruneStats counts what a prune removed and what it left alone.
type PruneStats struct {
	ItemsPruned     int       `json:"items_pruned"`
	SummariesPruned int       `json:"summaries_pruned"`
	Protected       int       `json:"protected"`
	TokensFreed     int       `json:"tokens_freed"`
	LastPruned      time.Time `json:"last_pruned,omitzero"`
}

// Pruner removes stale and excess items from a TierStore's ephemeral
// tiers. Important items survive both the age pass and the occupancy
// pass when protection is enabled.
type Pruner struct {
	config PruneConfig
	logger *zap.Logger

	mu    sync.Mutex
	stats PruneStats
}

// NewPruner creates a pruner with the given policy.
func NewPruner(config PruneConfig, logger *zap.Logger) *Pruner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pruner{
		config: config,
		logger: logger,
	}
}

// Prune applies the policy to the store and returns what this round
// removed. Cumulative totals are available from Stats.
func (p *Pruner) Prune(store *TierStore) PruneStats {
	now := time.Now().UTC()
	round := PruneStats{LastPruned: now}

	p.pruneExpired(store, now, &round)
	p.limitWorking(store, &round)
	p.limitShortTerm(store, &round)

	p.mu.Lock()
	p.stats.ItemsPruned += round.ItemsPruned
	p.stats.SummariesPruned += round.SummariesPruned
	p.stats.Protected += round.Protected
	p.stats.TokensFreed += round.TokensFreed
	p.stats.LastPruned = now
	p.mu.Unlock()

	if round.ItemsPruned > 0 || round.SummariesPruned > 0 {
		p.logger.Info("pruned memory tiers",
			zap.Int("items", round.ItemsPruned),
			zap.Int("summaries", round.SummariesPruned),
			zap.Int("protected", round.Protected),
			zap.Int("tokens_freed", round.TokensFreed),
		)
	}

	return round
}

// pruneExpired drops Working items last accessed before the age cutoff.
func (p *Pruner) pruneExpired(store *TierStore, now time.Time, round *PruneStats) {
	if p.config.MaxAge <= 0 {
		return
	}
	cutoff := now.Add(-p.config.MaxAge)

	removed := store.working.Retain(func(item *Item) bool {
		if !item.LastAccessed.Before(cutoff) {
			return true
		}
		if p.protected(item) {
			round.Protected++
			return true
		}
		return false
	})

	round.ItemsPruned += len(removed)
	for _, item := range removed {
		round.TokensFreed += item.TokenCount
	}
}

// limitWorking drops the least important unprotected items until the
// Working tier fits the cap. Chronological order of survivors is kept.
func (p *Pruner) limitWorking(store *TierStore, round *PruneStats) {
	if p.config.MaxWorking <= 0 {
		return
	}
	excess := store.working.Len() - p.config.MaxWorking
	if excess <= 0 {
		return
	}

	candidates := store.working.GetAll()
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ImportanceScore < candidates[j].ImportanceScore
	})

	drop := make(map[string]bool, excess)
	for _, item := range candidates {
		if len(drop) == excess {
			break
		}
		if p.protected(item) {
			round.Protected++
			continue
		}
		drop[item.ID] = true
	}

	removed := store.working.Retain(func(item *Item) bool {
		return !drop[item.ID]
	})

	round.ItemsPruned += len(removed)
	for _, item := range removed {
		round.TokensFreed += item.TokenCount
	}
}

// limitShortTerm drops the oldest summaries beyond the cap.
func (p *Pruner) limitShortTerm(store *TierStore, round *PruneStats) {
	if p.config.MaxSummaries <= 0 {
		return
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	excess := len(store.shortTerm) - p.config.MaxSummaries
	if excess <= 0 {
		return
	}

	for _, item := range store.shortTerm[:excess] {
		round.TokensFreed += item.TokenCount
	}
	round.SummariesPruned += excess
	store.shortTerm = append([]*Item(nil), store.shortTerm[excess:]...)
}

func (p *Pruner) protected(item *Item) bool {
	return p.config.ProtectImportant && item.ImportanceScore >= p.config.ImportanceThreshold
}

// Stats returns cumulative totals across every prune run so far.
func (p *Pruner) Stats() PruneStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// ResetStats zeroes the cumulative totals.
func (p *Pruner) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = PruneStats{}
}
