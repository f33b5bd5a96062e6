package engine

import (
	"context"
	"fmt"

	"github.com/papercomputeco/engram/pkg/facts"
)

// ExtractFacts runs the fact extractor over a conversation, merges the
// result into the engine's fact set and resolves any contradictions by
// keeping the most recent claim.
func (e *Engine) ExtractFacts(ctx context.Context, conversation string) ([]*facts.AtomicFact, error) {
	if e.extractor == nil {
		return nil, fmt.Errorf("%w: fact extractor", ErrNotConfigured)
	}

	extracted, err := e.extractor.Extract(ctx, conversation)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	combined := append(append([]*facts.AtomicFact(nil), e.facts...), extracted...)
	e.facts = e.resolver.Resolve(combined, facts.ResolveLatest)

	return e.snapshotFactsLocked(), nil
}

// ClassifyFact appends a single offline-classified fact without calling a
// model. Contradictions with earlier facts are kept until DetectConflicts
// or ResolveConflicts is called.
func (e *Engine) ClassifyFact(content, sourceMessageID string) *facts.AtomicFact {
	fact := facts.NewFact(content, facts.ClassifyText(content))
	if sourceMessageID != "" {
		fact.WithSource(sourceMessageID)
	}

	e.appendFact(fact)

	return fact
}

// RecordError keeps an error and its solution as a learnable fact.
func (e *Engine) RecordError(problem, solution string) {
	e.appendFact(facts.NewFact(
		fmt.Sprintf("error: %s -> solution: %s", problem, solution),
		facts.CategoryError,
	))
}

// RecordSuccess keeps an action and its outcome as a learnable fact.
func (e *Engine) RecordSuccess(action, outcome string) {
	e.appendFact(facts.NewFact(
		fmt.Sprintf("success: %s -> %s", action, outcome),
		facts.CategoryAction,
	))
}

// RecordFeedback keeps user feedback and the adjustment made for it.
func (e *Engine) RecordFeedback(feedback, adjustment string) {
	e.appendFact(facts.NewFact(
		fmt.Sprintf("feedback: %s -> adjustment: %s", feedback, adjustment),
		facts.CategoryFeedback,
	))
}

// Facts returns a copy of the current fact set.
func (e *Engine) Facts() []*facts.AtomicFact {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotFactsLocked()
}

// DetectConflicts reports contradiction pairs in the current fact set
// without resolving them.
func (e *Engine) DetectConflicts() []*facts.Conflict {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resolver.DetectConflicts(e.facts)
}

// ResolveConflicts settles every contradiction with the given strategy
// and returns the surviving facts.
func (e *Engine) ResolveConflicts(method facts.ResolutionMethod) []*facts.AtomicFact {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.facts = e.resolver.Resolve(e.facts, method)
	return e.snapshotFactsLocked()
}

// ClearFacts drops every extracted fact.
func (e *Engine) ClearFacts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.facts = nil
}

func (e *Engine) appendFact(fact *facts.AtomicFact) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.facts = append(e.facts, fact)
}

func (e *Engine) snapshotFactsLocked() []*facts.AtomicFact {
	snapshot := make([]*facts.AtomicFact, len(e.facts))
	copy(snapshot, e.facts)
	return snapshot
}
