package memory

import "sync"

// Working is the bounded ring of recent conversational turns. It is
// bounded both by message count and by a token budget; the TierStore
// drains the oldest half whenever either bound is exceeded.
type Working struct {
	maxMessages int
	maxTokens   int

	mu     sync.RWMutex
	items  []*Item
	tokens int
}

// NewWorking creates a working tier with the given bounds. Non-positive
// bounds are treated as unlimited.
func NewWorking(maxMessages, maxTokens int) *Working {
	return &Working{
		maxMessages: maxMessages,
		maxTokens:   maxTokens,
	}
}

// Push appends an item to the end of the ring.
func (w *Working) Push(item *Item) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.items = append(w.items, item)
	w.tokens += item.TokenCount
}

// Overflowing reports whether either the message count or the token
// budget is exceeded.
func (w *Working) Overflowing() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.maxMessages > 0 && len(w.items) > w.maxMessages {
		return true
	}
	if w.maxTokens > 0 && w.tokens > w.maxTokens {
		return true
	}
	return false
}

// DrainOldestHalf removes and returns the oldest half of the ring by
// count, at least one item. Returns nil when the ring is empty.
func (w *Working) DrainOldestHalf() []*Item {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.items) == 0 {
		return nil
	}

	n := len(w.items) / 2
	if n == 0 {
		n = 1
	}

	drained := make([]*Item, n)
	copy(drained, w.items[:n])
	w.items = append([]*Item(nil), w.items[n:]...)

	for _, item := range drained {
		w.tokens -= item.TokenCount
	}

	return drained
}

// Restore prepends previously drained items back to the front of the
// ring in their original order. Used when compression fails.
func (w *Working) Restore(items []*Item) {
	if len(items) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	restored := make([]*Item, 0, len(items)+len(w.items))
	restored = append(restored, items...)
	restored = append(restored, w.items...)
	w.items = restored

	for _, item := range items {
		w.tokens += item.TokenCount
	}
}

// Retain keeps only items for which keep returns true, preserving order,
// and returns the removed items.
func (w *Working) Retain(keep func(*Item) bool) []*Item {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.items[:0:0]
	var removed []*Item
	for _, item := range w.items {
		if keep(item) {
			kept = append(kept, item)
		} else {
			removed = append(removed, item)
			w.tokens -= item.TokenCount
		}
	}
	w.items = kept

	return removed
}

// GetRecent returns the last n items in chronological order without
// touching access metadata.
func (w *Working) GetRecent(n int) []*Item {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if n <= 0 || len(w.items) == 0 {
		return nil
	}
	if n > len(w.items) {
		n = len(w.items)
	}

	result := make([]*Item, n)
	copy(result, w.items[len(w.items)-n:])
	return result
}

// GetAll returns a copy of the full ring in chronological order.
func (w *Working) GetAll() []*Item {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]*Item, len(w.items))
	copy(result, w.items)
	return result
}

// Len returns the number of items currently held.
func (w *Working) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}

// TotalTokens returns the sum of token counts of all held items.
func (w *Working) TotalTokens() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tokens
}

// Clear empties the ring.
func (w *Working) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = nil
	w.tokens = 0
}
