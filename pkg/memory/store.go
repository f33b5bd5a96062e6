package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Archiver writes an evicted short-term summary into the long-term index
// and returns the vector id it was stored under.
type Archiver interface {
	Archive(ctx context.Context, item *Item) (string, error)
}

// Config bounds the Working and ShortTerm tiers.
type Config struct {
	// MaxMessages bounds the Working ring by item count.
	MaxMessages int

	// MaxTokens bounds the Working ring by total token count.
	MaxTokens int

	// MaxSummaries bounds the ShortTerm tier; the oldest summary is
	// archived to long-term when exceeded.
	MaxSummaries int
}

// DefaultConfig returns the tier bounds used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxMessages:  50,
		MaxTokens:    4000,
		MaxSummaries: 20,
	}
}

// TierStore owns the Working -> ShortTerm -> LongTerm hierarchy and the
// promotion/compression policy between them.
type TierStore struct {
	config     Config
	working    *Working
	compressor Compressor
	archiver   Archiver
	logger     *zap.Logger

	mu        sync.RWMutex
	shortTerm []*Item
}

// NewTierStore creates a tier store. The archiver may be nil, in which
// case evicted summaries are dropped after logging.
func NewTierStore(config Config, compressor Compressor, archiver Archiver, logger *zap.Logger) *TierStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TierStore{
		config:     config,
		working:    NewWorking(config.MaxMessages, config.MaxTokens),
		compressor: compressor,
		archiver:   archiver,
		logger:     logger,
	}
}

// Add appends an item to Working and runs the compression path if the
// tier overflows. On compressor failure the drained items are restored
// and the error surfaced; nothing is lost.
func (s *TierStore) Add(ctx context.Context, item *Item) error {
	item.Level = LevelWorking
	s.working.Push(item)

	if !s.working.Overflowing() {
		return nil
	}

	drained := s.working.DrainOldestHalf()
	if len(drained) == 0 {
		return nil
	}

	summary, err := s.compressor.Compress(ctx, drained)
	if err != nil {
		s.working.Restore(drained)
		return fmt.Errorf("%w: %v", ErrCompression, err)
	}

	s.logger.Debug("compressed working overflow",
		zap.Int("drained", len(drained)),
		zap.Int("summary_tokens", summary.TokenCount),
	)

	summary.Level = LevelShortTerm

	s.mu.Lock()
	s.shortTerm = append(s.shortTerm, summary)
	var evicted *Item
	if s.config.MaxSummaries > 0 && len(s.shortTerm) > s.config.MaxSummaries {
		evicted = s.shortTerm[0]
		s.shortTerm = append([]*Item(nil), s.shortTerm[1:]...)
	}
	s.mu.Unlock()

	if evicted == nil {
		return nil
	}

	return s.archive(ctx, evicted)
}

// archive hands an evicted summary to the long-term index. On failure the
// summary is put back at the front of ShortTerm.
func (s *TierStore) archive(ctx context.Context, item *Item) error {
	if s.archiver == nil {
		s.logger.Debug("no archiver configured, dropping evicted summary",
			zap.String("id", item.ID))
		return nil
	}

	vectorID, err := s.archiver.Archive(ctx, item)
	if err != nil {
		s.mu.Lock()
		s.shortTerm = append([]*Item{item}, s.shortTerm...)
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}

	item.Level = LevelLongTerm
	s.logger.Debug("archived summary to long-term",
		zap.String("id", item.ID),
		zap.String("vector_id", vectorID),
	)
	return nil
}

// GetRecent returns the last n Working items in chronological order
// without touching access metadata.
func (s *TierStore) GetRecent(n int) []*Item {
	return s.working.GetRecent(n)
}

// GetAll returns the full Working buffer in chronological order.
func (s *TierStore) GetAll() []*Item {
	return s.working.GetAll()
}

// Summaries returns a copy of the ShortTerm tier, oldest first.
func (s *TierStore) Summaries() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Item, len(s.shortTerm))
	copy(result, s.shortTerm)
	return result
}

// TotalTokens returns the Working tier's token accounting total.
func (s *TierStore) TotalTokens() int {
	return s.working.TotalTokens()
}

// Len returns the number of Working items.
func (s *TierStore) Len() int {
	return s.working.Len()
}

// Clear empties the Working and ShortTerm tiers unconditionally.
// Long-term documents live behind the Archiver and are cleared by
// whoever owns that index.
func (s *TierStore) Clear() {
	s.working.Clear()

	s.mu.Lock()
	s.shortTerm = nil
	s.mu.Unlock()
}

// Stats reports per-tier occupancy.
type Stats struct {
	WorkingCount   int `json:"working_count"`
	WorkingTokens  int `json:"working_tokens"`
	ShortTermCount int `json:"short_term_count"`
}

// Stats returns current per-tier occupancy.
func (s *TierStore) Stats() Stats {
	s.mu.RLock()
	shortTermCount := len(s.shortTerm)
	s.mu.RUnlock()

	return Stats{
		WorkingCount:   s.working.Len(),
		WorkingTokens:  s.working.TotalTokens(),
		ShortTermCount: shortTermCount,
	}
}
