// Package engine wires the memory tiers, retrieval channels, fact
// extraction and event publishing into one façade.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/checkpoint"
	"github.com/papercomputeco/engram/pkg/chunker"
	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/facts"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/recall"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/vector"
)

// ErrNotConfigured indicates an operation needs a dependency the engine
// was built without.
var ErrNotConfigured = errors.New("engine dependency not configured")

// DefaultContextTokens bounds the Recall token budget when none is given.
const DefaultContextTokens = 2000

// archivePreviewLength caps the stored content preview for archived
// summaries.
const archivePreviewLength = 200

// Options collects the engine's dependencies. Driver, Compressor and
// Embedder are required; the rest default to disabled or no-op behavior.
type Options struct {
	Memory        memory.Config
	Prune         memory.PruneConfig
	Search        search.Config
	Recall        recall.Config
	Chunker       chunker.Config
	ContextTokens int

	Compressor  memory.Compressor
	Embedder    embeddings.Embedder
	Driver      vector.VectorDriver
	Extractor   *facts.Extractor
	Checkpoints *checkpoint.Store
	Publisher   eventstream.Publisher
	Logger      *zap.Logger
}

// Engine is the single entry point for storing, recalling and learning
// memories.
type Engine struct {
	contextTokens int
	searchConfig  search.Config

	tiers       *memory.TierStore
	pruner      *memory.Pruner
	scorer      *memory.Scorer
	chunker     *chunker.Chunker
	embedder    embeddings.Embedder
	search      *search.Engine
	bm25        *search.BM25Index
	strategy    *recall.Strategy
	extractor   *facts.Extractor
	resolver    *facts.Resolver
	checkpoints *checkpoint.Store
	publisher   eventstream.Publisher
	logger      *zap.Logger

	mu    sync.RWMutex
	facts []*facts.AtomicFact
}

// New assembles an engine. The long-term archiver is wired internally:
// summaries evicted from short-term memory are embedded and indexed in
// both retrieval channels.
func New(opts Options) (*Engine, error) {
	if opts.Driver == nil || opts.Compressor == nil || opts.Embedder == nil {
		return nil, fmt.Errorf("%w: driver, compressor and embedder are required", ErrNotConfigured)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}
	if opts.ContextTokens <= 0 {
		opts.ContextTokens = DefaultContextTokens
	}
	if opts.Search.VectorWeight == 0 && opts.Search.KeywordWeight == 0 {
		opts.Search = search.DefaultConfig()
	}
	if opts.Recall.VectorWeight == 0 && opts.Recall.BM25Weight == 0 &&
		opts.Recall.RecencyWeight == 0 && opts.Recall.ImportanceWeight == 0 {
		opts.Recall = recall.DefaultConfig()
	}
	if opts.Prune == (memory.PruneConfig{}) {
		opts.Prune = memory.DefaultPruneConfig()
	}

	chk, err := chunker.NewChunker(opts.Chunker)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	searchEngine := search.NewEngine(opts.Driver, logger)
	bm25 := search.NewBM25Index()

	e := &Engine{
		contextTokens: opts.ContextTokens,
		searchConfig:  opts.Search,
		scorer:        memory.NewScorer(),
		chunker:       chk,
		embedder:      opts.Embedder,
		search:        searchEngine,
		bm25:          bm25,
		strategy:      recall.NewStrategy(opts.Recall),
		extractor:     opts.Extractor,
		resolver:      facts.NewResolver(),
		checkpoints:   opts.Checkpoints,
		publisher:     publisher,
		logger:        logger,
	}

	archiver := &longTermArchiver{
		embedder: opts.Embedder,
		search:   searchEngine,
		bm25:     bm25,
	}
	e.tiers = memory.NewTierStore(opts.Memory, opts.Compressor, archiver, logger)
	e.pruner = memory.NewPruner(opts.Prune, logger)

	return e, nil
}

// Prune removes stale and excess items from the ephemeral tiers per the
// configured policy and returns what this round removed.
func (e *Engine) Prune() memory.PruneStats {
	return e.pruner.Prune(e.tiers)
}

// Add scores a conversational turn, stores it in working memory and
// publishes a persistence event. Compression and archival cascade as the
// tiers fill.
func (e *Engine) Add(ctx context.Context, msg llm.Message, sessionID string) (*memory.Item, error) {
	item := memory.NewMessageItem(string(msg.Role), msg.GetText())
	item.ImportanceScore = e.scorer.Score(msg)
	item.Metadata.SessionID = sessionID

	if err := e.tiers.Add(ctx, item); err != nil {
		return nil, err
	}

	event := &eventstream.MemoryPersistedEvent{
		EventMeta:  eventstream.NewEventMeta(eventstream.EventTypeMemoryPersisted),
		ItemID:     item.ID,
		Level:      string(item.Level),
		SessionID:  sessionID,
		Importance: item.ImportanceScore,
		TokenCount: item.TokenCount,
	}
	if err := e.publisher.PublishMemoryPersisted(ctx, event); err != nil {
		e.logger.Warn("memory persisted event not published",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}

	return item, nil
}

// Retrieval is a token-budgeted context assembled from all tiers.
type Retrieval struct {
	Items      []*memory.Item `json:"items"`
	TokensUsed int            `json:"tokens_used"`
}

// Recall assembles context for a query: recent working messages first,
// then short-term summaries, then long-term hits, each newest first and
// all within the token budget. A failing long-term channel degrades to
// the ephemeral tiers instead of failing the call.
func (e *Engine) Recall(ctx context.Context, query string, maxTokens int) *Retrieval {
	if maxTokens <= 0 {
		maxTokens = e.contextTokens
	}

	retrieval := &Retrieval{}
	appendWithinBudget := func(item *memory.Item) bool {
		if retrieval.TokensUsed+item.TokenCount > maxTokens {
			return false
		}
		retrieval.Items = append(retrieval.Items, item)
		retrieval.TokensUsed += item.TokenCount
		return true
	}

	working := e.tiers.GetAll()
	for i := len(working) - 1; i >= 0; i-- {
		if !appendWithinBudget(working[i]) {
			break
		}
	}

	summaries := e.tiers.Summaries()
	for i := len(summaries) - 1; i >= 0; i-- {
		if !appendWithinBudget(summaries[i]) {
			break
		}
	}

	hits, err := e.searchLongTerm(ctx, query)
	if err != nil {
		e.logger.Warn("long-term recall degraded", zap.Error(err))
		return retrieval
	}
	for _, hit := range hits {
		item := vectorRefItem(hit)
		if appendWithinBudget(item) {
			e.strategy.RecordAccess(hit.ID)
		}
	}

	return retrieval
}

// searchLongTerm runs the hybrid search with the query embedded when the
// embedder cooperates; embedding failure degrades to keyword-only.
func (e *Engine) searchLongTerm(ctx context.Context, query string) ([]search.Result, error) {
	var queryVector []float32
	if query != "" {
		embedded, err := e.embedder.Embed(ctx, query)
		if err != nil {
			e.logger.Warn("query embedding failed, keyword channel only", zap.Error(err))
		} else {
			queryVector = embedded
		}
	}

	return e.search.Search(ctx, query, queryVector, e.searchConfig)
}

// vectorRefItem wraps a long-term hit as a memory item holding a pointer
// into the index.
func vectorRefItem(hit search.Result) *memory.Item {
	item := memory.NewMessageItem("", "")
	item.Level = memory.LevelLongTerm
	item.Content = memory.Content{
		Kind:     memory.ContentVectorRef,
		VectorID: hit.ID,
		Preview:  hit.Content,
	}
	item.ImportanceScore = hit.Score
	item.TokenCount = memory.EstimateTokens(hit.Content)
	item.AccessCount = 1
	return item
}

// Search runs both long-term channels, fuses them and re-ranks the fused
// list by relevance, recency, access frequency and importance.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]recall.ScoredItem, error) {
	hybrid, err := e.searchLongTerm(ctx, query)
	lexical := e.bm25.Search(query, limit)
	if err != nil && len(lexical) == 0 {
		return nil, err
	}
	if err != nil {
		e.logger.Warn("hybrid channel failed, lexical results only", zap.Error(err))
	}

	vectorItems := make([]recall.Item, 0, len(hybrid))
	for _, hit := range hybrid {
		vectorItems = append(vectorItems, recallItem(hit))
	}
	lexicalItems := make([]recall.Item, 0, len(lexical))
	for _, hit := range lexical {
		lexicalItems = append(lexicalItems, recallItem(hit))
	}

	fused := recall.HybridRecall(vectorItems, lexicalItems,
		e.searchConfig.VectorWeight+e.searchConfig.KeywordWeight, 1)

	ranked := e.strategy.Rerank(fused)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// recallItem converts a search hit to a re-ranker candidate, pulling
// provenance out of the payload where the archiver put it.
func recallItem(hit search.Result) recall.Item {
	item := recall.Item{
		ID:      hit.ID,
		Content: hit.Content,
		Score:   hit.Score,
	}
	if importance, ok := hit.Payload["importance"].(float64); ok {
		item.Importance = importance
	}
	if created, ok := hit.Payload["created_at"].(string); ok {
		item.Timestamp = parseTimestamp(created)
	}
	return item
}

// RecordAccess bumps the access counter used by the re-ranker.
func (e *Engine) RecordAccess(id string) {
	e.strategy.RecordAccess(id)
}

// Close releases the embedder and publisher.
func (e *Engine) Close() error {
	embedderErr := e.embedder.Close()
	publisherErr := e.publisher.Close()
	if embedderErr != nil {
		return embedderErr
	}
	return publisherErr
}
