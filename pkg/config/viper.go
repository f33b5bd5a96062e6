package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ENGRAM_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ENGRAM_API_LISTEN, ENGRAM_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: ENGRAM_API_LISTEN, ENGRAM_VECTOR_STORE_PROVIDER, etc.
	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective Config from a viper instance
// produced by InitViper, after any flag binding. Every dotted key is read
// explicitly so the precedence chain (flag > env > file > default) applies
// uniformly.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Memory: MemoryConfig{
			Working: WorkingConfig{
				MaxMessages: v.GetUint("memory.working.max_messages"),
				MaxTokens:   v.GetUint("memory.working.max_tokens"),
			},
			ShortTerm: ShortTermConfig{
				MaxSummaries: v.GetUint("memory.short_term.max_summaries"),
			},
			LongTerm: LongTermConfig{
				ChunkSize:     v.GetUint("memory.long_term.chunk_size"),
				ChunkOverlap:  v.GetUint("memory.long_term.chunk_overlap"),
				ContextTokens: v.GetUint("memory.long_term.context_tokens"),
			},
			Prune: PruneConfig{
				Enabled:             v.GetBool("memory.prune.enabled"),
				IntervalHours:       v.GetUint("memory.prune.interval_hours"),
				MaxAgeDays:          v.GetUint("memory.prune.max_age_days"),
				ImportanceThreshold: v.GetFloat64("memory.prune.importance_threshold"),
			},
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Path:       v.GetString("vector_store.path"),
			Host:       v.GetString("vector_store.host"),
			Port:       v.GetInt("vector_store.port"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			Target:   v.GetString("llm.target"),
			Model:    v.GetString("llm.model"),
		},
		Recall: RecallConfig{
			VectorWeight:     v.GetFloat64("recall.vector_weight"),
			BM25Weight:       v.GetFloat64("recall.bm25_weight"),
			RecencyWeight:    v.GetFloat64("recall.recency_weight"),
			ImportanceWeight: v.GetFloat64("recall.importance_weight"),
			HalfLifeDays:     v.GetFloat64("recall.half_life_days"),
			MaxResults:       v.GetUint("recall.max_results"),
		},
		Checkpoint: CheckpointConfig{
			Enabled: v.GetBool("checkpoint.enabled"),
			Path:    v.GetString("checkpoint.path"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Eventstream: EventstreamConfig{
			Provider:        v.GetString("eventstream.provider"),
			Brokers:         v.GetStringSlice("eventstream.brokers"),
			MemoryTopic:     v.GetString("eventstream.memory_topic"),
			CheckpointTopic: v.GetString("eventstream.checkpoint_topic"),
		},
		Workspace: WorkspaceConfig{
			Dir:        v.GetString("workspace.dir"),
			Watch:      v.GetBool("workspace.watch"),
			Extensions: v.GetStringSlice("workspace.extensions"),
			StatePath:  v.GetString("workspace.state_path"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Memory tiers
	v.SetDefault("memory.working.max_messages", d.Memory.Working.MaxMessages)
	v.SetDefault("memory.working.max_tokens", d.Memory.Working.MaxTokens)
	v.SetDefault("memory.short_term.max_summaries", d.Memory.ShortTerm.MaxSummaries)
	v.SetDefault("memory.long_term.chunk_size", d.Memory.LongTerm.ChunkSize)
	v.SetDefault("memory.long_term.chunk_overlap", d.Memory.LongTerm.ChunkOverlap)
	v.SetDefault("memory.long_term.context_tokens", d.Memory.LongTerm.ContextTokens)
	v.SetDefault("memory.prune.enabled", d.Memory.Prune.Enabled)
	v.SetDefault("memory.prune.interval_hours", d.Memory.Prune.IntervalHours)
	v.SetDefault("memory.prune.max_age_days", d.Memory.Prune.MaxAgeDays)
	v.SetDefault("memory.prune.importance_threshold", d.Memory.Prune.ImportanceThreshold)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.path", d.VectorStore.Path)
	v.SetDefault("vector_store.host", d.VectorStore.Host)
	v.SetDefault("vector_store.port", d.VectorStore.Port)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)

	// Recall
	v.SetDefault("recall.vector_weight", d.Recall.VectorWeight)
	v.SetDefault("recall.bm25_weight", d.Recall.BM25Weight)
	v.SetDefault("recall.recency_weight", d.Recall.RecencyWeight)
	v.SetDefault("recall.importance_weight", d.Recall.ImportanceWeight)
	v.SetDefault("recall.half_life_days", d.Recall.HalfLifeDays)
	v.SetDefault("recall.max_results", d.Recall.MaxResults)

	// Checkpoint
	v.SetDefault("checkpoint.enabled", d.Checkpoint.Enabled)
	v.SetDefault("checkpoint.path", d.Checkpoint.Path)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Eventstream
	v.SetDefault("eventstream.provider", d.Eventstream.Provider)
	v.SetDefault("eventstream.brokers", d.Eventstream.Brokers)
	v.SetDefault("eventstream.memory_topic", d.Eventstream.MemoryTopic)
	v.SetDefault("eventstream.checkpoint_topic", d.Eventstream.CheckpointTopic)

	// Workspace
	v.SetDefault("workspace.dir", d.Workspace.Dir)
	v.SetDefault("workspace.watch", d.Workspace.Watch)
	v.SetDefault("workspace.extensions", d.Workspace.Extensions)
	v.SetDefault("workspace.state_path", d.Workspace.StatePath)
}
