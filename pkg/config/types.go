package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent engram configuration stored as config.toml
// in the .engram/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Memory      MemoryConfig      `toml:"memory"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	Recall      RecallConfig      `toml:"recall"`
	Checkpoint  CheckpointConfig  `toml:"checkpoint"`
	API         APIConfig         `toml:"api"`
	Eventstream EventstreamConfig `toml:"eventstream"`
	Workspace   WorkspaceConfig   `toml:"workspace"`
}

// MemoryConfig groups the per-tier memory settings.
type MemoryConfig struct {
	Working   WorkingConfig   `toml:"working"`
	ShortTerm ShortTermConfig `toml:"short_term"`
	LongTerm  LongTermConfig  `toml:"long_term"`
	Prune     PruneConfig     `toml:"prune"`
}

// WorkingConfig holds working tier capacity limits.
type WorkingConfig struct {
	MaxMessages uint `toml:"max_messages,omitempty"`
	MaxTokens   uint `toml:"max_tokens,omitempty"`
}

// ShortTermConfig holds short-term tier capacity limits.
type ShortTermConfig struct {
	MaxSummaries uint `toml:"max_summaries,omitempty"`
}

// LongTermConfig holds long-term ingest settings.
type LongTermConfig struct {
	ChunkSize     uint `toml:"chunk_size,omitempty"`
	ChunkOverlap  uint `toml:"chunk_overlap,omitempty"`
	ContextTokens uint `toml:"context_tokens,omitempty"`
}

// PruneConfig holds the periodic maintenance settings for the ephemeral
// tiers. Items at or above ImportanceThreshold survive pruning.
type PruneConfig struct {
	Enabled             bool    `toml:"enabled,omitempty"`
	IntervalHours       uint    `toml:"interval_hours,omitempty"`
	MaxAgeDays          uint    `toml:"max_age_days,omitempty"`
	ImportanceThreshold float64 `toml:"importance_threshold,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Path       string `toml:"path,omitempty"`
	Host       string `toml:"host,omitempty"`
	Port       int    `toml:"port,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds the chat backend used for summary compression and
// fact extraction. Provider "none" disables both and falls back to
// preview compression.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// RecallConfig holds re-ranking weights for unified recall.
type RecallConfig struct {
	VectorWeight     float64 `toml:"vector_weight,omitempty"`
	BM25Weight       float64 `toml:"bm25_weight,omitempty"`
	RecencyWeight    float64 `toml:"recency_weight,omitempty"`
	ImportanceWeight float64 `toml:"importance_weight,omitempty"`
	HalfLifeDays     float64 `toml:"half_life_days,omitempty"`
	MaxResults       uint    `toml:"max_results,omitempty"`
}

// CheckpointConfig holds agent checkpoint persistence settings.
type CheckpointConfig struct {
	Enabled bool   `toml:"enabled,omitempty"`
	Path    string `toml:"path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventstreamConfig holds event publisher settings. Provider "nop"
// discards events; "kafka" publishes to the listed brokers.
type EventstreamConfig struct {
	Provider        string   `toml:"provider,omitempty"`
	Brokers         []string `toml:"brokers,omitempty"`
	MemoryTopic     string   `toml:"memory_topic,omitempty"`
	CheckpointTopic string   `toml:"checkpoint_topic,omitempty"`
}

// WorkspaceConfig holds workspace document sync settings.
type WorkspaceConfig struct {
	Dir        string   `toml:"dir,omitempty"`
	Watch      bool     `toml:"watch,omitempty"`
	Extensions []string `toml:"extensions,omitempty"`
	StatePath  string   `toml:"state_path,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(field func(c *Config) *uint, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if v := *field(c); v != 0 {
				return strconv.FormatUint(uint64(v), 10)
			}
			return ""
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(field func(c *Config) *float64, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if v := *field(c); v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
			return ""
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolKey(field func(c *Config) *bool, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
// List-valued keys (eventstream.brokers, workspace.extensions) use
// comma-separated string values.
var configKeys = map[string]configKeyInfo{
	"memory.working.max_messages":     uintKey(func(c *Config) *uint { return &c.Memory.Working.MaxMessages }, "memory.working.max_messages"),
	"memory.working.max_tokens":       uintKey(func(c *Config) *uint { return &c.Memory.Working.MaxTokens }, "memory.working.max_tokens"),
	"memory.short_term.max_summaries": uintKey(func(c *Config) *uint { return &c.Memory.ShortTerm.MaxSummaries }, "memory.short_term.max_summaries"),
	"memory.long_term.chunk_size":     uintKey(func(c *Config) *uint { return &c.Memory.LongTerm.ChunkSize }, "memory.long_term.chunk_size"),
	"memory.long_term.chunk_overlap":  uintKey(func(c *Config) *uint { return &c.Memory.LongTerm.ChunkOverlap }, "memory.long_term.chunk_overlap"),
	"memory.long_term.context_tokens": uintKey(func(c *Config) *uint { return &c.Memory.LongTerm.ContextTokens }, "memory.long_term.context_tokens"),

	"memory.prune.enabled":              boolKey(func(c *Config) *bool { return &c.Memory.Prune.Enabled }, "memory.prune.enabled"),
	"memory.prune.interval_hours":       uintKey(func(c *Config) *uint { return &c.Memory.Prune.IntervalHours }, "memory.prune.interval_hours"),
	"memory.prune.max_age_days":         uintKey(func(c *Config) *uint { return &c.Memory.Prune.MaxAgeDays }, "memory.prune.max_age_days"),
	"memory.prune.importance_threshold": floatKey(func(c *Config) *float64 { return &c.Memory.Prune.ImportanceThreshold }, "memory.prune.importance_threshold"),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.path":       stringKey(func(c *Config) *string { return &c.VectorStore.Path }),
	"vector_store.host":       stringKey(func(c *Config) *string { return &c.VectorStore.Host }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.port": {
		get: func(c *Config) string {
			if c.VectorStore.Port == 0 {
				return ""
			}
			return strconv.Itoa(c.VectorStore.Port)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for vector_store.port: %w", err)
			}
			c.VectorStore.Port = n
			return nil
		},
	},

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey(func(c *Config) *uint { return &c.Embedding.Dimensions }, "embedding.dimensions"),

	"llm.provider": stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":   stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),

	"recall.vector_weight":     floatKey(func(c *Config) *float64 { return &c.Recall.VectorWeight }, "recall.vector_weight"),
	"recall.bm25_weight":       floatKey(func(c *Config) *float64 { return &c.Recall.BM25Weight }, "recall.bm25_weight"),
	"recall.recency_weight":    floatKey(func(c *Config) *float64 { return &c.Recall.RecencyWeight }, "recall.recency_weight"),
	"recall.importance_weight": floatKey(func(c *Config) *float64 { return &c.Recall.ImportanceWeight }, "recall.importance_weight"),
	"recall.half_life_days":    floatKey(func(c *Config) *float64 { return &c.Recall.HalfLifeDays }, "recall.half_life_days"),
	"recall.max_results":       uintKey(func(c *Config) *uint { return &c.Recall.MaxResults }, "recall.max_results"),

	"checkpoint.enabled": boolKey(func(c *Config) *bool { return &c.Checkpoint.Enabled }, "checkpoint.enabled"),
	"checkpoint.path":    stringKey(func(c *Config) *string { return &c.Checkpoint.Path }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.Eventstream.Provider }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.Eventstream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Eventstream.Brokers = splitList(v)
			return nil
		},
	},
	"eventstream.memory_topic":     stringKey(func(c *Config) *string { return &c.Eventstream.MemoryTopic }),
	"eventstream.checkpoint_topic": stringKey(func(c *Config) *string { return &c.Eventstream.CheckpointTopic }),

	"workspace.dir":   stringKey(func(c *Config) *string { return &c.Workspace.Dir }),
	"workspace.watch": boolKey(func(c *Config) *bool { return &c.Workspace.Watch }, "workspace.watch"),
	"workspace.extensions": {
		get: func(c *Config) string { return strings.Join(c.Workspace.Extensions, ",") },
		set: func(c *Config, v string) error {
			c.Workspace.Extensions = splitList(v)
			return nil
		},
	},
	"workspace.state_path": stringKey(func(c *Config) *string { return &c.Workspace.StatePath }),
}

// splitList splits a comma-separated value into trimmed, non-empty elements.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
