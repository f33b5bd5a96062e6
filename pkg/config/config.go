package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/engram/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .engram/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"memory.working.max_messages",
		"memory.working.max_tokens",
		"memory.short_term.max_summaries",
		"memory.long_term.chunk_size",
		"memory.long_term.chunk_overlap",
		"memory.long_term.context_tokens",
		"memory.prune.enabled",
		"memory.prune.interval_hours",
		"memory.prune.max_age_days",
		"memory.prune.importance_threshold",
		"vector_store.provider",
		"vector_store.path",
		"vector_store.host",
		"vector_store.port",
		"vector_store.collection",
		"embedding.provider",
		"embedding.target",
		"embedding.model",
		"embedding.dimensions",
		"llm.provider",
		"llm.target",
		"llm.model",
		"recall.vector_weight",
		"recall.bm25_weight",
		"recall.recency_weight",
		"recall.importance_weight",
		"recall.half_life_days",
		"recall.max_results",
		"checkpoint.enabled",
		"checkpoint.path",
		"api.listen",
		"eventstream.provider",
		"eventstream.brokers",
		"eventstream.memory_topic",
		"eventstream.checkpoint_topic",
		"workspace.dir",
		"workspace.watch",
		"workspace.extensions",
		"workspace.state_path",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .engram/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Memory.Working.MaxMessages == 0 {
		cfg.Memory.Working.MaxMessages = defaults.Memory.Working.MaxMessages
	}
	if cfg.Memory.Working.MaxTokens == 0 {
		cfg.Memory.Working.MaxTokens = defaults.Memory.Working.MaxTokens
	}
	if cfg.Memory.ShortTerm.MaxSummaries == 0 {
		cfg.Memory.ShortTerm.MaxSummaries = defaults.Memory.ShortTerm.MaxSummaries
	}
	if cfg.Memory.LongTerm.ChunkSize == 0 {
		cfg.Memory.LongTerm.ChunkSize = defaults.Memory.LongTerm.ChunkSize
	}
	if cfg.Memory.LongTerm.ChunkOverlap == 0 {
		cfg.Memory.LongTerm.ChunkOverlap = defaults.Memory.LongTerm.ChunkOverlap
	}
	if cfg.Memory.LongTerm.ContextTokens == 0 {
		cfg.Memory.LongTerm.ContextTokens = defaults.Memory.LongTerm.ContextTokens
	}
	if cfg.Memory.Prune.IntervalHours == 0 {
		cfg.Memory.Prune.IntervalHours = defaults.Memory.Prune.IntervalHours
	}
	if cfg.Memory.Prune.MaxAgeDays == 0 {
		cfg.Memory.Prune.MaxAgeDays = defaults.Memory.Prune.MaxAgeDays
	}
	if cfg.Memory.Prune.ImportanceThreshold == 0 {
		cfg.Memory.Prune.ImportanceThreshold = defaults.Memory.Prune.ImportanceThreshold
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = defaults.VectorStore.Provider
	}
	if cfg.VectorStore.Host == "" {
		cfg.VectorStore.Host = defaults.VectorStore.Host
	}
	if cfg.VectorStore.Port == 0 {
		cfg.VectorStore.Port = defaults.VectorStore.Port
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = defaults.VectorStore.Collection
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = defaults.Embedding.Provider
	}
	if cfg.Embedding.Target == "" {
		cfg.Embedding.Target = defaults.Embedding.Target
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = defaults.Embedding.Dimensions
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaults.LLM.Provider
	}
	if cfg.LLM.Target == "" {
		cfg.LLM.Target = defaults.LLM.Target
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}

	if cfg.Recall.VectorWeight == 0 && cfg.Recall.BM25Weight == 0 &&
		cfg.Recall.RecencyWeight == 0 && cfg.Recall.ImportanceWeight == 0 {
		cfg.Recall.VectorWeight = defaults.Recall.VectorWeight
		cfg.Recall.BM25Weight = defaults.Recall.BM25Weight
		cfg.Recall.RecencyWeight = defaults.Recall.RecencyWeight
		cfg.Recall.ImportanceWeight = defaults.Recall.ImportanceWeight
	}
	if cfg.Recall.HalfLifeDays == 0 {
		cfg.Recall.HalfLifeDays = defaults.Recall.HalfLifeDays
	}
	if cfg.Recall.MaxResults == 0 {
		cfg.Recall.MaxResults = defaults.Recall.MaxResults
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Eventstream.Provider == "" {
		cfg.Eventstream.Provider = defaults.Eventstream.Provider
	}
	if cfg.Eventstream.MemoryTopic == "" {
		cfg.Eventstream.MemoryTopic = defaults.Eventstream.MemoryTopic
	}
	if cfg.Eventstream.CheckpointTopic == "" {
		cfg.Eventstream.CheckpointTopic = defaults.Eventstream.CheckpointTopic
	}

	if len(cfg.Workspace.Extensions) == 0 {
		cfg.Workspace.Extensions = defaults.Workspace.Extensions
	}
}

// SaveConfig persists the configuration to config.toml in the target .engram/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named deployment preset.
// Supported presets: "local", "server", "dev".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	switch strings.ToLower(name) {
	case "local":
		// Embedded sqlite-vec store with a local Ollama for embeddings
		// and summaries. Same as the defaults.
		return NewDefaultConfig(), nil

	case "server":
		// Qdrant vector store and Kafka event stream for a shared deployment.
		cfg := NewDefaultConfig()
		cfg.VectorStore = VectorStoreConfig{
			Provider:   "qdrant",
			Host:       defaultVectorHost,
			Port:       defaultVectorPort,
			Collection: defaultVectorCollection,
		}
		cfg.Eventstream = EventstreamConfig{
			Provider:        "kafka",
			Brokers:         []string{"localhost:9092"},
			MemoryTopic:     defaultMemoryTopic,
			CheckpointTopic: defaultCheckpointTopic,
		}
		return cfg, nil

	case "dev":
		// Ephemeral in-process stores with deterministic mock embeddings.
		// No external services required.
		cfg := NewDefaultConfig()
		cfg.VectorStore = VectorStoreConfig{Provider: "memory"}
		cfg.Embedding = EmbeddingConfig{
			Provider:   "mock",
			Dimensions: defaultEmbeddingDimensions,
		}
		cfg.LLM = LLMConfig{Provider: "none"}
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: local, server, dev)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"local", "server", "dev"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
