package config

const (
	defaultOllamaTarget = "http://localhost:11434"

	defaultWorkingMaxMessages = 50
	defaultWorkingMaxTokens   = 4000
	defaultMaxSummaries       = 20
	defaultChunkSize          = 512
	defaultChunkOverlap       = 50
	defaultContextTokens      = 2000

	defaultPruneIntervalHours       = 24
	defaultPruneMaxAgeDays          = 30
	defaultPruneImportanceThreshold = 0.7

	defaultVectorProvider   = "sqlite-vec"
	defaultVectorHost       = "localhost"
	defaultVectorPort       = 6334
	defaultVectorCollection = "engram_memories"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "llama3.2"

	defaultVectorWeight     = 0.4
	defaultBM25Weight       = 0.2
	defaultRecencyWeight    = 0.2
	defaultImportanceWeight = 0.2
	defaultHalfLifeDays     = 7
	defaultMaxResults       = 10

	defaultAPIListen = ":8081"

	defaultEventstreamProvider = "nop"
	defaultMemoryTopic         = "engram.memory.persisted"
	defaultCheckpointTopic     = "engram.checkpoint.saved"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Memory: MemoryConfig{
			Working: WorkingConfig{
				MaxMessages: defaultWorkingMaxMessages,
				MaxTokens:   defaultWorkingMaxTokens,
			},
			ShortTerm: ShortTermConfig{
				MaxSummaries: defaultMaxSummaries,
			},
			LongTerm: LongTermConfig{
				ChunkSize:     defaultChunkSize,
				ChunkOverlap:  defaultChunkOverlap,
				ContextTokens: defaultContextTokens,
			},
			Prune: PruneConfig{
				Enabled:             true,
				IntervalHours:       defaultPruneIntervalHours,
				MaxAgeDays:          defaultPruneMaxAgeDays,
				ImportanceThreshold: defaultPruneImportanceThreshold,
			},
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Host:       defaultVectorHost,
			Port:       defaultVectorPort,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultOllamaTarget,
			Model:    defaultLLMModel,
		},
		Recall: RecallConfig{
			VectorWeight:     defaultVectorWeight,
			BM25Weight:       defaultBM25Weight,
			RecencyWeight:    defaultRecencyWeight,
			ImportanceWeight: defaultImportanceWeight,
			HalfLifeDays:     defaultHalfLifeDays,
			MaxResults:       defaultMaxResults,
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Eventstream: EventstreamConfig{
			Provider:        defaultEventstreamProvider,
			MemoryTopic:     defaultMemoryTopic,
			CheckpointTopic: defaultCheckpointTopic,
		},
		Workspace: WorkspaceConfig{
			Extensions: []string{".md", ".txt"},
		},
	}
}
