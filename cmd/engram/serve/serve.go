// Package servecmder provides the serve command for running the memory API server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/api"
	"github.com/papercomputeco/engram/pkg/checkpoint"
	"github.com/papercomputeco/engram/pkg/chunker"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/kafka"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/facts"
	"github.com/papercomputeco/engram/pkg/llm/ollama"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/recall"
	vectorutils "github.com/papercomputeco/engram/pkg/vector/utils"
	"github.com/papercomputeco/engram/pkg/workspace"
)

// checkpointFile is the default checkpoint collection filename inside the
// .engram/ directory when checkpoint.path is not set.
const checkpointFile = "checkpoints.json"

type ServeCommander struct {
	apiListen      string
	vectorProv     string
	vectorPath     string
	embedProv      string
	embedTgt       string
	embedModel     string
	embedDims      uint
	llmProv        string
	llmTgt         string
	llmModel       string
	checkpointPath string
	workspaceDir   string
	debug          bool
	logger         *zap.Logger
}

// serveFlags defines every flag the serve command exposes, keyed by the
// shared registry constants so names and viper keys stay consistent.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagVectorStoreProv: {
		Name:        "vector-store",
		ViperKey:    "vector_store.provider",
		Description: "Vector store provider (sqlite-vec, qdrant, memory)",
	},
	config.FlagVectorStorePath: {
		Name:        "vector-store-path",
		ViperKey:    "vector_store.path",
		Description: "Path to the sqlite-vec database file",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, mock)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagLLMProv: {
		Name:        "llm-provider",
		ViperKey:    "llm.provider",
		Description: "Chat LLM provider for compression and fact extraction (ollama, none)",
	},
	config.FlagLLMTgt: {
		Name:        "llm-target",
		ViperKey:    "llm.target",
		Description: "Chat LLM provider URL",
	},
	config.FlagLLMModel: {
		Name:        "llm-model",
		ViperKey:    "llm.model",
		Description: "Chat LLM model name",
	},
	config.FlagCheckpointPath: {
		Name:        "checkpoint-path",
		ViperKey:    "checkpoint.path",
		Description: "Path to the checkpoint collection file",
	},
	config.FlagWorkspaceDir: {
		Name:        "workspace",
		Shorthand:   "w",
		ViperKey:    "workspace.dir",
		Description: "Workspace directory to sync into long-term memory",
	},
}

// serveFlagKeys lists the registry keys bound to viper in PreRunE.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagVectorStoreProv,
	config.FlagVectorStorePath,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProv,
	config.FlagLLMTgt,
	config.FlagLLMModel,
	config.FlagCheckpointPath,
	config.FlagWorkspaceDir,
}

const serveLongDesc string = `Run the Engram memory server.

Boots the tiered memory engine (working, short-term, and long-term tiers),
the hybrid recall index, and the HTTP API, using configuration from the
.engram/ directory layered with ENGRAM_* environment variables and CLI flags.

Examples:
  engram serve
  engram serve --listen :9090
  engram serve --vector-store memory --embedding-provider mock
  engram serve --workspace ./notes`

const serveShortDesc string = "Run the Engram memory server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			return cmder.run(cmd.Context(), config.FromViper(v), configDir)
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embedProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embedTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProv, &cmder.llmProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMTgt, &cmder.llmTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagCheckpointPath, &cmder.checkpointPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagWorkspaceDir, &cmder.workspaceDir)

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, cfg *config.Config, configDir string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	// Embedder
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   int(cfg.Embedding.Dimensions),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	// Vector store
	driver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType:   cfg.VectorStore.Provider,
		DBPath:         cfg.VectorStore.Path,
		Host:           cfg.VectorStore.Host,
		Port:           cfg.VectorStore.Port,
		CollectionName: cfg.VectorStore.Collection,
		Dimensions:     cfg.Embedding.Dimensions,
		Logger:         c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer driver.Close()

	compressor, extractor, err := c.createChatBacked(cfg)
	if err != nil {
		return err
	}

	publisher, err := c.createPublisher(cfg)
	if err != nil {
		return err
	}

	checkpoints, err := c.createCheckpointStore(ctx, cfg, configDir)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Options{
		Memory: memory.Config{
			MaxMessages:  int(cfg.Memory.Working.MaxMessages),
			MaxTokens:    int(cfg.Memory.Working.MaxTokens),
			MaxSummaries: int(cfg.Memory.ShortTerm.MaxSummaries),
		},
		Prune: memory.PruneConfig{
			MaxAge:              time.Duration(cfg.Memory.Prune.MaxAgeDays) * 24 * time.Hour,
			MaxWorking:          int(cfg.Memory.Working.MaxMessages),
			MaxSummaries:        int(cfg.Memory.ShortTerm.MaxSummaries),
			ProtectImportant:    true,
			ImportanceThreshold: cfg.Memory.Prune.ImportanceThreshold,
		},
		Recall: recall.Config{
			VectorWeight:     cfg.Recall.VectorWeight,
			BM25Weight:       cfg.Recall.BM25Weight,
			RecencyWeight:    cfg.Recall.RecencyWeight,
			ImportanceWeight: cfg.Recall.ImportanceWeight,
			HalfLifeDays:     cfg.Recall.HalfLifeDays,
			MaxResults:       int(cfg.Recall.MaxResults),
		},
		Chunker: chunker.Config{
			ChunkSize: int(cfg.Memory.LongTerm.ChunkSize),
			Overlap:   int(cfg.Memory.LongTerm.ChunkOverlap),
		},
		ContextTokens: int(cfg.Memory.LongTerm.ContextTokens),
		Compressor:    compressor,
		Embedder:      embedder,
		Driver:        driver,
		Extractor:     extractor,
		Checkpoints:   checkpoints,
		Publisher:     publisher,
		Logger:        c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer eng.Close()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	if cfg.Workspace.Dir != "" {
		if err := c.startWorkspace(watchCtx, cfg, eng, errChan); err != nil {
			return err
		}
	}

	if cfg.Memory.Prune.Enabled && cfg.Memory.Prune.IntervalHours > 0 {
		go c.startPruneLoop(watchCtx, eng, time.Duration(cfg.Memory.Prune.IntervalHours)*time.Hour)
	}

	// Create API server
	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
	}
	apiServer := api.NewServer(apiConfig, eng, c.logger)

	c.logger.Info("starting api server",
		zap.String("api_addr", cfg.API.Listen),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	// Start API server in goroutine
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

// createChatBacked builds the summary compressor and fact extractor.
// With no chat LLM configured, compression falls back to previews and
// fact extraction is disabled.
func (c *ServeCommander) createChatBacked(cfg *config.Config) (memory.Compressor, *facts.Extractor, error) {
	if cfg.LLM.Provider != "ollama" {
		c.logger.Info("no chat llm configured, using preview compression")
		return memory.NewPreviewCompressor(), nil, nil
	}

	chatter, err := ollama.NewChatter(ollama.ChatterConfig{
		BaseURL: cfg.LLM.Target,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating chatter: %w", err)
	}

	c.logger.Info("using llm compression and fact extraction",
		zap.String("target", cfg.LLM.Target),
		zap.String("model", cfg.LLM.Model),
	)

	compressor := memory.NewLLMCompressor(chatter, cfg.LLM.Model)
	extractor := facts.NewExtractor(chatter, cfg.LLM.Model, c.logger)
	return compressor, extractor, nil
}

func (c *ServeCommander) createPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.Eventstream.Provider {
	case "kafka":
		if len(cfg.Eventstream.Brokers) == 0 {
			return nil, fmt.Errorf("eventstream provider %q requires brokers", cfg.Eventstream.Provider)
		}
		c.logger.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.Eventstream.Brokers),
		)
		return kafka.NewPublisher(kafka.Config{
			Brokers:         cfg.Eventstream.Brokers,
			MemoryTopic:     cfg.Eventstream.MemoryTopic,
			CheckpointTopic: cfg.Eventstream.CheckpointTopic,
		}, c.logger), nil
	case "", "nop":
		return nop.NewPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", cfg.Eventstream.Provider)
	}
}

// createCheckpointStore builds the checkpoint store and loads any existing
// collection from disk. Returns nil when checkpointing is disabled.
func (c *ServeCommander) createCheckpointStore(ctx context.Context, cfg *config.Config, configDir string) (*checkpoint.Store, error) {
	if !cfg.Checkpoint.Enabled {
		return nil, nil
	}

	path := cfg.Checkpoint.Path
	if path == "" {
		ddm := dotdir.NewManager()
		dir, err := ddm.Target(configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving checkpoint dir: %w", err)
		}
		path = filepath.Join(dir, checkpointFile)
	}

	store := checkpoint.NewStore(path, c.logger)
	if err := store.LoadFromDisk(ctx); err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}

	c.logger.Info("checkpoint store ready", zap.String("path", path))
	return store, nil
}

// startPruneLoop runs the pruning policy on a fixed interval until the
// context is cancelled.
func (c *ServeCommander) startPruneLoop(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := eng.Prune()
			c.logger.Debug("scheduled prune completed",
				zap.Int("items", stats.ItemsPruned),
				zap.Int("summaries", stats.SummariesPruned),
				zap.Int("protected", stats.Protected),
			)
		}
	}
}

// startWorkspace runs an initial sync pass and, when configured, keeps
// watching the workspace directory for changes.
func (c *ServeCommander) startWorkspace(ctx context.Context, cfg *config.Config, eng *engine.Engine, errChan chan<- error) error {
	syncer, err := workspace.NewSyncer(workspace.Config{
		Dir:        cfg.Workspace.Dir,
		Extensions: cfg.Workspace.Extensions,
		StatePath:  cfg.Workspace.StatePath,
	}, eng, c.logger)
	if err != nil {
		return fmt.Errorf("creating workspace syncer: %w", err)
	}

	result, err := syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("syncing workspace: %w", err)
	}
	c.logger.Info("workspace synced",
		zap.String("dir", cfg.Workspace.Dir),
		zap.Int("scanned", result.Scanned),
		zap.Int("ingested", result.Ingested),
		zap.Int("skipped", result.Skipped),
	)

	if cfg.Workspace.Watch {
		go func() {
			if err := syncer.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("workspace watcher error: %w", err)
			}
		}()
	}

	return nil
}
