package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
)

// ErrorResponse is the JSON error envelope returned by all handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the memory engine.
type Server struct {
	config Config
	engine *engine.Engine
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The engine is injected to allow sharing with other components
// (e.g., the workspace syncer).
func NewServer(config Config, eng *engine.Engine, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		engine: eng,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/v1/memory", s.handleAddMemory)
	app.Delete("/v1/memory", s.handleClear)
	app.Delete("/v1/memory/:id", s.handleForget)
	app.Get("/v1/recall", s.handleRecall)
	app.Get("/v1/search", s.handleSearch)
	app.Post("/v1/learn", s.handleLearn)
	app.Post("/v1/prune", s.handlePrune)
	app.Get("/v1/stats", s.handleStats)
	app.Get("/v1/export", s.handleExport)

	app.Get("/v1/facts", s.handleListFacts)
	app.Post("/v1/facts", s.handleClassifyFact)
	app.Post("/v1/facts/extract", s.handleExtractFacts)
	app.Get("/v1/facts/conflicts", s.handleListConflicts)
	app.Post("/v1/facts/resolve", s.handleResolveConflicts)

	app.Post("/v1/checkpoints", s.handleSaveCheckpoint)
	app.Get("/v1/checkpoints/:agentID/latest", s.handleLatestCheckpoint)
	app.Get("/v1/checkpoints/:agentID/:sessionID", s.handleGetCheckpoint)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
