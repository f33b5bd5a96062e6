package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/llm"
)

// AddMemoryRequest is the body for POST /v1/memory.
type AddMemoryRequest struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
}

// LearnRequest is the body for POST /v1/learn.
type LearnRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// SearchResponse wraps re-ranked search hits.
type SearchResponse struct {
	Query   string `json:"query"`
	Count   int    `json:"count"`
	Results any    `json:"results"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAddMemory stores one conversation turn in working memory.
func (s *Server) handleAddMemory(c *fiber.Ctx) error {
	var req AddMemoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content is required"})
	}
	if req.Role == "" {
		req.Role = "user"
	}

	item, err := s.engine.Add(c.Context(), llm.NewTextMessage(req.Role, req.Content), req.SessionID)
	if err != nil {
		s.logger.Warn("add memory failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

// handleForget removes one archived memory from both long-term channels.
func (s *Server) handleForget(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	if err := s.engine.Forget(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleRecall assembles token-budgeted context for a query.
// Query parameters:
//   - query (required): the recall query text
//   - max_tokens (optional): token budget, engine default when omitted
func (s *Server) handleRecall(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter is required"})
	}

	maxTokens := 0
	if raw := c.Query("max_tokens"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "max_tokens must be a positive integer"})
		}
		maxTokens = parsed
	}

	return c.JSON(s.engine.Recall(c.Context(), query, maxTokens))
}

// handleSearch runs re-ranked hybrid search over long-term memory.
// Query parameters:
//   - query (required): the search query text
//   - limit (optional, default 5): number of results to return
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter is required"})
	}

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	results, err := s.engine.Search(c.Context(), query, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// handleLearn ingests a document into long-term memory.
func (s *Server) handleLearn(c *fiber.Ctx) error {
	var req LearnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	result, err := s.engine.Learn(c.Context(), req.Text, req.Source)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(result)
}

// handlePrune runs the pruning policy over the ephemeral tiers and
// returns what the round removed.
func (s *Server) handlePrune(c *fiber.Ctx) error {
	return c.JSON(s.engine.Prune())
}

// handleClear empties every tier, the indexes and the fact set.
func (s *Server) handleClear(c *fiber.Ctx) error {
	if err := s.engine.Clear(c.Context()); err != nil {
		s.logger.Warn("clear failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleStats returns counts across all memory tiers.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.engine.Stats(c.Context()))
}

// handleExport renders all tiers and facts as a markdown document.
// Query parameters:
//   - include_stats (optional): append a statistics section when truthy
func (s *Server) handleExport(c *fiber.Ctx) error {
	includeStats := false
	if raw := c.Query("include_stats"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "include_stats must be a boolean"})
		}
		includeStats = parsed
	}

	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(s.engine.ExportMarkdown(c.Context(), includeStats))
}
