package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/facts"
)

// ClassifyFactRequest is the body for POST /v1/facts.
type ClassifyFactRequest struct {
	Content         string `json:"content"`
	SourceMessageID string `json:"source_message_id,omitempty"`
}

// ExtractFactsRequest is the body for POST /v1/facts/extract.
type ExtractFactsRequest struct {
	Conversation string `json:"conversation"`
}

// ResolveConflictsRequest is the body for POST /v1/facts/resolve.
type ResolveConflictsRequest struct {
	Method string `json:"method,omitempty"`
}

// handleListFacts returns all accumulated facts.
func (s *Server) handleListFacts(c *fiber.Ctx) error {
	return c.JSON(map[string]any{
		"count": len(s.engine.Facts()),
		"facts": s.engine.Facts(),
	})
}

// handleClassifyFact stores one fact classified with the offline heuristic.
func (s *Server) handleClassifyFact(c *fiber.Ctx) error {
	var req ClassifyFactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content is required"})
	}

	fact := s.engine.ClassifyFact(req.Content, req.SourceMessageID)
	return c.Status(fiber.StatusCreated).JSON(fact)
}

// handleExtractFacts extracts facts from a conversation with the LLM extractor.
func (s *Server) handleExtractFacts(c *fiber.Ctx) error {
	var req ExtractFactsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Conversation == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "conversation is required"})
	}

	extracted, err := s.engine.ExtractFacts(c.Context(), req.Conversation)
	if err != nil {
		if errors.Is(err, engine.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "fact extraction is not configured"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(map[string]any{
		"count": len(extracted),
		"facts": extracted,
	})
}

// handleListConflicts returns contradiction pairs among the current facts.
func (s *Server) handleListConflicts(c *fiber.Ctx) error {
	conflicts := s.engine.DetectConflicts()
	return c.JSON(map[string]any{
		"count":     len(conflicts),
		"conflicts": conflicts,
	})
}

// handleResolveConflicts drops the losing side of every detected conflict.
func (s *Server) handleResolveConflicts(c *fiber.Ctx) error {
	var req ResolveConflictsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	method := facts.ResolveLatest
	switch req.Method {
	case "", string(facts.ResolveLatest):
	case string(facts.ResolveHighestConfidence):
		method = facts.ResolveHighestConfidence
	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "method must be latest or highest_confidence"})
	}

	survivors := s.engine.ResolveConflicts(method)
	return c.JSON(map[string]any{
		"count": len(survivors),
		"facts": survivors,
	})
}
