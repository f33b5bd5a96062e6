package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/checkpoint"
	"github.com/papercomputeco/engram/pkg/engine"
)

// SaveCheckpointRequest is the body for POST /v1/checkpoints.
type SaveCheckpointRequest struct {
	AgentID   string                 `json:"agent_id"`
	SessionID string                 `json:"session_id"`
	Sequence  uint64                 `json:"sequence_number"`
	State     *checkpoint.AgentState `json:"state"`
}

// handleSaveCheckpoint persists one agent checkpoint. Saves with a stale
// sequence number are accepted and silently dropped by the store.
func (s *Server) handleSaveCheckpoint(c *fiber.Ctx) error {
	var req SaveCheckpointRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.AgentID == "" || req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "agent_id and session_id are required"})
	}
	if req.State == nil {
		req.State = checkpoint.NewAgentState(req.AgentID)
	}

	cp := checkpoint.NewCheckpoint(req.AgentID, req.SessionID, req.State, req.Sequence)
	if err := s.engine.SaveCheckpoint(c.Context(), cp); err != nil {
		if errors.Is(err, engine.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "checkpoints are not configured"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(cp)
}

// handleLatestCheckpoint returns the highest-sequence checkpoint for an agent.
func (s *Server) handleLatestCheckpoint(c *fiber.Ctx) error {
	store := s.engine.Checkpoints()
	if store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "checkpoints are not configured"})
	}

	agentID := c.Params("agentID")
	cp := store.GetLatestCheckpoint(agentID)
	if cp == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no checkpoint for agent"})
	}

	return c.JSON(cp)
}

// handleGetCheckpoint returns the checkpoint for an agent's session.
func (s *Server) handleGetCheckpoint(c *fiber.Ctx) error {
	agentID := c.Params("agentID")
	sessionID := c.Params("sessionID")

	cp, err := s.engine.LoadCheckpoint(agentID, sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "checkpoints are not configured"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
	if cp == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "checkpoint not found"})
	}

	return c.JSON(cp)
}
