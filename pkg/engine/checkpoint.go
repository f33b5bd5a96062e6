package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/checkpoint"
	"github.com/papercomputeco/engram/pkg/eventstream"
)

// SaveCheckpoint persists an agent state snapshot through the checkpoint
// store and publishes a save event. Stale saves (sequence not above the
// stored one) persist nothing but still return nil.
func (e *Engine) SaveCheckpoint(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if e.checkpoints == nil {
		return fmt.Errorf("%w: checkpoint store", ErrNotConfigured)
	}

	if err := e.checkpoints.SaveCheckpoint(ctx, cp); err != nil {
		return err
	}

	event := &eventstream.CheckpointSavedEvent{
		EventMeta:    eventstream.NewEventMeta(eventstream.EventTypeCheckpointSaved),
		CheckpointID: cp.ID,
		AgentID:      cp.AgentID,
		SessionID:    cp.SessionID,
		Sequence:     cp.Sequence,
	}
	if err := e.publisher.PublishCheckpointSaved(ctx, event); err != nil {
		e.logger.Warn("checkpoint saved event not published",
			zap.String("checkpoint_id", cp.ID),
			zap.Error(err),
		)
	}

	return nil
}

// LoadCheckpoint fetches a saved snapshot for an (agent, session) pair.
func (e *Engine) LoadCheckpoint(agentID, sessionID string) (*checkpoint.Checkpoint, error) {
	if e.checkpoints == nil {
		return nil, fmt.Errorf("%w: checkpoint store", ErrNotConfigured)
	}
	return e.checkpoints.LoadCheckpoint(agentID, sessionID), nil
}

// Checkpoints exposes the underlying store for listing and maintenance.
func (e *Engine) Checkpoints() *checkpoint.Store {
	return e.checkpoints
}
