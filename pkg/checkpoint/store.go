package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrPersist wraps failures reading or writing the checkpoint file.
var ErrPersist = errors.New("checkpoint persistence failed")

// Store holds checkpoints in memory and mirrors every change to a single
// JSON file. One checkpoint survives per (agent, session) pair; saves
// with a lower or equal sequence than the stored one are dropped.
type Store struct {
	storagePath string
	logger      *zap.Logger

	mu          sync.RWMutex
	checkpoints []*Checkpoint
}

// NewStore creates a Store persisting to storagePath.
func NewStore(storagePath string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		storagePath: storagePath,
		logger:      logger,
	}
}

// SaveCheckpoint upserts by (agent, session). A higher sequence replaces
// the stored checkpoint; a lower or equal one is a silent no-op. Every
// accepted save rewrites the whole collection to disk.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, existing := range s.checkpoints {
		if existing.AgentID == cp.AgentID && existing.SessionID == cp.SessionID {
			if cp.Sequence <= existing.Sequence {
				s.logger.Debug("ignoring stale checkpoint",
					zap.String("agent_id", cp.AgentID),
					zap.String("session_id", cp.SessionID),
					zap.Uint64("sequence", cp.Sequence),
					zap.Uint64("stored_sequence", existing.Sequence),
				)
				return nil
			}
			s.checkpoints[i] = cp
			replaced = true
			break
		}
	}
	if !replaced {
		s.checkpoints = append(s.checkpoints, cp)
	}

	return s.persistLocked(ctx)
}

// LoadCheckpoint returns the checkpoint for an (agent, session) pair, or
// nil when none exists.
func (s *Store) LoadCheckpoint(agentID, sessionID string) *Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cp := range s.checkpoints {
		if cp.AgentID == agentID && cp.SessionID == sessionID {
			return cp
		}
	}
	return nil
}

// GetLatestCheckpoint returns the agent's checkpoint with the highest
// sequence across all sessions, or nil.
func (s *Store) GetLatestCheckpoint(agentID string) *Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Checkpoint
	for _, cp := range s.checkpoints {
		if cp.AgentID != agentID {
			continue
		}
		if latest == nil || cp.Sequence > latest.Sequence {
			latest = cp
		}
	}
	return latest
}

// GetCheckpointsBySession returns every checkpoint in a session.
func (s *Store) GetCheckpointsBySession(sessionID string) []*Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Checkpoint
	for _, cp := range s.checkpoints {
		if cp.SessionID == sessionID {
			matched = append(matched, cp)
		}
	}
	return matched
}

// DeleteCheckpoint removes a checkpoint by id and rewrites the file.
func (s *Store) DeleteCheckpoint(ctx context.Context, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.checkpoints[:0]
	for _, cp := range s.checkpoints {
		if cp.ID != checkpointID {
			kept = append(kept, cp)
		}
	}
	s.checkpoints = kept

	return s.persistLocked(ctx)
}

// ClearAgentCheckpoints removes all of an agent's checkpoints.
func (s *Store) ClearAgentCheckpoints(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.checkpoints[:0]
	for _, cp := range s.checkpoints {
		if cp.AgentID != agentID {
			kept = append(kept, cp)
		}
	}
	s.checkpoints = kept

	return s.persistLocked(ctx)
}

// ListAgents returns the distinct agent ids, sorted.
func (s *Store) ListAgents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var agents []string
	for _, cp := range s.checkpoints {
		if !seen[cp.AgentID] {
			seen[cp.AgentID] = true
			agents = append(agents, cp.AgentID)
		}
	}
	sort.Strings(agents)
	return agents
}

// ListSessions returns an agent's distinct session ids, sorted.
func (s *Store) ListSessions(agentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var sessions []string
	for _, cp := range s.checkpoints {
		if cp.AgentID == agentID && !seen[cp.SessionID] {
			seen[cp.SessionID] = true
			sessions = append(sessions, cp.SessionID)
		}
	}
	sort.Strings(sessions)
	return sessions
}

// LoadFromDisk replaces the in-memory set with the file's contents. A
// missing file is not an error. Run this before handing the store to
// concurrent callers.
func (s *Store) LoadFromDisk(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	data, err := os.ReadFile(s.storagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", ErrPersist, s.storagePath, err)
	}

	var loaded []*Checkpoint
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrPersist, s.storagePath, err)
	}

	s.mu.Lock()
	s.checkpoints = loaded
	s.mu.Unlock()

	s.logger.Debug("loaded checkpoints from disk",
		zap.Int("count", len(loaded)),
		zap.String("path", s.storagePath),
	)

	return nil
}

// persistLocked rewrites the whole collection. Callers hold the write
// lock.
func (s *Store) persistLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	data, err := json.MarshalIndent(s.checkpoints, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding checkpoints: %v", ErrPersist, err)
	}

	if err := os.WriteFile(s.storagePath, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrPersist, s.storagePath, err)
	}

	return nil
}
