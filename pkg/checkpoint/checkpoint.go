// Package checkpoint snapshots agent state so a session can be resumed
// after a restart.
package checkpoint

import (
	"time"

	"github.com/google/uuid"
)

// Role labels a message in the agent's replayable history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall records one invocation of a tool, including its result once
// the call completes.
type ToolCall struct {
	ID        string    `json:"id"`
	ToolName  string    `json:"tool_name"`
	Input     any       `json:"input"`
	Output    any       `json:"output,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Duration  int64     `json:"duration_ms"`
}

// Message is one turn in the agent's message history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentState is everything an agent needs to pick up where it left off:
// internal key/value state, ordered tool calls and ordered messages.
type AgentState struct {
	AgentID        string            `json:"agent_id"`
	InternalState  map[string]any    `json:"internal_state"`
	ToolHistory    []ToolCall        `json:"tool_history"`
	MessageHistory []Message         `json:"message_history"`
	Metadata       map[string]string `json:"metadata"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewAgentState creates an empty state for an agent.
func NewAgentState(agentID string) *AgentState {
	now := time.Now().UTC()
	return &AgentState{
		AgentID:       agentID,
		InternalState: make(map[string]any),
		Metadata:      make(map[string]string),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// UpdateState sets one internal key.
func (s *AgentState) UpdateState(key string, value any) {
	s.InternalState[key] = value
	s.UpdatedAt = time.Now().UTC()
}

// AddMessage appends a message to the history.
func (s *AgentState) AddMessage(role Role, content string) {
	s.MessageHistory = append(s.MessageHistory, Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
}

// AddToolCall records the start of a tool invocation and returns its id
// for the matching CompleteToolCall.
func (s *AgentState) AddToolCall(toolName string, input any) string {
	id := uuid.New().String()
	s.ToolHistory = append(s.ToolHistory, ToolCall{
		ID:        id,
		ToolName:  toolName,
		Input:     input,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
	return id
}

// CompleteToolCall attaches the output and duration to a pending call.
// Unknown call ids are ignored.
func (s *AgentState) CompleteToolCall(callID string, output any, durationMS int64) {
	for i := range s.ToolHistory {
		if s.ToolHistory[i].ID == callID {
			s.ToolHistory[i].Output = output
			s.ToolHistory[i].Duration = durationMS
			break
		}
	}
	s.UpdatedAt = time.Now().UTC()
}

// RecentMessages returns up to count messages, newest first.
func (s *AgentState) RecentMessages(count int) []Message {
	if count > len(s.MessageHistory) {
		count = len(s.MessageHistory)
	}
	recent := make([]Message, 0, count)
	for i := len(s.MessageHistory) - 1; i >= len(s.MessageHistory)-count; i-- {
		recent = append(recent, s.MessageHistory[i])
	}
	return recent
}

// RecentToolCalls returns up to count tool calls, newest first.
func (s *AgentState) RecentToolCalls(count int) []ToolCall {
	if count > len(s.ToolHistory) {
		count = len(s.ToolHistory)
	}
	recent := make([]ToolCall, 0, count)
	for i := len(s.ToolHistory) - 1; i >= len(s.ToolHistory)-count; i-- {
		recent = append(recent, s.ToolHistory[i])
	}
	return recent
}

// ReplayMessages returns the message history from an index onward, in
// original order.
func (s *AgentState) ReplayMessages(fromIndex int) []Message {
	if fromIndex >= len(s.MessageHistory) {
		return nil
	}
	if fromIndex < 0 {
		fromIndex = 0
	}
	return s.MessageHistory[fromIndex:]
}

// Checkpoint is a saved AgentState with an ordering sequence inside a
// session.
type Checkpoint struct {
	ID        string      `json:"id"`
	AgentID   string      `json:"agent_id"`
	State     *AgentState `json:"state"`
	SessionID string      `json:"session_id"`
	Sequence  uint64      `json:"sequence_number"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewCheckpoint wraps a state snapshot with its session ordering.
func NewCheckpoint(agentID, sessionID string, state *AgentState, sequence uint64) *Checkpoint {
	return &Checkpoint{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		State:     state,
		SessionID: sessionID,
		Sequence:  sequence,
		CreatedAt: time.Now().UTC(),
	}
}
