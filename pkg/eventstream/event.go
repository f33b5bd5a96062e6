package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryPersisted is emitted after a memory item lands in a
	// tier.
	EventTypeMemoryPersisted = "engram.memory.persisted"

	// EventTypeCheckpointSaved is emitted after a checkpoint save is
	// accepted.
	EventTypeCheckpointSaved = "engram.checkpoint.saved"
)

// EventMeta carries the envelope fields shared by every event.
type EventMeta struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
}

// NewEventMeta stamps an envelope for the given event type.
func NewEventMeta(eventType string) EventMeta {
	return EventMeta{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
	}
}

// MemoryPersistedEvent is a transport-neutral payload describing a memory
// item that was stored or promoted.
type MemoryPersistedEvent struct {
	EventMeta

	ItemID     string  `json:"item_id"`
	Level      string  `json:"level"`
	SessionID  string  `json:"session_id,omitempty"`
	Importance float64 `json:"importance"`
	TokenCount int     `json:"token_count"`
}

// CheckpointSavedEvent is a transport-neutral payload describing an
// accepted checkpoint save.
type CheckpointSavedEvent struct {
	EventMeta

	CheckpointID string `json:"checkpoint_id"`
	AgentID      string `json:"agent_id"`
	SessionID    string `json:"session_id"`
	Sequence     uint64 `json:"sequence_number"`
}
