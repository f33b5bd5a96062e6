package eventstream

import "context"

// Publisher publishes memory lifecycle events to an event stream backend.
type Publisher interface {
	PublishMemoryPersisted(ctx context.Context, event *MemoryPersistedEvent) error
	PublishCheckpointSaved(ctx context.Context, event *CheckpointSavedEvent) error
	Close() error
}
