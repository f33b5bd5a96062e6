// Package kafka publishes memory lifecycle events to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

const (
	// DefaultMemoryTopic receives memory persistence events.
	DefaultMemoryTopic = "engram.memory.persisted"

	// DefaultCheckpointTopic receives checkpoint save events.
	DefaultCheckpointTopic = "engram.checkpoint.saved"
)

// Config holds the connection settings for the Kafka publisher.
type Config struct {
	Brokers         []string
	MemoryTopic     string
	CheckpointTopic string
}

// Publisher writes events to Kafka. Messages are keyed by session id so
// a session's events stay ordered within a partition.
type Publisher struct {
	writer          *kafka.Writer
	memoryTopic     string
	checkpointTopic string
	logger          *zap.Logger
}

// NewPublisher creates a Kafka-backed publisher. The writer is shared
// across topics; each message names its own topic.
func NewPublisher(config Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MemoryTopic == "" {
		config.MemoryTopic = DefaultMemoryTopic
	}
	if config.CheckpointTopic == "" {
		config.CheckpointTopic = DefaultCheckpointTopic
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{
		writer:          writer,
		memoryTopic:     config.MemoryTopic,
		checkpointTopic: config.CheckpointTopic,
		logger:          logger,
	}
}

// PublishMemoryPersisted writes a memory persistence event.
func (p *Publisher) PublishMemoryPersisted(ctx context.Context, event *eventstream.MemoryPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, p.memoryTopic, event.SessionID, event)
}

// PublishCheckpointSaved writes a checkpoint save event.
func (p *Publisher) PublishCheckpointSaved(ctx context.Context, event *eventstream.CheckpointSavedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, p.checkpointTopic, event.SessionID, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %v", eventstream.ErrPublish, err)
	}

	message := kafka.Message{
		Topic: topic,
		Value: payload,
	}
	if key != "" {
		message.Key = []byte(key)
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("%w: writing to %s: %v", eventstream.ErrPublish, topic, err)
	}

	p.logger.Debug("published event",
		zap.String("topic", topic),
		zap.String("key", key),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
