// Package events publishes user activity to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"walletwise/internal/logger"
	"walletwise/internal/services"
	"walletwise/internal/uuid"
)

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the Kafka producer settings.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// ActivityEvent is the message value written for each activity.
type ActivityEvent struct {
	EventID  string            `json:"event_id"`
	OwnerID  string            `json:"owner_id"`
	Activity services.Activity `json:"activity"`
	SentAt   time.Time         `json:"sent_at"`
}

// ActivityPublisher is an ActivityNotifier that writes events to a topic,
// keyed by owner so one user's events stay ordered on a partition.
type ActivityPublisher struct {
	writer KafkaWriter
	topic  string
	now    func() time.Time
}

// NewActivityPublisher creates a publisher with a synchronous kafka.Writer.
func NewActivityPublisher(cfg Config) (*ActivityPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka activity topic is not configured")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	logger.Get().Infow("Kafka activity publisher configured", "topic", cfg.Topic, "brokers", cfg.Brokers)
	return newActivityPublisher(writer, cfg.Topic), nil
}

func newActivityPublisher(writer KafkaWriter, topic string) *ActivityPublisher {
	return &ActivityPublisher{
		writer: writer,
		topic:  topic,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordUserActivity publishes one ActivityEvent.
func (p *ActivityPublisher) RecordUserActivity(ctx context.Context, ownerID string, activity services.Activity) error {
	event := ActivityEvent{
		EventID:  uuid.New(),
		OwnerID:  ownerID,
		Activity: activity,
		SentAt:   p.now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ownerID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(activity.Kind)},
			{Key: "event-id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish activity event to %s: %w", p.topic, err)
	}

	logger.Get().Debugw("Published activity event",
		"topic", p.topic,
		"event_id", event.EventID,
		"owner_id", ownerID,
		"kind", activity.Kind,
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *ActivityPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	logger.Get().Infow("Closing Kafka activity publisher", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
