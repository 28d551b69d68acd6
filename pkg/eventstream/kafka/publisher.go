// Package kafka publishes memory events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// DefaultTopic is the topic memory events are published to when none is
// configured.
const DefaultTopic = "engram.memory"

// Publisher writes memory events to Kafka, keyed by project so events for
// one project stay ordered within a partition.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the topic to publish to. Defaults to DefaultTopic.
	Topic string
}

// NewPublisher creates a new Kafka-backed eventstream publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(c.Brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}

	logger.Info("kafka eventstream publisher initialized",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishMemory serializes the event as JSON and writes it to the topic.
func (p *Publisher) PublishMemory(ctx context.Context, event *eventstream.MemoryPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilMemoryEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling memory event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Project),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing memory event: %w", err)
	}

	p.logger.Debug("published memory event",
		zap.String("event_id", event.EventID),
		zap.String("project", event.Project),
		zap.String("category", event.Category),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
