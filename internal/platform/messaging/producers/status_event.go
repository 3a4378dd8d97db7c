package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/easner-transaction-sync/internal/config"
	"github.com/segmentio/kafka-go"
)

// StatusEventProducer publishes transaction status-change events consumed by
// the notifier. Messages are keyed by transaction id so all events for one
// transaction land on the same partition, in order.
type StatusEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewStatusEventProducer creates the status-event producer and ensures the
// topic exists
func NewStatusEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*StatusEventProducer, error) {
	if cfg.StatusTopic == "" {
		return nil, fmt.Errorf("kafka status topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for status event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.StatusTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure status topic %s exists: %w", cfg.StatusTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.StatusTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Notification delivery must never block the sync loop
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write status event messages asynchronously", "topic", cfg.StatusTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Wrote status event messages asynchronously", "topic", cfg.StatusTopic, "count", len(messages))
			}
		},
	}

	return &StatusEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.StatusTopic,
	}, nil
}

func (p *StatusEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal status event value: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish status event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish status event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published status event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *StatusEventProducer) Close() error {
	p.logger.Info("Closing status event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close status event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
