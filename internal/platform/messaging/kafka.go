package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"quorum/contexts/governance/ballot-service/ports"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes envelopes to an external broker. The hash
// balancer keyed on the envelope partition key keeps per-proposal event
// order; RequireAll trades latency for durability on the vote stream.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
	}
	return &KafkaPublisher{writer: writer, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", event.EventID, err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.PartitionKey),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to kafka topic %s: %w", topic, err)
	}
	if p.logger != nil {
		p.logger.Info("event published to kafka",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

// KafkaSubscriber runs one consumer-group reader per subscription.
// Offsets commit only after the handler succeeds, so delivery is
// at-least-once and handlers must dedup.
type KafkaSubscriber struct {
	brokers []string
	logger  *slog.Logger
}

func NewKafkaSubscriber(brokers []string, logger *slog.Logger) (*KafkaSubscriber, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	return &KafkaSubscriber{brokers: brokers, logger: logger}, nil
}

func (s *KafkaSubscriber) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.brokers,
		Topic:    topic,
		GroupID:  consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	go func() {
		defer reader.Close()
		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if s.logger != nil {
					s.logger.Error("kafka fetch failed",
						"event", "kafka_fetch_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"error", err.Error(),
					)
				}
				continue
			}

			var event ports.EventEnvelope
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				if s.logger != nil {
					s.logger.Error("kafka message decode failed",
						"event", "kafka_decode_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"error", err.Error(),
					)
				}
				// Poison message: commit past it, there is nothing to retry.
				_ = reader.CommitMessages(ctx, msg)
				continue
			}

			if err := handler(ctx, event); err != nil {
				if s.logger != nil {
					s.logger.Error("kafka handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"error", err.Error(),
					)
				}
				continue
			}
			if err := reader.CommitMessages(ctx, msg); err != nil && s.logger != nil {
				s.logger.Error("kafka commit failed",
					"event", "kafka_commit_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", consumerGroup,
					"error", err.Error(),
				)
			}
		}
	}()
	return nil
}
