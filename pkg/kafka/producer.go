package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/config"
)

// Publisher is the sending half used by services, so tests can substitute
// an in-memory recorder.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// Producer publishes JSON-encoded values to one topic. Messages with the same
// key land on the same partition.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes one message and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %T: %w", value, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		p.logger.Error("failed to publish message", "key", key, "error", err)
		return fmt.Errorf("publishing to %s: %w", p.writer.Topic, err)
	}
	p.logger.Debug("message published", "key", key, "value_size", len(data))
	return nil
}

// PublishBatch writes values in one call, keyed by keys[i].
func (p *Producer) PublishBatch(ctx context.Context, keys []string, values []any) error {
	if len(keys) != len(values) {
		return fmt.Errorf("publishing batch: %d keys for %d values", len(keys), len(values))
	}
	msgs := make([]kafka.Message, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %T: %w", v, err)
		}
		msgs[i] = kafka.Message{Key: []byte(keys[i]), Value: data}
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to publish batch", "count", len(msgs), "error", err)
		return fmt.Errorf("publishing batch to %s: %w", p.writer.Topic, err)
	}
	p.logger.Debug("batch published", "count", len(msgs))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
