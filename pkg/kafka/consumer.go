// Package kafka moves JSON events between the book search services over
// segmentio/kafka-go. Producers publish one typed value per message; the
// consumer hands each message to a Handler and commits it only on success.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/config"
)

// Handler processes one message. Returning an error leaves the message
// uncommitted so it is redelivered after a restart.
type Handler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	backoff time.Duration
	logger  *slog.Logger
}

type ConsumerOption func(*kafka.ReaderConfig)

// FromBeginning makes a new consumer group start at the oldest message
// instead of the newest.
func FromBeginning() ConsumerOption {
	return func(rc *kafka.ReaderConfig) {
		rc.StartOffset = kafka.FirstOffset
	}
}

// WithGroup overrides the configured consumer group, for services that must
// each see every message.
func WithGroup(group string) ConsumerOption {
	return func(rc *kafka.ReaderConfig) {
		rc.GroupID = group
	}
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler Handler, opts ...ConsumerOption) *Consumer {
	rc := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	}
	for _, opt := range opts {
		opt(&rc)
	}
	return &Consumer{
		reader:  kafka.NewReader(rc),
		handler: handler,
		backoff: time.Second,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", rc.GroupID),
	}
}

// Start consumes until ctx is cancelled. Fetch errors are logged and retried
// after a short pause.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping")
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
		log.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			log.Error("failed to process message", "error", err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error("failed to commit message", "error", err)
		}
	}
}

// Stats exposes the reader's counters for health checks.
func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}

// Decode unmarshals a message value into T.
func Decode[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding kafka message: %w", err)
	}
	return out, nil
}
