package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchPublisher sends a batch of events. *kafka.Producer satisfies it.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, keys []string, values []any) error
}

// Collector buffers events off the request path and publishes them in
// batches, when batchSize events are waiting or every flushInterval.
// Events are dropped, not blocked on, when the buffer is full.
type Collector struct {
	publisher     BatchPublisher
	eventCh       chan any
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
	closeOnce     sync.Once
}

func NewCollector(publisher BatchPublisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan any, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start runs the flush loop until ctx ends or Close is called. Whatever is
// buffered at that point is flushed once more.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]any, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, event)
				if len(batch) >= c.batchSize {
					c.flush(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				batch = c.drain(batch)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(shutdownCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) Track(event any) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush. Start must
// have been called.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.eventCh) })
	<-c.done
}

func (c *Collector) drain(batch []any) []any {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []any) {
	if len(batch) == 0 {
		return
	}
	keys := make([]string, len(batch))
	for i := range keys {
		keys[i] = "analytics"
	}
	if err := c.publisher.PublishBatch(ctx, keys, batch); err != nil {
		c.logger.Error("failed to publish analytics batch", "count", len(batch), "error", err)
		return
	}
	c.logger.Debug("analytics batch published", "count", len(batch))
}
