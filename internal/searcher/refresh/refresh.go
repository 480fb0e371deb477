// Package refresh keeps a searcher consistent with the catalog. It listens
// for index.updated events, and after a quiet period drops cached results
// and rebuilds the term vocabulary.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

// Invalidator drops cached search results. *cache.QueryCache satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// Rebuilder reloads derived state from the catalog. *vocabulary.Vocabulary
// satisfies it.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

const DefaultDebounce = 2 * time.Second

type Refresher struct {
	cache    Invalidator
	vocab    Rebuilder
	debounce time.Duration
	pending  chan struct{}
	done     chan struct{}
	logger   *slog.Logger
}

// New creates a Refresher. Either target may be nil.
func New(cache Invalidator, vocab Rebuilder, debounce time.Duration) *Refresher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Refresher{
		cache:    cache,
		vocab:    vocab,
		debounce: debounce,
		pending:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "refresher"),
	}
}

// HandleEvent returns the Kafka handler for the index.updated topic.
// Malformed messages still schedule a refresh.
func (r *Refresher) HandleEvent() kafka.Handler {
	return func(_ context.Context, key, value []byte) error {
		ev, err := kafka.Decode[indexer.IndexUpdatedEvent](value)
		if err != nil {
			r.logger.Warn("undecodable index update", "key", string(key), "error", err)
		} else {
			r.logger.Debug("index updated", "book_id", ev.BookID, "reason", ev.Reason)
		}
		r.Schedule()
		return nil
	}
}

// Schedule requests a refresh. Requests arriving while one is pending are
// coalesced.
func (r *Refresher) Schedule() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// Run performs scheduled refreshes until ctx is done. A refresh starts once
// no new request has arrived for the debounce interval.
func (r *Refresher) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.pending:
		}

		timer := time.NewTimer(r.debounce)
	quiet:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-r.pending:
				timer.Reset(r.debounce)
			case <-timer.C:
				break quiet
			}
		}
		r.Refresh(ctx)
	}
}

// Done is closed when Run returns.
func (r *Refresher) Done() <-chan struct{} { return r.done }

// Refresh invalidates the cache and rebuilds the vocabulary immediately.
func (r *Refresher) Refresh(ctx context.Context) {
	start := time.Now()
	var dropped int64
	if r.cache != nil {
		n, err := r.cache.Invalidate(ctx)
		if err != nil {
			r.logger.Error("cache invalidation failed", "error", err)
		}
		dropped = n
	}
	if r.vocab != nil {
		if err := r.vocab.Rebuild(ctx); err != nil {
			r.logger.Error("vocabulary rebuild failed", "error", err)
		}
	}
	r.logger.Info("searcher refreshed",
		"cache_keys_dropped", dropped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
