// Package neighbors computes, offline, which books are close to each other
// and how central each book is in the corpus.
//
// Two books are compared with a weighted Jaccard distance over their
// occurrence indices. Books closer than the threshold become neighbors, and
// a book's rank score is its closeness centrality: (N-1) divided by the sum
// of its distances to every other book.
package neighbors

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

const (
	DefaultThreshold = 0.65
	// epsilon keeps the rank finite for a book identical to every other.
	epsilon = 1e-10
)

// Distance is sum|a-b| / sum max(a,b) over the union of words. Two empty
// indices are at distance 1.
func Distance(a, b search.OccurrenceIndex) float64 {
	var diff, top int64
	for w, ca := range a {
		cb := b[w]
		diff += abs(ca - cb)
		top += max(ca, cb)
	}
	for w, cb := range b {
		if _, ok := a[w]; !ok {
			diff += cb
			top += cb
		}
	}
	if top == 0 {
		return 1
	}
	return float64(diff) / float64(top)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

type Computer struct {
	threshold float64
	workers   int
	logger    *slog.Logger
}

type Option func(*Computer)

func WithThreshold(t float64) Option {
	return func(c *Computer) {
		if t > 0 {
			c.threshold = t
		}
	}
}

func WithWorkers(n int) Option {
	return func(c *Computer) {
		if n > 0 {
			c.workers = n
		}
	}
}

func New(opts ...Option) *Computer {
	c := &Computer{
		threshold: DefaultThreshold,
		workers:   runtime.NumCPU(),
		logger:    slog.Default().With("component", "neighbors"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute returns one Neighborhood per input book, in input order. Each
// neighbor list keeps input order too. Rows are computed in parallel on a
// bounded pool; ctx cancellation stops rows that have not started.
func (c *Computer) Compute(ctx context.Context, books []search.IndexedBook) ([]catalog.Neighborhood, error) {
	start := time.Now()
	pool, err := ants.NewPool(c.workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	out := make([]catalog.Neighborhood, len(books))
	var wg sync.WaitGroup
	for i := range books {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			out[i] = c.row(books, i)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submitting book %d: %w", books[i].BookID, err)
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("neighbors computed",
		"books", len(books),
		"threshold", c.threshold,
		"workers", c.workers,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Computer) row(books []search.IndexedBook, i int) catalog.Neighborhood {
	self := books[i]
	neighbors := []int64{}
	sum := epsilon
	for j, other := range books {
		if j == i || other.BookID == self.BookID {
			continue
		}
		d := Distance(self.Occurrences, other.Occurrences)
		if d < c.threshold {
			neighbors = append(neighbors, other.BookID)
		}
		sum += d
	}
	return catalog.Neighborhood{
		BookID:    self.BookID,
		Neighbors: neighbors,
		RankScore: float64(len(books)-1) / sum,
	}
}
