package neighbors

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

// Store loads every occurrence index and persists the result.
type Store interface {
	search.IndexSource
	SaveNeighborhoods(ctx context.Context, hoods []catalog.Neighborhood) error
}

// Announcer tells searchers that rank scores changed. *indexer.Engine
// satisfies it.
type Announcer interface {
	Announce(ctx context.Context, reason string)
}

// Run recomputes neighbor lists and rank scores for the whole catalog and
// returns the number of books processed. announcer may be nil.
func (c *Computer) Run(ctx context.Context, store Store, announcer Announcer, reason string) (int, error) {
	books, err := store.FetchAllOccurrenceIndices(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading occurrence indices: %w", err)
	}
	if len(books) == 0 {
		c.logger.Info("no indexed books, skipping neighbor pass")
		return 0, nil
	}
	hoods, err := c.Compute(ctx, books)
	if err != nil {
		return 0, fmt.Errorf("computing neighbors: %w", err)
	}
	if err := store.SaveNeighborhoods(ctx, hoods); err != nil {
		return 0, fmt.Errorf("saving neighbors: %w", err)
	}
	if announcer != nil {
		announcer.Announce(ctx, reason)
	}
	return len(hoods), nil
}
