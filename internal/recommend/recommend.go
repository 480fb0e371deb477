// Package recommend serves the precomputed nearest neighbors of a book.
package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

// Store is what the recommender reads from.
type Store interface {
	search.NeighborSource
	search.BookFetcher
}

type Recommender struct {
	store  Store
	limit  int
	logger *slog.Logger
}

type Option func(*Recommender)

// WithLimit keeps at most n neighbors. Zero means all of them.
func WithLimit(n int) Option {
	return func(r *Recommender) {
		if n >= 0 {
			r.limit = n
		}
	}
}

func New(store Store, opts ...Option) *Recommender {
	r := &Recommender{
		store:  store,
		logger: slog.Default().With("component", "recommender"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend returns the neighbors of bookID in neighbor-list order. A book
// without a computed list, or an id that does not exist, yields an empty
// slice and no error.
func (r *Recommender) Recommend(ctx context.Context, bookID int64) ([]search.Book, error) {
	neighbors, ok, err := r.store.FetchNeighborList(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("fetching neighbors of book %d: %w", bookID, err)
	}
	if !ok || len(neighbors) == 0 {
		r.logger.Debug("no neighbors", "book_id", bookID, "computed", ok)
		return []search.Book{}, nil
	}
	if r.limit > 0 && len(neighbors) > r.limit {
		neighbors = neighbors[:r.limit]
	}

	books, err := r.store.FetchBooksByIDs(ctx, neighbors)
	if err != nil {
		return nil, fmt.Errorf("fetching %d neighbor books: %w", len(neighbors), err)
	}
	byID := search.IndexByID(books)
	out := make([]search.Book, 0, len(neighbors))
	for _, id := range neighbors {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}
