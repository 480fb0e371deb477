// Package catalog stores books, their occurrence indices and their neighbor
// lists. Postgres is the production store; Memory backs tests and local
// tooling. Both satisfy the read ports of the search and recommend packages
// plus the Writer used by ingestion and the indexer.
package catalog

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

// Book status values.
const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
)

// NewBook is a book as submitted for ingestion.
type NewBook struct {
	GutenbergID    int64
	Title          string
	Author         string
	Content        string
	Summary        string
	WordCount      int
	IdempotencyKey string
}

// Neighborhood is the outcome of the offline similarity pass for one book.
type Neighborhood struct {
	BookID    int64
	Neighbors []int64
	RankScore float64
}

// Writer is the mutating side of the catalog.
type Writer interface {
	// InsertBook stores b and returns it with its id. Re-submitting the same
	// idempotency key returns the original book and created=false.
	InsertBook(ctx context.Context, b NewBook) (book search.Book, created bool, err error)
	// GetBook returns one book including its content, or
	// apperrors.ErrBookNotFound.
	GetBook(ctx context.Context, id int64) (search.Book, error)
	// UpsertOccurrences replaces the occurrence index of a book and marks it
	// indexed.
	UpsertOccurrences(ctx context.Context, bookID int64, occ search.OccurrenceIndex) error
	// SaveNeighborhoods replaces neighbor lists and rank scores in one
	// transaction.
	SaveNeighborhoods(ctx context.Context, hoods []Neighborhood) error
	// ForEachBook calls fn for every book, content included, in id order.
	ForEachBook(ctx context.Context, fn func(search.Book) error) error
}

// Store is the full catalog.
type Store interface {
	search.Store
	search.NeighborSource
	Writer
}
