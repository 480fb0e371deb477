package search

import "context"

// IndexSource yields the occurrence index of every book in a stable scan
// order. Ties in ranking keep this order.
type IndexSource interface {
	FetchAllOccurrenceIndices(ctx context.Context) ([]IndexedBook, error)
}

// TermIndex answers exact-term questions without a full scan.
type TermIndex interface {
	// FetchBookIDsHavingTerm returns, in scan order, the ids of books whose
	// occurrence index contains term as a key.
	FetchBookIDsHavingTerm(ctx context.Context, term string) ([]int64, error)
	// FetchOccurrenceCount returns the count stored for term in one book,
	// or zero when the book does not contain it.
	FetchOccurrenceCount(ctx context.Context, bookID int64, term string) (int64, error)
}

// BookFetcher resolves ids to books. The result may be in any order and may
// omit ids that no longer exist.
type BookFetcher interface {
	FetchBooksByIDs(ctx context.Context, ids []int64) ([]Book, error)
}

// NeighborSource returns the precomputed neighbor list of a book. The bool
// is false when no list has been computed for the book.
type NeighborSource interface {
	FetchNeighborList(ctx context.Context, bookID int64) ([]int64, bool, error)
}

// Store is everything the engine reads from.
type Store interface {
	IndexSource
	TermIndex
	BookFetcher
}
