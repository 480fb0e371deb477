// Package search ranks books by how often the words of their occurrence
// index match a query pattern.
//
// A query is compiled once into a minimized automaton, every word of every
// book is tested against it and the matching counts are summed per book.
// Books without a match are dropped; the rest are ordered by total
// occurrences or by precomputed rank score and resolved to full records.
// A pattern without metacharacters takes the exact-term fast path instead of
// the full scan. The result is the same set of books.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/tracing"
)

// Observer receives engine measurements. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveCompile(d time.Duration, states int)
	ObserveScan(books, words int)
}

type nopObserver struct{}

func (nopObserver) ObserveCompile(time.Duration, int) {}
func (nopObserver) ObserveScan(int, int)              {}

type Engine struct {
	store    Store
	limit    int
	logger   *slog.Logger
	observer Observer
}

type Option func(*Engine)

// WithLimit caps the number of results after ordering. Zero means no cap.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.limit = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		logger:   slog.Default().With("component", "search-engine"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Normalize lowercases a query so it lines up with the lowercased index keys.
func Normalize(pattern string) string {
	return strings.ToLower(pattern)
}

// Search returns the books matching pattern in the requested order. A
// pattern without metacharacters is answered by SearchTerm.
func (e *Engine) Search(ctx context.Context, pattern string, order Order) ([]Book, error) {
	hits, known, err := e.rank(ctx, Normalize(pattern), order, false)
	if err != nil {
		return nil, err
	}
	return e.resolve(ctx, hits, known)
}

// AdvancedSearch is Search without the fast path: the pattern is always
// compiled and every occurrence index is scanned.
func (e *Engine) AdvancedSearch(ctx context.Context, pattern string, order Order) ([]Book, error) {
	hits, known, err := e.rank(ctx, Normalize(pattern), order, true)
	if err != nil {
		return nil, err
	}
	return e.resolve(ctx, hits, known)
}

// Rank returns the ordered hits for pattern without resolving books. It
// chooses between the fast path and the scan the same way Search does.
func (e *Engine) Rank(ctx context.Context, pattern string, order Order) ([]Hit, error) {
	hits, _, err := e.rank(ctx, Normalize(pattern), order, false)
	return hits, err
}

// RankPattern is Rank without the fast path.
func (e *Engine) RankPattern(ctx context.Context, pattern string, order Order) ([]Hit, error) {
	hits, _, err := e.rank(ctx, Normalize(pattern), order, true)
	return hits, err
}

// Resolve turns ordered hits into books in the same order. Ids the store no
// longer knows are dropped.
func (e *Engine) Resolve(ctx context.Context, hits []Hit) ([]Book, error) {
	return e.resolve(ctx, hits, nil)
}

func (e *Engine) rank(ctx context.Context, pattern string, order Order, forceScan bool) ([]Hit, map[int64]Book, error) {
	if order != OrderOccurrence && order != OrderRank {
		return nil, nil, fmt.Errorf("ranking by %q: %w", order, apperrors.ErrInvalidInput)
	}
	if !forceScan && automaton.IsLiteral(pattern) {
		return e.rankTerm(ctx, pattern, order)
	}
	return e.rankScan(ctx, pattern, order)
}

func (e *Engine) rankScan(ctx context.Context, pattern string, order Order) ([]Hit, map[int64]Book, error) {
	_, span := tracing.StartChildSpan(ctx, "search.compile")
	start := time.Now()
	dfa, err := automaton.Compile(pattern)
	span.End()
	if err != nil {
		return nil, nil, err
	}
	e.observer.ObserveCompile(time.Since(start), dfa.NumStates())
	span.SetAttr("states", dfa.NumStates())

	_, scanSpan := tracing.StartChildSpan(ctx, "search.scan")
	indices, err := e.store.FetchAllOccurrenceIndices(ctx)
	if err != nil {
		scanSpan.End()
		return nil, nil, fmt.Errorf("fetching occurrence indices: %w", err)
	}
	hits := Score(dfa, indices)
	scanSpan.SetAttr("books", len(indices))
	scanSpan.SetAttr("matched", len(hits))
	scanSpan.End()
	e.observer.ObserveScan(len(indices), countWords(indices))

	e.logger.Debug("pattern scanned",
		"pattern", pattern,
		"states", dfa.NumStates(),
		"books", len(indices),
		"matched", len(hits),
	)
	return e.order(ctx, hits, order)
}

// order sorts hits and applies the limit. Rank ordering needs the scores
// carried by the books themselves, so the books are fetched here and handed
// back to avoid a second round trip.
func (e *Engine) order(ctx context.Context, hits []Hit, order Order) ([]Hit, map[int64]Book, error) {
	if len(hits) == 0 {
		return []Hit{}, nil, nil
	}
	var known map[int64]Book
	if order == OrderRank {
		books, err := e.fetch(ctx, hits)
		if err != nil {
			return nil, nil, err
		}
		known = books
		kept := hits[:0]
		for _, h := range hits {
			b, ok := known[h.BookID]
			if !ok {
				continue
			}
			h.Rank = b.Score()
			kept = append(kept, h)
		}
		hits = kept
	}
	SortHits(hits, order)
	if e.limit > 0 && len(hits) > e.limit {
		hits = hits[:e.limit]
	}
	return hits, known, nil
}

func (e *Engine) resolve(ctx context.Context, hits []Hit, known map[int64]Book) ([]Book, error) {
	if len(hits) == 0 {
		return []Book{}, nil
	}
	if known == nil {
		var err error
		known, err = e.fetch(ctx, hits)
		if err != nil {
			return nil, err
		}
	}
	books := make([]Book, 0, len(hits))
	for _, h := range hits {
		if b, ok := known[h.BookID]; ok {
			books = append(books, b)
		}
	}
	return books, nil
}

func (e *Engine) fetch(ctx context.Context, hits []Hit) (map[int64]Book, error) {
	ctx, span := tracing.StartChildSpan(ctx, "search.resolve")
	defer span.End()

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.BookID
	}
	books, err := e.store.FetchBooksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching %d books: %w", len(ids), err)
	}
	span.SetAttr("resolved", len(books))
	return IndexByID(books), nil
}

// IndexByID maps books by id. Later duplicates win.
func IndexByID(books []Book) map[int64]Book {
	m := make(map[int64]Book, len(books))
	for _, b := range books {
		m[b.ID] = b
	}
	return m
}

func countWords(indices []IndexedBook) int {
	n := 0
	for _, ib := range indices {
		n += len(ib.Occurrences)
	}
	return n
}
