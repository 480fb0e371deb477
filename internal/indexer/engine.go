// Package indexer builds the per-book occurrence index from stored book
// text and announces every change on the index.updated topic so searchers
// can drop stale cached results.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

// Store is the slice of the catalog the indexer touches.
type Store interface {
	GetBook(ctx context.Context, id int64) (search.Book, error)
	UpsertOccurrences(ctx context.Context, bookID int64, occ search.OccurrenceIndex) error
}

// Reason values carried by IndexUpdatedEvent.
const (
	ReasonIndexed = "indexed"
	ReasonRanked  = "ranked"
)

// IndexUpdatedEvent is published after an occurrence index or the rank
// scores change. BookID is zero for corpus-wide changes.
type IndexUpdatedEvent struct {
	BookID    int64     `json:"book_id"`
	Reason    string    `json:"reason"`
	Words     int       `json:"words"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Observer is told the outcome of every index write. *metrics.Metrics
// satisfies it.
type Observer interface {
	ObserveIndexed(status string)
}

// Tracker receives analytics events. *analytics.Collector satisfies it.
type Tracker interface {
	Track(event any)
}

type Engine struct {
	store    Store
	notifier kafka.Publisher
	observer Observer
	tracker  Tracker
	logger   *slog.Logger
}

type Option func(*Engine)

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// NewEngine creates an Engine. notifier may be nil, in which case no
// index.updated events are sent.
func NewEngine(store Store, notifier kafka.Publisher, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: notifier,
		logger:   slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IndexBook tokenizes the stored content of a book, replaces its
// occurrence index and returns the number of distinct words.
func (e *Engine) IndexBook(ctx context.Context, bookID int64) (int, error) {
	start := time.Now()
	book, err := e.store.GetBook(ctx, bookID)
	if err != nil {
		e.observe("error")
		return 0, fmt.Errorf("loading book %d: %w", bookID, err)
	}
	words, err := e.index(ctx, book)
	if err != nil {
		return 0, err
	}
	e.notify(ctx, IndexUpdatedEvent{BookID: bookID, Reason: ReasonIndexed, Words: words, UpdatedAt: time.Now().UTC()})
	e.track(analytics.IndexEvent{
		Type:      analytics.EventIndexBook,
		BookID:    bookID,
		Words:     words,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
	return words, nil
}

// IndexLoaded indexes a book whose content is already in hand, as during a
// full reindex. It publishes nothing; the caller announces the batch.
func (e *Engine) IndexLoaded(ctx context.Context, book search.Book) (int, error) {
	return e.index(ctx, book)
}

func (e *Engine) index(ctx context.Context, book search.Book) (int, error) {
	occ := tokenizer.Occurrences(book.Content)
	if err := e.store.UpsertOccurrences(ctx, book.ID, occ); err != nil {
		e.observe("error")
		return 0, fmt.Errorf("saving occurrences of book %d: %w", book.ID, err)
	}
	e.observe("ok")
	e.logger.Debug("book indexed", "book_id", book.ID, "title", book.Title, "words", len(occ))
	return len(occ), nil
}

// Announce publishes a corpus-wide change, such as a completed reindex or
// new rank scores.
func (e *Engine) Announce(ctx context.Context, reason string) {
	e.notify(ctx, IndexUpdatedEvent{Reason: reason, UpdatedAt: time.Now().UTC()})
}

func (e *Engine) notify(ctx context.Context, ev IndexUpdatedEvent) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(ctx, strconv.FormatInt(ev.BookID, 10), ev); err != nil {
		e.logger.Error("failed to publish index update", "book_id", ev.BookID, "error", err)
	}
}

func (e *Engine) observe(status string) {
	if e.observer != nil {
		e.observer.ObserveIndexed(status)
	}
}

func (e *Engine) track(event any) {
	if e.tracker != nil {
		e.tracker.Track(event)
	}
}
