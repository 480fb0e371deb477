// Package publisher stores ingested books in the catalog and announces them
// on the book-ingest topic for the indexer.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

// Counter is told about every newly stored book. *metrics.Metrics
// satisfies it.
type Counter interface {
	ObserveIngest()
}

type Publisher struct {
	store    catalog.Writer
	producer kafka.Publisher
	counter  Counter
	logger   *slog.Logger
}

// New creates a Publisher. producer and counter may be nil.
func New(store catalog.Writer, producer kafka.Publisher, counter Counter) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		counter:  counter,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest stores a validated, normalized request and publishes an
// IngestEvent. A repeated idempotency key returns the original book without
// publishing again. A failed publish is logged and leaves the book PENDING
// until the next reindex.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	words := ingestion.CountWords(req.Content)
	book, created, err := p.store.InsertBook(ctx, catalog.NewBook{
		GutenbergID:    req.GutenbergID,
		Title:          req.Title,
		Author:         req.Author,
		Content:        req.Content,
		Summary:        req.Summary,
		WordCount:      words,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("storing book: %w", err)
	}
	if !created {
		p.logger.Info("duplicate ingestion detected",
			"idempotency_key", req.IdempotencyKey,
			"existing_id", book.ID,
		)
		return &ingestion.IngestResponse{
			BookID:    book.ID,
			Status:    "DUPLICATE",
			WordCount: book.WordCount,
			Duplicate: true,
		}, nil
	}
	if p.counter != nil {
		p.counter.ObserveIngest()
	}

	event := ingestion.IngestEvent{
		BookID:      book.ID,
		GutenbergID: book.GutenbergID,
		Title:       book.Title,
		WordCount:   words,
		IngestedAt:  time.Now().UTC(),
	}
	if p.producer == nil {
		p.logger.Info("book stored without publishing", "book_id", book.ID)
	} else if err := p.producer.Publish(ctx, strconv.FormatInt(book.ID, 10), event); err != nil {
		p.logger.Error("failed to publish to kafka, book stuck in PENDING",
			"book_id", book.ID,
			"error", err,
		)
	}
	return &ingestion.IngestResponse{
		BookID:    book.ID,
		Status:    catalog.StatusPending,
		WordCount: words,
	}, nil
}
