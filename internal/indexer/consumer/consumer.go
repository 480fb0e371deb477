// Package consumer drives the indexer from book-ingest events.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

// BookIndexer indexes one stored book. *indexer.Engine satisfies it.
type BookIndexer interface {
	IndexBook(ctx context.Context, bookID int64) (int, error)
}

// HandleMessage returns a Kafka handler that indexes the book named by each
// ingest event. Malformed messages and books that no longer exist are
// logged and committed; any other failure is returned so the message is
// redelivered.
func HandleMessage(ix BookIndexer) kafka.Handler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.Decode[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event", "error", err, "key", string(key))
			return nil
		}
		if event.BookID <= 0 {
			logger.Error("ingest event without book id", "key", string(key))
			return nil
		}

		words, err := ix.IndexBook(ctx, event.BookID)
		if errors.Is(err, apperrors.ErrBookNotFound) {
			logger.Warn("ingested book no longer exists", "book_id", event.BookID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("indexing book %d: %w", event.BookID, err)
		}
		logger.Info("book indexed",
			"book_id", event.BookID,
			"title", event.Title,
			"distinct_words", words,
		)
		return nil
	}
}
