package search

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/tracing"
)

// SearchTerm answers a single exact word from the term index instead of
// scanning every book. It returns the same books, in the same order, as
// Search would for the equivalent one-word pattern.
func (e *Engine) SearchTerm(ctx context.Context, term string, order Order) ([]Book, error) {
	term = Normalize(term)
	if !automaton.IsLiteral(term) {
		return nil, fmt.Errorf("term %q is not a literal word: %w", term, apperrors.ErrInvalidInput)
	}
	if order != OrderOccurrence && order != OrderRank {
		return nil, fmt.Errorf("ranking by %q: %w", order, apperrors.ErrInvalidInput)
	}
	hits, known, err := e.rankTerm(ctx, term, order)
	if err != nil {
		return nil, err
	}
	return e.resolve(ctx, hits, known)
}

func (e *Engine) rankTerm(ctx context.Context, term string, order Order) ([]Hit, map[int64]Book, error) {
	_, span := tracing.StartChildSpan(ctx, "search.term")
	span.SetAttr("term", term)

	ids, err := e.store.FetchBookIDsHavingTerm(ctx, term)
	if err != nil {
		span.End()
		return nil, nil, fmt.Errorf("fetching books containing %q: %w", term, err)
	}
	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		count, err := e.store.FetchOccurrenceCount(ctx, id, term)
		if err != nil {
			span.End()
			return nil, nil, fmt.Errorf("fetching count of %q in book %d: %w", term, id, err)
		}
		// A stored zero contributes nothing, exactly as in a scan.
		if count > 0 {
			hits = append(hits, Hit{BookID: id, Occurrences: count})
		}
	}
	span.SetAttr("matched", len(hits))
	span.End()

	e.logger.Debug("term looked up", "term", term, "matched", len(hits))
	return e.order(ctx, hits, order)
}
