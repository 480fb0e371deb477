package search

import (
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
)

// Book is a catalog entry as returned to callers. RankScore is the
// precomputed closeness centrality of the book; nil means not computed yet.
type Book struct {
	ID          int64    `json:"id"`
	GutenbergID int64    `json:"gutenberg_id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	WordCount   int      `json:"word_count"`
	Content     string   `json:"content,omitempty"`
	Summary     string   `json:"summary"`
	RankScore   *float64 `json:"c_rank"`
}

// Score returns the rank score, treating a missing score as zero.
func (b Book) Score() float64 {
	if b.RankScore == nil {
		return 0
	}
	return *b.RankScore
}

// OccurrenceIndex maps a lowercased word to how often it appears in a book.
type OccurrenceIndex map[string]int64

// IndexedBook pairs a book id with its occurrence index.
type IndexedBook struct {
	BookID      int64           `json:"book_id"`
	Occurrences OccurrenceIndex `json:"occurrences"`
}

// Hit is one matched book before it is resolved to a Book.
type Hit struct {
	BookID      int64   `json:"book_id"`
	Occurrences int64   `json:"occurrences"`
	Rank        float64 `json:"rank,omitempty"`
}

// Order selects how matching books are sorted.
type Order string

const (
	// OrderOccurrence sorts by total matching occurrences, highest first.
	OrderOccurrence Order = "occurrence"
	// OrderRank sorts by precomputed rank score, highest first.
	OrderRank Order = "rank"
)

// ParseOrder maps a query-string value to an Order. The empty string selects
// def.
func ParseOrder(s string, def Order) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "occurrence", "occurrences":
		return OrderOccurrence, nil
	case "rank", "c_rank", "crank":
		return OrderRank, nil
	default:
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown order %q", s)
	}
}
