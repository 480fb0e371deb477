// Package ingestion defines the request/response types and Kafka event schema
// used by the book ingestion pipeline, plus the text clean-up applied to
// every submitted book.
package ingestion

import (
	"regexp"
	"strings"
	"time"
)

const (
	DefaultAuthor  = "Unknown"
	DefaultSummary = "No summary available."
)

// IngestRequest is the JSON body accepted by POST /api/v1/books.
type IngestRequest struct {
	GutenbergID    int64  `json:"gutenberg_id"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Content        string `json:"content"`
	Summary        string `json:"summary"`
	IdempotencyKey string `json:"idempotency_key"`
}

// IngestResponse is returned once a book is stored.
type IngestResponse struct {
	BookID    int64  `json:"book_id"`
	Status    string `json:"status"`
	WordCount int    `json:"word_count"`
	Duplicate bool   `json:"duplicate"`
}

// IngestEvent is published to the book-ingest topic after a book is
// persisted. The indexer loads the content itself, keeping messages small.
type IngestEvent struct {
	BookID      int64     `json:"book_id"`
	GutenbergID int64     `json:"gutenberg_id"`
	Title       string    `json:"title"`
	WordCount   int       `json:"word_count"`
	IngestedAt  time.Time `json:"ingested_at"`
}

var (
	gutenbergStart = regexp.MustCompile(`(?s)\*\*\* START OF.*?\*\*\*`)
	gutenbergEnd   = regexp.MustCompile(`(?s)\*\*\* END OF.*?\*\*\*`)
	whitespace     = regexp.MustCompile(`\s+`)
	nonASCII       = regexp.MustCompile(`[^\x00-\x7F]+`)
)

// CleanContent strips Project Gutenberg start/end banners, collapses
// whitespace runs to one space and drops non-ASCII text.
func CleanContent(s string) string {
	s = gutenbergStart.ReplaceAllString(s, "")
	s = gutenbergEnd.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	return nonASCII.ReplaceAllString(s, "")
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// Normalize trims the request in place, cleans the content and fills in
// the default author and summary.
func (r *IngestRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Summary = strings.TrimSpace(r.Summary)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	r.Content = CleanContent(r.Content)
	if r.Author == "" {
		r.Author = DefaultAuthor
	}
	if r.Summary == "" {
		r.Summary = DefaultSummary
	}
}
