// Package validator checks ingestion requests and reports every failing
// field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
)

const (
	maxTitleLength   = 1024
	maxAuthorLength  = 512
	maxSummaryLength = 16384
	maxKeyLength     = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest expects a normalized request. A book shorter than
// minWords words is rejected; minWords <= 0 disables that check.
func ValidateIngestRequest(req *ingestion.IngestRequest, minWords int) error {
	errs := make(map[string]string)

	switch {
	case req.Title == "":
		errs["title"] = "title is required"
	case len(req.Title) > maxTitleLength:
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(req.Author) > maxAuthorLength {
		errs["author"] = fmt.Sprintf("author must be at most %d characters", maxAuthorLength)
	}
	if len(req.Summary) > maxSummaryLength {
		errs["summary"] = fmt.Sprintf("summary must be at most %d characters", maxSummaryLength)
	}
	if req.Content == "" {
		errs["content"] = "content is required"
	} else if n := ingestion.CountWords(req.Content); minWords > 0 && n < minWords {
		errs["content"] = fmt.Sprintf("content has %d words, at least %d required", n, minWords)
	}
	if req.GutenbergID < 0 {
		errs["gutenberg_id"] = "gutenberg id must not be negative"
	}
	if len(req.IdempotencyKey) > maxKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxKeyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
