// Package vocabulary keeps a trie of every word in the corpus with its
// corpus-wide count. It answers prefix suggestions and pattern lookups over
// distinct words without scanning any book.
package vocabulary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/prefix"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

// Vocabulary serves lookups from the most recently built trie. Rebuild swaps
// in a new trie atomically, so readers never see a partial build.
type Vocabulary struct {
	source search.IndexSource
	trie   atomic.Pointer[prefix.Trie]
	built  atomic.Int64
	logger *slog.Logger
}

func New(source search.IndexSource) *Vocabulary {
	v := &Vocabulary{
		source: source,
		logger: slog.Default().With("component", "vocabulary"),
	}
	v.trie.Store(prefix.New())
	return v
}

// Rebuild reads every occurrence index and replaces the trie.
func (v *Vocabulary) Rebuild(ctx context.Context) error {
	start := time.Now()
	indices, err := v.source.FetchAllOccurrenceIndices(ctx)
	if err != nil {
		return fmt.Errorf("loading occurrence indices: %w", err)
	}
	t := prefix.New()
	for _, ib := range indices {
		for word, count := range ib.Occurrences {
			if err := t.Insert(word, count); err != nil {
				return fmt.Errorf("indexing book %d: %w", ib.BookID, err)
			}
		}
	}
	v.trie.Store(t)
	v.built.Store(time.Now().Unix())
	v.logger.Info("vocabulary rebuilt",
		"books", len(indices),
		"words", t.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Words returns the number of distinct words.
func (v *Vocabulary) Words() int {
	return v.trie.Load().Len()
}

// BuiltAt is the time of the last successful rebuild, zero before the first.
func (v *Vocabulary) BuiltAt() time.Time {
	sec := v.built.Load()
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Suggest returns up to limit words starting with p, most frequent first.
// Equal counts are ordered alphabetically.
func (v *Vocabulary) Suggest(p string, limit int) []prefix.Entry {
	entries := v.trie.Load().WithPrefix(search.Normalize(p))
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []prefix.Entry{}
	}
	return entries
}

// Match compiles pattern and returns every vocabulary word it accepts, in
// alphabetical order, with the summed corpus count. Total covers all
// matches even when Entries is truncated to limit.
func (v *Vocabulary) Match(pattern string, limit int) (prefix.Result, error) {
	dfa, err := automaton.Compile(search.Normalize(pattern))
	if err != nil {
		return prefix.Result{}, err
	}
	res := v.trie.Load().Match(dfa.Test)
	if limit > 0 && len(res.Entries) > limit {
		res.Entries = res.Entries[:limit]
	}
	if res.Entries == nil {
		res.Entries = []prefix.Entry{}
	}
	return res, nil
}
