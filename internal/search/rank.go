package search

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
)

// Score tests every word of every book against m and returns one hit per
// book with a non-zero total, in the order the books were given.
func Score(m automaton.Matcher, books []IndexedBook) []Hit {
	hits := make([]Hit, 0)
	for _, b := range books {
		var total int64
		for word, count := range b.Occurrences {
			if m.Test(word) {
				total += count
			}
		}
		if total > 0 {
			hits = append(hits, Hit{BookID: b.BookID, Occurrences: total})
		}
	}
	return hits
}

// SortHits orders hits highest first by the key order selects. The sort is
// stable: equal keys keep their incoming order.
func SortHits(hits []Hit, order Order) {
	switch order {
	case OrderRank:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Rank > hits[j].Rank
		})
	default:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Occurrences > hits[j].Occurrences
		})
	}
}
