// Package tokenizer turns book text into the occurrence index the search
// engine scans: lowercased words of at least three letters, English stop
// words removed, each mapped to its count.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

// minWordRunes is the shortest word kept.
const minWordRunes = 3

// wordPattern matches a word with at most one inner apostrophe, so "don't"
// and "whale's" stay whole.
var wordPattern = regexp.MustCompile(`\b\w+'?\w*\b`)

var stopWords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and", "any", "are",
	"aren't", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both",
	"but", "by", "can't", "cannot", "could", "couldn't", "did", "didn't", "do", "does", "doesn't",
	"doing", "don't", "down", "during", "each", "few", "for", "from", "further", "had", "hadn't",
	"has", "hasn't", "have", "haven't", "having", "he", "he'd", "he'll", "he's", "her", "here",
	"here's", "hers", "herself", "him", "himself", "his", "how", "how's", "i", "i'd", "i'll",
	"i'm", "i've", "if", "in", "into", "is", "isn't", "it", "it's", "its", "itself", "let's", "me",
	"more", "most", "mustn't", "my", "myself", "no", "nor", "not", "of", "off", "on", "once",
	"only", "or", "other", "ought", "our", "ours", "ourselves", "out", "over", "own", "same",
	"shan't", "she", "she'd", "she'll", "she's", "should", "shouldn't", "so", "some", "such",
	"than", "that", "that's", "the", "their", "theirs", "them", "themselves", "then", "there",
	"there's", "these", "they", "they'd", "they'll", "they're", "they've", "this", "those",
	"through", "to", "too", "under", "until", "up", "very", "was", "wasn't", "we", "we'd",
	"we'll", "we're", "we've", "were", "weren't", "what", "what's", "when", "when's", "where",
	"where's", "which", "while", "who", "who's", "whom", "why", "why's", "with", "won't",
	"would", "wouldn't", "you", "you'd", "you'll", "you're", "you've", "your", "yours",
	"yourself", "yourselves",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsStopWord reports whether w is dropped from every index.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// Words returns the indexable words of text in order of appearance.
func Words(text string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, w := range raw {
		if utf8.RuneCountInString(w) < minWordRunes || IsStopWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Occurrences counts every indexable word of text.
func Occurrences(text string) search.OccurrenceIndex {
	occ := make(search.OccurrenceIndex)
	for _, w := range Words(text) {
		occ[w]++
	}
	return occ
}
