package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

func TestWords(t *testing.T) {
	got := Words("The Whale's wake, and the SEA: it was an ocean of 42 ships.")
	assert.Equal(t, []string{"whale's", "wake", "sea", "ocean", "ships"}, got)
}

func TestWordsDropsShortAndStopWords(t *testing.T) {
	assert.Empty(t, Words("I am on it, we do so. They'll be there."))
	assert.Empty(t, Words(""))
}

func TestOccurrences(t *testing.T) {
	got := Occurrences("Whale whale WHALE. Sea sea; ship!")
	assert.Equal(t, search.OccurrenceIndex{"whale": 3, "sea": 2, "ship": 1}, got)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("don't"))
	assert.False(t, IsStopWord("whale"))
}
