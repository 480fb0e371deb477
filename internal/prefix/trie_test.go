package prefix

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
)

func build(t *testing.T, words map[string]int64) *Trie {
	t.Helper()
	tr := New()
	for w, c := range words {
		require.NoError(t, tr.Insert(w, c))
	}
	return tr
}

func TestTrie_InsertAndCount(t *testing.T) {
	tr := build(t, map[string]int64{"whale": 3, "whaler": 1, "ship": 2})
	require.NoError(t, tr.Insert("whale", 4))

	c, ok := tr.Count("whale")
	assert.True(t, ok)
	assert.Equal(t, int64(7), c)

	_, ok = tr.Count("wha")
	assert.False(t, ok, "interior node is not a word")
	assert.False(t, tr.Contains("whales"))
	assert.True(t, tr.Contains("ship"))
	assert.Equal(t, 3, tr.Len())
}

func TestTrie_NegativeCount(t *testing.T) {
	tr := New()
	err := tr.Insert("x", -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNegativeCount))
	assert.Equal(t, 0, tr.Len())
}

func TestTrie_ZeroCountWordIsStored(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert("moby", 0))
	c, ok := tr.Count("moby")
	assert.True(t, ok)
	assert.Zero(t, c)
}

func TestTrie_WithPrefix(t *testing.T) {
	tr := build(t, map[string]int64{"sea": 1, "seas": 2, "seaman": 5, "ship": 1})

	assert.Equal(t, []Entry{{"sea", 1}, {"seaman", 5}, {"seas", 2}}, tr.WithPrefix("sea"))
	assert.Empty(t, tr.WithPrefix("z"))
	assert.Len(t, tr.WithPrefix(""), 4)
	assert.True(t, tr.HasPrefix("sh"))
	assert.False(t, tr.HasPrefix("shx"))
}

func TestTrie_MatchWithAutomaton(t *testing.T) {
	tr := build(t, map[string]int64{"ab": 2, "abc": 3, "abd": 1, "b": 7, "ba": 4})
	dfa, err := automaton.Compile("ab(c|d)*")
	require.NoError(t, err)

	res := tr.Match(dfa.Test)
	assert.Equal(t, int64(6), res.Total)
	assert.Equal(t, []Entry{{"ab", 2}, {"abc", 3}, {"abd", 1}}, res.Entries)
}

func TestTrie_MatchVisitsBelowNonMatchingPrefix(t *testing.T) {
	tr := build(t, map[string]int64{"a": 1, "aaab": 5})
	res := tr.Match(automaton.MustCompile("a*b").Test)
	assert.Equal(t, int64(5), res.Total)
}

func TestTrie_MatchIsOrderIndependent(t *testing.T) {
	words := map[string]int64{}
	for i, w := range strings.Fields("call me ishmael some years ago never mind how long precisely having little or no money in my purse") {
		words[w] = int64(i + 1)
	}

	first := build(t, words)
	reversed := New()
	keys := make([]string, 0, len(words))
	for w := range words {
		keys = append(keys, w)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		require.NoError(t, reversed.Insert(keys[i], words[keys[i]]))
	}

	m := automaton.MustCompile("(m|n)(a|e|o|y)*(n|y|e|d|r)*")
	assert.Equal(t, first.Match(m.Test), reversed.Match(m.Test))
}

func TestTrie_DeepWordDoesNotRecurse(t *testing.T) {
	tr := New()
	long := strings.Repeat("a", 5000)
	require.NoError(t, tr.Insert(long, 1))
	res := tr.Match(func(s string) bool { return len(s) == len(long) })
	assert.Equal(t, int64(1), res.Total)
}
