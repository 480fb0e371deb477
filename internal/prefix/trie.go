// Package prefix provides an arena-backed character trie over corpus words.
// Each terminal node carries the number of times its word was inserted,
// which lets callers walk the vocabulary with a matcher and total the hits
// without touching storage.
package prefix

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNegativeCount is returned when Insert is given a count below zero.
var ErrNegativeCount = errors.New("prefix: negative count")

type node struct {
	children map[rune]int32
	terminal bool
	count    int64
}

// Entry is one stored word with its accumulated count.
type Entry struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Result is the outcome of a Match walk.
type Result struct {
	Total   int64   `json:"total"`
	Entries []Entry `json:"entries"`
}

// Trie stores words in a flat slice of nodes; node 0 is the root. It is safe
// for concurrent use.
type Trie struct {
	mu    sync.RWMutex
	nodes []node
	words int
}

func New() *Trie {
	return &Trie{nodes: []node{{}}}
}

// Insert adds count occurrences of word. Inserting an existing word
// accumulates its count.
func (t *Trie) Insert(word string, count int64) error {
	if count < 0 {
		return fmt.Errorf("inserting %q: %w", word, ErrNegativeCount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := int32(0)
	for _, r := range word {
		next, ok := t.nodes[cur].children[r]
		if !ok {
			t.nodes = append(t.nodes, node{})
			next = int32(len(t.nodes) - 1)
			if t.nodes[cur].children == nil {
				t.nodes[cur].children = make(map[rune]int32)
			}
			t.nodes[cur].children[r] = next
		}
		cur = next
	}
	if !t.nodes[cur].terminal {
		t.nodes[cur].terminal = true
		t.words++
	}
	t.nodes[cur].count += count
	return nil
}

// find returns the node reached by s, or -1.
func (t *Trie) find(s string) int32 {
	cur := int32(0)
	for _, r := range s {
		next, ok := t.nodes[cur].children[r]
		if !ok {
			return -1
		}
		cur = next
	}
	return cur
}

func (t *Trie) Contains(word string) bool {
	_, ok := t.Count(word)
	return ok
}

// Count returns the accumulated count of word and whether it is stored.
func (t *Trie) Count(word string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.find(word)
	if n < 0 || !t.nodes[n].terminal {
		return 0, false
	}
	return t.nodes[n].count, true
}

// HasPrefix reports whether any stored word starts with prefix.
func (t *Trie) HasPrefix(prefix string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.find(prefix) >= 0 && (prefix != "" || t.words > 0)
}

// Len returns the number of distinct words.
func (t *Trie) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.words
}

// WithPrefix returns every stored word starting with prefix, sorted.
func (t *Trie) WithPrefix(prefix string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.find(prefix)
	if n < 0 {
		return nil
	}
	entries := t.collect(n, prefix, func(string) bool { return true })
	sortEntries(entries)
	return entries
}

// Match visits every stored word and sums the counts of those accepted by
// test. Children are always explored, whether or not the current prefix
// matched, so a pattern like "ab" still reaches "abc" on the way to other
// words. The result does not depend on traversal order.
func (t *Trie) Match(test func(string) bool) Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := t.collect(0, "", test)
	sortEntries(entries)

	var total int64
	for _, e := range entries {
		total += e.Count
	}
	return Result{Total: total, Entries: entries}
}

// collect walks the subtree rooted at from with an explicit worklist, so deep
// words never grow the goroutine stack.
func (t *Trie) collect(from int32, prefix string, test func(string) bool) []Entry {
	type frame struct {
		node   int32
		prefix string
	}
	var out []Entry
	work := []frame{{node: from, prefix: prefix}}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]

		n := &t.nodes[f.node]
		if n.terminal && test(f.prefix) {
			out = append(out, Entry{Word: f.prefix, Count: n.count})
		}
		for r, child := range n.children {
			work = append(work, frame{node: child, prefix: f.prefix + string(r)})
		}
	}
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Word < entries[j].Word
	})
}
