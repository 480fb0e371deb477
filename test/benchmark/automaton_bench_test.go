// Package benchmark measures pattern compilation, word matching, catalog
// search and the neighbor pass over synthetic corpora.
package benchmark

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/prefix"
)

var patterns = []string{
	"whale",
	"whal(e|es)",
	"(a|b)*abb",
	"s(a|e|i|o|u)(a|e|i|o|u)*(l|n)*",
	"((c|h|m)a(t|p)|dog)(s)*",
}

func BenchmarkCompile(b *testing.B) {
	for _, p := range patterns {
		b.Run(p, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := automaton.Compile(p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDFATest(b *testing.B) {
	dfa := automaton.MustCompile("s(a|e|i|o|u)(a|e|i|o|u)*(l|n)*")
	words := []string{"sail", "seen", "soon", "sun", "salon", "whale", "s", "seaweed"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dfa.Test(words[i%len(words)])
	}
}

func buildTrie(n int) *prefix.Trie {
	t := prefix.New()
	for i := 0; i < n; i++ {
		_ = t.Insert(fmt.Sprintf("word%05d", i), int64(i%17+1))
	}
	return t
}

func BenchmarkTrieInsert(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buildTrie(1000)
	}
}

func BenchmarkTrieMatch(b *testing.B) {
	t := buildTrie(20000)
	dfa := automaton.MustCompile("word1(0|1)(0|1|2)(0|1|2)2")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = t.Match(dfa.Test)
	}
}

func BenchmarkTrieWithPrefix(b *testing.B) {
	t := buildTrie(20000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = t.WithPrefix("word19")
	}
}
