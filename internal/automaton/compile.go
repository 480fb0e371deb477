// Package automaton compiles the small pattern language used by book search
// into a minimized deterministic automaton and runs it against words.
//
// The grammar has literal runes, implicit concatenation, alternation '|',
// Kleene star '*' and grouping with parentheses. There are no escapes, so the
// four metacharacters can never be literals. Every compilation owns its own
// state arena and closure cache, which makes Compile safe to call from any
// number of goroutines.
package automaton

import "fmt"

// Compile turns pattern into a minimized DFA. A malformed pattern yields a
// *PatternSyntaxError before any automaton is built. A repeated star such as
// "a**" is well formed and means the same as "a*".
func Compile(pattern string) (*DFA, error) {
	d, err := Determinize(pattern)
	if err != nil {
		return nil, err
	}
	return Minimize(d), nil
}

// MustCompile is like Compile but panics on error. Intended for patterns
// known at build time.
func MustCompile(pattern string) *DFA {
	d, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return d
}

// Determinize builds the subset-construction DFA for pattern without
// minimizing it.
func Determinize(pattern string) (*DFA, error) {
	tokens, err := tokenize(pattern)
	if err != nil {
		return nil, err
	}
	n, err := buildNFA(toPostfix(tokens))
	if err != nil {
		return nil, fmt.Errorf("building automaton for %q: %w", pattern, err)
	}
	return determinize(n), nil
}
