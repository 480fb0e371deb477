package automaton

// Matcher decides whether a whole word belongs to a language.
type Matcher interface {
	Test(s string) bool
}

// Test reports whether the automaton accepts all of s. The match is anchored
// at both ends: a missing transition rejects immediately and there is no
// backtracking.
func (d *DFA) Test(s string) bool {
	state := d.start
	for _, r := range s {
		next, ok := d.trans[state][r]
		if !ok {
			return false
		}
		state = next
	}
	return d.accept[state]
}

// LiteralMatcher accepts exactly one string.
type LiteralMatcher string

func (l LiteralMatcher) Test(s string) bool {
	return string(l) == s
}
