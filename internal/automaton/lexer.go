package automaton

import "strings"

// metacharacters are the only runes with special meaning in a pattern.
const metacharacters = "()|*"

type tokenKind uint8

const (
	tokLiteral tokenKind = iota
	tokOpen
	tokClose
	tokAlt
	tokStar
	tokConcat
)

// token is one lexical unit of a pattern. Concatenation is a kind of its own
// so that every rune the caller writes, '.' included, stays a literal.
type token struct {
	kind tokenKind
	r    rune
	pos  int
}

// IsLiteral reports whether pattern contains no metacharacters, in which case
// it matches exactly itself and nothing else.
func IsLiteral(pattern string) bool {
	return pattern != "" && !strings.ContainsAny(pattern, metacharacters)
}

// tokenize validates pattern and returns its tokens with explicit
// concatenation inserted. All syntax errors surface here, before any
// automaton construction.
func tokenize(pattern string) ([]token, error) {
	if pattern == "" {
		return nil, syntaxError(pattern, -1, "empty pattern")
	}

	tokens := make([]token, 0, len(pattern))
	open := make([]int, 0, 4)
	expectOperand := true
	pos := 0
	for _, r := range pattern {
		t := token{kind: tokLiteral, r: r, pos: pos}
		switch r {
		case '(':
			t.kind = tokOpen
			open = append(open, pos)
			expectOperand = true
		case ')':
			t.kind = tokClose
			if len(open) == 0 {
				return nil, syntaxError(pattern, pos, "unbalanced ')'")
			}
			if expectOperand {
				if tokens[len(tokens)-1].kind == tokOpen {
					return nil, syntaxError(pattern, pos, "empty group")
				}
				return nil, syntaxError(pattern, pos, "missing operand before ')'")
			}
			open = open[:len(open)-1]
		case '|':
			t.kind = tokAlt
			if expectOperand {
				return nil, syntaxError(pattern, pos, "missing operand before '|'")
			}
			expectOperand = true
		case '*':
			t.kind = tokStar
			if expectOperand {
				return nil, syntaxError(pattern, pos, "nothing to repeat before '*'")
			}
		default:
			expectOperand = false
		}
		tokens = append(tokens, t)
		pos++
	}

	if len(open) > 0 {
		return nil, syntaxError(pattern, open[len(open)-1], "unbalanced '('")
	}
	if expectOperand {
		return nil, syntaxError(pattern, pos, "missing operand at end of pattern")
	}
	return insertConcat(tokens), nil
}

// insertConcat adds a concatenation token between two adjacent tokens unless
// the left one opens a group or is an alternation, or the right one is an
// alternation, closes a group or is a star.
func insertConcat(tokens []token) []token {
	out := make([]token, 0, 2*len(tokens))
	for i, t := range tokens {
		out = append(out, t)
		if i+1 == len(tokens) {
			break
		}
		next := tokens[i+1]
		switch t.kind {
		case tokOpen, tokAlt, tokConcat:
			continue
		}
		switch next.kind {
		case tokAlt, tokClose, tokStar:
			continue
		}
		out = append(out, token{kind: tokConcat, pos: next.pos})
	}
	return out
}
