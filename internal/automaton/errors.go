package automaton

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
)

// PatternSyntaxError reports a pattern that cannot be compiled. Pos is the
// rune offset of the offending token, or -1 when the whole pattern is at fault.
type PatternSyntaxError struct {
	Pattern string
	Pos     int
	Reason  string
}

func (e *PatternSyntaxError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("pattern %q: %s", e.Pattern, e.Reason)
	}
	return fmt.Sprintf("pattern %q: %s at position %d", e.Pattern, e.Reason, e.Pos)
}

// Unwrap lets callers match the error with errors.Is(err, ErrPatternSyntax).
func (e *PatternSyntaxError) Unwrap() error {
	return apperrors.ErrPatternSyntax
}

func syntaxError(pattern string, pos int, reason string) *PatternSyntaxError {
	return &PatternSyntaxError{Pattern: pattern, Pos: pos, Reason: reason}
}
