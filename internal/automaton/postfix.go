package automaton

// precedence orders operators for the shunting-yard pass. The open
// parenthesis is a sentinel that no operator can pop.
var precedence = [...]int{
	tokOpen:   0,
	tokAlt:    1,
	tokConcat: 2,
	tokStar:   3,
}

// toPostfix converts validated infix tokens to reverse Polish order.
func toPostfix(tokens []token) []token {
	out := make([]token, 0, len(tokens))
	ops := make([]token, 0, len(tokens)/2+1)

	for _, t := range tokens {
		switch t.kind {
		case tokOpen:
			ops = append(ops, t)
		case tokClose:
			for len(ops) > 0 && ops[len(ops)-1].kind != tokOpen {
				out = append(out, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			if len(ops) > 0 {
				ops = ops[:len(ops)-1]
			}
		case tokAlt, tokConcat, tokStar:
			for len(ops) > 0 && precedence[ops[len(ops)-1].kind] >= precedence[t.kind] {
				out = append(out, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, t)
		default:
			out = append(out, t)
		}
	}
	for len(ops) > 0 {
		out = append(out, ops[len(ops)-1])
		ops = ops[:len(ops)-1]
	}
	return out
}
