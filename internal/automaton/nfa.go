package automaton

import "fmt"

// edge is a labeled NFA transition.
type edge struct {
	symbol rune
	to     int
}

type nfaState struct {
	edges   []edge
	epsilon []int
}

// nfa is an arena of states addressed by index. It has exactly one start and
// one accept state, as Thompson's construction guarantees.
type nfa struct {
	states []nfaState
	start  int
	accept int
}

// fragment is a partially built automaton on the construction stack.
type fragment struct {
	start  int
	accept int
}

// nfaBuilder owns the state counter for one compilation. It is never shared,
// so concurrent compilations allocate from independent arenas.
type nfaBuilder struct {
	states []nfaState
}

func (b *nfaBuilder) newState() int {
	b.states = append(b.states, nfaState{})
	return len(b.states) - 1
}

func (b *nfaBuilder) addEdge(from int, symbol rune, to int) {
	b.states[from].edges = append(b.states[from].edges, edge{symbol: symbol, to: to})
}

func (b *nfaBuilder) addEpsilon(from int, to ...int) {
	b.states[from].epsilon = append(b.states[from].epsilon, to...)
}

// buildNFA runs Thompson's construction over postfix tokens.
func buildNFA(postfix []token) (*nfa, error) {
	b := &nfaBuilder{states: make([]nfaState, 0, 2*len(postfix))}
	stack := make([]fragment, 0, len(postfix))

	pop := func(t token) (fragment, error) {
		if len(stack) == 0 {
			return fragment{}, fmt.Errorf("operator at position %d has no operand", t.pos)
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return f, nil
	}

	for _, t := range postfix {
		switch t.kind {
		case tokLiteral:
			start, accept := b.newState(), b.newState()
			b.addEdge(start, t.r, accept)
			stack = append(stack, fragment{start: start, accept: accept})

		case tokStar:
			inner, err := pop(t)
			if err != nil {
				return nil, err
			}
			start, accept := b.newState(), b.newState()
			b.addEpsilon(start, inner.start, accept)
			b.addEpsilon(inner.accept, accept, inner.start)
			stack = append(stack, fragment{start: start, accept: accept})

		case tokConcat:
			right, err := pop(t)
			if err != nil {
				return nil, err
			}
			left, err := pop(t)
			if err != nil {
				return nil, err
			}
			b.addEpsilon(left.accept, right.start)
			stack = append(stack, fragment{start: left.start, accept: right.accept})

		case tokAlt:
			right, err := pop(t)
			if err != nil {
				return nil, err
			}
			left, err := pop(t)
			if err != nil {
				return nil, err
			}
			start, accept := b.newState(), b.newState()
			b.addEpsilon(start, left.start, right.start)
			b.addEpsilon(left.accept, accept)
			b.addEpsilon(right.accept, accept)
			stack = append(stack, fragment{start: start, accept: accept})

		default:
			return nil, fmt.Errorf("unexpected token kind %d at position %d", t.kind, t.pos)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("construction left %d fragments, want 1", len(stack))
	}
	return &nfa{states: b.states, start: stack[0].start, accept: stack[0].accept}, nil
}
