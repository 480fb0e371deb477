package automaton

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// DFA is a deterministic automaton with a partial transition function: a
// missing entry means the input is rejected, never an implicit self-loop.
// A DFA is immutable once built and safe for concurrent Test calls.
type DFA struct {
	start  int
	accept []bool
	trans  []map[rune]int
}

// NumStates returns the number of states.
func (d *DFA) NumStates() int {
	return len(d.trans)
}

// Start returns the start state id.
func (d *DFA) Start() int {
	return d.start
}

// IsAccepting reports whether state is accepting.
func (d *DFA) IsAccepting(state int) bool {
	return state >= 0 && state < len(d.accept) && d.accept[state]
}

// Transition returns the target of state on symbol.
func (d *DFA) Transition(state int, symbol rune) (int, bool) {
	if state < 0 || state >= len(d.trans) {
		return 0, false
	}
	to, ok := d.trans[state][symbol]
	return to, ok
}

// Alphabet returns every symbol with at least one transition, sorted.
func (d *DFA) Alphabet() []rune {
	seen := make(map[rune]struct{})
	for _, row := range d.trans {
		for sym := range row {
			seen[sym] = struct{}{}
		}
	}
	out := make([]rune, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}

// String renders the automaton one state per line, accepting states marked
// with '*'.
func (d *DFA) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start=%d states=%d\n", d.start, len(d.trans))
	for s, row := range d.trans {
		b.WriteString(strconv.Itoa(s))
		if d.accept[s] {
			b.WriteByte('*')
		}
		b.WriteByte(':')
		for _, sym := range sortedSymbols(row) {
			fmt.Fprintf(&b, " %q->%d", sym, row[sym])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// determinize performs the subset construction. The closure cache lives only
// for this call.
func determinize(n *nfa) *DFA {
	type closed struct {
		members []int
		key     string
	}
	cache := make(map[string]closed)
	closure := func(set []int) ([]int, string) {
		seed := canonical(set)
		key := setKey(seed)
		if hit, ok := cache[key]; ok {
			return hit.members, hit.key
		}
		inSet := make(map[int]bool, len(seed))
		stack := make([]int, 0, len(seed))
		for _, s := range seed {
			inSet[s] = true
			stack = append(stack, s)
		}
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, next := range n.states[s].epsilon {
				if !inSet[next] {
					inSet[next] = true
					stack = append(stack, next)
				}
			}
		}
		members := make([]int, 0, len(inSet))
		for s := range inSet {
			members = append(members, s)
		}
		slices.Sort(members)
		result := closed{members: members, key: setKey(members)}
		cache[key] = result
		return result.members, result.key
	}

	d := &DFA{}
	index := make(map[string]int)
	var members [][]int
	addState := func(set []int, key string) int {
		id := len(members)
		index[key] = id
		members = append(members, set)
		d.trans = append(d.trans, make(map[rune]int))
		_, accepting := slices.BinarySearch(set, n.accept)
		d.accept = append(d.accept, accepting)
		return id
	}

	startSet, startKey := closure([]int{n.start})
	d.start = addState(startSet, startKey)

	queue := []int{d.start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		moves := make(map[rune][]int)
		for _, s := range members[current] {
			for _, e := range n.states[s].edges {
				moves[e.symbol] = append(moves[e.symbol], e.to)
			}
		}
		for _, sym := range sortedSymbols(moves) {
			target, key := closure(moves[sym])
			id, ok := index[key]
			if !ok {
				id = addState(target, key)
				queue = append(queue, id)
			}
			d.trans[current][sym] = id
		}
	}
	return d
}

// canonical returns a sorted copy of set without duplicates.
func canonical(set []int) []int {
	out := slices.Clone(set)
	slices.Sort(out)
	return slices.Compact(out)
}

func setKey(sorted []int) string {
	var b strings.Builder
	for i, s := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s))
	}
	return b.String()
}

func sortedSymbols[V any](m map[rune]V) []rune {
	out := make([]rune, 0, len(m))
	for sym := range m {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}
