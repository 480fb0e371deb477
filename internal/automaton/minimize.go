package automaton

import (
	"strconv"
	"strings"
)

// Minimize merges equivalent states of d by Moore partition refinement and
// returns a new, language-equivalent DFA. d is not modified.
func Minimize(d *DFA) *DFA {
	n := len(d.trans)
	var rejecting, accepting []int
	for s := 0; s < n; s++ {
		if d.accept[s] {
			accepting = append(accepting, s)
		} else {
			rejecting = append(rejecting, s)
		}
	}
	groups := make([][]int, 0, 2)
	for _, g := range [][]int{rejecting, accepting} {
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}

	groupOf := make([]int, n)
	assign := func() {
		for gi, g := range groups {
			for _, s := range g {
				groupOf[s] = gi
			}
		}
	}
	assign()

	for {
		next := make([][]int, 0, len(groups))
		changed := false
		for _, g := range groups {
			if len(g) == 1 {
				next = append(next, g)
				continue
			}
			parts := splitBySignature(d, g, groupOf)
			if len(parts) > 1 {
				changed = true
			}
			next = append(next, parts...)
		}
		groups = next
		assign()
		if !changed {
			break
		}
	}

	m := &DFA{
		start:  groupOf[d.start],
		accept: make([]bool, len(groups)),
		trans:  make([]map[rune]int, len(groups)),
	}
	for gi := range groups {
		m.trans[gi] = make(map[rune]int)
	}
	for s := 0; s < n; s++ {
		g := groupOf[s]
		if d.accept[s] {
			m.accept[g] = true
		}
		for sym, to := range d.trans[s] {
			m.trans[g][sym] = groupOf[to]
		}
	}
	return m
}

// splitBySignature partitions group by where each member's transitions lead.
// Sub-groups keep the order in which their first member was seen.
func splitBySignature(d *DFA, group []int, groupOf []int) [][]int {
	order := make([]string, 0, 2)
	buckets := make(map[string][]int)
	for _, s := range group {
		sig := signature(d.trans[s], groupOf)
		if _, ok := buckets[sig]; !ok {
			order = append(order, sig)
		}
		buckets[sig] = append(buckets[sig], s)
	}
	parts := make([][]int, 0, len(order))
	for _, sig := range order {
		parts = append(parts, buckets[sig])
	}
	return parts
}

// signature encodes the (symbol, target group) pairs of a state over its
// sorted symbols. A missing symbol is part of the signature by omission.
func signature(row map[rune]int, groupOf []int) string {
	var b strings.Builder
	for _, sym := range sortedSymbols(row) {
		b.WriteString(strconv.Itoa(int(sym)))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(groupOf[row[sym]]))
		b.WriteByte(';')
	}
	return b.String()
}
