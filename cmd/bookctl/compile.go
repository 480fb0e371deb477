package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
)

var compileCmd = &cobra.Command{
	Use:   "compile <pattern> [word...]",
	Short: "Show the minimal DFA of a pattern and test words against it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if raw, _ := cmd.Flags().GetBool("unminimized"); raw {
			d, err := automaton.Determinize(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "subset DFA, %d states\n%s", d.NumStates(), d)
		}
		dfa, err := automaton.Compile(args[0])
		if err != nil {
			return err
		}
		if dot, _ := cmd.Flags().GetBool("dot"); dot {
			return writeDot(out, args[0], dfa)
		}
		fmt.Fprintf(out, "minimal DFA, %d states\n%s", dfa.NumStates(), dfa)
		for _, w := range args[1:] {
			fmt.Fprintf(out, "%s\t%t\n", w, dfa.Test(w))
		}
		return nil
	},
}

// writeDot renders d as a Graphviz digraph. Edges sharing a source and target
// are merged into one edge labeled with every symbol.
func writeDot(w io.Writer, pattern string, d *automaton.DFA) error {
	if _, err := fmt.Fprintf(w, "digraph %q {\n\trankdir=LR;\n\t__start [shape=point];\n", pattern); err != nil {
		return err
	}
	for s := range d.NumStates() {
		shape := "circle"
		if d.IsAccepting(s) {
			shape = "doublecircle"
		}
		fmt.Fprintf(w, "\t%d [shape=%s];\n", s, shape)
	}
	fmt.Fprintf(w, "\t__start -> %d;\n", d.Start())

	alphabet := d.Alphabet()
	for s := range d.NumStates() {
		var targets []int
		labels := make(map[int]string)
		for _, sym := range alphabet {
			to, ok := d.Transition(s, sym)
			if !ok {
				continue
			}
			if _, seen := labels[to]; !seen {
				targets = append(targets, to)
			} else {
				labels[to] += ","
			}
			labels[to] += string(sym)
		}
		for _, to := range targets {
			fmt.Fprintf(w, "\t%d -> %d [label=%q];\n", s, to, labels[to])
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func init() {
	compileCmd.Flags().Bool("unminimized", false, "also print the DFA before minimization")
	compileCmd.Flags().Bool("dot", false, "print the minimal DFA as a Graphviz digraph")
	rootCmd.AddCommand(compileCmd)
}
