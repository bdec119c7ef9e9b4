package main

import (
	"fmt"
	"io"

	"github.com/barkwell/minicc/compiler"
)

// dumpTokens prints one token per line, for the -lex stage switch.
func dumpTokens(out io.Writer, toks []compiler.Token) {
	for _, t := range toks {
		fmt.Fprintf(out, "%6d  %v\n", t.Offset, t)
	}
}

// dumpTree prints an indented tree, for the -parse stage switch.
func dumpTree(out io.Writer, n *compiler.Node) {
	dumpNode(out, n, 0)
}

func dumpNode(out io.Writer, n *compiler.Node, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(out, "  ")
	}
	fmt.Fprintf(out, "%v", n.Kind)
	if n.Name != "" {
		fmt.Fprintf(out, " %q", n.Name)
	}
	if n.Kind == compiler.NodeNumber {
		fmt.Fprintf(out, " %d", n.Value)
	}
	io.WriteString(out, "\n")
	for _, c := range n.Children {
		dumpNode(out, c, depth+1)
	}
}
