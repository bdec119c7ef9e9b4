/*
Package compiler implements a single-pass compiler for a small C-like
language: integer functions, local variables, arithmetic and bitwise
expressions, conditionals, and while loops with break/continue. It compiles
straight to GNU-assembler Intel-syntax x86-64 text; there is no optimization
pass and no intermediate representation beyond the parse tree.

The pipeline is strictly linear and has three stages, each independently
usable:

	Tokenize: []byte -> []Token
	Parse:    []byte -> *Node   (drives a Scanner internally)
	Emit:     *Node, io.Writer -> assembly text

Compile chains all three for the common case. Nothing in this package spawns
a goroutine or blocks; a single call consumes one source buffer and produces
one independent result.
*/
package compiler
