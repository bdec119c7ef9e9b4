// Command minicc compiles a small C-like source file to GNU-assembler
// Intel-syntax x86-64 text. It is a thin wrapper around package compiler:
// file I/O, output destination selection, and the lex/parse/compile stage
// switch all live here, outside the core.
package main

import (
	"flag"
	"os"

	"github.com/barkwell/minicc/compiler"
	"github.com/barkwell/minicc/internal/diag"
	"github.com/barkwell/minicc/internal/srcbuf"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("minicc", flag.ContinueOnError)
	lexOnly := fs.Bool("lex", false, "print the token stream and stop")
	parseOnly := fs.Bool("parse", false, "print the parse tree and stop")
	output := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := &diag.Logger{Output: os.Stderr}

	if fs.NArg() != 1 {
		log.Errorf("usage: minicc [-lex|-parse] [-o file] <source>")
		return log.ExitCode()
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		log.Errorf("%s: %v", path, err)
		return log.ExitCode()
	}
	src, err := srcbuf.Read(f)
	f.Close()
	if err != nil {
		log.Errorf("%s: %v", path, err)
		return log.ExitCode()
	}

	out := os.Stdout
	if *output != "" {
		o, err := os.Create(*output)
		if err != nil {
			log.Errorf("%s: %v", *output, err)
			return log.ExitCode()
		}
		defer o.Close()
		out = o
	}

	switch {
	case *lexOnly:
		toks, err := compiler.Tokenize(src)
		if err != nil {
			log.Errorf("%s: %v", path, err)
			return log.ExitCode()
		}
		dumpTokens(out, toks)

	case *parseOnly:
		tree, err := compiler.Parse(src)
		if err != nil {
			log.Errorf("%s: %v", path, err)
			return log.ExitCode()
		}
		dumpTree(out, tree)

	default:
		if err := compiler.Compile(out, src, compiler.WithSourceName(path)); err != nil {
			log.Errorf("%v", err)
			return log.ExitCode()
		}
	}

	return log.ExitCode()
}
