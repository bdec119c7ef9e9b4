package compiler

import "io"

// Tokenize scans src in full and returns every token, ending with exactly
// one KindEOF. It is one of the core's three entry points; callers that
// only need lexical output (e.g. a debug dumper) can use it without paying
// for parsing or code generation.
func Tokenize(src []byte) ([]Token, error) {
	sc := NewScanner(src)
	var toks []Token
	for {
		t, err := sc.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, t)
		if t.Kind == KindEOF {
			return toks, nil
		}
	}
}

// Option configures a Compile call.
type Option interface{ apply(*options) }

type options struct {
	sourceName string
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// WithSourceName attaches a name (typically the input file's path) to
// errors produced by Compile; it has no effect on the emitted assembly.
func WithSourceName(name string) Option {
	return optionFunc(func(o *options) { o.sourceName = name })
}

// Compile chains Parse and Emit: it parses src and writes the resulting
// assembly text to w. It is a convenience over the core's Parse and Emit
// entry points for the common case of a full build.
func Compile(w io.Writer, src []byte, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt.apply(&o)
	}

	prog, err := Parse(src)
	if err != nil {
		return wrapSourceName(o.sourceName, err)
	}
	if err := Emit(w, prog); err != nil {
		return wrapSourceName(o.sourceName, err)
	}
	return nil
}

func wrapSourceName(name string, err error) error {
	if name == "" || err == nil {
		return err
	}
	return &namedError{name: name, err: err}
}

type namedError struct {
	name string
	err  error
}

func (e *namedError) Error() string { return e.name + ": " + e.err.Error() }
func (e *namedError) Unwrap() error { return e.err }
