// Package srcbuf reads a source file into the single contiguous,
// NUL-terminated byte buffer the core compiler's entry points expect. It is
// adapted from a sequential multi-file, rune-at-a-time input reader; this
// compiler only ever has one source buffer and only ever inspects it
// byte-wise, so the multi-file queue and rune/line position tracking are
// dropped in favor of a single read and a single trailing NUL.
package srcbuf

import "io"

// Read consumes all of r and returns its bytes with a single trailing zero
// byte appended.
func Read(r io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return append(buf, 0), nil
}
