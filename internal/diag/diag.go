// Package diag is a small leveled diagnostic sink for the command-line
// wrapper. It is adapted from a general-purpose wrap-able logger, stripped
// down to what a one-shot batch compile needs: print fatal errors, and
// report a process exit code. The compiler core itself never calls this --
// core entry points return plain errors; only the CLI is fatal.
package diag

import (
	"fmt"
	"io"
)

// Logger prints leveled diagnostics to an output stream and tracks whether
// any error-level message has been printed, for ExitCode.
type Logger struct {
	Output   io.Writer
	exitCode int
}

// Errorf prints a "error: "-prefixed message and marks ExitCode non-zero.
func (l *Logger) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(l.Output, "error: %s\n", fmt.Sprintf(format, args...))
	l.exitCode = 1
}

// ExitCode returns the code the CLI should pass to os.Exit.
func (l *Logger) ExitCode() int { return l.exitCode }
