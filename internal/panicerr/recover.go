// Package panicerr turns a recovered panic into a returned error.
//
// It is adapted from a goroutine-based recoverer: the core compiler never
// spawns goroutines or blocks (a single Emit call is synchronous end to
// end), so Recover here runs f directly in the caller's goroutine rather
// than forwarding the result through a channel.
package panicerr

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Recover runs f, converting any panic it raises into a returned error. Every
// panic value is wrapped together with a stack trace (retrievable via Stack);
// a panic value that is an error stays reachable through Unwrap, so
// errors.Is and errors.As still find it.
func Recover(name string, f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{name: name, value: r, stack: debug.Stack()}
		}
	}()
	f()
	return nil
}

type panicError struct {
	name  string
	value interface{}
	stack []byte
}

func (pe panicError) Error() string {
	if pe.name == "" {
		return fmt.Sprintf("paniced: %v", pe.value)
	}
	return fmt.Sprintf("%s paniced: %v", pe.name, pe.value)
}

func (pe panicError) Unwrap() error {
	err, _ := pe.value.(error)
	return err
}

// IsPanic reports whether err (or something it wraps) came from a recovered panic.
func IsPanic(err error) bool {
	var pe panicError
	return errors.As(err, &pe)
}

// Stack returns the stack trace captured at the point of a recovered panic,
// or "" if err is not one.
func Stack(err error) string {
	var pe panicError
	if errors.As(err, &pe) {
		return string(pe.stack)
	}
	return ""
}
