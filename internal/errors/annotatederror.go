// Package errors extends the standard library errors with slog annotations and source locations.
//
// Errors created with [New] or [Wrap] remember where they were created. [SlogError] renders the whole chain as a
// single slog group so that a log line shows the message, the innermost source location and every annotation.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Re-exported so that callers only need to import this package.
var (
	Is     = stderrors.Is
	As     = stderrors.As
	Unwrap = stderrors.Unwrap
	Join   = stderrors.Join
)

type annotatedError struct {
	err   error
	msg   string
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

func (e *annotatedError) source() string {
	if e.pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{e.pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

// callerPC returns the program counter of the function calling into this package.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	// runtime.Callers, callerPC and the exported constructor.
	if runtime.Callers(skip+3, pcs[:]) == 0 { //nolint:mnd // see above
		return 0
	}
	return pcs[0]
}

// NewSentinel creates an error without source location meant to be declared as a package level variable.
func NewSentinel(msg string) error {
	return stderrors.New(msg)
}

// New creates an error annotated with the caller's source location and the given attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{err: nil, msg: msg, attrs: attrs, pc: callerPC(0)}
}

// Wrap annotates err with a message, the caller's source location and the given attributes.
//
// Wrap returns nil if err is nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{err: err, msg: msg, attrs: attrs, pc: callerPC(0)}
}

// DecoratePanic converts a recovered panic value into an error pointing at the panicking line.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var msg string
	switch v := excp.(type) {
	case error:
		msg = "panic: " + v.Error()
	default:
		msg = fmt.Sprintf("panic: %v", v)
	}

	const maxDepth = 64
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var (
		pc           uintptr
		afterPanicFn bool
	)
	for {
		frame, more := frames.Next()
		if afterPanicFn && !strings.HasPrefix(frame.Function, "runtime.") {
			pc = frame.PC
			break
		}
		if frame.Function == "runtime.gopanic" {
			afterPanicFn = true
		}
		if !more {
			break
		}
	}

	err := &annotatedError{err: nil, msg: msg, attrs: nil, pc: pc}
	if cause, ok := excp.(error); ok {
		err.msg = "panic"
		err.err = cause
	}
	return err
}

// SlogError returns the error as a slog group attribute named "error".
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	var (
		annotations []any
		source      string
	)
	walk(err, func(ae *annotatedError) {
		for _, a := range ae.attrs {
			annotations = append(annotations, a)
		}
		if s := ae.source(); s != "" {
			// The innermost location wins since it is closest to the root cause.
			source = s
		}
	})

	attrs := []any{slog.String("message", err.Error())}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotated error in the tree rooted at err, outermost first.
func walk(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // we walk the chain manually.
		visit(ae)
	}
	switch u := err.(type) { //nolint:errorlint // we walk the chain manually.
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			walk(e, visit)
		}
	}
}
