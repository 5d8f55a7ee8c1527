// Package merr provides structured errors with stable machine-readable codes.
//
// Every error carries a code, a human message, optional context key/value
// pairs, an optional wrapped cause, and a stack trace captured at creation.
// Codes are stable across releases so tooling can match on them.
package merr

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Error codes, grouped by subsystem.
const (
	// Operation and diff errors (E1xxx).
	ErrInvalidOperation = "E1001"
	ErrCyclicDependency = "E1002"
	ErrIrreversible     = "E1003"

	// Chain and history errors (E2xxx).
	ErrInconsistentHistory = "E2001"
	ErrConcurrentChain     = "E2002"

	// Target resolution errors (E3xxx).
	ErrUnknownTarget   = "E3001"
	ErrAmbiguousTarget = "E3002"

	// Database errors (E4xxx).
	ErrBackend     = "E4001"
	ErrConnection  = "E4002"
	ErrTransaction = "E4003"

	// Migration file errors (E5xxx).
	ErrMigrationInvalid  = "E5001"
	ErrMigrationNotFound = "E5002"

	// Internal errors (E9xxx).
	ErrInternal = "E9001"
)

// Error is a structured error with a code, message, and context.
type Error struct {
	Code    string
	Message string
	Context map[string]any
	Cause   error
	Stack   []uintptr
}

// New creates an error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		Stack:   captureStack(3),
	}
}

// Newf creates an error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]any),
		Stack:   captureStack(3),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		Cause:   err,
		Stack:   captureStack(3),
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]any),
		Cause:   err,
		Stack:   captureStack(3),
	}
}

// Error renders the code, message, and sorted context lines.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Code)
	b.WriteString("] ")
	b.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %v", k, e.Context[k]))
		}
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", e.Cause))
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// With adds a context key/value pair and returns the error.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithModel records the model (table) the error relates to.
func (e *Error) WithModel(name string) *Error {
	return e.With("model", name)
}

// WithField records the field (column) the error relates to.
func (e *Error) WithField(name string) *Error {
	return e.With("field", name)
}

// WithMigration records the migration the error occurred in.
func (e *Error) WithMigration(name string) *Error {
	return e.With("migration", name)
}

// WithSQL records the statement that failed.
func (e *Error) WithSQL(sql string) *Error {
	return e.With("sql", sql)
}

// WithHelp adds a hint for resolving the error.
func (e *Error) WithHelp(help string) *Error {
	return e.With("help", help)
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code string) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Cause
		if err == nil {
			return false
		}
	}
	return false
}

// Code returns the code of the outermost structured error, or "" if
// err is not a *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func captureStack(skip int) []uintptr {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	return pcs[:n]
}

// StackTrace formats the captured stack, one frame per line.
func (e *Error) StackTrace() string {
	if len(e.Stack) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}
