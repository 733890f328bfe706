package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dangdungcntt/go-rythm/internal/dialect"
)

var (
	// ErrStop is returned by a matcher to end parsing cleanly.
	ErrStop = errors.New("parsing stopped")
	// ErrOutOfRange is returned by Pop at end of input.
	ErrOutOfRange = errors.New("no input remaining")
)

// ErrorKind classifies fatal parse errors.
type ErrorKind int

const (
	// Structural covers malformed syntax and invalid directive arguments.
	Structural ErrorKind = iota
	// Resolution covers tags that exist but cannot be loaded.
	Resolution
	// Forbidden is a dialect rejection no candidate dialect recovers from.
	Forbidden
)

// Error is a fatal parse error attributed to one source line.
type Error struct {
	Kind     ErrorKind
	Template string
	Line     int
	Dialect  string
	Message  string
	Hint     string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%d] %s", e.Template, e.Line, e.Message)
	if e.Dialect != "" {
		fmt.Fprintf(&b, " (dialect: %s)", e.Dialect)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithHint attaches a hint telling the user how to fix the problem.
func (e *Error) WithHint(format string, args ...any) *Error {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// Rejection reports a construct the active dialect forbids. The parse loop
// recovers from it by restarting under another dialect.
type Rejection struct {
	Feature  dialect.Feature
	Template string
	Line     int
	Dialect  string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("[%s:%d] %s not allowed in current dialect[%s]", r.Template, r.Line, r.Feature, r.Dialect)
}
