package template

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax matches (errors.Is) every template authoring error found
	// at compile time.
	ErrSyntax = errors.New("template syntax error")
	// ErrInternal matches defects in the engine itself, never bad input.
	ErrInternal = errors.New("internal template engine error")
)

// Positioned is implemented by errors that point at a byte offset in a
// template source.
type Positioned interface {
	error
	Pos() int
}

// UnclosedTagError reports an opening delimiter with no closing delimiter.
type UnclosedTagError struct {
	Offset int
	Delim  byte
}

func (e *UnclosedTagError) Error() string {
	return fmt.Sprintf("unclosed tag at offset %d: missing closing %q", e.Offset, string(e.Delim))
}

func (e *UnclosedTagError) Pos() int             { return e.Offset }
func (e *UnclosedTagError) Is(target error) bool { return target == ErrSyntax }

// MissingEndTagError reports a for/if block whose terminator never came.
type MissingEndTagError struct {
	Kind     Kind
	Offset   int
	Expected string
}

func (e *MissingEndTagError) Error() string {
	return fmt.Sprintf("%s block opened at offset %d is never closed: expected %q", e.Kind, e.Offset, e.Expected)
}

func (e *MissingEndTagError) Pos() int             { return e.Offset }
func (e *MissingEndTagError) Is(target error) bool { return target == ErrSyntax }

// UnexpectedEndTagError reports a terminator with no open block.
type UnexpectedEndTagError struct {
	Offset  int
	Keyword string
}

func (e *UnexpectedEndTagError) Error() string {
	return fmt.Sprintf("unexpected %q at offset %d: no open block to close", e.Keyword, e.Offset)
}

func (e *UnexpectedEndTagError) Pos() int             { return e.Offset }
func (e *UnexpectedEndTagError) Is(target error) bool { return target == ErrSyntax }

// EvalError reports an expression that failed during execution.
type EvalError struct {
	// Template is the name of the template being executed, if it has one.
	Template string
	Expr     string
	Offset   int
	Err      error
}

func (e *EvalError) Error() string {
	msg := fmt.Sprintf("evaluating %q at offset %d: %v", e.Expr, e.Offset, e.Err)
	if e.Template != "" {
		return e.Template + ": " + msg
	}
	return msg
}

func (e *EvalError) Pos() int      { return e.Offset }
func (e *EvalError) Unwrap() error { return e.Err }

// InternalError is a structural invariant violation inside the engine.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string          { return "internal error: " + e.Msg }
func (e *InternalError) Is(target error) bool   { return target == ErrInternal }
func internalf(format string, args ...any) error { return &InternalError{Msg: fmt.Sprintf(format, args...)} }
