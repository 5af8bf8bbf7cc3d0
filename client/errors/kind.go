package errors

import (
	"errors"
	"fmt"
)

const (
	// Fatal aborts the workflow, is printed to the user and makes the process exit non-zero
	Fatal Kind = 1

	// Recoverable is a single failed fallback link. The next alternative is attempted
	Recoverable Kind = 2

	// BestEffort is logged and dropped, the workflow continues
	BestEffort Kind = 3
)

// Kind classifies how a workflow failure is handled
type Kind int32

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	case Recoverable:
		return "recoverable"
	case BestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// Error is a classified installer error
type Error struct {
	ErrorKind Kind
	Message   string
	Err       error
}

// Kind returns the Kind of the error
func (e *Error) Kind() Kind {
	return e.ErrorKind
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatalf returns a Fatal error with the formatted message
func Fatalf(format string, a ...interface{}) error {
	return &Error{ErrorKind: Fatal, Message: fmt.Sprintf(format, a...)}
}

// NewFatal wraps err as a Fatal error
func NewFatal(msg string, err error) error {
	return &Error{ErrorKind: Fatal, Message: msg, Err: err}
}

// Recoverablef returns a Recoverable error with the formatted message
func Recoverablef(format string, a ...interface{}) error {
	return &Error{ErrorKind: Recoverable, Message: fmt.Sprintf(format, a...)}
}

// KindOf returns the Kind of the first classified error in the chain.
// Unclassified errors are Fatal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.ErrorKind
	}
	return Fatal
}

// IsFatal reports whether err aborts the workflow
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == Fatal
}
