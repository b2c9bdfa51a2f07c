package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match with errors.Is(err, domain.ErrNotFound).
var (
	ErrNotFound        = errors.New("not found")
	ErrAuthorization   = errors.New("not authorized")
	ErrInvalidState    = errors.New("invalid state")
	ErrPrecondition    = errors.New("precondition failed")
	ErrExternalService = errors.New("external service failed")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error carries a kind, the failing operation and a caller-facing message.
// Err is the underlying cause and is never rendered to API callers.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return newError(ErrNotFound, op, format, args...)
}

func Unauthorized(op, format string, args ...any) *Error {
	return newError(ErrAuthorization, op, format, args...)
}

func InvalidState(op, format string, args ...any) *Error {
	return newError(ErrInvalidState, op, format, args...)
}

func Precondition(op, format string, args ...any) *Error {
	return newError(ErrPrecondition, op, format, args...)
}

func InvalidArgument(op, format string, args ...any) *Error {
	return newError(ErrInvalidArgument, op, format, args...)
}

// ExternalService wraps a collaborator failure (transfer, payment)
func ExternalService(op string, cause error, format string, args ...any) *Error {
	e := newError(ErrExternalService, op, format, args...)
	e.Err = cause
	return e
}

// PublicMessage is the text safe to show API callers
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		if de.Message != "" {
			return de.Message
		}
		return de.Kind.Error()
	}
	return "internal error"
}
