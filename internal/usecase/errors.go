package usecase

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrorKind classifies a failure returned at the service boundary.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindLimitExceeded ErrorKind = "limit_exceeded"
	KindForbidden     ErrorKind = "forbidden"
	KindInvalidState  ErrorKind = "invalid_state"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindUnexpected    ErrorKind = "unexpected"
)

// Error is the typed failure every service method returns. Err keeps the
// underlying cause for logs; Message is what the caller may see.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for any not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrLimitExceeded = &Error{Kind: KindLimitExceeded}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrUnexpected    = &Error{Kind: KindUnexpected}
)

// KindOf returns the kind of err, KindUnexpected for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func fieldError(field, msg string) *Error {
	return validationError(map[string]string{field: msg})
}

func notFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// unexpected wraps an infrastructure failure. The cause stays on Err.
func unexpected(op string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: op + " failed", Err: err}
}

// failure passes service errors through untouched and turns anything else
// into an Unexpected error, logging the original cause.
func failure(log *zap.Logger, op string, err error, fields ...zap.Field) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	log.Error("Failed to "+op, append(fields, zap.Error(err))...)
	return unexpected(op, err)
}
