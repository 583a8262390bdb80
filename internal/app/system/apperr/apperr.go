// Package apperr defines the error kinds shared by the domain components.
//
// Components return errors built with New so that callers can branch on the
// kind with errors.Is while the error text stays suitable for API clients:
//
//	err := apperr.New(apperr.ErrNotFound, "Not found")
//	errors.Is(err, apperr.ErrNotFound) // true
//	err.Error()                        // "Not found"
package apperr

import "errors"

// Error kinds.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMissingField     = errors.New("missing field")
	ErrInvalidType      = errors.New("invalid type")
	ErrInvalidParent    = errors.New("invalid parent")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Error is a domain error carrying a kind and a client-facing message.
type Error struct {
	kind error
	msg  string
}

// New returns an error of the given kind with a client-facing message.
func New(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.kind }

// Message returns the client-facing message of err if it is a domain error.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.msg, true
	}
	return "", false
}
