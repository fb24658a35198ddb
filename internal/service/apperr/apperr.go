// Package apperr defines the failure kinds the order workflow reports.
// Callers match kinds with errors.Is against the sentinel values; the HTTP
// layer maps each kind to a status code in one place.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrStorage        = errors.New("storage error")
)

// Error carries a kind, a client-safe message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidRequest reports input rejected before anything is written.
func InvalidRequest(msg string) error {
	return &Error{Kind: ErrInvalidRequest, Message: msg}
}

// NotFound reports a missing order or user.
func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Forbidden reports an authenticated caller without access to the resource.
func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// Unauthorized reports a request without a valid identity.
func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// Storage wraps a database failure. Errors that already carry a kind are
// returned unchanged so a NotFound raised inside a transaction stays NotFound.
func Storage(msg string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	return &Error{Kind: ErrStorage, Message: msg, Err: err}
}

// Message returns the client-safe message of err, or fallback when err
// carries no kind.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != ErrStorage {
		return appErr.Message
	}

	return fallback
}
