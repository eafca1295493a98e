// Package apperr defines the error taxonomy shared across the meeting
// intelligence core. Components classify failures with these sentinel
// kinds so callers can branch with errors.Is/As without coupling to
// any one collaborator's error types.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy buckets.
type Kind string

const (
	PermissionDenied Kind = "PERMISSION_DENIED"
	NotFound         Kind = "NOT_FOUND"
	InvalidInput     Kind = "INVALID_INPUT"
	Conflict         Kind = "CONFLICT"
	QuotaExhausted   Kind = "QUOTA_EXHAUSTED"
	ExternalFailure  Kind = "EXTERNAL_FAILURE"
	InternalError    Kind = "INTERNAL_ERROR"
)

// Error wraps an underlying cause with a taxonomy kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, apperr.ErrQuotaExhausted) to work by comparing
// against a sentinel constructed with the matching kind and no message.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// sentinel returns a zero-message Error of the given kind, used as the
// errors.Is comparison target.
func sentinel(k Kind) *Error { return &Error{Kind: k} }

var (
	ErrPermissionDenied = sentinel(PermissionDenied)
	ErrNotFound         = sentinel(NotFound)
	ErrInvalidInput     = sentinel(InvalidInput)
	ErrConflict         = sentinel(Conflict)
	ErrQuotaExhausted   = sentinel(QuotaExhausted)
	ErrExternalFailure  = sentinel(ExternalFailure)
	ErrInternalError    = sentinel(InternalError)
)

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error. Returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
