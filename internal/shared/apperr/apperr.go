package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure into one of the stable error categories exposed
// to API callers and used by the job queue to decide on retries.
type Kind string

const (
	KindNotFound    Kind = "not_found"   // referenced document or file absent
	KindValidation  Kind = "validation"  // malformed request
	KindRecoverable Kind = "recoverable" // transient processing failure, retryable
	KindFatal       Kind = "fatal"       // processing failure that retrying cannot fix
	KindStorage     Kind = "storage"     // database or filesystem operation failure
)

// Error carries a kind alongside the message so handlers can map failures to
// stable response codes instead of free-text matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Recoverable(msg string, err error) *Error {
	return &Error{Kind: KindRecoverable, Msg: msg, Err: err}
}

func Fatal(msg string, err error) *Error {
	return &Error{Kind: KindFatal, Msg: msg, Err: err}
}

func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// treated as storage failures.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// HTTPStatus maps an error kind to the status code returned to callers.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
