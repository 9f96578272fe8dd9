// Package apperr classifies errors into the handful of kinds the HTTP
// surface maps to status codes, so a handler never has to know whether
// a given error came from the instance manager, the job store, or the
// runtime client — only what Kind it reports.
package apperr

import "errors"

// Kind is one of the error categories §7 maps to an HTTP status.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindCapacity
	KindDuplicate
	KindNotFound
	KindRuntimeTransient
)

// Error wraps an underlying error with a Kind and the operation it
// occurred in, the shape every component in this repository returns
// instead of a bare error.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as an *Error of the given kind, tagged with op.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validation, Capacity, Duplicate, and NotFound are the constructors
// handlers and the instance manager use directly; RuntimeTransient
// errors are built with New by the instance manager and the handlers
// when a runtime call fails.
func Validation(op string, err error) *Error { return New(op, KindValidation, err) }
func Capacity(op string, err error) *Error   { return New(op, KindCapacity, err) }
func Duplicate(op string, err error) *Error  { return New(op, KindDuplicate, err) }
func NotFound(op string, err error) *Error   { return New(op, KindNotFound, err) }

// KindOf walks err's Unwrap chain looking for an *Error and returns its
// Kind, or KindUnknown if none is found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
