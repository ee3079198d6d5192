// Package apperr defines the closed error taxonomy shared by the domain
// services and the HTTP layer. Every error crossing a service boundary
// carries a Kind; anything without one is treated as Unexpected.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies an error for callers that branch on failure cause.
type Kind uint8

const (
	// Unexpected covers infrastructure and programming errors. It is the
	// kind of any error not produced by this package.
	Unexpected Kind = iota
	// NotFound means the referenced entity does not exist.
	NotFound
	// InvalidArgument means the request itself is malformed or out of range.
	InvalidArgument
	// InsufficientStock means a reservation asked for more units than are on
	// hand.
	InsufficientStock
	// InvalidTransition means the requested status change is not allowed
	// from the order's current state.
	InvalidTransition
	// AlreadyCanceled means a cancel was attempted on a canceled order.
	AlreadyCanceled
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case InsufficientStock:
		return "insufficient_stock"
	case InvalidTransition:
		return "invalid_transition"
	case AlreadyCanceled:
		return "already_canceled"
	default:
		return "unexpected"
	}
}

// Error is a kinded error, optionally wrapping a cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a kinded error with the given message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message. A nil err returns nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, walking the wrap chain. Errors not
// produced by this package (and nil) report Unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
