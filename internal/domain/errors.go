package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency. Every error returned
// by the ledger matches exactly one of these kinds via errors.Is.

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConflict            = errors.New("conflict")
	ErrLedgerConfiguration = errors.New("ledger misconfigured")
	ErrExternalService     = errors.New("external service failure")

	// ErrForbidden is raised by the boundary when a role may not request a transition.
	ErrForbidden = errors.New("forbidden")
)

// Error carries an error kind plus the operation that failed.
type Error struct {
	Kind error  // one of the sentinels above
	Op   string // e.g. "post transaction"
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Msg
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

// Is matches the error kind, so errors.Is(err, ErrConflict) works through wrapping.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a typed domain error.
func Errorf(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the sentinel kind of err, or nil for errors outside the taxonomy.
func KindOf(err error) error {
	for _, k := range []error{
		ErrValidation, ErrNotFound, ErrInvalidTransition, ErrConflict,
		ErrLedgerConfiguration, ErrExternalService, ErrForbidden,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
