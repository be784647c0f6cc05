package fest

import (
	"errors"
	"fmt"

	"github.com/incridea-nmamit/incridea-server/internal/store"
)

// Kind is the stable machine-readable category of a failure.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvariantViolation Kind = "INVARIANT_VIOLATION"
	KindConflictOnWrite    Kind = "CONFLICT_ON_WRITE"
	KindInternal           Kind = "INTERNAL"
)

// Error is returned by every service operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func unauthenticated() *Error { return newErr(KindUnauthenticated, "Not authenticated") }

func forbidden(format string, args ...any) *Error {
	return newErr(KindForbidden, format, args...)
}

func notFound(format string, args ...any) *Error { return newErr(KindNotFound, format, args...) }

func invariant(format string, args ...any) *Error {
	return newErr(KindInvariantViolation, format, args...)
}

// Sentinels for errors.Is checks by kind.
var (
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
	ErrConflictOnWrite    = &Error{Kind: KindConflictOnWrite}
)

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// translate turns store failures into categorical errors. what names the
// entity for not-found messages ("Team", "Event", ...).
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: what + " not found", Cause: err}
	case errors.Is(err, store.ErrConflict):
		return &Error{Kind: KindConflictOnWrite, Message: "Concurrent update, try again", Cause: err}
	}
	return &Error{Kind: KindInternal, Message: "Something went wrong", Cause: err}
}
