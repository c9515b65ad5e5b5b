// Package apperr defines the error taxonomy shared by the service layer and the
// HTTP handlers. Every rejected operation surfaces as a single *Error whose
// Kind can be tested with errors.Is against the sentinel values below.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Handlers switch on these with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict invariant")
	ErrStore             = errors.New("store error")
)

// Error carries the kind of failure plus enough identity (operation, actor and
// resource) to render both a human message and a machine code.
type Error struct {
	Kind       error
	Op         string
	ActorID    int64
	Resource   string
	ResourceID string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Resource != "" {
		msg = fmt.Sprintf("%s: %s %s", msg, e.Resource, e.ResourceID)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool { return e.Kind == target }

// Unwrap exposes the underlying store error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Code returns the stable machine-readable code for the error kind.
func (e *Error) Code() string { return codeOf(e.Kind) }

func codeOf(kind error) string {
	switch kind {
	case ErrNotFound:
		return "not_found"
	case ErrForbidden:
		return "forbidden"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrValidation:
		return "validation_error"
	case ErrConflict:
		return "conflict_invariant"
	default:
		return "store_error"
	}
}

// NotFound builds a not-found error for the given resource identity.
func NotFound(op, resource string, id any) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Resource: resource, ResourceID: fmt.Sprint(id), Message: "resource not found"}
}

// Forbidden builds an authorization denial. The message is always the same so
// the failed rule never leaks to the caller.
func Forbidden(op string, actorID int64, resource string, id any) *Error {
	return &Error{Kind: ErrForbidden, Op: op, ActorID: actorID, Resource: resource, ResourceID: fmt.Sprint(id), Message: "not authorized"}
}

// InvalidTransition builds the error returned when a booking update would
// change the kind of its event in place.
func InvalidTransition(op string, bookingID int64, message string) *Error {
	return &Error{Kind: ErrInvalidTransition, Op: op, Resource: "booking", ResourceID: fmt.Sprint(bookingID), Message: message}
}

// Validation builds a payload-level error.
func Validation(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Conflict builds an invariant violation such as removing the last club responsible.
func Conflict(op, resource string, id any, message string) *Error {
	return &Error{Kind: ErrConflict, Op: op, Resource: resource, ResourceID: fmt.Sprint(id), Message: message}
}

// FromStore translates a repository error. sql.ErrNoRows becomes NotFound,
// *Error values pass through untouched, everything else is wrapped as a store
// failure.
func FromStore(op, resource string, id any, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound(op, resource, id)
	}
	return &Error{Kind: ErrStore, Op: op, Resource: resource, ResourceID: fmt.Sprint(id), Message: "store failure", Err: err}
}

// WithOp returns err with its operation set when it is an *Error lacking one.
func WithOp(op string, err error) error {
	var ae *Error
	if errors.As(err, &ae) && ae.Op == "" {
		cp := *ae
		cp.Op = op
		return &cp
	}
	return err
}

// Code returns the machine code of err, or store_error for foreign errors.
func Code(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code()
	}
	return "store_error"
}

// HTTPStatus maps an error to the status code the request layer responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
