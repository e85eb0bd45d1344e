// Package apperr implements the error taxonomy from §7 of the ledger spec:
// a small, closed set of operational fault kinds with stable codes and HTTP
// status mappings, plus a boundary that treats anything outside the set as
// an internal fault.
package apperr

import "net/http"

// Kind is one of the five operational fault kinds the core recognizes, or
// one of the two boundary kinds CONSTRAINT_VIOLATION and INTERNAL_ERROR.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindInsufficientFunds  Kind = "INSUFFICIENT_FUNDS"
	KindRateLimited        Kind = "RATE_LIMIT_EXCEEDED"
	KindConstraintViolated Kind = "CONSTRAINT_VIOLATION"
	KindInternal           Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	KindValidation:         http.StatusUnprocessableEntity,
	KindNotFound:           http.StatusNotFound,
	KindConflict:           http.StatusConflict,
	KindInsufficientFunds:  http.StatusUnprocessableEntity,
	KindRateLimited:        http.StatusTooManyRequests,
	KindConstraintViolated: http.StatusUnprocessableEntity,
	KindInternal:           http.StatusInternalServerError,
}

// Error is the operational fault type. It is always safe to render Message
// and Details to a client; that is the whole point of classifying it.
type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for this fault's kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Code returns the stable machine-readable code for this fault's kind.
func (e *Error) Code() string { return string(e.Kind) }

func newError(kind Kind, message string, details any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Validation builds a VALIDATION_ERROR fault, optionally carrying per-field
// details.
func Validation(message string, details any) *Error {
	return newError(KindValidation, message, details)
}

// NotFound builds a NOT_FOUND fault for the named resource kind.
func NotFound(resource string) *Error {
	return newError(KindNotFound, resource+" not found", nil)
}

// Conflict builds a CONFLICT fault.
func Conflict(message string) *Error {
	return newError(KindConflict, message, nil)
}

// InsufficientFunds builds an INSUFFICIENT_FUNDS fault carrying the
// available and required amounts, per §7.
func InsufficientFunds(available, required string) *Error {
	return newError(KindInsufficientFunds, "insufficient funds", map[string]string{
		"available": available,
		"required":  required,
	})
}

// RateLimited builds a RATE_LIMIT_EXCEEDED fault.
func RateLimited() *Error {
	return newError(KindRateLimited, "rate limit exceeded", nil)
}

// ConstraintViolation builds a CONSTRAINT_VIOLATION fault, the defense-in-
// depth mapping for a store-level check failure per §7.
func ConstraintViolation(message string) *Error {
	return newError(KindConstraintViolated, message, nil)
}

// Internal wraps a non-operational cause. It should never have its Message
// shown to a client in production; the transport boundary decides that.
func Internal(cause error) *Error {
	e := newError(KindInternal, "internal error", nil)
	e.cause = cause
	return e
}

// As extracts an *Error from err with a plain type assertion. It does not
// unwrap: an *Error wrapped inside another error is not found (callers that
// need unwrapping use errors.As directly).
func As(err error) (*Error, bool) {
	ae, ok := err.(*Error)
	return ae, ok
}
