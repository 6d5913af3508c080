package services

import (
	"errors"
	"net/http"
)

// Kind classifies a service failure for the HTTP layer.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindUnauthenticated
	KindConflict
	KindGateway
)

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failure whose Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func Invalid(msg string) *Error         { return &Error{Kind: KindValidation, Message: msg} }
func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }

// Gateway wraps a payment gateway failure.
func Gateway(msg string, err error) *Error {
	return &Error{Kind: KindGateway, Message: msg, Err: err}
}

// InvalidFields reports field-level validation failures.
func InvalidFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// KindOf returns the Kind of err, or KindUnexpected when err is not an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
