package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an AppError independently of its transport status.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindAuth        ErrorKind = "auth"
	KindForbidden   ErrorKind = "forbidden"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindEntitlement ErrorKind = "entitlement"
	KindDependency  ErrorKind = "dependency"
	KindSignature   ErrorKind = "signature"
	KindInternal    ErrorKind = "internal"
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Code    int       `json:"code"`
	Message string    `json:"error"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors.

func ErrBadRequest(msg string) *AppError {
	return &AppError{Kind: KindValidation, Code: http.StatusBadRequest, Message: msg}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Code: http.StatusUnprocessableEntity, Message: msg}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Kind: KindAuth, Code: http.StatusUnauthorized, Message: msg}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Code: http.StatusForbidden, Message: msg}
}

func ErrNotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Code: http.StatusNotFound, Message: msg}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Code: http.StatusConflict, Message: msg}
}

// ErrNoEntitlement is returned when a user has no unprovisioned keys left.
func ErrNoEntitlement(msg string) *AppError {
	return &AppError{Kind: KindEntitlement, Code: http.StatusForbidden, Message: msg}
}

func ErrDependency(msg string, err error) *AppError {
	return &AppError{Kind: KindDependency, Code: http.StatusBadGateway, Message: msg, Err: err}
}

func ErrSignature(msg string, err error) *AppError {
	return &AppError{Kind: KindSignature, Code: http.StatusBadRequest, Message: msg, Err: err}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: http.StatusInternalServerError, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
