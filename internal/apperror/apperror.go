// Package apperror defines the error taxonomy shared by every service and its mapping to HTTP status codes.
package apperror

import (
	"errors"
	"net/http"
)

// Code is the machine readable error code carried in the response envelope.
type Code string

const (
	CodeAuthRequired        Code = "AUTH_REQUIRED"
	CodeTokenInvalid        Code = "TOKEN_INVALID"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeUserExists          Code = "USER_EXISTS"
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeMethodNotAllowed    Code = "METHOD_NOT_ALLOWED"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// InternalMessage is the only message ever returned for unexpected failures.
const InternalMessage = "internal server error"

var statusByCode = map[Code]int{
	CodeAuthRequired:        http.StatusUnauthorized,
	CodeTokenInvalid:        http.StatusUnauthorized,
	CodeForbidden:           http.StatusForbidden,
	CodeNotFound:            http.StatusNotFound,
	CodeBadRequest:          http.StatusBadRequest,
	CodeUserExists:          http.StatusConflict,
	CodeInvalidCredentials:  http.StatusUnauthorized,
	CodeUserNotFound:        http.StatusNotFound,
	CodeUpstreamUnavailable: http.StatusBadGateway,
	CodeRateLimited:         http.StatusTooManyRequests,
	CodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	CodeInternal:            http.StatusInternalServerError,
}

// Status returns the HTTP status code for the given error code.
func (c Code) Status() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// Error is a domain error that is safe to present to a caller.
// Err holds the underlying cause, which is logged but never rendered.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}

	return string(e.Code) + ": " + e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func AuthRequired(message string) *Error { return New(CodeAuthRequired, message) }
func Forbidden(message string) *Error    { return New(CodeForbidden, message) }
func BadRequest(message string) *Error   { return New(CodeBadRequest, message) }
