// Package domainerrors defines coded errors carried across service boundaries.
//
// Services attach a Code when an error crosses out of their package so transport
// layers can map it to a status without inspecting infrastructure details. Stores
// return sentinel errors (pkg/platform/sentinel); services translate those into
// coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for branching and transport mapping.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidRequest     Code = "invalid_request"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeTimeout            Code = "timeout"
	CodeUnauthorized       Code = "unauthorized"
	CodeUnavailable        Code = "unavailable"
	CodeValidation         Code = "validation"
)

// Error is a coded error with an optional wrapped cause. It is a comparable
// value type so two errors built with the same code and message satisfy
// errors.Is, which keeps assertions like
// require.ErrorIs(t, err, dErrors.New(code, msg)) working.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e Error) Unwrap() error { return e.Err }

// New creates a coded error without a cause.
func New(code Code, msg string) error {
	return Error{Code: code, Msg: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to a cause. A nil cause yields a plain coded
// error so call sites don't need to branch.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return New(code, msg)
	}
	return Error{Code: code, Msg: msg, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var de Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// HasCode is Is under a name that reads as a predicate in assertions.
func HasCode(err error, code Code) bool {
	return Is(err, code)
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err is
// not a coded error.
func CodeOf(err error) Code {
	var de Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message carried by err without its cause
// chain, or a generic fallback when err is not a coded error. Transport layers
// use it so wrapped infrastructure errors never leak into response bodies.
func MessageOf(err error) string {
	var de Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return "unexpected error"
}

// ToHTTPStatus maps a code to the HTTP status transport layers should answer with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeInvalidRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
