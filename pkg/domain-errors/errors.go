// Package domainerrors provides coded errors for the workflow engine.
//
// Services return these so transport layers can map failures to
// machine-readable kinds without string matching. Import with the alias
// dErrors for consistency across the codebase:
//
//	dErrors "bankops/pkg/domain-errors"
//
// Stores do not use this package; they return pkg/platform/sentinel errors
// and services translate at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure in a transport-agnostic way.
type Code string

const (
	// CodeNotFound: unknown account, harmonization request, or correlation token.
	CodeNotFound Code = "not_found"
	// CodeForbidden: actor role not permitted for the requested transition.
	CodeForbidden Code = "forbidden"
	// CodeUnauthorized means the caller presented no valid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodePreconditionFailed: business invariant unmet, e.g. an unverified
	// account moving to UNSETTLED, or a transition outside the status graph.
	CodePreconditionFailed Code = "precondition_failed"
	// CodeInvalidArgument: missing or malformed input, e.g. an empty
	// rejection reason.
	CodeInvalidArgument Code = "invalid_argument"
	// CodeInvalidOTP: submitted OTP does not match the issued code.
	CodeInvalidOTP Code = "invalid_otp"
	// CodeExpired: OTP validity window has elapsed.
	CodeExpired Code = "expired"
	// CodeConflict: duplicate in-flight request, replay of a terminal
	// transition, or an already-consumed correlation token.
	CodeConflict Code = "conflict"
	// CodeUnavailable: a downstream dependency is temporarily unreachable.
	CodeUnavailable Code = "unavailable"
	// CodeInternal: unexpected failure; details are logged, not returned.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with a human-readable message. The message is safe
// to return to callers except for CodeInternal, which transport layers
// redact.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two domain errors by code and message, so errors.Is works with
// a freshly constructed target.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err carries
// none. Returns an empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message for err. Internal errors yield an
// empty message so transports do not leak details.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeInternal {
		return de.Message
	}
	return ""
}
