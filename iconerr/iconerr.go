// Package iconerr provides the ICON client's error-kind vocabulary.
//
// Every failure kind the spec names (InvalidArgument, FailedPrecondition,
// NotFound, AlreadyExists, DeadlineExceeded, Aborted, Internal, Unknown,
// Unimplemented) is already a [codes.Code], so this package is a thin set of
// constructors and predicates over [google.golang.org/grpc/status], rather
// than a bespoke error type. Diagnostics embed offending values to full
// precision, per the spec's requirement that validation errors include the
// numeric values that failed.
package iconerr

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// New builds an error of the given kind with a formatted message.
func New(code codes.Code, format string, args ...any) error {
	return status.Newf(code, format, args...).Err()
}

// Is reports whether err carries the given status code, unwrapping through
// wrapped errors the way [errors.Is] does for sentinel errors.
func Is(err error, code codes.Code) bool {
	if err == nil {
		return false
	}
	return status.Code(err) == code
}

// Code returns the status code carried by err, or [codes.Unknown] if err
// does not carry one.
func Code(err error) codes.Code {
	return status.Code(err)
}

// InvalidArgument builds an invalid-argument error.
func InvalidArgument(format string, args ...any) error {
	return New(codes.InvalidArgument, format, args...)
}

// FailedPrecondition builds a failed-precondition error.
func FailedPrecondition(format string, args ...any) error {
	return New(codes.FailedPrecondition, format, args...)
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) error {
	return New(codes.NotFound, format, args...)
}

// AlreadyExists builds an already-exists error.
func AlreadyExists(format string, args ...any) error {
	return New(codes.AlreadyExists, format, args...)
}

// DeadlineExceeded builds a deadline-exceeded error.
func DeadlineExceeded(format string, args ...any) error {
	return New(codes.DeadlineExceeded, format, args...)
}

// Aborted builds an aborted error, used for transport failures and upstream
// ABORTED statuses that end a [session.Session] as a side effect.
func Aborted(format string, args ...any) error {
	return New(codes.Aborted, format, args...)
}

// Internal builds an internal error, used for protocol deviations such as an
// unexpected response kind on the action stream.
func Internal(format string, args ...any) error {
	return New(codes.Internal, format, args...)
}

// Unwrap mirrors [errors.Unwrap]; kept here so callers need only import this
// package when composing iconerr-flavored wrapped errors.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
