// Package rtstatus provides allocation-free status and result types for
// code paths that run on the server's real-time control thread, where the
// client library must not trigger a heap allocation (the status-carrying
// types the rest of this module returns, built on
// [google.golang.org/grpc/status], do allocate, and must not be called from
// a watcher callback's hot path).
//
// Status stores its message in a fixed-size byte array rather than a Go
// string built by concatenation, mirroring the fixed-capacity buffer the
// original's RealtimeStatus::StrCat builds into.
package rtstatus

import (
	"strconv"

	"google.golang.org/grpc/codes"
)

// MaxMessageLength bounds a Status message; longer messages are truncated
// rather than triggering a reallocation.
const MaxMessageLength = 256

// Status is a fixed-capacity, allocation-free analog of a gRPC status,
// suitable for use on a real-time thread. The zero value is OK.
type Status struct {
	code    codes.Code
	msgLen  int
	msgData [MaxMessageLength]byte
}

// OK is the zero-value, success Status.
var OK = Status{}

// New builds a Status with the given code and message, truncating message
// to MaxMessageLength bytes.
func New(code codes.Code, message string) Status {
	var s Status
	s.code = code
	n := copy(s.msgData[:], message)
	s.msgLen = n
	return s
}

// code-specific constructors, mirroring the original's
// Xxx...Error(StrCat(...)) helper free functions.

// FailedPrecondition builds a FailedPrecondition Status.
func FailedPrecondition(message string) Status { return New(codes.FailedPrecondition, message) }

// InvalidArgument builds an InvalidArgument Status.
func InvalidArgument(message string) Status { return New(codes.InvalidArgument, message) }

// Aborted builds an Aborted Status.
func Aborted(message string) Status { return New(codes.Aborted, message) }

// Internal builds an Internal Status.
func Internal(message string) Status { return New(codes.Internal, message) }

// Unavailable builds an Unavailable Status.
func Unavailable(message string) Status { return New(codes.Unavailable, message) }

// Ok reports whether s represents success.
func (s Status) Ok() bool { return s.code == codes.OK }

// Code returns s's status code.
func (s Status) Code() codes.Code { return s.code }

// Message returns s's message, truncated to MaxMessageLength if it was
// built from a longer string.
func (s Status) Message() string {
	return string(s.msgData[:s.msgLen])
}

// Concat appends message to s's existing message, within the fixed
// capacity, and returns the combined Status — the rtstatus analog of the
// original's RealtimeStatus::StrCat, which assembles a diagnostic message
// from parts without a heap allocation per part.
func (s Status) Concat(parts ...string) Status {
	out := s
	for _, p := range parts {
		if out.msgLen >= MaxMessageLength {
			break
		}
		n := copy(out.msgData[out.msgLen:], p)
		out.msgLen += n
	}
	return out
}

// AppendFloat appends the decimal representation of v to s's message, within
// the fixed capacity, and returns the combined Status. v is formatted into a
// stack-allocated buffer via strconv.AppendFloat and copied directly into
// s's fixed byte array, so building a diagnostic message with an embedded
// float never triggers a heap allocation.
func (s Status) AppendFloat(v float64) Status {
	out := s
	if out.msgLen >= MaxMessageLength {
		return out
	}
	var buf [32]byte
	formatted := strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
	n := copy(out.msgData[out.msgLen:], formatted)
	out.msgLen += n
	return out
}

// AppendInt appends the decimal representation of v to s's message, the
// integer analog of [Status.AppendFloat].
func (s Status) AppendInt(v int64) Status {
	out := s
	if out.msgLen >= MaxMessageLength {
		return out
	}
	var buf [20]byte
	formatted := strconv.AppendInt(buf[:0], v, 10)
	n := copy(out.msgData[out.msgLen:], formatted)
	out.msgLen += n
	return out
}

// Result is an allocation-free analog of (value, error): either a usable
// value of type T or a Status explaining why it is absent. T must itself be
// realtime-safe (no pointers into heap-managed state acquired after
// construction) for Result[T] to be realtime-safe as a whole.
type Result[T any] struct {
	status Status
	value  T
}

// Ok builds a successful Result wrapping value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err builds a failed Result carrying status, which must not itself be Ok.
func Err[T any](status Status) Result[T] {
	return Result[T]{status: status}
}

// IsOk reports whether r holds a usable value.
func (r Result[T]) IsOk() bool { return r.status.Ok() }

// Status returns r's status; OK if r holds a value.
func (r Result[T]) Status() Status { return r.status }

// Value returns r's value and whether it was present. Unlike the original's
// CHECK-failing accessor, this never panics: callers that ignore the second
// return value get T's zero value on failure, which fits Go's
// value-plus-error idiom better than a fatal assertion would.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.IsOk()
}
