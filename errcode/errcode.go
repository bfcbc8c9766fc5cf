/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

// Package errcode defines the flat numeric error-code table shared by every
// channeler component, plus the Error type that pairs a code with a message
// and an optional wrapped cause.
//
// Codes below 1000 are reserved by channeler itself; callers embedding
// channeler in a larger protocol are free to mint their own codes at 1000
// and above without colliding with future revisions of this package.
package errcode

import "fmt"

// Code is a numeric error classification surfaced to callers of the public
// API. It is intentionally small and flat rather than a Go error tree: the
// wire-level failure modes in this protocol are few and callers need to
// switch on them cheaply.
type Code uint32

const (
	SUCCESS Code = iota
	UNEXPECTED
	INSUFFICIENT_BUFFER_SIZE
	DECODE
	ENCODE
	INVALID_CHANNELID
	INVALID_REFERENCE
	INVALID_PIPE_EVENT
	INVALID_MESSAGE_TYPE
	WRITE
	STATE
)

// FirstUserCode is the first code value reserved for callers, per spec.
const FirstUserCode Code = 1000

var names = map[Code]string{
	SUCCESS:                  "success",
	UNEXPECTED:               "unexpected error",
	INSUFFICIENT_BUFFER_SIZE: "insufficient buffer size",
	DECODE:                   "decode error",
	ENCODE:                   "encode error",
	INVALID_CHANNELID:        "invalid channel id",
	INVALID_REFERENCE:        "invalid reference",
	INVALID_PIPE_EVENT:       "invalid pipe event",
	INVALID_MESSAGE_TYPE:     "invalid message type",
	WRITE:                    "write error",
	STATE:                    "invalid state",
}

// String implements fmt.Stringer, falling back to a numeric label for
// caller-defined codes that this package knows nothing about.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", uint32(c))
}

// Error is the concrete error type returned across the channeler API. It
// always carries a Code so callers can branch on failure kind, a
// human-readable Message (per spec §7, "every outward-facing error code
// also carries a human-readable message string"), and optionally wraps an
// underlying cause for diagnostics.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, errcode.New(DECODE, "")) match on Code alone,
// ignoring Message and Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New builds an *Error with no wrapped cause.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around an existing error, preserving it for
// Unwrap/errors.As while attaching a Code and message.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}
