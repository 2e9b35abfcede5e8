// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package apperr defines the typed error taxonomy shared by every layer of
// the synchronization engine, so that the API surface can translate any
// internal failure into a stable HTTP status and error code without
// string-matching error messages.
package apperr

import "fmt"

// Code identifies the category of a domain error.
type Code int

// The error taxonomy. Every error raised by the store, cache, hierarchy
// manager, concurrency controller, or pipeline carries one of these.
const (
	Internal Code = iota
	Unauthorized
	Invalid
	NotFound
	Conflict
	RateLimited
	Unavailable
)

func (c Code) String() string {
	switch c {
	case Unauthorized:
		return "unauthorized"
	case Invalid:
		return "invalid"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case RateLimited:
		return "rate_limited"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Reason further qualifies a Conflict or Invalid error.
type Reason string

const (
	ReasonVersionMismatch Reason = "version_mismatch"
	ReasonDuplicateName   Reason = "duplicate_name"
	ReasonCycle           Reason = "cycle"
	ReasonDepthExceeded   Reason = "depth_exceeded"
	ReasonInvalidName     Reason = "invalid_name"
	ReasonMalformed       Reason = "malformed"
)

// Error is the error type threaded through every core component.
type Error struct {
	Code    Code
	Reason  Reason
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s [field=%s]", e.Code, e.Reason, e.Message, e.Field)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// CodeOf extracts the Code from err, defaulting to Internal for unrecognized
// errors so callers never need a type switch of their own.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return Internal
}

func newErr(code Code, reason Reason, field, message string, cause error) *Error {
	return &Error{Code: code, Reason: reason, Field: field, Message: message, cause: cause}
}

func NewUnauthorized(message string) *Error {
	return newErr(Unauthorized, "", "", message, nil)
}

func NewNotFound(message string) *Error {
	return newErr(NotFound, "", "", message, nil)
}

func NewInvalid(field string, reason Reason, message string) *Error {
	return newErr(Invalid, reason, field, message, nil)
}

func NewConflict(reason Reason, message string) *Error {
	return newErr(Conflict, reason, "", message, nil)
}

func NewRateLimited(message string) *Error {
	return newErr(RateLimited, "", "", message, nil)
}

func NewUnavailable(message string, cause error) *Error {
	return newErr(Unavailable, "", "", message, cause)
}

func NewInternal(message string, cause error) *Error {
	return newErr(Internal, "", "", message, cause)
}
