// Package apperr defines the error taxonomy shared by all components.
// Expected outcomes of normal operation (validation failures, conflicts,
// missing entities) are returned as *Error values and mapped to transport
// codes only at the API boundary; anything else is treated as fatal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error without prescribing a concrete type per case.
type Kind int

const (
	// KindUnexpected marks failures that are not expected outcomes of
	// normal operation (storage unreachable, invariant violated).
	KindUnexpected Kind = iota
	// KindNotFound means the entity id is unknown.
	KindNotFound
	// KindUnauthorized means the caller is not the owner.
	KindUnauthorized
	// KindConflict means an overlapping interval, duplicate queue
	// membership, or a lost commit race.
	KindConflict
	// KindInvalidRequest means malformed or policy-violating input.
	KindInvalidRequest
	// KindResourceUnavailable means the machine is out of order or
	// otherwise not schedulable.
	KindResourceUnavailable
	// KindTransportFailure means a delivery attempt failed and drives a
	// retry. It never escapes the notification processor.
	KindTransportFailure
	// KindExhaustedRetries means a terminal delivery failure.
	KindExhaustedRetries
)

// Error carries a kind, a short machine-readable code and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from err, or KindUnexpected.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// CodeOf extracts the code from err, or "".
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func Unauthorized(code, msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func InvalidRequest(code, msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Code: code, Message: msg}
}

func ResourceUnavailable(code, msg string) *Error {
	return &Error{Kind: KindResourceUnavailable, Code: code, Message: msg}
}

func TransportFailure(msg string, err error) *Error {
	return &Error{Kind: KindTransportFailure, Code: "transport_failure", Message: msg, Err: err}
}

func ExhaustedRetries(msg string) *Error {
	return &Error{Kind: KindExhaustedRetries, Code: "exhausted_retries", Message: msg}
}
