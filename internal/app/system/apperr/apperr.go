// Package apperr defines the error taxonomy shared by the directory client,
// the cascade controller, the capture session and the HTTP layer.
//
// Every failure that crosses a component boundary is an *Error carrying a
// Kind. Callers branch on the kind (apperr.KindOf / apperr.Is) rather than
// on message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// NetworkFailure: the request could not be sent, or it timed out.
	NetworkFailure Kind = "network_failure"
	// ServerRejected: non-2xx status, or a 2xx payload that failed validation.
	ServerRejected Kind = "server_rejected"
	// DeviceUnavailable: camera permission or hardware failure.
	DeviceUnavailable Kind = "device_unavailable"
	// InvalidState: the operation is not allowed in the current state.
	InvalidState Kind = "invalid_state"
	// ValidationFailure: required user input is missing or malformed.
	ValidationFailure Kind = "validation_failure"
)

// Error is the concrete error type returned across component boundaries.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "directory.ListTeams"
	Status  int    // upstream HTTP status for ServerRejected, otherwise 0
	Message string // human-readable message safe to show to a user
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is nil or not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-facing message of err. For errors outside the
// taxonomy it falls back to err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		if ae.Err != nil {
			return ae.Err.Error()
		}
		return string(ae.Kind)
	}
	return err.Error()
}

// Network wraps a transport failure.
func Network(op string, err error) *Error {
	return &Error{Kind: NetworkFailure, Op: op, Message: "the directory service could not be reached", Err: err}
}

// Rejected builds a ServerRejected error from an upstream status and message.
func Rejected(op string, status int, msg string) *Error {
	if strings.TrimSpace(msg) == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{Kind: ServerRejected, Op: op, Status: status, Message: msg}
}

// Malformed builds a ServerRejected error for a payload that could not be
// decoded or failed schema validation.
func Malformed(op string, err error) *Error {
	return &Error{Kind: ServerRejected, Op: op, Message: "the directory service returned an invalid response", Err: err}
}

// Device wraps a camera/device failure.
func Device(op string, err error) *Error {
	return &Error{Kind: DeviceUnavailable, Op: op, Message: "unable to access camera", Err: err}
}

// State reports an operation attempted in a state that forbids it.
func State(op, msg string) *Error {
	return &Error{Kind: InvalidState, Op: op, Message: msg}
}

// Invalid reports missing or malformed user input. fields may be nil.
func Invalid(op, msg string, fields map[string]string) *Error {
	return &Error{Kind: ValidationFailure, Op: op, Message: msg, Fields: fields}
}
