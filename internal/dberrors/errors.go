// Package dberrors defines the error taxonomy shared across the broker: a
// closed set of machine-readable codes that every connector, the query
// brokerage, the tunnel manager, and the secret resolver map their failures
// onto before they ever reach the command surface.
package dberrors

import (
	"errors"
	"fmt"
)

// Code is one of the stable machine codes serialized to the front-end.
type Code string

const (
	CodeDatabase             Code = "DATABASE_ERROR"
	CodeConnectionNotFound   Code = "CONNECTION_NOT_FOUND"
	CodeInvalidConfig        Code = "INVALID_CONFIG"
	CodeSerialization        Code = "SERIALIZATION_ERROR"
	CodeUnsupportedOperation Code = "UNSUPPORTED_OPERATION"
	CodeQueryTimeout         Code = "QUERY_TIMEOUT"
	CodeQueryCancelled       Code = "QUERY_CANCELLED"
	CodeConnectionFailed     Code = "CONNECTION_FAILED"
	CodeConnectionLost       Code = "CONNECTION_LOST"
	CodeSshTunnel            Code = "SSH_TUNNEL_ERROR"
	CodeKeychain             Code = "KEYCHAIN_ERROR"
)

// Error is the single error type every package in the broker returns.
// It always carries one of the Code constants and serializes as
// {code, message}.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// Fields used only by specific variants; left zero otherwise.
	TimeoutSecs int
	DBType      string
	Host        string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// MarshalJSON renders the wire shape {code, message} documented in spec §7.
func (e *Error) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("{%q:%q,%q:%q}", "code", e.Code, "message", e.Message)), nil
}

func new_(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Database wraps any driver/protocol failure, surfaced verbatim by drivers.
func Database(message string, cause error) *Error {
	return wrap(CodeDatabase, message, cause)
}

// ConnectionNotFound is returned on a connection registry miss.
func ConnectionNotFound(id string) *Error {
	return new_(CodeConnectionNotFound, fmt.Sprintf("connection %q not found", id))
}

// InvalidConfig covers malformed inputs: missing ids, column/value length
// mismatches, unknown filter operators, non-paginatable bodies for count.
func InvalidConfig(message string) *Error {
	return new_(CodeInvalidConfig, message)
}

func Serialization(message string, cause error) *Error {
	return wrap(CodeSerialization, message, cause)
}

// UnsupportedOperation covers capability mismatches and feature-gated engines.
func UnsupportedOperation(message string) *Error {
	return new_(CodeUnsupportedOperation, message)
}

// QueryTimeout carries the timeout threshold that elapsed.
func QueryTimeout(secs int) *Error {
	return &Error{
		Code:        CodeQueryTimeout,
		Message:     fmt.Sprintf("query timed out after %ds", secs),
		TimeoutSecs: secs,
	}
}

func QueryCancelled() *Error {
	return new_(CodeQueryCancelled, "query cancelled")
}

// ConnectionFailed carries connect-time diagnostics.
func ConnectionFailed(dbType, host string, cause error) *Error {
	return &Error{
		Code:    CodeConnectionFailed,
		Message: fmt.Sprintf("failed to connect to %s at %s", dbType, host),
		Cause:   cause,
		DBType:  dbType,
		Host:    host,
	}
}

func ConnectionLost(message string, cause error) *Error {
	return wrap(CodeConnectionLost, message, cause)
}

func SshTunnel(message string, cause error) *Error {
	return wrap(CodeSshTunnel, message, cause)
}

func Keychain(message string, cause error) *Error {
	return wrap(CodeKeychain, message, cause)
}

// As extracts an *Error from an error chain, mirroring errors.As ergonomics
// used throughout the broker instead of type assertions.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the machine code for err, or CodeDatabase if err is not
// one of ours (callers at protocol boundaries should always wrap first).
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeDatabase
}
