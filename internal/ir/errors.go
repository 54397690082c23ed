package ir

import (
	"errors"
	"fmt"
)

// Error is the single error kind surfaced by the engine. Every failure is
// local and non-retryable; callers translate Code into their own protocol.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Type is the record type involved, if any.
	Type string

	// ID is the record identifier involved, if any.
	ID string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeTypeMismatch indicates an operator was applied to operands of the
	// wrong kind, or a filter did not evaluate to boolean.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeNotImplemented indicates an unsupported expression construct.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeInvalidArgument indicates a bad query option or operand value.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeNotFound indicates a missing record, type or association.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeAlreadyExists indicates a create collided with an existing identifier.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Type != "" && e.ID != "":
		return fmt.Sprintf("%s: %s (type=%s, id=%s)", e.Code, e.Message, e.Type, e.ID)
	case e.Type != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsTypeMismatch returns true if the error is a TYPE_MISMATCH error.
// Uses errors.As to handle wrapped errors.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsNotImplemented returns true if the error is a NOT_IMPLEMENTED error.
func IsNotImplemented(err error) bool { return hasCode(err, ErrCodeNotImplemented) }

// IsInvalidArgument returns true if the error is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool { return hasCode(err, ErrCodeInvalidArgument) }

// IsNotFound returns true if the error is a NOT_FOUND error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsAlreadyExists returns true if the error is an ALREADY_EXISTS error.
func IsAlreadyExists(err error) bool { return hasCode(err, ErrCodeAlreadyExists) }

// NewTypeMismatch creates a TYPE_MISMATCH error.
func NewTypeMismatch(format string, args ...any) *Error {
	return &Error{Code: ErrCodeTypeMismatch, Message: fmt.Sprintf(format, args...)}
}

// NewNotImplemented creates a NOT_IMPLEMENTED error.
func NewNotImplemented(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotImplemented, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidArgument creates an INVALID_ARGUMENT error.
func NewInvalidArgument(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a NOT_FOUND error for a record type and identifier.
// Either may be empty.
func NewNotFound(typeName, id, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf(format, args...),
		Type:    typeName,
		ID:      id,
	}
}

// NewAlreadyExists creates an ALREADY_EXISTS error.
func NewAlreadyExists(typeName, id string) *Error {
	return &Error{
		Code:    ErrCodeAlreadyExists,
		Message: "a record with this identifier already exists",
		Type:    typeName,
		ID:      id,
	}
}
