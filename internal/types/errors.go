package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for AutoViralAI domain errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
)

// Knowledge base error codes. Every store failure surfaces as
// KNOWLEDGE_QUERY_FAILED so callers never depend on driver errors.
const (
	KNOWLEDGE_QUERY_FAILED  ErrorCode = "KNOWLEDGE_QUERY_FAILED"
	KNOWLEDGE_DECODE_FAILED ErrorCode = "KNOWLEDGE_DECODE_FAILED"
)

// Pipeline and orchestration error codes
const (
	PIPELINE_FAILED           ErrorCode = "PIPELINE_FAILED"
	CHECKPOINT_FAILED         ErrorCode = "CHECKPOINT_FAILED"
	NO_PENDING_APPROVAL       ErrorCode = "NO_PENDING_APPROVAL"
	RESUME_IN_PROGRESS        ErrorCode = "RESUME_IN_PROGRESS"
	SCHEDULE_INVALID          ErrorCode = "SCHEDULE_INVALID"
	FORCE_RUN_REFUSED         ErrorCode = "FORCE_RUN_REFUSED"
	PUBLISH_FAILED            ErrorCode = "PUBLISH_FAILED"
	PUBLISH_CONTAINER_TIMEOUT ErrorCode = "PUBLISH_CONTAINER_TIMEOUT"
)

// LLM error codes
const (
	LLM_CALL_FAILED   ErrorCode = "LLM_CALL_FAILED"
	LLM_DECODE_FAILED ErrorCode = "LLM_DECODE_FAILED"
)

// Approval front-end error codes
const (
	CALLBACK_INVALID ErrorCode = "CALLBACK_INVALID"
)

// Error represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a *Error with the same Code.
func (e *Error) Is(target error) bool {
	var domainErr *Error
	if errors.As(target, &domainErr) {
		return e.Code == domainErr.Code
	}
	return false
}

// NewError creates a new non-retryable Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorf creates a new non-retryable Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError creates a new Error wrapping an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err carries the given error code anywhere
// in its unwrap chain.
func IsCode(err error, code ErrorCode) bool {
	var domainErr *Error
	for errors.As(err, &domainErr) {
		if domainErr.Code == code {
			return true
		}
		err = domainErr.Cause
		if err == nil {
			return false
		}
	}
	return false
}
