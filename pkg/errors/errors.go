// Copyright 2026 © The Factotum Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for Factotum.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Factotum errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeToolFailure indicates a tool execution failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeContextLost indicates context was canceled or lost.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimited indicates the provider rejected the call for
	// exceeding its request rate.
	CodeRateLimited ErrorCode = "RATE_LIMITED"

	// CodeQuotaExhausted indicates the provider rejected the call because
	// the account's usage quota is spent. Kept distinct from CodeRateLimited
	// even though both are currently retried the same way.
	CodeQuotaExhausted ErrorCode = "QUOTA_EXHAUSTED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates authorization failed.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeMemoryError indicates a conversation memory error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeProviderUnavailable indicates no provider candidate passed its probe.
	CodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
)

// FactotumError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type FactotumError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *FactotumError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *FactotumError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *FactotumError) MarshalJSON() ([]byte, error) {
	type Alias FactotumError
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new FactotumError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *FactotumError {
	return &FactotumError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *FactotumError) WithContext(key string, value interface{}) *FactotumError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *FactotumError) WithRecoverable(recoverable bool) *FactotumError {
	e.Recoverable = recoverable
	return e
}

// AsFactotumError attempts to convert an error to a FactotumError.
// Returns the error as FactotumError if it is one, or wraps it otherwise.
func AsFactotumError(err error) *FactotumError {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FactotumError); ok {
		return fe
	}
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *FactotumError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
