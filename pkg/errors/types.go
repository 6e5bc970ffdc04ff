// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents structured error codes raised by the policy engine
// and its admin API.
type ErrorCode string

const (
	// Configuration-load errors (registry validation).
	ErrorCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrorCodeCyclicHierarchy    ErrorCode = "CYCLIC_HIERARCHY"
	ErrorCodeUnknownQoSFlag     ErrorCode = "UNKNOWN_QOS_FLAG"
	ErrorCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrorCodeConflict           ErrorCode = "CONFLICT"

	// Engine decision errors (distinct from ReasonCode, which is a
	// decision output, not a failure).
	ErrorCodeUnknownAssociation ErrorCode = "UNKNOWN_ASSOCIATION"
	ErrorCodeUnknownQoS         ErrorCode = "UNKNOWN_QOS"
	ErrorCodeUnknownPartition   ErrorCode = "UNKNOWN_PARTITION"

	// ErrorCodeNoAssociation is a configuration error (spec §7.3): a job
	// carries no association reference and re-binding by
	// (account, partition, uid) also failed. Permanent for that job.
	ErrorCodeNoAssociation ErrorCode = "NO_ASSOCIATION"
	// ErrorCodeMissingJobDetails covers update_pending_job called with no
	// details block to derive a time limit or memory normalization from.
	ErrorCodeMissingJobDetails ErrorCode = "MISSING_JOB_DETAILS"
	// ErrorCodeConfigInvalid covers an accounting_enforce bitmask or
	// engine handle that could not be constructed.
	ErrorCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Admin API / collaborator errors.
	ErrorCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrorCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrorCodeNetworkTimeout      ErrorCode = "NETWORK_TIMEOUT"
	ErrorCodeConnectionRefused   ErrorCode = "CONNECTION_REFUSED"
	ErrorCodeServerInternal      ErrorCode = "SERVER_INTERNAL"
	ErrorCodeContextCanceled     ErrorCode = "CONTEXT_CANCELED"
	ErrorCodeDeadlineExceeded    ErrorCode = "DEADLINE_EXCEEDED"
	ErrorCodeUnknown             ErrorCode = "UNKNOWN"
)

// ErrorCategory groups related error codes for easier handling.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryEngine     ErrorCategory = "ENGINE"
	CategoryResource   ErrorCategory = "RESOURCE"
	CategoryNetwork    ErrorCategory = "NETWORK"
	CategoryAuth       ErrorCategory = "AUTHENTICATION"
	CategoryServer     ErrorCategory = "SERVER"
	CategoryContext    ErrorCategory = "CONTEXT"
	CategoryUnknown    ErrorCategory = "UNKNOWN"
)

// PolicyError is the structured error type returned by the registry, the
// engine, and the admin API. It never represents a policy decision
// ("would wait", "denied") — those are communicated through a job's
// ReasonCode. PolicyError is for configuration and collaborator failures.
type PolicyError struct {
	Code      ErrorCode     `json:"code"`
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Details   string        `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Field     string        `json:"field,omitempty"`
	Value     interface{}   `json:"value,omitempty"`
	Retryable bool          `json:"retryable"`
	Cause     error         `json:"-"`
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *PolicyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a specific error code.
func (e *PolicyError) Is(target error) bool {
	if targetErr, ok := target.(*PolicyError); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// IsRetryable returns true if the error indicates the caller can retry.
func (e *PolicyError) IsRetryable() bool {
	return e.Retryable
}

// NewPolicyError creates a new structured policy error.
func NewPolicyError(code ErrorCode, message string) *PolicyError {
	return &PolicyError{
		Code:      code,
		Category:  categoryOf(code),
		Message:   message,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// NewPolicyErrorWithCause creates a new structured policy error with an
// underlying cause.
func NewPolicyErrorWithCause(code ErrorCode, message string, cause error) *PolicyError {
	return &PolicyError{
		Code:      code,
		Category:  categoryOf(code),
		Message:   message,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
		Cause:     cause,
	}
}

// NewValidationError creates a validation error anchored to a specific
// field, the way the registry reports load-time configuration failures.
func NewValidationError(code ErrorCode, message, field string, value interface{}, cause error) *PolicyError {
	e := NewPolicyErrorWithCause(code, message, cause)
	e.Field = field
	e.Value = value
	return e
}

// categoryOf maps error codes to categories.
func categoryOf(code ErrorCode) ErrorCategory {
	switch code {
	case ErrorCodeValidationFailed, ErrorCodeCyclicHierarchy, ErrorCodeUnknownQoSFlag, ErrorCodeInvalidRequest:
		return CategoryValidation
	case ErrorCodeUnknownAssociation, ErrorCodeUnknownQoS, ErrorCodeUnknownPartition,
		ErrorCodeNoAssociation, ErrorCodeMissingJobDetails, ErrorCodeConfigInvalid:
		return CategoryEngine
	case ErrorCodeResourceNotFound, ErrorCodeConflict:
		return CategoryResource
	case ErrorCodeNetworkTimeout, ErrorCodeConnectionRefused:
		return CategoryNetwork
	case ErrorCodeUnauthorized:
		return CategoryAuth
	case ErrorCodeServerInternal:
		return CategoryServer
	case ErrorCodeContextCanceled, ErrorCodeDeadlineExceeded:
		return CategoryContext
	default:
		return CategoryUnknown
	}
}

// isRetryable determines if an error code indicates a retryable operation.
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrorCodeNetworkTimeout, ErrorCodeConnectionRefused, ErrorCodeServerInternal:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a PolicyError's code to the status code the admin API
// should respond with.
func HTTPStatus(err *PolicyError) int {
	switch err.Code {
	case ErrorCodeValidationFailed, ErrorCodeCyclicHierarchy, ErrorCodeUnknownQoSFlag, ErrorCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeResourceNotFound, ErrorCodeUnknownAssociation, ErrorCodeUnknownQoS, ErrorCodeUnknownPartition,
		ErrorCodeNoAssociation:
		return http.StatusNotFound
	case ErrorCodeMissingJobDetails, ErrorCodeConfigInvalid:
		return http.StatusUnprocessableEntity
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeContextCanceled:
		return 499
	case ErrorCodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
