// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
)

// WrapError converts a generic error into a structured PolicyError. Used
// at the boundary where the engine calls out to a collaborator (the
// AccountingHook, PriorityHook, etc.) over the network.
func WrapError(err error) *PolicyError {
	if err == nil {
		return nil
	}

	var policyErr *PolicyError
	if stderrors.As(err, &policyErr) {
		return policyErr
	}

	if stderrors.Is(err, context.Canceled) {
		return NewPolicyErrorWithCause(ErrorCodeContextCanceled, "operation was canceled", err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewPolicyErrorWithCause(ErrorCodeDeadlineExceeded, "operation timed out", err)
	}

	if netErr := classifyNetworkError(err); netErr != nil {
		return netErr
	}

	return NewPolicyErrorWithCause(ErrorCodeUnknown, err.Error(), err)
}

// classifyNetworkError identifies and wraps network-related errors raised
// while calling an external collaborator.
func classifyNetworkError(err error) *PolicyError {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.Canceled) {
		return NewPolicyErrorWithCause(ErrorCodeContextCanceled, "operation was canceled", err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewPolicyErrorWithCause(ErrorCodeDeadlineExceeded, "operation deadline exceeded", err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return NewPolicyErrorWithCause(ErrorCodeNetworkTimeout, "network operation timed out", err)
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return NewPolicyErrorWithCause(ErrorCodeConnectionRefused, "connection refused by collaborator", err)
	case strings.Contains(errStr, "connection reset"), strings.Contains(errStr, "broken pipe"):
		return NewPolicyErrorWithCause(ErrorCodeConnectionRefused, "collaborator connection reset", err)
	case strings.Contains(errStr, "timeout"):
		return NewPolicyErrorWithCause(ErrorCodeNetworkTimeout, "network timeout", err)
	}

	return nil
}

// NewValidationErrorf creates a validation error with a formatted message,
// the shape the registry uses when it rejects a load-time configuration.
func NewValidationErrorf(field string, value interface{}, format string, args ...interface{}) *PolicyError {
	message := fmt.Sprintf(format, args...)
	return NewValidationError(ErrorCodeValidationFailed, message, field, value, nil)
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var policyErr *PolicyError
	if stderrors.As(err, &policyErr) {
		return policyErr.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from any error.
func GetErrorCode(err error) ErrorCode {
	var policyErr *PolicyError
	if stderrors.As(err, &policyErr) {
		return policyErr.Code
	}
	return ErrorCodeUnknown
}

// GetErrorCategory extracts the error category from any error.
func GetErrorCategory(err error) ErrorCategory {
	var policyErr *PolicyError
	if stderrors.As(err, &policyErr) {
		return policyErr.Category
	}
	return CategoryUnknown
}

// IsNetworkError checks if an error is a network-related error.
func IsNetworkError(err error) bool {
	var policyErr *PolicyError
	if stderrors.As(err, &policyErr) {
		return policyErr.Category == CategoryNetwork
	}
	return false
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var policyErr *PolicyError
	if stderrors.As(err, &policyErr) {
		return policyErr.Category == CategoryValidation
	}
	return false
}
