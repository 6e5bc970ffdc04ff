// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyError_Error(t *testing.T) {
	err := NewPolicyError(ErrorCodeValidationFailed, "grp_cpus must be non-negative")
	assert.Equal(t, "[VALIDATION_FAILED] grp_cpus must be non-negative", err.Error())

	err.Details = "got -5"
	assert.Equal(t, "[VALIDATION_FAILED] grp_cpus must be non-negative: got -5", err.Error())
}

func TestPolicyError_Unwrap(t *testing.T) {
	cause := assert.AnError
	err := NewPolicyErrorWithCause(ErrorCodeServerInternal, "collaborator call failed", cause)
	assert.Same(t, cause, err.Unwrap())
}

func TestPolicyError_Is(t *testing.T) {
	a := NewPolicyError(ErrorCodeUnknownQoS, "no such qos")
	b := NewPolicyError(ErrorCodeUnknownQoS, "different message, same code")
	c := NewPolicyError(ErrorCodeUnknownAssociation, "different code")

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
}

func TestPolicyError_CategoryAssignment(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrorCodeValidationFailed, CategoryValidation},
		{ErrorCodeCyclicHierarchy, CategoryValidation},
		{ErrorCodeUnknownQoS, CategoryEngine},
		{ErrorCodeResourceNotFound, CategoryResource},
		{ErrorCodeNetworkTimeout, CategoryNetwork},
		{ErrorCodeUnauthorized, CategoryAuth},
		{ErrorCodeServerInternal, CategoryServer},
		{ErrorCodeContextCanceled, CategoryContext},
		{ErrorCode("made-up"), CategoryUnknown},
	}

	for _, tt := range tests {
		err := NewPolicyError(tt.code, "msg")
		assert.Equal(t, tt.want, err.Category, "code %s", tt.code)
	}
}

func TestPolicyError_Retryable(t *testing.T) {
	assert.True(t, NewPolicyError(ErrorCodeNetworkTimeout, "x").IsRetryable())
	assert.False(t, NewPolicyError(ErrorCodeValidationFailed, "x").IsRetryable())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeValidationFailed, 400},
		{ErrorCodeUnauthorized, 401},
		{ErrorCodeUnknownQoS, 404},
		{ErrorCodeConflict, 409},
		{ErrorCodeDeadlineExceeded, 504},
		{ErrorCodeServerInternal, 500},
	}

	for _, tt := range tests {
		err := NewPolicyError(tt.code, "msg")
		assert.Equal(t, tt.want, HTTPStatus(err), "code %s", tt.code)
	}
}
