// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapError_PassesThroughPolicyError(t *testing.T) {
	original := NewPolicyError(ErrorCodeUnknownQoS, "no such qos")
	wrapped := WrapError(original)
	assert.Same(t, original, wrapped)
}

func TestWrapError_ContextErrors(t *testing.T) {
	assert.Equal(t, ErrorCodeContextCanceled, WrapError(context.Canceled).Code)
	assert.Equal(t, ErrorCodeDeadlineExceeded, WrapError(context.DeadlineExceeded).Code)
}

func TestWrapError_NetworkPatterns(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{fmt.Errorf("dial tcp: connection refused"), ErrorCodeConnectionRefused},
		{fmt.Errorf("read: connection reset by peer"), ErrorCodeConnectionRefused},
		{fmt.Errorf("request timeout"), ErrorCodeNetworkTimeout},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, WrapError(tt.err).Code, "err %v", tt.err)
	}
}

func TestWrapError_Unknown(t *testing.T) {
	err := WrapError(fmt.Errorf("something unrelated"))
	assert.Equal(t, ErrorCodeUnknown, err.Code)
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("grp_cpus", -5, "%s must be non-negative, got %d", "grp_cpus", -5)
	assert.Equal(t, ErrorCodeValidationFailed, err.Code)
	assert.Equal(t, "grp_cpus", err.Field)
	assert.Equal(t, -5, err.Value)
	assert.Contains(t, err.Message, "must be non-negative")
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewPolicyError(ErrorCodeNetworkTimeout, "x")))
	assert.False(t, IsRetryableError(NewPolicyError(ErrorCodeValidationFailed, "x")))
	assert.False(t, IsRetryableError(fmt.Errorf("plain error")))
}

func TestIsNetworkError(t *testing.T) {
	assert.True(t, IsNetworkError(NewPolicyError(ErrorCodeNetworkTimeout, "x")))
	assert.False(t, IsNetworkError(NewPolicyError(ErrorCodeValidationFailed, "x")))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewPolicyError(ErrorCodeValidationFailed, "x")))
	assert.False(t, IsValidationError(NewPolicyError(ErrorCodeServerInternal, "x")))
}
