// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package registry validates limit configuration at load time, before any
// of it reaches the engine's lock bundle. It never mutates usage counters
// and never makes an admission decision; its only job is to reject
// configuration the engine could not safely reason about.
package registry

import (
	"fmt"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// Validator carries the resource type name used in error messages, the
// way the teacher's base manager carried a version and resource type.
type Validator struct {
	resourceType string
}

// NewValidator creates a validator for the given resource type.
func NewValidator(resourceType string) *Validator {
	return &Validator{resourceType: resourceType}
}

// ValidateName validates a resource name is not empty.
func (v *Validator) ValidateName(name, fieldName string) error {
	if name == "" {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			fmt.Sprintf("%s name is required", v.resourceType),
			fieldName, name, nil,
		)
	}
	return nil
}

// ValidateNonNegative validates that a limit value is non-negative or the
// Infinite sentinel (invariant 1 allows no other negative value).
func (v *Validator) ValidateNonNegative(value int64, fieldName string) error {
	if value < 0 && value != types.Infinite {
		return errors.NewValidationError(
			errors.ErrorCodeValidationFailed,
			fmt.Sprintf("%s must be non-negative or Infinite", fieldName),
			fieldName, value, nil,
		)
	}
	return nil
}

// ValidateNonNegativeVector validates every slot of a TRES vector.
func (v *Validator) ValidateNonNegativeVector(vec types.TRESVector, fieldName string) error {
	for t := types.TRES(0); int(t) < len(vec); t++ {
		if err := v.ValidateNonNegative(vec.Get(t), fmt.Sprintf("%s[%d]", fieldName, t)); err != nil {
			return err
		}
	}
	return nil
}

// HandleNotFound creates a not-found error for this resource type.
func (v *Validator) HandleNotFound(resourceDesc string) error {
	return errors.NewPolicyError(
		errors.ErrorCodeResourceNotFound,
		fmt.Sprintf("%s not found: %s", v.resourceType, resourceDesc),
	)
}
