// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

func TestValidateName(t *testing.T) {
	v := NewValidator("qos")

	require.NoError(t, v.ValidateName("normal", "name"))

	err := v.ValidateName("", "name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestValidateNonNegative(t *testing.T) {
	v := NewValidator("qos")

	require.NoError(t, v.ValidateNonNegative(0, "grp_cpus"))
	require.NoError(t, v.ValidateNonNegative(64, "grp_cpus"))
	require.NoError(t, v.ValidateNonNegative(types.Infinite, "grp_cpus"))

	err := v.ValidateNonNegative(-5, "grp_cpus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")

	err = v.ValidateNonNegative(types.NoVal, "grp_cpus")
	require.Error(t, err)
}

func TestValidateNonNegativeVector(t *testing.T) {
	v := NewValidator("assoc")

	ok := types.NewTRESVector()
	ok.Set(types.TRESCPU, 10)
	require.NoError(t, v.ValidateNonNegativeVector(ok, "grp_tres"))

	bad := types.NewTRESVector()
	bad.Set(types.TRESMem, -10)
	err := v.ValidateNonNegativeVector(bad, "grp_tres")
	require.Error(t, err)
}

func TestHandleNotFound(t *testing.T) {
	v := NewValidator("association")
	err := v.HandleNotFound("assoc-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "association not found: assoc-42")
}
