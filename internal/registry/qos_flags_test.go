// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/slurm-policy-engine/internal/common/builders"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

func TestValidateConsistency(t *testing.T) {
	r := NewQoSRegistry()

	ok := builders.NewQoSBuilder("normal").WithGrpCPUs(64).WithMaxCPUsPerJob(16).Build()
	require.NoError(t, r.ValidateConsistency(&ok.Limits))

	bad := builders.NewQoSBuilder("bad").WithGrpCPUs(8).WithMaxCPUsPerJob(16).Build()
	err := r.ValidateConsistency(&bad.Limits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds grp_cpus")
}

func TestValidateDeletionSafety(t *testing.T) {
	r := NewQoSRegistry()
	parts := []*types.Partition{
		{Name: "batch", QoS: "normal"},
		{Name: "gpu", QoS: "gpu-default"},
	}

	require.NoError(t, r.ValidateDeletionSafety("unused", parts))

	err := r.ValidateDeletionSafety("normal", parts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still the default for partition batch")
}
