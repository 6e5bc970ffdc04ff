// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package builders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

func TestPartitionBuilder_Defaults(t *testing.T) {
	part := NewPartitionBuilder("batch").Build()

	assert.Equal(t, "batch", part.Name)
	assert.Equal(t, types.Infinite, part.MaxTime)
	assert.Empty(t, part.QoS)
}

func TestPartitionBuilder_Fluent(t *testing.T) {
	part := NewPartitionBuilder("gpu").
		WithMaxTime(240).
		WithQoS("gpu-default").
		Build()

	assert.Equal(t, int64(240), part.MaxTime)
	assert.Equal(t, "gpu-default", part.QoS)
}
