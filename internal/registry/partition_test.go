// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

func TestPartitionRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		partition *types.Partition
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "nil partition",
			partition: nil,
			wantErr:   true,
			errMsg:    "partition is required",
		},
		{
			name:      "empty name",
			partition: &types.Partition{Name: "", MaxTime: types.Infinite},
			wantErr:   true,
			errMsg:    "name is required",
		},
		{
			name:      "negative max time",
			partition: &types.Partition{Name: "compute", MaxTime: -5},
			wantErr:   true,
			errMsg:    "non-negative",
		},
		{
			name:      "valid partition",
			partition: &types.Partition{Name: "compute", MaxTime: 1440, QoS: "normal"},
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPartitionRegistry()
			err := r.Register(tt.partition)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPartitionRegistry_DuplicateRejected(t *testing.T) {
	r := NewPartitionRegistry()
	p := &types.Partition{Name: "compute", MaxTime: types.Infinite}
	require.NoError(t, r.Register(p))

	err := r.Register(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestPartitionRegistry_Lookup(t *testing.T) {
	r := NewPartitionRegistry()
	require.NoError(t, r.Register(&types.Partition{Name: "compute", MaxTime: 1440}))

	got, err := r.Lookup("compute")
	require.NoError(t, err)
	assert.Equal(t, int64(1440), got.MaxTime)

	_, err = r.Lookup("missing")
	require.Error(t, err)
}

func TestPartitionRegistry_All(t *testing.T) {
	r := NewPartitionRegistry()
	require.NoError(t, r.Register(&types.Partition{Name: "compute", MaxTime: types.Infinite}))
	require.NoError(t, r.Register(&types.Partition{Name: "gpu", MaxTime: types.Infinite}))

	assert.Len(t, r.All(), 2)
}

func TestPartitionRegistry_ValidateDeletionSafety(t *testing.T) {
	r := NewPartitionRegistry()
	require.NoError(t, r.Register(&types.Partition{Name: "compute", MaxTime: types.Infinite, QoS: "normal"}))

	err := r.ValidateDeletionSafety("normal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still bound to qos")

	require.NoError(t, r.ValidateDeletionSafety("other"))
}
