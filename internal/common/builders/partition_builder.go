// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package builders

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// PartitionBuilder provides a fluent interface for building test/fixture
// partitions.
type PartitionBuilder struct {
	partition *types.Partition
}

// NewPartitionBuilder creates a new partition builder with the required
// name. MaxTime defaults to Infinite.
func NewPartitionBuilder(name string) *PartitionBuilder {
	return &PartitionBuilder{partition: &types.Partition{Name: name, MaxTime: types.Infinite}}
}

// WithMaxTime sets the partition's maximum wall time, in minutes.
func (b *PartitionBuilder) WithMaxTime(minutes int64) *PartitionBuilder {
	b.partition.MaxTime = minutes
	return b
}

// WithQoS sets the partition's default QoS name.
func (b *PartitionBuilder) WithQoS(name string) *PartitionBuilder {
	b.partition.QoS = name
	return b
}

// Build returns the built partition.
func (b *PartitionBuilder) Build() *types.Partition { return b.partition }
