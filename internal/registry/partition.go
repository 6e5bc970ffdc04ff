// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// PartitionRegistry validates partition records before they are installed
// in the engine's partition table. A partition carries only what the
// policy engine consults: a maximum wall time and an optional default
// QoS (spec §3).
type PartitionRegistry struct {
	*Validator
	byName map[string]*types.Partition
}

// NewPartitionRegistry creates an empty partition registry.
func NewPartitionRegistry() *PartitionRegistry {
	return &PartitionRegistry{Validator: NewValidator("partition"), byName: make(map[string]*types.Partition)}
}

// ValidatePartition validates a single partition record against
// invariant 1 (non-negative limits).
func (r *PartitionRegistry) ValidatePartition(p *types.Partition) error {
	if p == nil {
		return errors.NewValidationError(errors.ErrorCodeValidationFailed, "partition is required", "partition", p, nil)
	}
	if err := r.ValidateName(p.Name, "partition.Name"); err != nil {
		return err
	}
	return r.ValidateNonNegative(p.MaxTime, "partition.MaxTime")
}

// Register validates and installs a partition, rejecting a duplicate name.
func (r *PartitionRegistry) Register(p *types.Partition) error {
	if err := r.ValidatePartition(p); err != nil {
		return err
	}
	if _, exists := r.byName[p.Name]; exists {
		return errors.NewPolicyError(errors.ErrorCodeConflict, "partition already registered: "+p.Name)
	}
	r.byName[p.Name] = p
	return nil
}

// Lookup returns the named partition, or an error satisfying
// errors.ErrorCodeUnknownPartition if it is not registered.
func (r *PartitionRegistry) Lookup(name string) (*types.Partition, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, errors.NewPolicyError(errors.ErrorCodeUnknownPartition, "unknown partition: "+name)
	}
	return p, nil
}

// All returns every registered partition.
func (r *PartitionRegistry) All() []*types.Partition {
	out := make([]*types.Partition, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	return out
}

// ValidateDeletionSafety rejects removing a QoS that this partition still
// names as its default (mirrors QoSRegistry.ValidateDeletionSafety, the
// check just runs from the other direction).
func (r *PartitionRegistry) ValidateDeletionSafety(name string) error {
	for _, p := range r.byName {
		if p.QoS == name {
			return errors.NewPolicyError(errors.ErrorCodeConflict,
				"cannot remove qos "+name+": partition "+p.Name+" still bound to qos "+name)
		}
	}
	return nil
}
