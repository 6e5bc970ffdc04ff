// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// ValidateConsistency checks logical relationships between a QoS's own
// limit fields that ValidateQoS cannot catch slot-by-slot: a per-job cap
// that exceeds its own group total can never be satisfied once a second
// job is admitted, which almost always signals a configuration mistake
// rather than an intentional limit.
func (r *QoSRegistry) ValidateConsistency(l *types.QoSLimits) error {
	if l.GrpCPUs != types.Infinite && l.MaxCPUsPerJob != types.Infinite && l.MaxCPUsPerJob > l.GrpCPUs {
		return errors.NewValidationErrorf("max_cpus_pj", l.MaxCPUsPerJob,
			"max_cpus_pj (%d) exceeds grp_cpus (%d)", l.MaxCPUsPerJob, l.GrpCPUs)
	}
	if l.GrpNodes != types.Infinite && l.MaxNodesPerJob != types.Infinite && l.MaxNodesPerJob > l.GrpNodes {
		return errors.NewValidationErrorf("max_nodes_pj", l.MaxNodesPerJob,
			"max_nodes_pj (%d) exceeds grp_nodes (%d)", l.MaxNodesPerJob, l.GrpNodes)
	}
	if l.GrpWall != types.Infinite && l.MaxWallPerJob != types.Infinite && l.MaxWallPerJob > l.GrpWall {
		return errors.NewValidationErrorf("max_wall_pj", l.MaxWallPerJob,
			"max_wall_pj (%d) exceeds grp_wall (%d)", l.MaxWallPerJob, l.GrpWall)
	}
	return nil
}

// ValidateDeletionSafety rejects removing a QoS that a partition still
// names as its default, since the precedence resolver would
// otherwise dereference a missing entry at admission time.
func (r *QoSRegistry) ValidateDeletionSafety(name string, partitions []*types.Partition) error {
	for _, p := range partitions {
		if p.QoS == name {
			return errors.NewPolicyError(errors.ErrorCodeConflict,
				"cannot remove qos "+name+": still the default for partition "+p.Name)
		}
	}
	return nil
}
