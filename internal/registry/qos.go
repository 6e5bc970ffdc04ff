// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// QoSRegistry validates QoS records before they are installed in the
// engine's QoS table.
type QoSRegistry struct {
	*Validator
	byName map[string]*types.QoS
}

// NewQoSRegistry creates an empty QoS registry.
func NewQoSRegistry() *QoSRegistry {
	return &QoSRegistry{Validator: NewValidator("qos"), byName: make(map[string]*types.QoS)}
}

// ValidateQoS validates a single QoS record against invariant 1
// (non-negative limits) before it is admitted to the table.
func (r *QoSRegistry) ValidateQoS(qos *types.QoS) error {
	if qos == nil {
		return errors.NewValidationError(errors.ErrorCodeValidationFailed, "qos is required", "qos", qos, nil)
	}

	if err := r.ValidateName(qos.Name, "qos.Name"); err != nil {
		return err
	}

	if err := r.validateLimits(&qos.Limits); err != nil {
		return err
	}

	if err := r.validateFlags(qos.Flags); err != nil {
		return err
	}

	return nil
}

func (r *QoSRegistry) validateLimits(l *types.QoSLimits) error {
	fields := map[string]int64{
		"grp_cpus": l.GrpCPUs, "grp_nodes": l.GrpNodes, "grp_mem": l.GrpMem,
		"grp_jobs": l.GrpJobs, "grp_submit_jobs": l.GrpSubmitJobs, "grp_wall": l.GrpWall,
		"grp_cpu_mins": l.GrpCPUMins, "grp_cpu_run_mins": l.GrpCPURunMins,
		"max_cpus_pj": l.MaxCPUsPerJob, "min_cpus_pj": l.MinCPUsPerJob,
		"max_nodes_pj": l.MaxNodesPerJob, "max_wall_pj": l.MaxWallPerJob,
		"max_cpu_mins_pj": l.MaxCPUMinsPerJob,
		"max_cpus_pu": l.MaxCPUsPerUser, "max_nodes_pu": l.MaxNodesPerUser,
		"max_jobs_pu": l.MaxJobsPerUser, "max_submit_jobs_pu": l.MaxSubmitJobsPerUser,
	}
	for field, value := range fields {
		if err := r.ValidateNonNegative(value, field); err != nil {
			return err
		}
	}

	if l.MinCPUsPerJob != types.Infinite && l.MaxCPUsPerJob != types.Infinite && l.MinCPUsPerJob > l.MaxCPUsPerJob {
		return errors.NewValidationErrorf("min_cpus_pj", l.MinCPUsPerJob,
			"min_cpus_pj (%d) exceeds max_cpus_pj (%d)", l.MinCPUsPerJob, l.MaxCPUsPerJob)
	}

	return nil
}

// validateFlags rejects any flag the engine does not know how to enforce.
func (r *QoSRegistry) validateFlags(flags []types.QoSFlag) error {
	for _, f := range flags {
		switch f {
		case types.QoSFlagPartQoS, types.QoSFlagDenyLimit:
			continue
		default:
			return errors.NewValidationErrorf("flags", f, "unknown qos flag %q", f)
		}
	}
	return nil
}

// Register validates and installs a QoS, rejecting a duplicate name.
func (r *QoSRegistry) Register(qos *types.QoS) error {
	if err := r.ValidateQoS(qos); err != nil {
		return err
	}
	if _, exists := r.byName[qos.Name]; exists {
		return errors.NewPolicyError(errors.ErrorCodeConflict, "qos already registered: "+qos.Name)
	}
	r.byName[qos.Name] = qos
	return nil
}

// Lookup returns the named QoS, or an error satisfying
// errors.ErrorCodeUnknownQoS if it is not registered.
func (r *QoSRegistry) Lookup(name string) (*types.QoS, error) {
	qos, ok := r.byName[name]
	if !ok {
		return nil, errors.NewPolicyError(errors.ErrorCodeUnknownQoS, "unknown qos: "+name)
	}
	return qos, nil
}

// All returns every registered QoS, for callers that need to iterate (the
// admin API's list endpoint, chiefly).
func (r *QoSRegistry) All() []*types.QoS {
	out := make([]*types.QoS, 0, len(r.byName))
	for _, q := range r.byName {
		out = append(out, q)
	}
	return out
}
