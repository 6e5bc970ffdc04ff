// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package builders

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// QoSBuilder provides a fluent interface for building test/fixture QoS
// records with Infinite defaults everywhere, so a test only has to name
// the limits it cares about.
type QoSBuilder struct {
	qos *types.QoS
}

// NewQoSBuilder creates a new QoS builder with the required name.
func NewQoSBuilder(name string) *QoSBuilder {
	return &QoSBuilder{qos: types.NewQoS(name)}
}

// WithFlags sets the QoS flags.
func (b *QoSBuilder) WithFlags(flags ...types.QoSFlag) *QoSBuilder {
	b.qos.Flags = append(b.qos.Flags, flags...)
	return b
}

// WithGrpCPUs sets grp_cpus.
func (b *QoSBuilder) WithGrpCPUs(v int64) *QoSBuilder { b.qos.Limits.GrpCPUs = v; return b }

// WithGrpNodes sets grp_nodes.
func (b *QoSBuilder) WithGrpNodes(v int64) *QoSBuilder { b.qos.Limits.GrpNodes = v; return b }

// WithGrpMem sets grp_mem.
func (b *QoSBuilder) WithGrpMem(v int64) *QoSBuilder { b.qos.Limits.GrpMem = v; return b }

// WithGrpJobs sets grp_jobs.
func (b *QoSBuilder) WithGrpJobs(v int64) *QoSBuilder { b.qos.Limits.GrpJobs = v; return b }

// WithGrpSubmitJobs sets grp_submit_jobs.
func (b *QoSBuilder) WithGrpSubmitJobs(v int64) *QoSBuilder {
	b.qos.Limits.GrpSubmitJobs = v
	return b
}

// WithGrpWall sets grp_wall (minutes).
func (b *QoSBuilder) WithGrpWall(v int64) *QoSBuilder { b.qos.Limits.GrpWall = v; return b }

// WithGrpCPUMins sets grp_cpu_mins.
func (b *QoSBuilder) WithGrpCPUMins(v int64) *QoSBuilder { b.qos.Limits.GrpCPUMins = v; return b }

// WithGrpCPURunMins sets grp_cpu_run_mins.
func (b *QoSBuilder) WithGrpCPURunMins(v int64) *QoSBuilder {
	b.qos.Limits.GrpCPURunMins = v
	return b
}

// WithMaxCPUsPerJob sets max_cpus_pj.
func (b *QoSBuilder) WithMaxCPUsPerJob(v int64) *QoSBuilder {
	b.qos.Limits.MaxCPUsPerJob = v
	return b
}

// WithMinCPUsPerJob sets min_cpus_pj.
func (b *QoSBuilder) WithMinCPUsPerJob(v int64) *QoSBuilder {
	b.qos.Limits.MinCPUsPerJob = v
	return b
}

// WithMaxNodesPerJob sets max_nodes_pj.
func (b *QoSBuilder) WithMaxNodesPerJob(v int64) *QoSBuilder {
	b.qos.Limits.MaxNodesPerJob = v
	return b
}

// WithMaxWallPerJob sets max_wall_pj (minutes).
func (b *QoSBuilder) WithMaxWallPerJob(v int64) *QoSBuilder {
	b.qos.Limits.MaxWallPerJob = v
	return b
}

// WithMaxCPUMinsPerJob sets max_cpu_mins_pj.
func (b *QoSBuilder) WithMaxCPUMinsPerJob(v int64) *QoSBuilder {
	b.qos.Limits.MaxCPUMinsPerJob = v
	return b
}

// WithMaxCPUsPerUser sets max_cpus_pu.
func (b *QoSBuilder) WithMaxCPUsPerUser(v int64) *QoSBuilder {
	b.qos.Limits.MaxCPUsPerUser = v
	return b
}

// WithMaxNodesPerUser sets max_nodes_pu.
func (b *QoSBuilder) WithMaxNodesPerUser(v int64) *QoSBuilder {
	b.qos.Limits.MaxNodesPerUser = v
	return b
}

// WithMaxJobsPerUser sets max_jobs_pu.
func (b *QoSBuilder) WithMaxJobsPerUser(v int64) *QoSBuilder {
	b.qos.Limits.MaxJobsPerUser = v
	return b
}

// WithMaxSubmitJobsPerUser sets max_submit_jobs_pu.
func (b *QoSBuilder) WithMaxSubmitJobsPerUser(v int64) *QoSBuilder {
	b.qos.Limits.MaxSubmitJobsPerUser = v
	return b
}

// Build returns the built QoS.
func (b *QoSBuilder) Build() *types.QoS { return b.qos }
