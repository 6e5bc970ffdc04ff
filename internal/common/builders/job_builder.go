// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package builders

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// JobBuilder provides a fluent interface for building test/fixture job
// snapshots.
type JobBuilder struct {
	job *types.Job
}

// NewJobBuilder creates a new job builder with the required identifiers.
func NewJobBuilder(jobID, userID, assocID string) *JobBuilder {
	return &JobBuilder{job: &types.Job{
		JobID:     jobID,
		UserID:    userID,
		AssocID:   assocID,
		TimeLimit: types.NoVal,
	}}
}

// WithAccount sets the owning account name.
func (b *JobBuilder) WithAccount(account string) *JobBuilder { b.job.Account = account; return b }

// WithQoS sets the job's requested QoS name.
func (b *JobBuilder) WithQoS(name string) *JobBuilder { b.job.QoSName = name; return b }

// WithPartition sets the job's partition.
func (b *JobBuilder) WithPartition(name string) *JobBuilder { b.job.Partition = name; return b }

// WithCPUs sets the requested CPU count.
func (b *JobBuilder) WithCPUs(cpus int64) *JobBuilder { b.job.CPUs = cpus; return b }

// WithNodes sets the requested node count.
func (b *JobBuilder) WithNodes(nodes int64) *JobBuilder { b.job.Nodes = nodes; return b }

// WithMinMemory sets the requested per-node (or, with MemPerCPU ORed in,
// per-CPU) minimum memory.
func (b *JobBuilder) WithMinMemory(mem int64) *JobBuilder { b.job.MinMemory = mem; return b }

// WithTimeLimit sets the requested wall-clock time limit in minutes.
func (b *JobBuilder) WithTimeLimit(minutes int64) *JobBuilder {
	b.job.TimeLimit = minutes
	return b
}

// WithAdminSetTime marks the time limit as administrator-pinned, exempting
// it from policy validation.
func (b *JobBuilder) WithAdminSetTime() *JobBuilder {
	b.job.AdminSet.Time = types.LimitSetAdmin
	return b
}

// WithAdminSetCPU marks the CPU request as administrator-pinned.
func (b *JobBuilder) WithAdminSetCPU() *JobBuilder {
	b.job.AdminSet.CPU = types.LimitSetAdmin
	return b
}

// Build returns the built job.
func (b *JobBuilder) Build() *types.Job { return b.job }
