// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/config"
)

// JobRunnableState is spec §6's job_runnable_state entry point. The
// component design (§4) never splits it out as a distinct check from
// job_runnable_pre_select — both are "is this still-pending job's own
// configuration-only limits satisfied" reads with no node-selection
// input — so this is a thin alias kept under its own name only because
// the external contract lists it separately.
func (e *Engine) JobRunnableState(ctx context.Context, job *types.Job) bool {
	return e.JobRunnablePreSelect(ctx, job)
}

// JobRunnablePreSelect is the pre-select runnability check (spec §4.3):
// limits that do not depend on a node-selection result. It clears any
// stale limit-wait reason before checking, writes a fresh one on
// violation, and never mutates usage counters.
func (e *Engine) JobRunnablePreSelect(ctx context.Context, job *types.Job) bool {
	ctx = ctxOrBackground(ctx)
	runnable := true

	e.withLock(BundleRunnable, func() {
		job.ClearLimitWaitReason()

		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			job.SetReason(types.FailAccount)
			runnable = false
			return
		}
		part := e.resolvePartition(job)
		primary, secondary := e.ResolvePrecedence(job, part)

		acc := newQoSAccumulator()
		uid := job.UserID
		var violation types.ReasonCode

		qosPair(primary, secondary, func(q *types.QoS) bool {
			u := q.Usage
			l := q.Limits
			if claim(&acc.GrpJobs, l.GrpJobs) && u.GrpUsedJobs+1 > l.GrpJobs {
				violation = types.WaitQoSGrpJob
				return false
			}
			if claim(&acc.GrpWall, l.GrpWall) && job.TimeLimit != types.NoVal &&
				(u.GrpUsedWallSecs/60)+job.TimeLimit > l.GrpWall {
				violation = types.WaitQoSGrpWall
				return false
			}
			if claim(&acc.MaxJobsPerUser, l.MaxJobsPerUser) && u.User(uid).Jobs+1 > l.MaxJobsPerUser {
				violation = types.WaitQoSMaxJobPerUser
				return false
			}
			if claim(&acc.MaxWallPerJob, l.MaxWallPerJob) && job.AdminSet.Time != types.LimitSetAdmin &&
				job.TimeLimit != types.NoVal && job.TimeLimit > l.MaxWallPerJob {
				violation = types.WaitQoSMaxWallPerJob
				return false
			}
			return true
		})

		if violation != "" {
			job.SetReason(violation)
			runnable = false
			return
		}

		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			l := a.Ctld
			u := a.Usage
			if l.GrpJobs != types.Infinite && u.UsedJobs+1 > l.GrpJobs {
				violation = types.WaitAssocGrpJob
				return false
			}
			if l.GrpWall != types.Infinite && job.TimeLimit != types.NoVal &&
				(u.UsedWallSecs/60)+job.TimeLimit > l.GrpWall {
				violation = types.WaitAssocGrpWall
				return false
			}
			if isLeaf && !isRoot && l.MaxWallPerJob != types.Infinite &&
				job.AdminSet.Time != types.LimitSetAdmin &&
				job.TimeLimit != types.NoVal && job.TimeLimit > l.MaxWallPerJob {
				violation = types.WaitAssocMaxWallPerJ
				return false
			}
			return true
		})

		if violation != "" {
			job.SetReason(violation)
			runnable = false
		}
	})

	e.recordDecision(ctx, "pre_select", job, runnable, job.StateReason)
	return runnable
}

// PostSelectRequest bundles the node-selection result passed into
// JobRunnablePostSelect (spec §4.4).
type PostSelectRequest struct {
	NodeCnt    int64
	CPUCnt     int64
	PerNodeMem int64 // high bit MemPerCPU flags per-CPU interpretation
}

// JobRunnablePostSelect is the post-select runnability check (spec §4.4):
// invoked after the scheduler has chosen nodes and CPUs. It normalizes
// requested memory, then walks the QoS pair and the association chain
// checking the dual-form group caps, per-job caps, and per-user caps.
// The first violation writes state_reason and returns false.
func (e *Engine) JobRunnablePostSelect(ctx context.Context, job *types.Job, sel PostSelectRequest) bool {
	ctx = ctxOrBackground(ctx)
	runnable := true

	var jobMemory int64
	if sel.PerNodeMem != types.NoVal {
		jobMemory = types.JobMemory(sel.PerNodeMem, sel.CPUCnt, sel.NodeCnt)
	}
	memExempt := job.AdminSet.Mem == types.LimitSetAdmin || job.AdminSet.CPU == types.LimitSetAdmin

	e.withLock(BundleRunnable, func() {
		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			job.SetReason(types.FailAccount)
			runnable = false
			return
		}

		primary, secondary := e.ResolvePrecedence(job, e.resolvePartition(job))
		acc := newQoSAccumulator()
		uid := job.UserID
		safe := e.Enforce.Has(config.EnforceSafe)
		var violation types.ReasonCode

		qosPair(primary, secondary, func(q *types.QoS) bool {
			l := q.Limits
			u := q.Usage

			if claim(&acc.GrpCPUMins, l.GrpCPUMins) {
				usageMins := int64(u.UsageRawSecs / 60)
				if safe {
					cpuTimeLimit := int64(0)
					if job.TimeLimit != types.NoVal {
						cpuTimeLimit = job.TimeLimit * sel.CPUCnt
					}
					if cpuTimeLimit+u.GrpUsedCPURunSecs/60 > l.GrpCPUMins-usageMins {
						violation = types.WaitQoSGrpCPUMin
						return false
					}
				} else if usageMins >= l.GrpCPUMins {
					violation = types.WaitQoSGrpCPUMin
					return false
				}
			}
			if claim(&acc.GrpCPUs, l.GrpCPUs) {
				if sel.CPUCnt > l.GrpCPUs || u.GrpUsedCPUs+sel.CPUCnt > l.GrpCPUs {
					violation = types.WaitQoSGrpCPU
					return false
				}
			}
			if claim(&acc.GrpMem, l.GrpMem) && !memExempt {
				if jobMemory > l.GrpMem || u.GrpUsedMem+jobMemory > l.GrpMem {
					violation = types.WaitQoSGrpMem
					return false
				}
			}
			if claim(&acc.GrpCPURunMins, l.GrpCPURunMins) {
				runMins := int64(0)
				if job.TimeLimit != types.NoVal {
					runMins = sel.CPUCnt * job.TimeLimit
				}
				if u.GrpUsedCPURunSecs/60+runMins > l.GrpCPURunMins {
					violation = types.WaitQoSGrpCPURunMin
					return false
				}
			}
			if claim(&acc.GrpNodes, l.GrpNodes) {
				if sel.NodeCnt > l.GrpNodes || u.GrpUsedNodes+sel.NodeCnt > l.GrpNodes {
					violation = types.WaitQoSGrpNode
					return false
				}
			}
			if claim(&acc.MaxCPUMinsPerJob, l.MaxCPUMinsPerJob) && job.TimeLimit != types.NoVal {
				if sel.CPUCnt*job.TimeLimit > l.MaxCPUMinsPerJob {
					violation = types.WaitQoSMaxCPUMinsPJ
					return false
				}
			}
			if claim(&acc.MaxCPUsPerJob, l.MaxCPUsPerJob) && sel.CPUCnt > l.MaxCPUsPerJob {
				violation = types.WaitQoSMaxCPUPerJob
				return false
			}
			if claim(&acc.MinCPUsPerJob, l.MinCPUsPerJob) && sel.CPUCnt < l.MinCPUsPerJob {
				violation = types.WaitQoSMinCPUPerJob
				return false
			}
			if claim(&acc.MaxNodesPerJob, l.MaxNodesPerJob) && sel.NodeCnt > l.MaxNodesPerJob {
				violation = types.WaitQoSMaxNodePerJob
				return false
			}
			if claim(&acc.MaxCPUsPerUser, l.MaxCPUsPerUser) {
				if sel.CPUCnt > l.MaxCPUsPerUser || u.User(uid).CPUs+sel.CPUCnt > l.MaxCPUsPerUser {
					violation = types.WaitQoSMaxCPUPerUser
					return false
				}
			}
			if claim(&acc.MaxNodesPerUser, l.MaxNodesPerUser) {
				if sel.NodeCnt > l.MaxNodesPerUser || u.User(uid).Nodes+sel.NodeCnt > l.MaxNodesPerUser {
					violation = types.WaitQoSMaxNodePerUsr
					return false
				}
			}
			return true
		})

		if violation != "" {
			job.SetReason(violation)
			runnable = false
			return
		}

		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			l := a.Ctld
			u := a.Usage

			if cap := l.GrpTRES.Get(types.TRESCPU); cap != types.Infinite {
				if sel.CPUCnt > cap || u.UsedTRES.Get(types.TRESCPU)+sel.CPUCnt > cap {
					violation = types.WaitAssocGrpCPU
					return false
				}
			}
			if !memExempt {
				if l.GrpMem != types.Infinite && (jobMemory > l.GrpMem || u.UsedMem+jobMemory > l.GrpMem) {
					violation = types.WaitAssocGrpMem
					return false
				}
			}
			if l.GrpNodes != types.Infinite {
				if sel.NodeCnt > l.GrpNodes || u.UsedNodes+sel.NodeCnt > l.GrpNodes {
					violation = types.WaitAssocGrpNode
					return false
				}
			}
			if isLeaf && !isRoot {
				if cap := l.MaxTRESPerJob.Get(types.TRESCPU); cap != types.Infinite && sel.CPUCnt > cap {
					violation = types.WaitAssocMaxCPUPerJob
					return false
				}
				if l.MaxNodesPerJob != types.Infinite && sel.NodeCnt > l.MaxNodesPerJob {
					violation = types.WaitAssocMaxNodePerJ
					return false
				}
			}
			return true
		})

		if violation != "" {
			job.SetReason(violation)
			runnable = false
		}
	})

	e.recordDecision(ctx, "post_select", job, runnable, job.StateReason)
	return runnable
}
