// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// admissionState carries the per-call bookkeeping Validate needs: whether
// a violating check must abort the whole walk immediately (strict), and —
// when it must not — the first violation seen, recorded once and reported
// at the end so derived caps (the installed time limit) still get
// computed even on a non-strict hold.
type admissionState struct {
	strict   bool
	violated bool
	code     types.ReasonCode
}

// record notes a violation (the first one wins) and reports whether the
// caller must stop walking right now.
func (s *admissionState) record(code types.ReasonCode) bool {
	if !s.violated {
		s.violated = true
		s.code = code
	}
	return s.strict
}

func effectiveCPUs(job *types.Job) int64 {
	if job.CPUs > 0 {
		return job.CPUs
	}
	return 1
}

func requestedMem(job *types.Job) int64 {
	if job.MinMemory == types.NoVal {
		return 0
	}
	return types.JobMemory(job.MinMemory, effectiveCPUs(job), maxInt64(job.Nodes, 1))
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// resolveAssociation returns the job's bound association, re-binding
// through the Resolver collaborator when the job carries no association
// reference or the reference no longer resolves (spec §4.6 step 1, used
// here too since admission needs the same association the usage mutator
// will later charge).
func (e *Engine) resolveAssociation(ctx context.Context, job *types.Job) (*types.Association, error) {
	if job.AssocID != "" {
		if a, err := e.Associations.Lookup(job.AssocID); err == nil {
			return a, nil
		}
	}
	a, err := e.Resolver.Resolve(ctx, job.Account, job.Partition, job.UserID)
	if err != nil || a == nil {
		return nil, errors.NewPolicyError(errors.ErrorCodeNoAssociation,
			"no association for job "+job.JobID)
	}
	job.AssocID = a.ID
	return a, nil
}

func (e *Engine) resolvePartition(job *types.Job) *types.Partition {
	if job.Partition == "" {
		return nil
	}
	p, err := e.Partitions.Lookup(job.Partition)
	if err != nil {
		return nil
	}
	return p
}

// Validate is the admission validator (spec §4.2): resolve precedence,
// walk the QoS pair then the association chain against a shared
// qos_out accumulator, and install an effective time limit on the job. It
// acquires BundleAdmission for the duration.
//
// Strict-checking policy (spec §4.2, §9 open question): a violation
// aborts admission immediately, returning false, when strict is true or
// the governing QoS carries DENY_LIMIT. Otherwise a violation is still
// recorded on the job (state_reason) but Validate returns true — the
// derived time limit is still computed and installed, and the caller
// relies on JobRunnablePreSelect to hold the job instead.
func (e *Engine) Validate(ctx context.Context, job *types.Job, strict bool) (ok bool, err error) {
	ctx = ctxOrBackground(ctx)
	ok = true

	e.withLock(BundleAdmission, func() {
		assoc, aerr := e.resolveAssociation(ctx, job)
		if aerr != nil {
			err = aerr
			ok = false
			return
		}

		part := e.resolvePartition(job)
		primary, secondary := e.ResolvePrecedence(job, part)

		effStrict := strict
		qosPair(primary, secondary, func(q *types.QoS) bool {
			if q.HasFlag(types.QoSFlagDenyLimit) {
				effStrict = true
			}
			return true
		})

		st := &admissionState{strict: effStrict}
		acc := newQoSAccumulator()
		qosWallCap := types.Infinite

		aborted := false
		qosPair(primary, secondary, func(q *types.QoS) bool {
			cap := e.validateQoS(job, q, &acc, st)
			qosWallCap = minCap(qosWallCap, cap)
			if st.violated && st.strict {
				aborted = true
				return false
			}
			return true
		})
		if aborted {
			job.SetReason(st.code)
			ok = false
			return
		}

		assocWallCap := types.Infinite
		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			cap := e.validateAssoc(job, a, isLeaf, isRoot, st)
			assocWallCap = minCap(assocWallCap, cap)
			if st.violated && st.strict {
				aborted = true
				return false
			}
			return true
		})
		if aborted {
			job.SetReason(st.code)
			ok = false
			return
		}

		e.deriveTimeLimit(job, part, qosWallCap, assocWallCap)

		if st.violated {
			job.SetReason(st.code)
		}
	})

	if err == nil {
		e.recordDecision(ctx, "validate", job, ok, job.StateReason)
	}
	return ok, err
}

// validateQoS checks every finite limit slot of q not yet claimed by an
// earlier QoS in the pair, recording the first violation on st. It
// returns a wall-time candidate (minutes) derived from whichever of
// max_wall_pj / max_cpu_mins_pj this QoS claims, or Infinite.
func (e *Engine) validateQoS(job *types.Job, q *types.QoS, acc *qosAccumulator, st *admissionState) int64 {
	l := q.Limits
	u := q.Usage
	uid := job.UserID
	wallCap := types.Infinite

	if claim(&acc.MaxCPUsPerUser, l.MaxCPUsPerUser) && job.AdminSet.CPU != types.LimitSetAdmin {
		if u.User(uid).CPUs+job.CPUs > l.MaxCPUsPerUser {
			st.record(types.WaitQoSMaxCPUPerUser)
		}
	}
	if claim(&acc.GrpCPUs, l.GrpCPUs) && job.AdminSet.CPU != types.LimitSetAdmin {
		if u.GrpUsedCPUs+job.CPUs > l.GrpCPUs {
			st.record(types.WaitQoSGrpCPU)
		}
	}
	if claim(&acc.GrpMem, l.GrpMem) && job.AdminSet.Mem != types.LimitSetAdmin {
		if u.GrpUsedMem+requestedMem(job) > l.GrpMem {
			st.record(types.WaitQoSGrpMem)
		}
	}
	if claim(&acc.MaxNodesPerUser, l.MaxNodesPerUser) && job.AdminSet.Node != types.LimitSetAdmin {
		if u.User(uid).Nodes+job.Nodes > l.MaxNodesPerUser {
			st.record(types.WaitQoSMaxNodePerUsr)
		}
	}
	if claim(&acc.GrpNodes, l.GrpNodes) && job.AdminSet.Node != types.LimitSetAdmin {
		if u.GrpUsedNodes+job.Nodes > l.GrpNodes {
			st.record(types.WaitQoSGrpNode)
		}
	}
	if claim(&acc.GrpSubmitJobs, l.GrpSubmitJobs) {
		if u.GrpUsedSubmitJobs+1 > l.GrpSubmitJobs {
			st.record(types.WaitQoSGrpSubJob)
		}
	}
	if claim(&acc.MaxCPUsPerJob, l.MaxCPUsPerJob) && job.AdminSet.CPU != types.LimitSetAdmin {
		if job.CPUs > l.MaxCPUsPerJob {
			st.record(types.WaitQoSMaxCPUPerJob)
		}
	}
	if claim(&acc.MinCPUsPerJob, l.MinCPUsPerJob) && job.AdminSet.CPU != types.LimitSetAdmin {
		if job.CPUs < l.MinCPUsPerJob {
			st.record(types.WaitQoSMinCPUPerJob)
		}
	}
	if claim(&acc.MaxNodesPerJob, l.MaxNodesPerJob) && job.AdminSet.Node != types.LimitSetAdmin {
		if job.Nodes > l.MaxNodesPerJob {
			st.record(types.WaitQoSMaxNodePerJob)
		}
	}
	if claim(&acc.MaxSubmitJobsPerUser, l.MaxSubmitJobsPerUser) {
		if u.User(uid).SubmitJobs+1 > l.MaxSubmitJobsPerUser {
			st.record(types.WaitQoSMaxSubJobPerU)
		}
	}
	if claim(&acc.MaxCPUMinsPerJob, l.MaxCPUMinsPerJob) {
		wallCap = minCap(wallCap, l.MaxCPUMinsPerJob/effectiveCPUs(job))
		if job.AdminSet.Time != types.LimitSetAdmin && job.TimeLimit != types.NoVal &&
			job.TimeLimit > l.MaxCPUMinsPerJob/effectiveCPUs(job) {
			st.record(types.WaitQoSMaxCPUMinsPJ)
		}
	}
	if claim(&acc.MaxWallPerJob, l.MaxWallPerJob) {
		wallCap = minCap(wallCap, l.MaxWallPerJob)
		if job.AdminSet.Time != types.LimitSetAdmin && job.TimeLimit != types.NoVal &&
			job.TimeLimit > l.MaxWallPerJob {
			st.record(types.WaitQoSMaxWallPerJob)
		}
	}

	return wallCap
}

// validateAssoc checks one association node on the leaf-to-root walk
// (step 3), skipping any resource admin-pinned on the job. Resources a QoS
// in the pair already limits are still checked here against the
// association's group limits. It returns a wall-time candidate (minutes)
// from the leaf's own max_wall_pj / max_tres_mins_pj[cpu], or Infinite.
func (e *Engine) validateAssoc(job *types.Job, a *types.Association, isLeaf, isRoot bool, st *admissionState) int64 {
	l := a.Ctld
	u := a.Usage
	wallCap := types.Infinite

	if job.AdminSet.CPU != types.LimitSetAdmin {
		if cap := l.GrpTRES.Get(types.TRESCPU); cap != types.Infinite {
			if u.UsedTRES.Get(types.TRESCPU)+job.CPUs > cap {
				st.record(types.WaitAssocGrpCPU)
			}
		}
	}
	if job.AdminSet.Mem != types.LimitSetAdmin {
		if cap := l.GrpTRES.Get(types.TRESMem); cap != types.Infinite {
			if u.UsedTRES.Get(types.TRESMem)+requestedMem(job) > cap {
				st.record(types.WaitAssocGrpMem)
			}
		}
		if l.GrpMem != types.Infinite && u.UsedMem+requestedMem(job) > l.GrpMem {
			st.record(types.WaitAssocGrpMem)
		}
	}
	if job.AdminSet.Node != types.LimitSetAdmin {
		if cap := l.GrpTRES.Get(types.TRESNode); cap != types.Infinite {
			if u.UsedTRES.Get(types.TRESNode)+job.Nodes > cap {
				st.record(types.WaitAssocGrpNode)
			}
		}
		if l.GrpNodes != types.Infinite && u.UsedNodes+job.Nodes > l.GrpNodes {
			st.record(types.WaitAssocGrpNode)
		}
	}
	if l.GrpSubmitJobs != types.Infinite && u.UsedSubmitJobs+1 > l.GrpSubmitJobs {
		st.record(types.WaitAssocGrpSubJob)
	}
	if l.GrpWall != types.Infinite && job.TimeLimit != types.NoVal {
		if (u.UsedWallSecs/60)+job.TimeLimit > l.GrpWall {
			st.record(types.WaitAssocGrpWall)
		}
	}

	if !isLeaf || isRoot {
		return wallCap
	}

	if job.AdminSet.CPU != types.LimitSetAdmin {
		if cap := l.MaxTRESPerJob.Get(types.TRESCPU); cap != types.Infinite && job.CPUs > cap {
			st.record(types.WaitAssocMaxCPUPerJob)
		}
	}
	if job.AdminSet.Node != types.LimitSetAdmin {
		if cap := l.MaxNodesPerJob; cap != types.Infinite && job.Nodes > cap {
			st.record(types.WaitAssocMaxNodePerJ)
		}
		if cap := l.MaxTRESPerJob.Get(types.TRESNode); cap != types.Infinite && job.Nodes > cap {
			st.record(types.WaitAssocMaxNodePerJ)
		}
	}
	if l.MaxSubmitJobs != types.Infinite && int64(1) > l.MaxSubmitJobs {
		st.record(types.WaitAssocMaxSubJob)
	}
	if cpuMins := l.MaxTRESMinsPerJob.Get(types.TRESCPU); cpuMins != types.Infinite {
		cap := cpuMins / effectiveCPUs(job)
		wallCap = minCap(wallCap, cap)
		if job.AdminSet.Time != types.LimitSetAdmin && job.TimeLimit != types.NoVal && job.TimeLimit > cap {
			st.record(types.WaitAssocMaxCPUMinsPJ)
		}
	}
	if l.MaxWallPerJob != types.Infinite {
		wallCap = minCap(wallCap, l.MaxWallPerJob)
		if job.AdminSet.Time != types.LimitSetAdmin && job.TimeLimit != types.NoVal && job.TimeLimit > l.MaxWallPerJob {
			st.record(types.WaitAssocMaxWallPerJ)
		}
	}

	return wallCap
}

// deriveTimeLimit installs the effective time limit (spec §4.2 step 4,
// invariant 4): the minimum of the partition's max_time and every
// applicable QoS/association wall cap. An admin-pinned time limit
// (limit_set.time == ADMIN_SET_LIMIT) is never read or overwritten. An
// unset request adopts the computed cap outright; an explicit request is
// clipped down to it. Either mutation marks limit_set.time as
// policy-derived and bumps the job-update clock.
func (e *Engine) deriveTimeLimit(job *types.Job, part *types.Partition, qosWallCap, assocWallCap int64) {
	if job.AdminSet.Time == types.LimitSetAdmin {
		return
	}

	cap := types.Infinite
	if part != nil {
		cap = minCap(cap, part.MaxTime)
	}
	cap = minCap(cap, qosWallCap)
	cap = minCap(cap, assocWallCap)

	switch {
	case job.TimeLimit == types.NoVal:
		job.TimeLimit = cap
		job.AdminSet.Time = types.LimitSetPolicy
		e.LastJobUpdate.Bump()
	case cap != types.Infinite && job.TimeLimit > cap:
		job.TimeLimit = cap
		job.AdminSet.Time = types.LimitSetPolicy
		e.LastJobUpdate.Bump()
	}
}
