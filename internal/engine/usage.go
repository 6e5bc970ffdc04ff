// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// clampAdd adds delta to *counter, clamping at zero and logging a
// diagnostic if the result would otherwise go negative (spec invariant 1,
// "underflow"). delta may be positive (submit/begin) or negative
// (remove/fini).
func (e *Engine) clampAdd(counter *int64, delta int64, field string) {
	next := *counter + delta
	if next < 0 {
		e.log.Debug("usage counter underflow", "field", field, "current", *counter, "delta", delta)
		next = 0
	}
	*counter = next
}

// qosPairByName resolves a QoS pair by the names recorded on a begin
// snapshot, rather than by re-running precedence against the job's
// current (possibly since-altered) QoS reference — invariant 6 requires
// reversing exactly what was credited at begin.
func (e *Engine) qosPairByName(primaryName, secondaryName string) (primary, secondary *types.QoS) {
	if primaryName != "" {
		primary, _ = e.QoSes.Lookup(primaryName)
	}
	if secondaryName != "" {
		secondary, _ = e.QoSes.Lookup(secondaryName)
	}
	return primary, secondary
}

// AddJobSubmit increments grp_submit_jobs on the resolved QoS pair and on
// every association up to and including the root (spec §4.6 ADD_SUBMIT,
// invariant 6's tree walk).
func (e *Engine) AddJobSubmit(ctx context.Context, job *types.Job) error {
	return e.submitDelta(ctx, job, 1)
}

// RemoveJobSubmit reverses AddJobSubmit.
func (e *Engine) RemoveJobSubmit(ctx context.Context, job *types.Job) error {
	return e.submitDelta(ctx, job, -1)
}

func (e *Engine) submitDelta(ctx context.Context, job *types.Job, sign int64) error {
	ctx = ctxOrBackground(ctx)
	var opErr error

	e.withLock(BundleMutator, func() {
		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			return
		}
		primary, secondary := e.ResolvePrecedence(job, e.resolvePartition(job))
		uid := job.UserID

		qosPair(primary, secondary, func(q *types.QoS) bool {
			e.clampAdd(&q.Usage.GrpUsedSubmitJobs, sign, "qos.grp_used_submit_jobs")
			e.clampAdd(&q.Usage.User(uid).SubmitJobs, sign, "qos.user.submit_jobs")
			return true
		})

		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			e.clampAdd(&a.Usage.UsedSubmitJobs, sign, "assoc.used_submit_jobs")
			return true
		})
		_ = opErr
	})

	op := "add_submit"
	if sign < 0 {
		op = "remove_submit"
	}
	e.recordDecision(ctx, op, job, opErr == nil, types.WaitNoReason)
	return opErr
}

// JobBegin applies the JOB_BEGIN deltas (spec §4.6): normalizes
// job_memory, computes used_cpu_run_secs = total_cpus * time_limit * 60,
// credits the resolved QoS pair and the association chain to the root,
// and records a BeginSnapshot so JOB_FINI can reverse exactly these
// quantities later regardless of any intervening reconfiguration.
func (e *Engine) JobBegin(ctx context.Context, job *types.Job) error {
	ctx = ctxOrBackground(ctx)
	var opErr error

	e.withLock(BundleMutator, func() {
		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			opErr = err
			return
		}
		primary, secondary := e.ResolvePrecedence(job, e.resolvePartition(job))
		uid := job.UserID

		jobMemory := int64(0)
		if job.MinMemory != types.NoVal {
			jobMemory = types.JobMemory(job.MinMemory, job.TotalCPUs, job.NodeCnt)
		}
		timeLimit := job.TimeLimit
		if timeLimit == types.NoVal {
			timeLimit = 0
		}
		cpuRunSecs := job.TotalCPUs * timeLimit * 60

		qosPair(primary, secondary, func(q *types.QoS) bool {
			u := q.Usage
			e.clampAdd(&u.GrpUsedJobs, 1, "qos.grp_used_jobs")
			e.clampAdd(&u.GrpUsedCPUs, job.TotalCPUs, "qos.grp_used_cpus")
			e.clampAdd(&u.GrpUsedMem, jobMemory, "qos.grp_used_mem")
			e.clampAdd(&u.GrpUsedNodes, job.NodeCnt, "qos.grp_used_nodes")
			e.clampAdd(&u.GrpUsedCPURunSecs, cpuRunSecs, "qos.grp_used_cpu_run_secs")
			pu := u.User(uid)
			e.clampAdd(&pu.Jobs, 1, "qos.user.jobs")
			e.clampAdd(&pu.CPUs, job.TotalCPUs, "qos.user.cpus")
			e.clampAdd(&pu.Nodes, job.NodeCnt, "qos.user.nodes")
			return true
		})

		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			u := a.Usage
			e.clampAdd(&u.UsedJobs, 1, "assoc.used_jobs")
			cpu := u.UsedTRES.Get(types.TRESCPU)
			e.clampAdd(&cpu, job.TotalCPUs, "assoc.used_tres.cpu")
			u.UsedTRES.Set(types.TRESCPU, cpu)
			mem := u.UsedTRES.Get(types.TRESMem)
			e.clampAdd(&mem, jobMemory, "assoc.used_tres.mem")
			u.UsedTRES.Set(types.TRESMem, mem)
			node := u.UsedTRES.Get(types.TRESNode)
			e.clampAdd(&node, job.NodeCnt, "assoc.used_tres.node")
			u.UsedTRES.Set(types.TRESNode, node)
			e.clampAdd(&u.UsedMem, jobMemory, "assoc.used_mem")
			e.clampAdd(&u.UsedNodes, job.NodeCnt, "assoc.used_nodes")
			e.clampAdd(&u.UsedCPURunSecs, cpuRunSecs, "assoc.used_cpu_run_secs")
			return true
		})

		snap := &types.BeginSnapshot{
			CPUs:       job.TotalCPUs,
			Nodes:      job.NodeCnt,
			Mem:        jobMemory,
			TimeLimit:  timeLimit,
			CPURunSecs: cpuRunSecs,
		}
		if primary != nil {
			snap.PrimaryQoS = primary.Name
		}
		if secondary != nil {
			snap.SecondaryQoS = secondary.Name
		}
		job.Begin = snap
	})

	e.recordDecision(ctx, "begin", job, opErr == nil, types.WaitNoReason)
	return opErr
}

// JobFini applies the JOB_FINI deltas (spec §4.6): calls the priority
// hook before any bookkeeping (and outside the write lock, per spec §5),
// then symmetrically subtracts exactly what JobBegin credited, from the
// snapshot rather than the job's live fields.
func (e *Engine) JobFini(ctx context.Context, job *types.Job) error {
	ctx = ctxOrBackground(ctx)
	e.Priority.JobEnd(ctx, job)

	if job.Begin == nil {
		return nil
	}
	snap := job.Begin
	var opErr error

	e.withLock(BundleMutator, func() {
		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			opErr = err
			return
		}
		primary, secondary := e.qosPairByName(snap.PrimaryQoS, snap.SecondaryQoS)

		qosPair(primary, secondary, func(q *types.QoS) bool {
			u := q.Usage
			e.clampAdd(&u.GrpUsedJobs, -1, "qos.grp_used_jobs")
			e.clampAdd(&u.GrpUsedCPUs, -snap.CPUs, "qos.grp_used_cpus")
			e.clampAdd(&u.GrpUsedMem, -snap.Mem, "qos.grp_used_mem")
			e.clampAdd(&u.GrpUsedNodes, -snap.Nodes, "qos.grp_used_nodes")
			e.clampAdd(&u.GrpUsedCPURunSecs, -snap.CPURunSecs, "qos.grp_used_cpu_run_secs")
			if pu, ok := u.PerUser[job.UserID]; ok {
				e.clampAdd(&pu.Jobs, -1, "qos.user.jobs")
				e.clampAdd(&pu.CPUs, -snap.CPUs, "qos.user.cpus")
				e.clampAdd(&pu.Nodes, -snap.Nodes, "qos.user.nodes")
			}
			return true
		})

		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			u := a.Usage
			e.clampAdd(&u.UsedJobs, -1, "assoc.used_jobs")
			cpu := u.UsedTRES.Get(types.TRESCPU)
			e.clampAdd(&cpu, -snap.CPUs, "assoc.used_tres.cpu")
			u.UsedTRES.Set(types.TRESCPU, cpu)
			mem := u.UsedTRES.Get(types.TRESMem)
			e.clampAdd(&mem, -snap.Mem, "assoc.used_tres.mem")
			u.UsedTRES.Set(types.TRESMem, mem)
			node := u.UsedTRES.Get(types.TRESNode)
			e.clampAdd(&node, -snap.Nodes, "assoc.used_tres.node")
			u.UsedTRES.Set(types.TRESNode, node)
			e.clampAdd(&u.UsedMem, -snap.Mem, "assoc.used_mem")
			e.clampAdd(&u.UsedNodes, -snap.Nodes, "assoc.used_nodes")
			e.clampAdd(&u.UsedCPURunSecs, -snap.CPURunSecs, "assoc.used_cpu_run_secs")
			return true
		})

		job.Begin = nil
	})

	e.recordDecision(ctx, "fini", job, opErr == nil, types.WaitNoReason)
	return opErr
}
