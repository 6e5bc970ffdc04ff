// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// AlterJob applies an operator-initiated time-limit change to a running
// job (spec §4.7). A running job already carries a BeginSnapshot crediting
// total_cpus*time_limit*60 cpu-run-seconds to its QoS pair and association
// chain; alter must adjust exactly the delta between the old and new
// cpu-run-second totals, then replace the snapshot's own time limit so a
// later JOB_FINI still reverses the right amount (invariant 6).
//
// A job with no BeginSnapshot has not been credited yet (still pending),
// so alter only rewrites the field and marks it administrator-pinned; a
// later Validate call keeps the pinned value instead of deriving a limit.
func (e *Engine) AlterJob(ctx context.Context, job *types.Job, newTimeLimit int64) error {
	ctx = ctxOrBackground(ctx)
	var opErr error

	if job.Begin == nil {
		job.TimeLimit = newTimeLimit
		job.AdminSet.Time = types.LimitSetAdmin
		e.LastJobUpdate.Bump()
		e.recordDecision(ctx, "alter", job, true, types.WaitNoReason)
		return nil
	}

	e.withLock(BundleMutator, func() {
		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			opErr = err
			return
		}

		snap := job.Begin
		primary, secondary := e.qosPairByName(snap.PrimaryQoS, snap.SecondaryQoS)

		newCPURunSecs := snap.CPUs * newTimeLimit * 60
		delta := newCPURunSecs - snap.CPURunSecs

		qosPair(primary, secondary, func(q *types.QoS) bool {
			e.clampAdd(&q.Usage.GrpUsedCPURunSecs, delta, "qos.grp_used_cpu_run_secs")
			return true
		})

		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			e.clampAdd(&a.Usage.UsedCPURunSecs, delta, "assoc.used_cpu_run_secs")
			return true
		})

		snap.CPURunSecs = newCPURunSecs
		snap.TimeLimit = newTimeLimit
		job.TimeLimit = newTimeLimit
		job.AdminSet.Time = types.LimitSetAdmin
		e.LastJobUpdate.Bump()
	})

	if opErr == nil {
		e.recordDecision(ctx, "alter", job, true, types.WaitNoReason)
	}
	return opErr
}
