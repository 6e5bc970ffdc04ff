// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"time"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/config"
)

// JobTimeOut is the timeout evaluator (spec §4.5): a periodic read-only
// scan over a running job. With safe-limits enabled, runtime timeout
// enforcement is suppressed entirely — safe mode already refused this job
// at post-select if it could not finish within its historical-CPU-minute
// budget (testable property 8), so JobTimeOut always returns false.
func (e *Engine) JobTimeOut(ctx context.Context, job *types.Job, now time.Time) bool {
	ctx = ctxOrBackground(ctx)
	if e.Enforce.Has(config.EnforceSafe) {
		return false
	}

	timedOut := false
	e.withLock(BundleQuery, func() {
		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			return
		}

		elapsedSecs := now.Sub(job.StartTime).Seconds() - float64(job.SuspendedSecs)
		if elapsedSecs < 0 {
			elapsedSecs = 0
		}
		jobCPUUsageMins := int64(elapsedSecs/60) * job.TotalCPUs

		primary, secondary := e.ResolvePrecedence(job, e.resolvePartition(job))
		acc := newQoSAccumulator()

		qosPair(primary, secondary, func(q *types.QoS) bool {
			l := q.Limits
			u := q.Usage
			usageMins := int64(u.UsageRawSecs / 60)
			wallMins := u.GrpUsedWallSecs / 60

			if claim(&acc.GrpCPUMins, l.GrpCPUMins) && usageMins >= l.GrpCPUMins {
				timedOut = true
				return false
			}
			if claim(&acc.GrpWall, l.GrpWall) && wallMins >= l.GrpWall {
				timedOut = true
				return false
			}
			if claim(&acc.MaxCPUMinsPerJob, l.MaxCPUMinsPerJob) && jobCPUUsageMins >= l.MaxCPUMinsPerJob {
				timedOut = true
				return false
			}
			return true
		})
		if timedOut {
			return
		}

		assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
			if isRoot {
				return false
			}
			l := a.Ctld
			u := a.Usage

			if cap := l.GrpTRESMins.Get(types.TRESCPU); cap != types.Infinite && u.UsageRawSecs/60 >= float64(cap) {
				timedOut = true
				return false
			}
			if l.GrpWall != types.Infinite && u.UsedWallSecs/60 >= l.GrpWall {
				timedOut = true
				return false
			}
			if isLeaf {
				if cap := l.MaxTRESMinsPerJob.Get(types.TRESCPU); cap != types.Infinite && jobCPUUsageMins >= cap {
					timedOut = true
					return false
				}
			}
			return true
		})

		if timedOut {
			job.SetReason(types.FailTimeout)
			e.LastJobUpdate.Bump()
		}
	})

	reason := types.ReasonCode("")
	if timedOut {
		reason = types.FailTimeout
	}
	e.recordDecision(ctx, "timeout_check", job, !timedOut, reason)
	return timedOut
}
