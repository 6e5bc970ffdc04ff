// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// GetMaxNodes is the max-nodes query (spec §4.8): a read-only lookup of
// the tightest node-count cap applicable to a job, together with the
// reason code identifying which limit won.
//
// QoS fields are merged first-claim (primary's finite value wins, a
// secondary only fills a slot primary left Infinite — S6: a stricter
// secondary never overrides a primary that already claimed the slot).
// The merged max_nodes_pj and max_nodes_pu are then compared: the
// per-job cap wins whenever it is strictly tighter than the per-user
// cap, otherwise the per-user cap answers; either way the merged
// grp_nodes may still tighten the result further. Only once QoS leaves
// a field unconstrained does the association walk get to answer it:
// the leaf's max_nodes_pj (if QoS never set one) and, separately, the
// first finite grp_nodes hit walking leaf to root (if QoS never set
// one) — the association walk stops at the first grp_nodes hit.
func (e *Engine) GetMaxNodes(ctx context.Context, job *types.Job) (maxNodes int64, reason types.ReasonCode) {
	ctx = ctxOrBackground(ctx)
	maxNodes = types.Infinite
	reason = types.WaitNoReason

	e.withLock(BundleQuery, func() {
		assoc, err := e.resolveAssociation(ctx, job)
		if err != nil {
			reason = types.FailAccount
			return
		}

		primary, secondary := e.ResolvePrecedence(job, e.resolvePartition(job))

		accPJ := newQoSAccumulator()
		accPU := newQoSAccumulator()
		accGrp := newQoSAccumulator()
		qosPair(primary, secondary, func(q *types.QoS) bool {
			claim(&accPJ.MaxNodesPerJob, q.Limits.MaxNodesPerJob)
			claim(&accPU.MaxNodesPerUser, q.Limits.MaxNodesPerUser)
			claim(&accGrp.GrpNodes, q.Limits.GrpNodes)
			return true
		})
		qosPJ, qosPU, qosGrp := accPJ.MaxNodesPerJob, accPU.MaxNodesPerUser, accGrp.GrpNodes

		switch {
		case qosPJ != types.Infinite && (qosPU == types.Infinite || qosPJ < qosPU):
			maxNodes, reason = qosPJ, types.WaitQoSMaxNodePerJob
		case qosPU != types.Infinite:
			maxNodes, reason = qosPU, types.WaitQoSMaxNodePerUsr
		}
		if qosGrp != types.Infinite && (maxNodes == types.Infinite || qosGrp < maxNodes) {
			maxNodes, reason = qosGrp, types.WaitQoSGrpNode
		}

		if qosPJ == types.Infinite {
			assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
				if !isLeaf || isRoot {
					return true
				}
				if cap := a.Ctld.MaxNodesPerJob; cap != types.Infinite && (maxNodes == types.Infinite || cap < maxNodes) {
					maxNodes, reason = cap, types.WaitAssocMaxNodePerJ
				}
				return false
			})
		}
		if qosGrp == types.Infinite {
			assocChain(assoc, func(a *types.Association, isLeaf, isRoot bool) bool {
				if cap := a.Ctld.GrpNodes; cap != types.Infinite {
					if maxNodes == types.Infinite || cap < maxNodes {
						maxNodes, reason = cap, types.WaitAssocGrpNode
					}
					return false
				}
				return true
			})
		}
	})

	e.recordDecision(ctx, "max_nodes", job, true, reason)
	return maxNodes, reason
}
