// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/jontk/slurm-policy-engine/internal/common/types"

// ResolvePrecedence implements the precedence resolver (spec §4.1): given
// a job and its partition, produce the ordered (primary, secondary) QoS
// pair every downstream check walks. The first QoS that supplies a
// finite value for a given limit claims that limit; later QoS
// contributions to the same slot are ignored by the qosAccumulator the
// admission/runnability/timeout passes share.
func (e *Engine) ResolvePrecedence(job *types.Job, part *types.Partition) (primary, secondary *types.QoS) {
	var jobQoS, partQoS *types.QoS
	if job.QoSName != "" {
		jobQoS, _ = e.QoSes.Lookup(job.QoSName)
	}
	if part != nil && part.QoS != "" {
		partQoS, _ = e.QoSes.Lookup(part.QoS)
	}

	switch {
	case jobQoS == nil && partQoS == nil:
		return nil, nil
	case jobQoS == nil:
		return partQoS, nil
	case partQoS == nil:
		return jobQoS, nil
	case jobQoS.HasFlag(types.QoSFlagPartQoS):
		primary, secondary = jobQoS, partQoS
	default:
		primary, secondary = partQoS, jobQoS
	}

	if primary == secondary {
		secondary = nil
	}
	return primary, secondary
}

// qosPair walks primary then (if non-nil) secondary, calling fn for each.
// Every limit-walking operation (admission, pre-/post-select, timeout,
// max-nodes) shares this shape. fn returns false to stop the walk early
// (a strict-mode caller that must abort on the first violation); callers
// that always want to see both QoS just return true unconditionally.
func qosPair(primary, secondary *types.QoS, fn func(q *types.QoS) bool) {
	if primary != nil && !fn(primary) {
		return
	}
	if secondary != nil {
		fn(secondary)
	}
}

// assocChain walks from leaf to root inclusive, calling fn for each
// association. Most callers need to know whether the current node is the
// root (only grp_* limits apply there, invariant 2) or a true leaf (only
// the leaf enforces max_tres_pj, max_nodes_pj, max_submit_jobs,
// max_wall_pj) — fn receives both. fn returns false to stop the walk
// early.
func assocChain(leaf *types.Association, fn func(a *types.Association, isLeaf, isRoot bool) bool) {
	for a, first := leaf, true; a != nil; a, first = a.Parent(), false {
		if !fn(a, first, a.IsRoot()) {
			return
		}
	}
}
