// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/jontk/slurm-policy-engine/internal/common/types"

// qosAccumulator is the "qos_out" scratch record from spec §4.1/§9: a
// plain QoSLimits value, not a parallel shadow type, initialized to
// Infinite everywhere and mutated as the QoS pair is walked to record
// which limit slots have already been claimed by an earlier QoS.
type qosAccumulator struct {
	types.QoSLimits
}

func newQoSAccumulator() qosAccumulator {
	return qosAccumulator{types.NewQoSLimits()}
}

// claim reports whether this call is the first to observe a finite value
// for the limit slot pointed to by acc: a no-op (applies=false) if the
// candidate itself is Infinite (this QoS doesn't set the limit) or the
// slot was already claimed by an earlier QoS in the pair. Otherwise it
// writes candidate into *acc and reports applies=true so the caller
// performs the check.
//
// The source's _qos_policy_validate has a guard here that reads
// `qos_out_ptr->max_cpus_pj |= INFINITE` — bitwise-OR-assign where it
// visually looks like a comparison, so the accumulator field is
// unconditionally overwritten with INFINITE and the expression is always
// truthy: every later QoS permanently no-ops that one check (spec §9
// open question). claim implements the intended `== INFINITE` slot-gate
// instead; the bug is not reproduced here.
func claim(acc *int64, candidate int64) bool {
	if candidate == types.Infinite {
		return false
	}
	if *acc != types.Infinite {
		return false
	}
	*acc = candidate
	return true
}

// minCap folds a candidate cap into the running minimum, treating
// Infinite as "no cap" so any real value anywhere in the fold wins.
func minCap(current, candidate int64) int64 {
	if candidate == types.Infinite {
		return current
	}
	if current == types.Infinite || candidate < current {
		return candidate
	}
	return current
}
