// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package types

// QoSFlag enumerates the policy-relevant flags a QoS can carry. Unlike the
// teacher's preemption/backfill flag set, only the two flags the
// enforcement core reads are modeled here.
type QoSFlag string

const (
	// QoSFlagPartQoS means this QoS, when attached directly to a job,
	// overrides the partition's default QoS in the precedence resolver.
	QoSFlagPartQoS QoSFlag = "PART_QOS"
	// QoSFlagDenyLimit converts a would-wait decision into a terminal
	// rejection at submission.
	QoSFlagDenyLimit QoSFlag = "DENY_LIMIT"
)

// QoSLimits is the declarative set of caps attached to a QoS. Every field
// is Infinite unless explicitly configured.
type QoSLimits struct {
	// Group totals.
	GrpCPUs       int64
	GrpNodes      int64
	GrpMem        int64
	GrpJobs       int64
	GrpSubmitJobs int64
	GrpWall       int64 // minutes
	GrpCPUMins    int64
	GrpCPURunMins int64

	// Per-job.
	MaxCPUsPerJob    int64
	MinCPUsPerJob    int64
	MaxNodesPerJob   int64
	MaxWallPerJob    int64 // minutes
	MaxCPUMinsPerJob int64

	// Per-user.
	MaxCPUsPerUser       int64
	MaxNodesPerUser      int64
	MaxJobsPerUser       int64
	MaxSubmitJobsPerUser int64
}

// NewQoSLimits returns a QoSLimits with every slot Infinite.
func NewQoSLimits() QoSLimits {
	inf := Infinite
	return QoSLimits{
		GrpCPUs: inf, GrpNodes: inf, GrpMem: inf, GrpJobs: inf,
		GrpSubmitJobs: inf, GrpWall: inf, GrpCPUMins: inf, GrpCPURunMins: inf,
		MaxCPUsPerJob: inf, MinCPUsPerJob: inf, MaxNodesPerJob: inf,
		MaxWallPerJob: inf, MaxCPUMinsPerJob: inf,
		MaxCPUsPerUser: inf, MaxNodesPerUser: inf, MaxJobsPerUser: inf,
		MaxSubmitJobsPerUser: inf,
	}
}

// QoS is a named bundle of limits independent of the account tree.
type QoS struct {
	Name   string
	Flags  []QoSFlag
	Limits QoSLimits
	Usage  *QoSUsage
}

// NewQoS returns a QoS with Infinite limits and a zeroed usage block.
func NewQoS(name string) *QoS {
	return &QoS{Name: name, Limits: NewQoSLimits(), Usage: NewQoSUsage()}
}

// HasFlag reports whether the QoS carries the given flag.
func (q *QoS) HasFlag(f QoSFlag) bool {
	for _, have := range q.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// PerUserUsage tracks one user's live contribution to a QoS.
type PerUserUsage struct {
	Jobs       int64
	SubmitJobs int64
	CPUs       int64
	Nodes      int64
}

// QoSUsage is the live bookkeeping attached to a QoS. All fields are
// guarded by the engine's qos lock, not by a lock of their own: a QoSUsage
// is always reached through an engine call that already holds the bundle.
type QoSUsage struct {
	GrpUsedJobs       int64
	GrpUsedSubmitJobs int64
	GrpUsedCPUs       int64
	GrpUsedMem        int64
	GrpUsedNodes      int64
	GrpUsedWallSecs   int64
	GrpUsedCPURunSecs int64
	UsageRawSecs      float64 // seconds of CPU consumed across history

	// PerUser is created lazily: User adds an entry on first use, including
	// from the read-only admission and runnability checks, and an entry is
	// not removed when its counters return to zero.
	PerUser map[string]*PerUserUsage
}

// NewQoSUsage returns a zeroed usage block with an empty per-user map.
func NewQoSUsage() *QoSUsage {
	return &QoSUsage{PerUser: make(map[string]*PerUserUsage)}
}

// User returns the per-user entry for uid, creating it on first use.
func (u *QoSUsage) User(uid string) *PerUserUsage {
	entry, ok := u.PerUser[uid]
	if !ok {
		entry = &PerUserUsage{}
		u.PerUser[uid] = entry
	}
	return entry
}
