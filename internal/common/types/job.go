// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// JobState is the lifecycle state of a job as observed by the policy
// engine. The engine only ever reads and sets State/StateReason/
// StateDesc; transitions themselves are driven by the caller.
type JobState string

const (
	JobStatePending   JobState = "PENDING"
	JobStateRunning   JobState = "RUNNING"
	JobStateSuspended JobState = "SUSPENDED"
	JobStateCompleted JobState = "COMPLETED"
	JobStateCancelled JobState = "CANCELLED"
	JobStateTimeout   JobState = "TIMEOUT"
)

// BeginSnapshot is the set of quantities a job contributed to usage
// counters at JOB_BEGIN. JOB_FINI reverses exactly these values, even if
// the job's QoS or association limits changed in the interim (invariant
// 6) — so the snapshot, not live configuration, is authoritative.
type BeginSnapshot struct {
	CPUs         int64
	Nodes        int64
	Mem          int64
	TimeLimit    int64 // minutes, as installed at begin time
	CPURunSecs   int64
	PrimaryQoS   string
	SecondaryQoS string
}

// Job is the input-only job record the policy engine reasons about. It is
// never persisted or serialized by this core; that is an external
// collaborator's concern.
type Job struct {
	JobID     string
	UserID    string
	Account   string
	AssocID   string
	QoSName   string
	Partition string

	// Requested resources.
	CPUs      int64
	Nodes     int64
	MinMemory int64 // raw value; high bit MemPerCPU flags per-CPU interpretation
	TimeLimit int64 // minutes; NoVal if the caller did not request one

	// Admin-set flags per resource: a limit marked admin-set is exempt
	// from policy validation.
	AdminSet LimitSet

	StateReason ReasonCode
	StateDesc   string

	// Resolved at begin time.
	TotalCPUs       int64
	NodeCnt         int64
	StartTime       time.Time
	SuspendedSecs   int64
	EndTimeExpected time.Time

	// Begin retains the snapshot applied at JOB_BEGIN, consumed
	// symmetrically by JOB_FINI and by ALTER.
	Begin *BeginSnapshot
}

// SetReason writes state_reason and clears state_desc together, so the
// two observable fields never drift apart (spec §7).
func (j *Job) SetReason(r ReasonCode) {
	j.StateReason = r
	j.StateDesc = ""
}

// ClearLimitWaitReason clears state_reason if it falls in the limit-wait
// band, leaving terminal reasons (FAIL_TIMEOUT, FAIL_ACCOUNT) alone.
func (j *Job) ClearLimitWaitReason() {
	if InLimitWaitBand(j.StateReason) {
		j.SetReason(WaitNoReason)
	}
}
