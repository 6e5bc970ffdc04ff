// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/jontk/slurm-policy-engine/internal/common/builders"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/config"
)

// S2: association tree root -> deptA (grp_jobs=2) -> userU. Two running
// jobs under U; a third submitted job fails pre-select with
// WAIT_ASSOC_GRP_JOB. After one running job finishes, the third passes.
func TestJobRunnablePreSelect_AssocGrpJobs(t *testing.T) {
	e, _ := newTestEngine(t, 0, nil, nil)
	all := e.Associations.All()
	var deptA *types.Association
	for _, a := range all {
		if a.ID == "deptA" {
			deptA = a
		}
	}
	deptA.Limits.GrpJobs = 2
	e.Associations.PropagateCtld()
	leaf, _ := e.Associations.Lookup("deptA-u")

	running1 := builders.NewJobBuilder("r1", "u", leaf.ID).Build()
	running1.TotalCPUs, running1.NodeCnt = 1, 1
	running2 := builders.NewJobBuilder("r2", "u", leaf.ID).Build()
	running2.TotalCPUs, running2.NodeCnt = 1, 1
	for _, j := range []*types.Job{running1, running2} {
		if err := e.JobBegin(nil, j); err != nil {
			t.Fatalf("begin: %v", err)
		}
	}

	third := builders.NewJobBuilder("r3", "u", leaf.ID).Build()
	if e.JobRunnablePreSelect(nil, third) {
		t.Fatal("third job should be held on grp_jobs")
	}
	if third.StateReason != types.WaitAssocGrpJob {
		t.Fatalf("reason = %v, want WAIT_ASSOC_GRP_JOB", third.StateReason)
	}

	if err := e.JobFini(nil, running1); err != nil {
		t.Fatalf("fini: %v", err)
	}
	if !e.JobRunnablePreSelect(nil, third) {
		t.Fatalf("third job should now pass pre-select, reason=%v", third.StateReason)
	}
}

// A stale limit-wait reason is cleared before pre-select re-checks.
func TestJobRunnablePreSelect_ClearsStaleReason(t *testing.T) {
	e, leaf := newTestEngine(t, 0, nil, nil)
	job := builders.NewJobBuilder("j1", "u", leaf.ID).Build()
	job.SetReason(types.WaitQoSGrpCPU)

	if !e.JobRunnablePreSelect(nil, job) {
		t.Fatalf("job should pass with no limits configured, reason=%v", job.StateReason)
	}
	if job.StateReason != types.WaitNoReason {
		t.Fatalf("reason = %v, want cleared to WAIT_NO_REASON", job.StateReason)
	}
}

// JobRunnableState is a direct alias of JobRunnablePreSelect (DESIGN.md
// open-question decision 6): it shares the same violation and clears the
// same stale-reason band.
func TestJobRunnableState_AliasesPreSelect(t *testing.T) {
	e, _ := newTestEngine(t, 0, nil, nil)
	all := e.Associations.All()
	var deptA *types.Association
	for _, a := range all {
		if a.ID == "deptA" {
			deptA = a
		}
	}
	deptA.Limits.GrpJobs = 0
	e.Associations.PropagateCtld()
	leaf, _ := e.Associations.Lookup("deptA-u")

	job := builders.NewJobBuilder("j1", "u", leaf.ID).Build()
	if e.JobRunnableState(nil, job) {
		t.Fatal("job should be held on grp_jobs")
	}
	if job.StateReason != types.WaitAssocGrpJob {
		t.Fatalf("reason = %v, want WAIT_ASSOC_GRP_JOB", job.StateReason)
	}
}

// S3: QoS Q with grp_cpu_mins=1000, usage_mins=900, safe mode on. Job
// requests 10 CPUs for 20 minutes (job_cpu_time_limit=200). Post-select
// returns false with WAIT_QOS_GRP_CPU_MIN because 200+0 > 1000-900.
func TestJobRunnablePostSelect_SafeModeGrpCPUMin(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithGrpCPUMins(1000).Build()
	q.Usage.UsageRawSecs = 900 * 60
	e, leaf := newTestEngine(t, config.EnforceSafe, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithTimeLimit(20).Build()
	sel := PostSelectRequest{NodeCnt: 1, CPUCnt: 10, PerNodeMem: types.NoVal}

	if e.JobRunnablePostSelect(nil, job, sel) {
		t.Fatal("job should be refused: cannot finish within remaining grp_cpu_mins budget")
	}
	if job.StateReason != types.WaitQoSGrpCPUMin {
		t.Fatalf("reason = %v, want WAIT_QOS_GRP_CPU_MIN", job.StateReason)
	}
}

// Without safe mode, the same job passes: current usage (900) has not
// yet reached the cap (1000), and ordinary mode only checks usage, not
// finishability.
func TestJobRunnablePostSelect_NonSafeModeOnlyChecksCurrentUsage(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithGrpCPUMins(1000).Build()
	q.Usage.UsageRawSecs = 900 * 60
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithTimeLimit(20).Build()
	sel := PostSelectRequest{NodeCnt: 1, CPUCnt: 10, PerNodeMem: types.NoVal}

	if !e.JobRunnablePostSelect(nil, job, sel) {
		t.Fatalf("job should pass: usage 900 < cap 1000, reason=%v", job.StateReason)
	}
}

// Memory normalization: per-CPU memory request times CPU count is
// checked against grp_mem.
func TestJobRunnablePostSelect_MemoryPerCPUNormalization(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithGrpMem(100).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").Build()
	// 30 per-CPU * 4 CPUs = 120 > grp_mem of 100.
	sel := PostSelectRequest{NodeCnt: 1, CPUCnt: 4, PerNodeMem: 30 | types.MemPerCPU}

	if e.JobRunnablePostSelect(nil, job, sel) {
		t.Fatal("job should be refused: normalized memory 120 exceeds grp_mem 100")
	}
	if job.StateReason != types.WaitQoSGrpMem {
		t.Fatalf("reason = %v, want WAIT_QOS_GRP_MEM", job.StateReason)
	}
}

// An admin-pinned CPU or memory request exempts job_memory from
// group-memory enforcement.
func TestJobRunnablePostSelect_AdminMemExemption(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithGrpMem(10).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithAdminSetCPU().Build()
	sel := PostSelectRequest{NodeCnt: 1, CPUCnt: 4, PerNodeMem: 1000}

	if !e.JobRunnablePostSelect(nil, job, sel) {
		t.Fatalf("admin-pinned cpu request should exempt memory check, reason=%v", job.StateReason)
	}
}
