// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/jontk/slurm-policy-engine/internal/common/builders"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// S1: QoS Q with max_cpus_pu=8. Two 4-CPU jobs from the same user are
// accepted; a third 2-CPU job is rejected with WAIT_QOS_MAX_CPU_PER_USER.
func TestValidate_MaxCPUsPerUser(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithMaxCPUsPerUser(8).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	for i, cpus := range []int64{4, 4} {
		job := builders.NewJobBuilder(string(rune('a'+i)), "u", leaf.ID).WithQoS("Q").WithCPUs(cpus).Build()
		ok, err := e.Validate(nil, job, true)
		if err != nil || !ok {
			t.Fatalf("job %d: ok=%v err=%v, want accepted", i, ok, err)
		}
		job.TotalCPUs = cpus
		if err := e.JobBegin(nil, job); err != nil {
			t.Fatalf("begin: %v", err)
		}
	}

	third := builders.NewJobBuilder("c", "u", leaf.ID).WithQoS("Q").WithCPUs(2).Build()
	ok, err := e.Validate(nil, third, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("third job should have been rejected")
	}
	if third.StateReason != types.WaitQoSMaxCPUPerUser {
		t.Fatalf("reason = %v, want WAIT_QOS_MAX_CPU_PER_USER", third.StateReason)
	}
}

// S4: a job with limit_set.time = ADMIN_SET_LIMIT and an explicit
// time_limit exceeding max_wall_pj is left untouched: Validate neither
// changes time_limit nor fails on the wall check (admin-set exemption).
func TestValidate_AdminSetTimeExemption(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithMaxWallPerJob(60).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithCPUs(1).
		WithTimeLimit(1440).WithAdminSetTime().Build()

	ok, err := e.Validate(nil, job, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v, want accepted", ok, err)
	}
	if job.TimeLimit != 1440 {
		t.Fatalf("time_limit = %d, want unchanged 1440", job.TimeLimit)
	}
}

// Partition cap clipping (invariant 4, property 5): with no explicit
// request, the installed time_limit is min(qos_wall_cap, partition.max_time)
// and limit_set.time is marked policy-derived.
func TestValidate_PartitionCapClipping(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithMaxWallPerJob(120).Build()
	part := builders.NewPartitionBuilder("p1").WithMaxTime(60).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, []*types.Partition{part})

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithPartition("p1").WithCPUs(1).Build()
	ok, err := e.Validate(nil, job, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if job.TimeLimit != 60 {
		t.Fatalf("time_limit = %d, want 60 (partition cap, stricter than qos 120)", job.TimeLimit)
	}
	if job.AdminSet.Time != types.LimitSetPolicy {
		t.Fatalf("limit_set.time = %v, want policy-derived", job.AdminSet.Time)
	}
}

// First-claim (property 3): two QoS with different finite max_cpus_pj
// values; only the first-iterated QoS's value governs rejection.
func TestValidate_FirstClaim(t *testing.T) {
	strict := builders.NewQoSBuilder("strict").WithMaxCPUsPerJob(4).Build()
	loose := builders.NewQoSBuilder("loose").WithMaxCPUsPerJob(100).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{strict, loose}, []*types.Partition{
		builders.NewPartitionBuilder("p1").WithQoS("strict").Build(),
	})

	// partition QoS (strict) is primary, job QoS (loose) secondary.
	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithPartition("p1").WithQoS("loose").WithCPUs(6).Build()
	ok, err := e.Validate(nil, job, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("job should be rejected by the primary (strict) qos's cap")
	}
	if job.StateReason != types.WaitQoSMaxCPUPerJob {
		t.Fatalf("reason = %v", job.StateReason)
	}
}

// Non-strict mode: without DENY_LIMIT and without strict enforcement
// requested, a violation is recorded but Validate still returns true so
// the job waits instead of being rejected outright.
func TestValidate_NonStrictRecordsButAccepts(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithMaxCPUsPerJob(4).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithCPUs(6).Build()
	ok, err := e.Validate(nil, job, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("non-strict validate should still admit the job")
	}
	if job.StateReason != types.WaitQoSMaxCPUPerJob {
		t.Fatalf("reason = %v, want the violation recorded anyway", job.StateReason)
	}
}

// DENY_LIMIT converts a would-wait decision into a hard rejection even
// when the caller did not request strict enforcement.
func TestValidate_DenyLimitForcesStrict(t *testing.T) {
	q := builders.NewQoSBuilder("Q").WithFlags(types.QoSFlagDenyLimit).WithMaxCPUsPerJob(4).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithCPUs(6).Build()
	ok, err := e.Validate(nil, job, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("DENY_LIMIT qos should reject admission outright")
	}
}
