// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/jontk/slurm-policy-engine/internal/common/builders"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// Property 1 (symmetry): submit -> begin -> fini with no alter and no
// configuration change returns every live counter to its prior value.
func TestUsage_SubmitBeginFiniSymmetry(t *testing.T) {
	q := builders.NewQoSBuilder("Q").Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithCPUs(4).WithNodes(2).
		WithTimeLimit(30).Build()
	job.TotalCPUs = 4
	job.NodeCnt = 2

	if err := e.AddJobSubmit(nil, job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := e.JobBegin(nil, job); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := e.JobFini(nil, job); err != nil {
		t.Fatalf("fini: %v", err)
	}
	if err := e.RemoveJobSubmit(nil, job); err != nil {
		t.Fatalf("remove submit: %v", err)
	}

	if got := q.Usage.GrpUsedJobs; got != 0 {
		t.Errorf("GrpUsedJobs = %d, want 0", got)
	}
	if got := q.Usage.GrpUsedCPUs; got != 0 {
		t.Errorf("GrpUsedCPUs = %d, want 0", got)
	}
	if got := q.Usage.GrpUsedNodes; got != 0 {
		t.Errorf("GrpUsedNodes = %d, want 0", got)
	}
	if got := q.Usage.GrpUsedCPURunSecs; got != 0 {
		t.Errorf("GrpUsedCPURunSecs = %d, want 0", got)
	}
	if got := q.Usage.GrpUsedSubmitJobs; got != 0 {
		t.Errorf("GrpUsedSubmitJobs = %d, want 0", got)
	}
	if got := leaf.Usage.UsedJobs; got != 0 {
		t.Errorf("leaf UsedJobs = %d, want 0", got)
	}
	if got := leaf.Usage.UsedSubmitJobs; got != 0 {
		t.Errorf("leaf UsedSubmitJobs = %d, want 0", got)
	}
	if got := leaf.Usage.UsedTRES.Get(types.TRESCPU); got != 0 {
		t.Errorf("leaf UsedTRES[cpu] = %d, want 0", got)
	}
}

// Property 2 (saturation): decrementing any counter from zero yields
// zero rather than going negative.
func TestUsage_SaturatesAtZero(t *testing.T) {
	q := builders.NewQoSBuilder("Q").Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)
	_ = leaf

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").Build()
	if err := e.RemoveJobSubmit(nil, job); err != nil {
		t.Fatalf("remove submit: %v", err)
	}
	if q.Usage.GrpUsedSubmitJobs != 0 {
		t.Fatalf("GrpUsedSubmitJobs = %d, want saturated 0", q.Usage.GrpUsedSubmitJobs)
	}
}

// Property 6 (tree walk): submit-job usage increments appear at every
// ancestor up to and including the root; finish decrements reach the
// same ancestors.
func TestUsage_TreeWalkReachesRoot(t *testing.T) {
	e, leaf := newTestEngine(t, 0, nil, nil)
	root := leaf.Parent().Parent()
	dept := leaf.Parent()

	job := builders.NewJobBuilder("j1", "u", leaf.ID).Build()
	if err := e.AddJobSubmit(nil, job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, a := range []*types.Association{leaf, dept, root} {
		if a.Usage.UsedSubmitJobs != 1 {
			t.Errorf("association %s UsedSubmitJobs = %d, want 1", a.ID, a.Usage.UsedSubmitJobs)
		}
	}

	if err := e.RemoveJobSubmit(nil, job); err != nil {
		t.Fatalf("remove: %v", err)
	}
	for _, a := range []*types.Association{leaf, dept, root} {
		if a.Usage.UsedSubmitJobs != 0 {
			t.Errorf("association %s UsedSubmitJobs after remove = %d, want 0", a.ID, a.Usage.UsedSubmitJobs)
		}
	}
}

// Invariant 6: JobFini reverses exactly what JobBegin credited, even if
// QoS limits (not the job's own snapshot) change in the interim.
func TestUsage_FiniUsesBeginSnapshotNotLiveConfig(t *testing.T) {
	q := builders.NewQoSBuilder("Q").Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{q}, nil)

	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithQoS("Q").WithTimeLimit(30).Build()
	job.TotalCPUs = 4
	job.NodeCnt = 1
	if err := e.JobBegin(nil, job); err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Reconfigure the QoS after begin; fini must still subtract the
	// snapshot's original contribution, not anything derived from this.
	q.Limits.MaxCPUsPerJob = 1

	if err := e.JobFini(nil, job); err != nil {
		t.Fatalf("fini: %v", err)
	}
	if q.Usage.GrpUsedCPUs != 0 {
		t.Fatalf("GrpUsedCPUs = %d, want 0", q.Usage.GrpUsedCPUs)
	}
}
