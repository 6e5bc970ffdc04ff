// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/jontk/slurm-policy-engine/internal/common/builders"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/internal/registry"
)

func TestResolvePrecedence(t *testing.T) {
	jobQoS := builders.NewQoSBuilder("job-qos").Build()
	partQoS := builders.NewQoSBuilder("part-qos").Build()
	partQoSJob := builders.NewQoSBuilder("job-qos").WithFlags(types.QoSFlagPartQoS).Build()

	tests := []struct {
		name          string
		job           *types.Job
		part          *types.Partition
		wantPrimary   *types.QoS
		wantSecondary *types.QoS
	}{
		{
			name:          "neither has a qos",
			job:           &types.Job{},
			part:          &types.Partition{},
			wantPrimary:   nil,
			wantSecondary: nil,
		},
		{
			name:          "partition only",
			job:           &types.Job{},
			part:          &types.Partition{QoS: "part-qos"},
			wantPrimary:   partQoS,
			wantSecondary: nil,
		},
		{
			name:          "job only",
			job:           &types.Job{QoSName: "job-qos"},
			part:          &types.Partition{},
			wantPrimary:   jobQoS,
			wantSecondary: nil,
		},
		{
			name:          "both, job has no PART_QOS flag: partition primary",
			job:           &types.Job{QoSName: "job-qos"},
			part:          &types.Partition{QoS: "part-qos"},
			wantPrimary:   partQoS,
			wantSecondary: jobQoS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, 0, []*types.QoS{jobQoS, partQoS}, nil)
			primary, secondary := e.ResolvePrecedence(tt.job, tt.part)
			if (primary == nil) != (tt.wantPrimary == nil) || (primary != nil && primary.Name != tt.wantPrimary.Name) {
				t.Fatalf("primary = %v, want %v", primary, tt.wantPrimary)
			}
			if (secondary == nil) != (tt.wantSecondary == nil) {
				t.Fatalf("secondary = %v, want %v", secondary, tt.wantSecondary)
			}
		})
	}

	t.Run("job qos with PART_QOS flag becomes primary", func(t *testing.T) {
		e, _ := newTestEngine(t, 0, []*types.QoS{partQoSJob, partQoS}, nil)
		primary, secondary := e.ResolvePrecedence(&types.Job{QoSName: "job-qos"}, &types.Partition{QoS: "part-qos"})
		if primary.Name != "job-qos" {
			t.Fatalf("primary = %v, want job-qos", primary.Name)
		}
		if secondary.Name != "part-qos" {
			t.Fatalf("secondary = %v, want part-qos", secondary.Name)
		}
	})

	t.Run("primary and secondary collapse when identical", func(t *testing.T) {
		same := builders.NewQoSBuilder("same").Build()
		e, _ := newTestEngine(t, 0, []*types.QoS{same}, nil)
		job := &types.Job{QoSName: "same"}
		part := &types.Partition{QoS: "same"}
		primary, secondary := e.ResolvePrecedence(job, part)
		if primary == nil || primary.Name != "same" {
			t.Fatalf("primary = %v", primary)
		}
		if secondary != nil {
			t.Fatalf("secondary = %v, want nil", secondary)
		}
	})
}

// S6: QoS A has max_nodes_pj=10, QoS B has max_nodes_pj=5. A is primary.
// GetMaxNodes returns 10; B's stricter value is never observed (first-claim).
func TestGetMaxNodes_FirstClaimWins(t *testing.T) {
	qa := builders.NewQoSBuilder("A").WithMaxNodesPerJob(10).Build()
	qb := builders.NewQoSBuilder("B").WithMaxNodesPerJob(5).Build()
	e, leaf := newTestEngine(t, 0, []*types.QoS{qa, qb}, []*types.Partition{
		builders.NewPartitionBuilder("p1").WithQoS("A").Build(),
	})

	// Partition's QoS (A) is primary since the job's own QoS (B) does not
	// carry PART_QOS; A's max_nodes_pj claims the slot first.
	job := builders.NewJobBuilder("j1", "u", leaf.ID).WithPartition("p1").WithQoS("B").Build()

	maxNodes, reason := e.GetMaxNodes(nil, job)
	if maxNodes != 10 {
		t.Fatalf("maxNodes = %d, want 10 (A's value, first-claimed)", maxNodes)
	}
	if reason != types.WaitQoSMaxNodePerJob {
		t.Fatalf("reason = %v", reason)
	}
}

// When no QoS constrains max_nodes_pj, GetMaxNodes falls back to the
// association chain's grp_nodes, stopping at the first finite hit.
func TestGetMaxNodes_FallsBackToAssocGrpNodes(t *testing.T) {
	qr := registry.NewQoSRegistry()
	ar := registry.NewAssociationRegistry()
	root := builders.NewAssociationBuilder("root", "root", "").Build()
	if err := ar.Register(root); err != nil {
		t.Fatalf("register root: %v", err)
	}
	dept := builders.NewAssociationBuilder("deptA", "deptA", "root").WithGrpNodes(7).Build()
	if err := ar.Register(dept); err != nil {
		t.Fatalf("register dept: %v", err)
	}
	leaf := builders.NewAssociationBuilder("deptA-u", "deptA", "deptA").WithUser("u").Build()
	if err := ar.Register(leaf); err != nil {
		t.Fatalf("register leaf: %v", err)
	}
	ar.PropagateCtld()

	e := New(ar, qr, registry.NewPartitionRegistry(), 0, nil, nil, nil, nil, nil, nil)
	job := simpleJob("j1", 2, 1, leaf.ID)

	maxNodes, reason := e.GetMaxNodes(nil, job)
	if maxNodes != 7 {
		t.Fatalf("maxNodes = %d, want 7 (deptA's grp_nodes)", maxNodes)
	}
	if reason != types.WaitAssocGrpNode {
		t.Fatalf("reason = %v, want WaitAssocGrpNode", reason)
	}
}
