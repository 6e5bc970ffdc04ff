// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/jontk/slurm-policy-engine/internal/common/builders"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/internal/registry"
	"github.com/jontk/slurm-policy-engine/pkg/config"
)

// newTestEngine builds an Engine over a root association, one child
// account association, and a leaf user association beneath it, plus
// whatever QoS/partition records the caller registers first. Every test
// in this package works against this same three-level tree unless noted.
func newTestEngine(t *testing.T, enforce config.EnforceFlags, qoses []*types.QoS, partitions []*types.Partition) (*Engine, *types.Association) {
	t.Helper()

	qr := registry.NewQoSRegistry()
	for _, q := range qoses {
		if err := qr.Register(q); err != nil {
			t.Fatalf("register qos %s: %v", q.Name, err)
		}
	}

	pr := registry.NewPartitionRegistry()
	for _, p := range partitions {
		if err := pr.Register(p); err != nil {
			t.Fatalf("register partition %s: %v", p.Name, err)
		}
	}

	ar := registry.NewAssociationRegistry()
	root := builders.NewAssociationBuilder("root", "root", "").Build()
	if err := ar.Register(root); err != nil {
		t.Fatalf("register root: %v", err)
	}
	dept := builders.NewAssociationBuilder("deptA", "deptA", "root").Build()
	if err := ar.Register(dept); err != nil {
		t.Fatalf("register dept: %v", err)
	}
	leaf := builders.NewAssociationBuilder("deptA-u", "deptA", "deptA").WithUser("u").Build()
	if err := ar.Register(leaf); err != nil {
		t.Fatalf("register leaf: %v", err)
	}
	ar.PropagateCtld()

	e := New(ar, qr, pr, enforce, nil, nil, nil, nil, nil, nil)
	return e, leaf
}

func simpleJob(id string, cpus, nodes int64, assocID string) *types.Job {
	return builders.NewJobBuilder(id, "u", assocID).WithCPUs(cpus).WithNodes(nodes).Build()
}
