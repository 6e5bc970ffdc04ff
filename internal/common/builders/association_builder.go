// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package builders

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// AssociationBuilder provides a fluent interface for building test/fixture
// associations, with Infinite defaults everywhere.
type AssociationBuilder struct {
	assoc *types.Association
}

// NewAssociationBuilder creates a new association builder with the
// required identifiers. An empty parentID builds the root association.
func NewAssociationBuilder(id, account, parentID string) *AssociationBuilder {
	return &AssociationBuilder{assoc: types.NewAssociation(id, account, parentID, "")}
}

// WithUser sets the leaf association's user ID.
func (b *AssociationBuilder) WithUser(userID string) *AssociationBuilder {
	b.assoc.UserID = userID
	return b
}

// WithPartition sets the association's bound partition.
func (b *AssociationBuilder) WithPartition(name string) *AssociationBuilder {
	b.assoc.Partition = name
	return b
}

// WithParent binds the resolved parent back-edge directly, for tests that
// build a tree without going through a registry.
func (b *AssociationBuilder) WithParent(p *types.Association) *AssociationBuilder {
	b.assoc.SetParent(p)
	return b
}

// WithGrpCPUs sets grp_cpus on the configured limits.
func (b *AssociationBuilder) WithGrpCPUs(v int64) *AssociationBuilder {
	b.assoc.Limits.GrpTRES.Set(types.TRESCPU, v)
	return b
}

// WithGrpNodes sets grp_nodes.
func (b *AssociationBuilder) WithGrpNodes(v int64) *AssociationBuilder {
	b.assoc.Limits.GrpNodes = v
	return b
}

// WithGrpJobs sets grp_jobs.
func (b *AssociationBuilder) WithGrpJobs(v int64) *AssociationBuilder {
	b.assoc.Limits.GrpJobs = v
	return b
}

// WithMaxJobs sets max_jobs.
func (b *AssociationBuilder) WithMaxJobs(v int64) *AssociationBuilder {
	b.assoc.Limits.MaxJobs = v
	return b
}

// WithMaxSubmitJobs sets max_submit_jobs.
func (b *AssociationBuilder) WithMaxSubmitJobs(v int64) *AssociationBuilder {
	b.assoc.Limits.MaxSubmitJobs = v
	return b
}

// WithMaxWallPerJob sets max_wall_pj (minutes).
func (b *AssociationBuilder) WithMaxWallPerJob(v int64) *AssociationBuilder {
	b.assoc.Limits.MaxWallPerJob = v
	return b
}

// WithCtldEqualToLimits copies the configured limits into the
// controller-effective projection, for tests that skip tree propagation.
func (b *AssociationBuilder) WithCtldEqualToLimits() *AssociationBuilder {
	b.assoc.Ctld = b.assoc.Limits
	return b
}

// Build returns the built association.
func (b *AssociationBuilder) Build() *types.Association { return b.assoc }
