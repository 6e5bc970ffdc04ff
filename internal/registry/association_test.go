// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/slurm-policy-engine/internal/common/builders"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

func TestAssociationRegistry_RegisterRootAndChild(t *testing.T) {
	r := NewAssociationRegistry()

	root := builders.NewAssociationBuilder("root", "root", "").Build()
	require.NoError(t, r.Register(root))

	child := builders.NewAssociationBuilder("a1", "physics", "root").WithUser("alice").Build()
	require.NoError(t, r.Register(child))

	got, err := r.Lookup("a1")
	require.NoError(t, err)
	assert.Same(t, child, got)
	assert.Same(t, root, got.Parent())
}

func TestAssociationRegistry_UnknownParentRejected(t *testing.T) {
	r := NewAssociationRegistry()
	orphan := builders.NewAssociationBuilder("a1", "physics", "root").Build()

	err := r.Register(orphan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not yet registered")
}

func TestAssociationRegistry_NegativeLimitRejected(t *testing.T) {
	r := NewAssociationRegistry()
	bad := builders.NewAssociationBuilder("root", "root", "").WithGrpNodes(-3).Build()

	err := r.Register(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
}

func TestAssociationRegistry_Lookup_Unknown(t *testing.T) {
	r := NewAssociationRegistry()
	_, err := r.Lookup("nope")
	require.Error(t, err)
}

func TestAssociationRegistry_PropagateCtld(t *testing.T) {
	r := NewAssociationRegistry()

	root := builders.NewAssociationBuilder("root", "root", "").WithGrpCPUs(100).Build()
	require.NoError(t, r.Register(root))

	child := builders.NewAssociationBuilder("a1", "physics", "root").WithGrpCPUs(200).Build()
	require.NoError(t, r.Register(child))

	unrestricted := builders.NewAssociationBuilder("a2", "chem", "root").Build()
	require.NoError(t, r.Register(unrestricted))

	r.PropagateCtld()

	gotChild, err := r.Lookup("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), gotChild.Ctld.GrpTRES.Get(types.TRESCPU))

	gotUnrestricted, err := r.Lookup("a2")
	require.NoError(t, err)
	assert.Equal(t, int64(100), gotUnrestricted.Ctld.GrpTRES.Get(types.TRESCPU))
}
