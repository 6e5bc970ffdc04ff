// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// AssociationRegistry validates association records and resolves the
// account tree before any of it is handed to the engine's association
// table. It owns no locks of its own: the engine copies the resolved
// tree in under its own association write lock.
type AssociationRegistry struct {
	*Validator
	byID map[string]*types.Association
}

// NewAssociationRegistry creates an empty association registry.
func NewAssociationRegistry() *AssociationRegistry {
	return &AssociationRegistry{Validator: NewValidator("association"), byID: make(map[string]*types.Association)}
}

// ValidateAssociation validates non-negative limits on a single
// association, independent of tree structure.
func (r *AssociationRegistry) ValidateAssociation(a *types.Association) error {
	if a == nil {
		return errors.NewValidationError(errors.ErrorCodeValidationFailed, "association is required", "association", a, nil)
	}
	if err := r.ValidateName(a.ID, "association.ID"); err != nil {
		return err
	}
	if err := r.ValidateName(a.Account, "association.Account"); err != nil {
		return err
	}
	return r.validateLimits(&a.Limits)
}

func (r *AssociationRegistry) validateLimits(l *types.AssocLimits) error {
	scalars := map[string]int64{
		"grp_jobs": l.GrpJobs, "grp_nodes": l.GrpNodes, "grp_mem": l.GrpMem,
		"grp_wall": l.GrpWall, "grp_submit_jobs": l.GrpSubmitJobs,
		"max_jobs": l.MaxJobs, "max_nodes_pj": l.MaxNodesPerJob,
		"max_submit_jobs": l.MaxSubmitJobs, "max_wall_pj": l.MaxWallPerJob,
	}
	for field, value := range scalars {
		if err := r.ValidateNonNegative(value, field); err != nil {
			return err
		}
	}
	vectors := map[string]types.TRESVector{
		"grp_tres": l.GrpTRES, "grp_tres_mins": l.GrpTRESMins, "grp_tres_run_mins": l.GrpTRESRunMins,
		"max_tres_pj": l.MaxTRESPerJob, "max_tres_mins_pj": l.MaxTRESMinsPerJob,
	}
	for field, vec := range vectors {
		if err := r.ValidateNonNegativeVector(vec, field); err != nil {
			return err
		}
	}
	return nil
}

// Register validates and installs an association, resolving its parent
// back-edge and rejecting a cycle in the account tree (invariant: the
// tree is a DAG rooted at the distinguished root association).
func (r *AssociationRegistry) Register(a *types.Association) error {
	if err := r.ValidateAssociation(a); err != nil {
		return err
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.NewPolicyError(errors.ErrorCodeConflict, "association already registered: "+a.ID)
	}

	if !a.IsRoot() {
		parent, ok := r.byID[a.ParentID]
		if !ok {
			return errors.NewValidationErrorf("parent_id", a.ParentID, "parent association %q not yet registered", a.ParentID)
		}
		if err := r.checkCycle(a.ID, parent); err != nil {
			return err
		}
		a.SetParent(parent)
	}

	r.byID[a.ID] = a
	return nil
}

// checkCycle walks from a candidate parent toward the root, failing if it
// ever revisits newID — association trees are built incrementally, so
// this only has to detect a cycle introduced by the new edge, not scan
// the whole tree on every insert.
func (r *AssociationRegistry) checkCycle(newID string, parent *types.Association) error {
	for cur := parent; cur != nil; cur = cur.Parent() {
		if cur.ID == newID {
			return errors.NewPolicyError(errors.ErrorCodeCyclicHierarchy,
				"association hierarchy cycle detected at "+newID)
		}
	}
	return nil
}

// Lookup returns the named association, or an error satisfying
// errors.ErrorCodeUnknownAssociation if it is not registered.
func (r *AssociationRegistry) Lookup(id string) (*types.Association, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, errors.NewPolicyError(errors.ErrorCodeUnknownAssociation, "unknown association: "+id)
	}
	return a, nil
}

// All returns every registered association.
func (r *AssociationRegistry) All() []*types.Association {
	out := make([]*types.Association, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}

// PropagateCtld recomputes each association's controller-effective
// projection (Ctld) as the slot-wise minimum of its own configured limit
// and its parent's Ctld value, walking root-down so a parent's
// projection is always settled before its children consume it.
func (r *AssociationRegistry) PropagateCtld() {
	var visit func(a *types.Association)
	visit = func(a *types.Association) {
		if a.IsRoot() {
			a.Ctld = a.Limits
		} else {
			parent := a.Parent()
			a.Ctld = minLimits(a.Limits, parent.Ctld)
		}
		for _, child := range r.byID {
			if child.Parent() == a {
				visit(child)
			}
		}
	}
	for _, a := range r.byID {
		if a.IsRoot() {
			visit(a)
		}
	}
}

func minLimits(own, parent types.AssocLimits) types.AssocLimits {
	out := own
	out.GrpJobs = minInf(own.GrpJobs, parent.GrpJobs)
	out.GrpNodes = minInf(own.GrpNodes, parent.GrpNodes)
	out.GrpMem = minInf(own.GrpMem, parent.GrpMem)
	out.GrpWall = minInf(own.GrpWall, parent.GrpWall)
	out.GrpSubmitJobs = minInf(own.GrpSubmitJobs, parent.GrpSubmitJobs)
	for t := types.TRES(0); int(t) < len(own.GrpTRES); t++ {
		out.GrpTRES.Set(t, minInf(own.GrpTRES.Get(t), parent.GrpTRES.Get(t)))
		out.GrpTRESMins.Set(t, minInf(own.GrpTRESMins.Get(t), parent.GrpTRESMins.Get(t)))
		out.GrpTRESRunMins.Set(t, minInf(own.GrpTRESRunMins.Get(t), parent.GrpTRESRunMins.Get(t)))
	}
	return out
}

// minInf treats Infinite as "no cap", so a real value on either side
// always wins over it.
func minInf(a, b int64) int64 {
	if a == types.Infinite {
		return b
	}
	if b == types.Infinite {
		return a
	}
	if a < b {
		return a
	}
	return b
}
