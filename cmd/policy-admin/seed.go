// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/internal/registry"
)

// seedQoS, seedAssociation, and seedPartition are the JSON shapes an
// operator's seed file uses to describe the account hierarchy and QoS
// set this admin instance starts with. A zero-valued int64 limit field
// means "not configured" (Infinite), not a literal zero cap.
type seedQoS struct {
	Name              string   `json:"name"`
	Flags             []string `json:"flags,omitempty"`
	GrpCPUs           int64    `json:"grp_cpus,omitempty"`
	GrpNodes          int64    `json:"grp_nodes,omitempty"`
	GrpMem            int64    `json:"grp_mem,omitempty"`
	GrpJobs           int64    `json:"grp_jobs,omitempty"`
	GrpSubmitJobs     int64    `json:"grp_submit_jobs,omitempty"`
	GrpWall           int64    `json:"grp_wall,omitempty"`
	GrpCPUMins        int64    `json:"grp_cpu_mins,omitempty"`
	GrpCPURunMins     int64    `json:"grp_cpu_run_mins,omitempty"`
	MaxCPUsPerJob     int64    `json:"max_cpus_pj,omitempty"`
	MinCPUsPerJob     int64    `json:"min_cpus_pj,omitempty"`
	MaxNodesPerJob    int64    `json:"max_nodes_pj,omitempty"`
	MaxWallPerJob     int64    `json:"max_wall_pj,omitempty"`
	MaxCPUMinsPerJob  int64    `json:"max_cpu_mins_pj,omitempty"`
	MaxCPUsPerUser    int64    `json:"max_cpus_pu,omitempty"`
	MaxNodesPerUser   int64    `json:"max_nodes_pu,omitempty"`
	MaxJobsPerUser    int64    `json:"max_jobs_pu,omitempty"`
	MaxSubmitJobsPerU int64    `json:"max_submit_jobs_pu,omitempty"`
}

type seedAssociation struct {
	ID        string `json:"id"`
	Account   string `json:"account"`
	ParentID  string `json:"parent_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Partition string `json:"partition,omitempty"`

	GrpJobs       int64 `json:"grp_jobs,omitempty"`
	GrpNodes      int64 `json:"grp_nodes,omitempty"`
	GrpMem        int64 `json:"grp_mem,omitempty"`
	GrpWall       int64 `json:"grp_wall,omitempty"`
	GrpSubmitJobs int64 `json:"grp_submit_jobs,omitempty"`

	MaxJobs        int64 `json:"max_jobs,omitempty"`
	MaxNodesPerJob int64 `json:"max_nodes_pj,omitempty"`
	MaxSubmitJobs  int64 `json:"max_submit_jobs,omitempty"`
	MaxWallPerJob  int64 `json:"max_wall_pj,omitempty"`
}

type seedPartition struct {
	Name    string `json:"name"`
	MaxTime int64  `json:"max_time,omitempty"`
	QoS     string `json:"qos,omitempty"`
}

type seedFile struct {
	QoS          []seedQoS         `json:"qos"`
	Associations []seedAssociation `json:"associations"`
	Partitions   []seedPartition   `json:"partitions"`
}

func ifZeroInf(v int64) int64 {
	if v == 0 {
		return types.Infinite
	}
	return v
}

func (s seedQoS) toQoS() *types.QoS {
	q := types.NewQoS(s.Name)
	for _, f := range s.Flags {
		q.Flags = append(q.Flags, types.QoSFlag(f))
	}
	q.Limits = types.QoSLimits{
		GrpCPUs: ifZeroInf(s.GrpCPUs), GrpNodes: ifZeroInf(s.GrpNodes), GrpMem: ifZeroInf(s.GrpMem),
		GrpJobs: ifZeroInf(s.GrpJobs), GrpSubmitJobs: ifZeroInf(s.GrpSubmitJobs), GrpWall: ifZeroInf(s.GrpWall),
		GrpCPUMins: ifZeroInf(s.GrpCPUMins), GrpCPURunMins: ifZeroInf(s.GrpCPURunMins),
		MaxCPUsPerJob: ifZeroInf(s.MaxCPUsPerJob), MinCPUsPerJob: ifZeroInf(s.MinCPUsPerJob),
		MaxNodesPerJob: ifZeroInf(s.MaxNodesPerJob), MaxWallPerJob: ifZeroInf(s.MaxWallPerJob),
		MaxCPUMinsPerJob: ifZeroInf(s.MaxCPUMinsPerJob),
		MaxCPUsPerUser:   ifZeroInf(s.MaxCPUsPerUser), MaxNodesPerUser: ifZeroInf(s.MaxNodesPerUser),
		MaxJobsPerUser: ifZeroInf(s.MaxJobsPerUser), MaxSubmitJobsPerUser: ifZeroInf(s.MaxSubmitJobsPerU),
	}
	return q
}

func (s seedAssociation) toAssociation() *types.Association {
	a := types.NewAssociation(s.ID, s.Account, s.ParentID, s.UserID)
	a.Partition = s.Partition
	a.Limits.GrpJobs = ifZeroInf(s.GrpJobs)
	a.Limits.GrpNodes = ifZeroInf(s.GrpNodes)
	a.Limits.GrpMem = ifZeroInf(s.GrpMem)
	a.Limits.GrpWall = ifZeroInf(s.GrpWall)
	a.Limits.GrpSubmitJobs = ifZeroInf(s.GrpSubmitJobs)
	a.Limits.MaxJobs = ifZeroInf(s.MaxJobs)
	a.Limits.MaxNodesPerJob = ifZeroInf(s.MaxNodesPerJob)
	a.Limits.MaxSubmitJobs = ifZeroInf(s.MaxSubmitJobs)
	a.Limits.MaxWallPerJob = ifZeroInf(s.MaxWallPerJob)
	return a
}

func (s seedPartition) toPartition() *types.Partition {
	return &types.Partition{Name: s.Name, MaxTime: ifZeroInf(s.MaxTime), QoS: s.QoS}
}

// registries bundles the three tables the engine reads configuration
// from (spec §3/§9).
type registries struct {
	QoS          *registry.QoSRegistry
	Associations *registry.AssociationRegistry
	Partitions   *registry.PartitionRegistry
}

// loadSeed reads and installs every entry of a seed file, in
// association-parent-before-child order (the registry rejects a child
// registered before its parent), and then propagates Ctld projections.
func loadSeed(path string) (*registries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var sf seedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return buildRegistries(sf)
}

func buildRegistries(sf seedFile) (*registries, error) {
	r := &registries{
		QoS:          registry.NewQoSRegistry(),
		Associations: registry.NewAssociationRegistry(),
		Partitions:   registry.NewPartitionRegistry(),
	}
	for _, q := range sf.QoS {
		if err := r.QoS.Register(q.toQoS()); err != nil {
			return nil, fmt.Errorf("registering qos %q: %w", q.Name, err)
		}
	}
	for _, p := range sf.Partitions {
		if err := r.Partitions.Register(p.toPartition()); err != nil {
			return nil, fmt.Errorf("registering partition %q: %w", p.Name, err)
		}
	}

	// Sort associations so every parent is registered before its
	// children: a breadth-first pass keyed on parent_id emptiness,
	// repeated until every association settles (handles arbitrary
	// seed-file ordering without requiring the operator to sort it).
	remaining := append([]seedAssociation(nil), sf.Associations...)
	registered := make(map[string]bool)
	for len(remaining) > 0 {
		progressed := false
		var next []seedAssociation
		for _, a := range remaining {
			if a.ParentID == "" || registered[a.ParentID] {
				if err := r.Associations.Register(a.toAssociation()); err != nil {
					return nil, fmt.Errorf("registering association %q: %w", a.ID, err)
				}
				registered[a.ID] = true
				progressed = true
			} else {
				next = append(next, a)
			}
		}
		if !progressed {
			ids := make([]string, 0, len(next))
			for _, a := range next {
				ids = append(ids, a.ID)
			}
			sort.Strings(ids)
			return nil, fmt.Errorf("seed file has unresolvable association parents: %v", ids)
		}
		remaining = next
	}
	r.Associations.PropagateCtld()
	return r, nil
}

// defaultRegistries builds the small demo hierarchy used when no --seed
// flag is given: a root association, one department with a job-count
// cap, one leaf user association, a "batch" QoS with a per-user CPU cap,
// and a "compute" partition defaulting to it — enough to drive every
// scenario in spec §8 from a fresh start.
func defaultRegistries() *registries {
	sf := seedFile{
		QoS: []seedQoS{
			{Name: "normal"},
			{Name: "batch", MaxCPUsPerUser: 8, GrpCPUMins: 100000},
		},
		Partitions: []seedPartition{
			{Name: "compute", MaxTime: 1440, QoS: "batch"},
		},
		Associations: []seedAssociation{
			{ID: "root", Account: "root"},
			{ID: "deptA", Account: "deptA", ParentID: "root", GrpJobs: 2},
			{ID: "deptA-userU", Account: "deptA", ParentID: "deptA", UserID: "userU", Partition: "compute"},
		},
	}
	r, err := buildRegistries(sf)
	if err != nil {
		// The default seed is a fixed literal; a failure here is a
		// programming error in this file, not an operator mistake.
		panic(fmt.Sprintf("default seed failed to load: %v", err))
	}
	return r
}
