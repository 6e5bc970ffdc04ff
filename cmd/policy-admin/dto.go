// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"time"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// jobDTO is the wire shape of a job lifecycle request body. The engine's
// own types.Job has no JSON tags by design (spec.md's Non-goals exclude
// wire serialization of job records); this admin API is the one place
// that needs to cross the JSON boundary, so translation lives here
// rather than on the core type.
type jobDTO struct {
	JobID     string `json:"job_id"`
	UserID    string `json:"user_id"`
	Account   string `json:"account"`
	AssocID   string `json:"assoc_id"`
	QoS       string `json:"qos"`
	Partition string `json:"partition"`

	CPUs      int64 `json:"cpus"`
	Nodes     int64 `json:"nodes"`
	MinMemory int64 `json:"min_memory"`
	TimeLimit int64 `json:"time_limit"` // minutes; omit or 0 means "not requested"

	AdminSetTime bool `json:"admin_set_time"`
	AdminSetCPU  bool `json:"admin_set_cpu"`
	AdminSetNode bool `json:"admin_set_node"`
	AdminSetMem  bool `json:"admin_set_mem"`
}

// toJob converts the wire DTO into an engine types.Job. A TimeLimit of
// zero is ambiguous between "not requested" and "request zero minutes";
// this admin surface treats zero as NoVal, matching how the CLI and the
// scheduler's own submission path normally distinguish the two (an
// explicit request of exactly zero minutes is not a meaningful job).
func (d jobDTO) toJob() *types.Job {
	tl := d.TimeLimit
	if tl == 0 {
		tl = types.NoVal
	}
	j := &types.Job{
		JobID:     d.JobID,
		UserID:    d.UserID,
		Account:   d.Account,
		AssocID:   d.AssocID,
		QoSName:   d.QoS,
		Partition: d.Partition,
		CPUs:      d.CPUs,
		Nodes:     d.Nodes,
		MinMemory: d.MinMemory,
		TimeLimit: tl,
	}
	if d.AdminSetTime {
		j.AdminSet.Time = types.LimitSetAdmin
	}
	if d.AdminSetCPU {
		j.AdminSet.CPU = types.LimitSetAdmin
	}
	if d.AdminSetNode {
		j.AdminSet.Node = types.LimitSetAdmin
	}
	if d.AdminSetMem {
		j.AdminSet.Mem = types.LimitSetAdmin
	}
	return j
}

// jobView is what the admin API reports back about a tracked job: the
// input fields plus everything the engine may have since mutated
// (state, resolved time limit, begin snapshot).
type jobView struct {
	jobDTO
	State       string `json:"state"`
	StateReason string `json:"state_reason"`
	StateDesc   string `json:"state_desc,omitempty"`
	TotalCPUs   int64  `json:"total_cpus,omitempty"`
	NodeCnt     int64  `json:"node_cnt,omitempty"`
}

func newJobView(j *types.Job, state types.JobState) jobView {
	return jobView{
		jobDTO: jobDTO{
			JobID: j.JobID, UserID: j.UserID, Account: j.Account, AssocID: j.AssocID,
			QoS: j.QoSName, Partition: j.Partition, CPUs: j.CPUs, Nodes: j.Nodes,
			MinMemory: j.MinMemory, TimeLimit: j.TimeLimit,
			AdminSetTime: j.AdminSet.Time == types.LimitSetAdmin,
			AdminSetCPU:  j.AdminSet.CPU == types.LimitSetAdmin,
			AdminSetNode: j.AdminSet.Node == types.LimitSetAdmin,
			AdminSetMem:  j.AdminSet.Mem == types.LimitSetAdmin,
		},
		State:       string(state),
		StateReason: string(j.StateReason),
		StateDesc:   j.StateDesc,
		TotalCPUs:   j.TotalCPUs,
		NodeCnt:     j.NodeCnt,
	}
}

// decisionDTO is the response body for every validate/runnable/timeout
// endpoint: the boolean outcome plus the reason code the engine wrote.
type decisionDTO struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason"`
	StateDesc string `json:"state_desc,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// postSelectDTO is the /runnable/post-select request body: the
// node-selection result the scheduler would have produced.
type postSelectDTO struct {
	NodeCnt    int64 `json:"node_cnt"`
	CPUCnt     int64 `json:"cpu_cnt"`
	PerNodeMem int64 `json:"per_node_min_memory"`
}

// beginDTO supplies the fields only known once a job actually starts.
type beginDTO struct {
	TotalCPUs int64     `json:"total_cpus"`
	NodeCnt   int64     `json:"node_cnt"`
	StartTime time.Time `json:"start_time,omitempty"`
}

// alterDTO is the /alter request body.
type alterDTO struct {
	NewTimeLimit int64 `json:"new_time_limit"`
}

// maxNodesDTO is the /max-nodes response body.
type maxNodesDTO struct {
	MaxNodes int64  `json:"max_nodes"`
	Infinite bool   `json:"infinite"`
	Reason   string `json:"reason"`
}

// qosDTO is the read-only snapshot shape for GET /v1/qos.
type qosDTO struct {
	Name    string          `json:"name"`
	Flags   []string        `json:"flags,omitempty"`
	Limits  types.QoSLimits `json:"limits"`
	GrpUsed qosUsageDTO     `json:"usage"`
}

type qosUsageDTO struct {
	Jobs       int64                       `json:"jobs"`
	SubmitJobs int64                       `json:"submit_jobs"`
	CPUs       int64                       `json:"cpus"`
	Mem        int64                       `json:"mem"`
	Nodes      int64                       `json:"nodes"`
	WallSecs   int64                       `json:"wall_secs"`
	CPURunSecs int64                       `json:"cpu_run_secs"`
	UsageRaw   float64                     `json:"usage_raw_secs"`
	PerUser    map[string]types.PerUserUsage `json:"per_user,omitempty"`
}

func newQoSDTO(q *types.QoS) qosDTO {
	flags := make([]string, 0, len(q.Flags))
	for _, f := range q.Flags {
		flags = append(flags, string(f))
	}
	return qosDTO{
		Name:   q.Name,
		Flags:  flags,
		Limits: q.Limits,
		GrpUsed: qosUsageDTO{
			Jobs: q.Usage.GrpUsedJobs, SubmitJobs: q.Usage.GrpUsedSubmitJobs,
			CPUs: q.Usage.GrpUsedCPUs, Mem: q.Usage.GrpUsedMem, Nodes: q.Usage.GrpUsedNodes,
			WallSecs: q.Usage.GrpUsedWallSecs, CPURunSecs: q.Usage.GrpUsedCPURunSecs,
			UsageRaw: q.Usage.UsageRawSecs, PerUser: q.Usage.PerUser,
		},
	}
}

// associationDTO is the read-only snapshot shape for GET /v1/associations.
type associationDTO struct {
	ID        string             `json:"id"`
	Account   string             `json:"account"`
	ParentID  string             `json:"parent_id,omitempty"`
	UserID    string             `json:"user_id,omitempty"`
	Partition string             `json:"partition,omitempty"`
	Limits    types.AssocLimits  `json:"limits"`
	Ctld      types.AssocLimits  `json:"ctld"`
	Usage     types.AssocUsage   `json:"usage"`
}

func newAssociationDTO(a *types.Association) associationDTO {
	return associationDTO{
		ID: a.ID, Account: a.Account, ParentID: a.ParentID, UserID: a.UserID, Partition: a.Partition,
		Limits: a.Limits, Ctld: a.Ctld, Usage: *a.Usage,
	}
}

// partitionDTO is the read-only snapshot shape for GET /v1/partitions.
type partitionDTO struct {
	Name    string `json:"name"`
	MaxTime int64  `json:"max_time"`
	QoS     string `json:"qos,omitempty"`
}

func newPartitionDTO(p *types.Partition) partitionDTO {
	return partitionDTO{Name: p.Name, MaxTime: p.MaxTime, QoS: p.QoS}
}

// errorDTO is the JSON body written for any non-2xx response.
type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
