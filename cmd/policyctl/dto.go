// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

// These DTOs mirror cmd/policy-admin's wire shapes. They are kept
// deliberately separate rather than shared via an import: this module
// has no dependency on the engine module at all, matching how the
// teacher's generated per-version clients each carry their own request/
// response types instead of reaching into slurmrestd's Go internals.

type jobRequest struct {
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	Account      string `json:"account,omitempty"`
	AssocID      string `json:"assoc_id,omitempty"`
	QoS          string `json:"qos,omitempty"`
	Partition    string `json:"partition,omitempty"`
	CPUs         int64  `json:"cpus,omitempty"`
	Nodes        int64  `json:"nodes,omitempty"`
	MinMemory    int64  `json:"min_memory,omitempty"`
	TimeLimit    int64  `json:"time_limit,omitempty"`
	AdminSetTime bool   `json:"admin_set_time,omitempty"`
	AdminSetCPU  bool   `json:"admin_set_cpu,omitempty"`
	AdminSetNode bool   `json:"admin_set_node,omitempty"`
	AdminSetMem  bool   `json:"admin_set_mem,omitempty"`
}

type jobView struct {
	jobRequest
	State       string `json:"state"`
	StateReason string `json:"state_reason"`
	StateDesc   string `json:"state_desc,omitempty"`
	TotalCPUs   int64  `json:"total_cpus,omitempty"`
	NodeCnt     int64  `json:"node_cnt,omitempty"`
}

type decisionResponse struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason"`
	StateDesc string `json:"state_desc,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

type postSelectRequest struct {
	NodeCnt    int64 `json:"node_cnt"`
	CPUCnt     int64 `json:"cpu_cnt"`
	PerNodeMem int64 `json:"per_node_min_memory,omitempty"`
}

type beginRequest struct {
	TotalCPUs int64 `json:"total_cpus"`
	NodeCnt   int64 `json:"node_cnt"`
}

type alterRequest struct {
	NewTimeLimit int64 `json:"new_time_limit"`
}

type maxNodesResponse struct {
	MaxNodes int64  `json:"max_nodes"`
	Infinite bool   `json:"infinite"`
	Reason   string `json:"reason"`
}

type qosView struct {
	Name   string                 `json:"name"`
	Flags  []string               `json:"flags,omitempty"`
	Limits map[string]interface{} `json:"limits"`
	Usage  map[string]interface{} `json:"usage"`
}

type associationView struct {
	ID        string                 `json:"id"`
	Account   string                 `json:"account"`
	ParentID  string                 `json:"parent_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Partition string                 `json:"partition,omitempty"`
	Limits    map[string]interface{} `json:"limits"`
	Ctld      map[string]interface{} `json:"ctld"`
	Usage     map[string]interface{} `json:"usage"`
}

type partitionView struct {
	Name    string `json:"name"`
	MaxTime int64  `json:"max_time"`
	QoS     string `json:"qos,omitempty"`
}
