// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package report formats live QoS and association usage as human-readable
// text: CPU-minutes, wall-clock hours, and job counts with thousands
// separators, consumed by cmd/policy-admin's report endpoint, whose text
// policyctl fetches and prints. The teacher has no reporting surface of its own; this package
// is new, but kept in the plain-constructor-plus-method style the rest of
// the repo's ambient packages use.
package report

import (
	"bytes"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// UsageReport is one named usage summary: a QoS or an association.
type UsageReport struct {
	Name          string
	CPUMinutes    int64
	WallHours     float64
	GrpJobs       int64
	GrpSubmitJobs int64
	GrpNodes      int64
	PerUser       map[string]UserUsageReport
}

// UserUsageReport is one user's contribution within a QoS report.
type UserUsageReport struct {
	Jobs       int64
	SubmitJobs int64
	CPUs       int64
	Nodes      int64
}

// FromQoS builds a UsageReport from a QoS's live usage counters.
func FromQoS(q *types.QoS) UsageReport {
	u := q.Usage
	r := UsageReport{
		Name:          q.Name,
		CPUMinutes:    u.GrpUsedCPURunSecs / 60,
		WallHours:     float64(u.GrpUsedWallSecs) / 3600,
		GrpJobs:       u.GrpUsedJobs,
		GrpSubmitJobs: u.GrpUsedSubmitJobs,
		GrpNodes:      u.GrpUsedNodes,
		PerUser:       make(map[string]UserUsageReport, len(u.PerUser)),
	}
	for uid, pu := range u.PerUser {
		r.PerUser[uid] = UserUsageReport{Jobs: pu.Jobs, SubmitJobs: pu.SubmitJobs, CPUs: pu.CPUs, Nodes: pu.Nodes}
	}
	return r
}

// FromAssociation builds a UsageReport from an association's live usage
// counters. Associations have no per-user breakdown (invariant 3 reserves
// that to QoS), so PerUser is always empty.
func FromAssociation(a *types.Association) UsageReport {
	u := a.Usage
	return UsageReport{
		Name:       a.ID,
		CPUMinutes: u.UsedCPURunSecs / 60,
		WallHours:  float64(u.UsedWallSecs) / 3600,
		GrpJobs:    u.UsedJobs,
		GrpNodes:   u.UsedNodes,
	}
}

// Write renders r as aligned, thousands-separated plain text.
func Write(w io.Writer, r UsageReport) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "%s\n", r.Name); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "  cpu-minutes: %v\n", number.Decimal(r.CPUMinutes)); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "  wall-hours:  %.2f\n", r.WallHours); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "  jobs:        %v (submitted %v)\n", number.Decimal(r.GrpJobs), number.Decimal(r.GrpSubmitJobs)); err != nil {
		return err
	}
	if _, err := p.Fprintf(w, "  nodes:       %v\n", number.Decimal(r.GrpNodes)); err != nil {
		return err
	}

	for uid, pu := range r.PerUser {
		if _, err := p.Fprintf(w, "  user %s: %v jobs, %v cpus, %v nodes\n",
			uid, number.Decimal(pu.Jobs), number.Decimal(pu.CPUs), number.Decimal(pu.Nodes)); err != nil {
			return err
		}
	}
	return nil
}

// String renders r the same way Write does, for callers (the admin report
// endpoint) that want a string rather than a stream.
func String(r UsageReport) string {
	var b bytes.Buffer
	_ = Write(&b, r)
	return b.String()
}
