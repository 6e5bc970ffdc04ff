// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/jontk/slurm-policy-engine/pkg/report"
)

// snapshotFilters are the optional query parameters the QoS and
// association list endpoints accept, bound with oapi-codegen/runtime the same way the teacher's
// generated per-version clients bind list-operation query parameters.
type snapshotFilters struct {
	Account string `form:"account"`
	User    string `form:"user"`
	QoS     string `form:"qos"`
}

func bindSnapshotFilters(r *http.Request) (snapshotFilters, error) {
	var f snapshotFilters
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "account", q, &f.Account); err != nil {
		return f, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "user", q, &f.User); err != nil {
		return f, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "qos", q, &f.QoS); err != nil {
		return f, err
	}
	return f, nil
}

// handleListQoS lists every registered QoS, optionally filtered to a
// single name via ?qos=.
func (s *server) handleListQoS(w http.ResponseWriter, r *http.Request) {
	f, err := bindSnapshotFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out := make([]qosDTO, 0)
	for _, q := range s.regs.QoS.All() {
		if f.QoS != "" && q.Name != f.QoS {
			continue
		}
		out = append(out, newQoSDTO(q))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListAssociations lists every registered association, optionally
// filtered by ?account= and/or ?user=.
func (s *server) handleListAssociations(w http.ResponseWriter, r *http.Request) {
	f, err := bindSnapshotFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out := make([]associationDTO, 0)
	for _, a := range s.regs.Associations.All() {
		if f.Account != "" && a.Account != f.Account {
			continue
		}
		if f.User != "" && a.UserID != f.User {
			continue
		}
		out = append(out, newAssociationDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAssociationLookup serves a remote instance's httpAssociationResolver:
// it scans for the leaf matching (account, partition, user_id) the same way
// registryAssociationResolver.Resolve does, then walks Parent() back to the
// root and returns the chain root-first, the order httpAssociationResolver
// needs to Register each link in turn.
func (s *server) handleAssociationLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account, userID, partition := q.Get("account"), q.Get("user_id"), q.Get("partition")

	resolver := &registryAssociationResolver{assocs: s.regs.Associations}
	assoc, err := resolver.Resolve(r.Context(), account, partition, userID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var chain []associationDTO
	for a := assoc; a != nil; a = a.Parent() {
		chain = append([]associationDTO{newAssociationDTO(a)}, chain...)
	}
	writeJSON(w, http.StatusOK, map[string][]associationDTO{"chain": chain})
}

// handleListPartitions lists every registered partition.
func (s *server) handleListPartitions(w http.ResponseWriter, r *http.Request) {
	out := make([]partitionDTO, 0)
	for _, p := range s.regs.Partitions.All() {
		out = append(out, newPartitionDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListJobs lists every job this admin instance has tracked since
// start.
func (s *server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.All())
}

// handleReport renders a plain-text usage report for a single QoS or
// association named by ?kind=qos|assoc&name=....
func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	name := r.URL.Query().Get("name")

	var text string
	switch kind {
	case "qos":
		q, err := s.regs.QoS.Lookup(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		text = report.String(report.FromQoS(q))
	case "assoc":
		a, err := s.regs.Associations.Lookup(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		text = report.String(report.FromAssociation(a))
	default:
		http.Error(w, "kind must be \"qos\" or \"assoc\"", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
