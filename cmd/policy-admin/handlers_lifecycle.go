// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/internal/engine"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// handleValidate is the entry point for a new job: it decodes the
// request body into a *types.Job, runs admission, and (on success)
// tracks the job as pending so later lifecycle calls against the same
// id operate on it. Mirrors spec §4.2's validate_submit path, which is
// itself the first stop for every job a scheduler sees.
func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var d jobDTO
	if err := decodeAndValidate(r, jobRequestSchema, &d); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	job := d.toJob()

	strict := r.URL.Query().Get("strict") == "true"
	ok, err := s.eng.Validate(r.Context(), job, strict)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if ok {
		s.jobs.Put(job, types.JobStatePending)
	}
	writeJSON(w, http.StatusOK, decisionDTO{
		Allowed:   ok,
		Reason:    string(job.StateReason),
		StateDesc: job.StateDesc,
		TraceID:   traceIDFromContext(r.Context()),
	})
}

func (s *server) trackedJob(r *http.Request) (*types.Job, types.JobState, error) {
	id := mux.Vars(r)["id"]
	return s.jobs.Get(id)
}

func (s *server) handleUpdatePending(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.eng.UpdatePendingJob(r.Context(), job); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobView(job, types.JobStatePending))
}

func (s *server) handlePreSelect(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	ok := s.eng.JobRunnablePreSelect(r.Context(), job)
	writeJSON(w, http.StatusOK, decisionDTO{
		Allowed: ok, Reason: string(job.StateReason), StateDesc: job.StateDesc,
		TraceID: traceIDFromContext(r.Context()),
	})
}

func (s *server) handlePostSelect(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var d postSelectDTO
	if err := decodeAndValidate(r, postSelectSchema, &d); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ok := s.eng.JobRunnablePostSelect(r.Context(), job, engine.PostSelectRequest{
		NodeCnt: d.NodeCnt, CPUCnt: d.CPUCnt, PerNodeMem: d.PerNodeMem,
	})
	writeJSON(w, http.StatusOK, decisionDTO{
		Allowed: ok, Reason: string(job.StateReason), StateDesc: job.StateDesc,
		TraceID: traceIDFromContext(r.Context()),
	})
}

func (s *server) handleAddSubmit(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.eng.AddJobSubmit(r.Context(), job); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobView(job, types.JobStatePending))
}

func (s *server) handleRemoveSubmit(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.eng.RemoveJobSubmit(r.Context(), job); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.jobs.Remove(job.JobID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleBegin(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var d beginDTO
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	job.TotalCPUs = d.TotalCPUs
	job.NodeCnt = d.NodeCnt
	if d.StartTime.IsZero() {
		job.StartTime = time.Now()
	} else {
		job.StartTime = d.StartTime
	}

	if err := s.eng.JobBegin(r.Context(), job); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.jobs.SetState(job.JobID, types.JobStateRunning)
	writeJSON(w, http.StatusOK, newJobView(job, types.JobStateRunning))
}

func (s *server) handleFini(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.eng.JobFini(r.Context(), job); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.jobs.SetState(job.JobID, types.JobStateCompleted)
	writeJSON(w, http.StatusOK, newJobView(job, types.JobStateCompleted))
}

func (s *server) handleAlter(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	var d alterDTO
	if err := decodeAndValidate(r, alterSchema, &d); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.eng.AlterJob(r.Context(), job, d.NewTimeLimit); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobView(job, jobStateOf(s, job.JobID)))
}

func (s *server) handleTimeoutCheck(w http.ResponseWriter, r *http.Request) {
	job, state, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if state != types.JobStateRunning {
		writeError(w, http.StatusConflict, errors.NewPolicyError(errors.ErrorCodeConflict, "job is not running"))
		return
	}
	timedOut := s.eng.JobTimeOut(r.Context(), job, time.Now())
	if timedOut {
		s.jobs.SetState(job.JobID, types.JobStateTimeout)
	}
	writeJSON(w, http.StatusOK, decisionDTO{
		Allowed: !timedOut, Reason: string(job.StateReason), StateDesc: job.StateDesc,
		TraceID: traceIDFromContext(r.Context()),
	})
}

func (s *server) handleMaxNodes(w http.ResponseWriter, r *http.Request) {
	job, _, err := s.trackedJob(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	maxNodes, reason := s.eng.GetMaxNodes(r.Context(), job)
	writeJSON(w, http.StatusOK, maxNodesDTO{
		MaxNodes: maxNodes,
		Infinite: maxNodes == types.Infinite,
		Reason:   string(reason),
	})
}

func jobStateOf(s *server, jobID string) types.JobState {
	_, state, err := s.jobs.Get(jobID)
	if err != nil {
		return types.JobStatePending
	}
	return state
}
