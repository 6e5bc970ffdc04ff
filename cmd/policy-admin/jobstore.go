// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"sync"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
)

// jobStore tracks every job this admin instance has seen across its
// lifecycle calls. The engine itself is deliberately stateless about
// which jobs exist (spec.md's Non-goals exclude job-record persistence);
// something on this side of the contract has to hold the *types.Job a
// /validate call created so later /submit, /begin, /fini, /alter calls against the
// same job id operate on the same snapshot, exactly as a real scheduler's
// job table would.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*trackedJob
}

type trackedJob struct {
	job   *types.Job
	state types.JobState
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*trackedJob)}
}

// Put installs or replaces the tracked job for j.JobID in state st.
func (s *jobStore) Put(j *types.Job, st types.JobState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.JobID] = &trackedJob{job: j, state: st}
}

// Get returns the tracked job and its state, or an error satisfying
// errors.ErrorCodeResourceNotFound if no job with that id was ever
// submitted through this admin instance.
func (s *jobStore) Get(jobID string) (*types.Job, types.JobState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.jobs[jobID]
	if !ok {
		return nil, "", errors.NewPolicyError(errors.ErrorCodeResourceNotFound, "unknown job: "+jobID)
	}
	return t.job, t.state, nil
}

// SetState transitions a tracked job's state without touching the
// underlying *types.Job, which the engine itself continues to mutate
// in place.
func (s *jobStore) SetState(jobID string, st types.JobState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.jobs[jobID]; ok {
		t.state = st
	}
}

// Remove drops a job from the store (on REMOVE_SUBMIT).
func (s *jobStore) Remove(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// Running implements pkg/watch.JobSource: the set of jobs this admin
// instance currently believes are running, handed to the periodic
// timeout scanner.
func (s *jobStore) Running(ctx context.Context) ([]*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Job, 0, len(s.jobs))
	for _, t := range s.jobs {
		if t.state == types.JobStateRunning {
			out = append(out, t.job)
		}
	}
	return out, nil
}

// All returns a snapshot of every tracked job and its state, for the
// admin API's job-list endpoint.
func (s *jobStore) All() []jobView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]jobView, 0, len(s.jobs))
	for _, t := range s.jobs {
		out = append(out, newJobView(t.job, t.state))
	}
	return out
}
