// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package watch provides the ticker-driven scanning loop that calls
// JobTimeOut repeatedly against the running-job set. The enforcement core
// only describes the per-job check (spec §4.5); nothing in internal/engine
// decides when or how often to run it, which is exactly the gap this
// package fills, in the same polling-loop shape the teacher used to watch
// job/node/partition state.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// DefaultScanInterval is used when no WithInterval override is supplied.
const DefaultScanInterval = 60 * time.Second

// JobSource returns the current set of running jobs to evaluate. It is
// called once per tick; the engine's own association/QoS locks guard
// against races with a concurrent Validate or JobBegin, not this package.
type JobSource func(ctx context.Context) ([]*types.Job, error)

// Evaluator is satisfied structurally by *engine.Engine. It is declared
// here, rather than importing internal/engine directly, so the scanner's
// tests can substitute a fake without constructing a full
// registry-backed Engine.
type Evaluator interface {
	JobTimeOut(ctx context.Context, job *types.Job, now time.Time) bool
}

// TimeoutEvent reports one job the scanner observed crossing a timeout
// limit.
type TimeoutEvent struct {
	JobID     string
	UserID    string
	Timestamp time.Time
}

// TimeoutScanner ticks on an interval, lists the running jobs through its
// JobSource, and evaluates each with Evaluator.JobTimeOut. A job that has
// already fired is not re-evaluated until the source stops returning it —
// at which point it is dropped from the dedup set on the next tick, so a
// reused job id starts clean.
type TimeoutScanner struct {
	source     JobSource
	eval       Evaluator
	interval   time.Duration
	bufferSize int

	mu      sync.Mutex
	flagged map[string]bool
}

// NewTimeoutScanner constructs a scanner over source and eval, with
// DefaultScanInterval and a 100-event buffer until overridden.
func NewTimeoutScanner(source JobSource, eval Evaluator) *TimeoutScanner {
	return &TimeoutScanner{
		source:     source,
		eval:       eval,
		interval:   DefaultScanInterval,
		bufferSize: 100,
		flagged:    make(map[string]bool),
	}
}

// WithInterval overrides the tick interval.
func (s *TimeoutScanner) WithInterval(d time.Duration) *TimeoutScanner {
	s.interval = d
	return s
}

// WithBufferSize overrides the event channel's buffer size.
func (s *TimeoutScanner) WithBufferSize(n int) *TimeoutScanner {
	s.bufferSize = n
	return s
}

// Forget clears the dedup flag for jobID, so a reused job id (or a job an
// operator has manually reset) is evaluated again on the next tick.
func (s *TimeoutScanner) Forget(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flagged, jobID)
}

// Run starts the scan loop and returns a channel of TimeoutEvents. The
// channel closes once ctx is done.
func (s *TimeoutScanner) Run(ctx context.Context) <-chan TimeoutEvent {
	events := make(chan TimeoutEvent, s.bufferSize)
	go s.loop(ctx, events)
	return events
}

func (s *TimeoutScanner) loop(ctx context.Context, events chan<- TimeoutEvent) {
	defer close(events)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanOnce(ctx, events)
		}
	}
}

func (s *TimeoutScanner) scanOnce(ctx context.Context, events chan<- TimeoutEvent) {
	jobs, err := s.source(ctx)
	if err != nil {
		return
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		seen[job.JobID] = true
		if s.flagged[job.JobID] {
			continue
		}
		if !s.eval.JobTimeOut(ctx, job, now) {
			continue
		}
		s.flagged[job.JobID] = true
		select {
		case events <- TimeoutEvent{JobID: job.JobID, UserID: job.UserID, Timestamp: now}:
		default:
		}
	}

	for id := range s.flagged {
		if !seen[id] {
			delete(s.flagged, id)
		}
	}
}
