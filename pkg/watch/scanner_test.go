// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package watch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/pkg/watch"
)

// fakeEvaluator reports a job as timed out once its id is present in
// the timedOut set, mirroring engine.JobTimeOut's bool-returning shape
// without needing a live registry-backed Engine.
type fakeEvaluator struct {
	mu       sync.Mutex
	timedOut map[string]bool
	calls    int32
}

func newFakeEvaluator(timedOut ...string) *fakeEvaluator {
	set := make(map[string]bool, len(timedOut))
	for _, id := range timedOut {
		set[id] = true
	}
	return &fakeEvaluator{timedOut: set}
}

func (f *fakeEvaluator) JobTimeOut(_ context.Context, job *types.Job, _ time.Time) bool {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timedOut[job.JobID]
}

func (f *fakeEvaluator) markTimedOut(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timedOut[jobID] = true
}

func sourceOf(jobs ...*types.Job) watch.JobSource {
	return func(context.Context) ([]*types.Job, error) {
		return jobs, nil
	}
}

func TestTimeoutScanner_EmitsOnlyTimedOutJobs(t *testing.T) {
	eval := newFakeEvaluator("job-2")
	source := sourceOf(
		&types.Job{JobID: "job-1", UserID: "alice"},
		&types.Job{JobID: "job-2", UserID: "bob"},
	)

	scanner := watch.NewTimeoutScanner(source, eval).
		WithInterval(20 * time.Millisecond).
		WithBufferSize(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := scanner.Run(ctx)

	select {
	case ev := <-events:
		assert.Equal(t, "job-2", ev.JobID)
		assert.Equal(t, "bob", ev.UserID)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for timeout event")
	}
}

func TestTimeoutScanner_DoesNotReemitAlreadyFlaggedJob(t *testing.T) {
	eval := newFakeEvaluator("job-1")
	source := sourceOf(&types.Job{JobID: "job-1", UserID: "alice"})

	scanner := watch.NewTimeoutScanner(source, eval).
		WithInterval(15 * time.Millisecond).
		WithBufferSize(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := scanner.Run(ctx)

	first := <-events
	assert.Equal(t, "job-1", first.JobID)

	select {
	case ev := <-events:
		t.Fatalf("expected no second event, got %+v", ev)
	case <-time.After(150 * time.Millisecond):
		// expected: the scanner does not refire for a job it already flagged
	}
}

func TestTimeoutScanner_ForgetAllowsReevaluation(t *testing.T) {
	eval := newFakeEvaluator("job-1")
	source := sourceOf(&types.Job{JobID: "job-1", UserID: "alice"})

	scanner := watch.NewTimeoutScanner(source, eval).
		WithInterval(15 * time.Millisecond).
		WithBufferSize(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := scanner.Run(ctx)

	first := <-events
	assert.Equal(t, "job-1", first.JobID)

	scanner.Forget("job-1")

	select {
	case ev := <-events:
		assert.Equal(t, "job-1", ev.JobID)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected a second event after Forget")
	}
}

func TestTimeoutScanner_SourceErrorDoesNotPanic(t *testing.T) {
	source := func(context.Context) ([]*types.Job, error) {
		return nil, errors.New("registry unavailable")
	}
	eval := newFakeEvaluator()

	scanner := watch.NewTimeoutScanner(source, eval).WithInterval(15 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	eventsDone := make(chan struct{})
	go func() {
		for range scanner.Run(ctx) {
		}
		close(eventsDone)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-eventsDone:
	case <-time.After(time.Second):
		t.Fatal("scanner did not shut down cleanly after a source error")
	}
}

func TestTimeoutScanner_StopsOnContextCancel(t *testing.T) {
	source := sourceOf(&types.Job{JobID: "job-1"})
	eval := newFakeEvaluator()

	scanner := watch.NewTimeoutScanner(source, eval).WithInterval(500 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	events := scanner.Run(ctx)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should be closed after cancellation")
	case <-time.After(time.Second):
		t.Fatal("channel did not close after context cancellation")
	}
}

func TestTimeoutScanner_WithMethodsChain(t *testing.T) {
	eval := newFakeEvaluator()
	scanner := watch.NewTimeoutScanner(sourceOf(), eval).
		WithInterval(2 * time.Second).
		WithBufferSize(50)

	require.NotNil(t, scanner)
}
