// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package collaborators defines the narrow interfaces the policy engine
// invokes but does not implement: association lookup/refill, the
// priority subsystem's end-of-job hook, and the accounting-storage
// start-of-job hook (spec §6, "Required from collaborators"). The engine
// never persists usage, talks to a database, or serializes a job record —
// those concerns live on the far side of these interfaces.
package collaborators

import (
	"context"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// AssociationResolver re-binds a job's association reference when it is
// stale or absent, mirroring the source's assoc_mgr lookup-or-fill path
// keyed by (account, partition, uid). A failed lookup aborts the calling
// operation: AddJobSubmit and RemoveJobSubmit drop it silently, while
// JobBegin, JobFini, AlterJob and Validate return it to their caller as
// ErrorCodeNoAssociation.
type AssociationResolver interface {
	Resolve(ctx context.Context, account, partition, userID string) (*types.Association, error)
}

// PriorityHook is invoked before JOB_FINI bookkeeping runs, so the
// priority subsystem can record the job's end independent of (and never
// blocking) the engine's own counter mutation (spec §4.6 step 4, §5).
type PriorityHook interface {
	JobEnd(ctx context.Context, job *types.Job)
}

// AccountingHook is invoked after update_pending_job installs a derived
// time limit on a job, letting accounting-storage observe the change
// without the engine depending on any persistence format (spec §6).
type AccountingHook interface {
	JobStartDirect(ctx context.Context, job *types.Job) error
}

// EventPublisher receives a DecisionEvent after every lifecycle call the
// engine makes a decision or mutation on, so the admin API's decision
// stream (pkg/streaming) can broadcast it to subscribed operators. The
// engine never blocks on a slow subscriber; a publisher is expected to
// drop events it cannot deliver immediately rather than apply backpressure
// to the caller holding the lock bundle.
type EventPublisher interface {
	Publish(ctx context.Context, event types.DecisionEvent)
}

// NoopPriorityHook, NoopAccountingHook, and NoopEventPublisher let callers
// that have not yet wired a real collaborator (tests, standalone
// `policyctl` dry-runs) construct an Engine without a nil interface value.
type NoopPriorityHook struct{}

func (NoopPriorityHook) JobEnd(context.Context, *types.Job) {}

type NoopAccountingHook struct{}

func (NoopAccountingHook) JobStartDirect(context.Context, *types.Job) error { return nil }

// NoopAssociationResolver always returns no association and no error; the
// engine treats that as a failed lookup, the "configuration error" path
// (spec §7.3) a real Engine falls back to only when it truly has no
// resolver to re-bind a stale association against.
type NoopAssociationResolver struct{}

func (NoopAssociationResolver) Resolve(context.Context, string, string, string) (*types.Association, error) {
	return nil, nil
}

type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, types.DecisionEvent) {}
