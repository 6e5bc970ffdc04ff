// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package engine is the accounting-policy enforcement core: the
// precedence resolver, admission validator, pre-/post-select runnability
// checks, timeout evaluator, usage mutator, alter operation, and
// max-nodes query described by spec §4. Every exported method acquires
// the lock bundle the table in spec §5 calls for before touching a QoS
// or association's live usage counters.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jontk/slurm-policy-engine/internal/collaborators"
	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/internal/registry"
	"github.com/jontk/slurm-policy-engine/pkg/config"
	"github.com/jontk/slurm-policy-engine/pkg/logging"
	"github.com/jontk/slurm-policy-engine/pkg/metrics"
)

// LockMode is one of the three states a sub-lock in the bundle can be
// acquired in (spec §5).
type LockMode int

const (
	LockNone LockMode = iota
	LockRead
	LockWrite
)

// LockBundle names the mode each of the manager's sub-locks must be
// acquired in for one operation. Association, QoS, User, and TRES mirror
// the source's four live sub-locks; Reserved1/Reserved2 are kept, always
// LockNone, for the two slots the source preserves for ABI compatibility
// but no longer uses.
type LockBundle struct {
	Association LockMode
	QoS         LockMode
	User        LockMode
	TRES        LockMode
	Reserved1   LockMode
	Reserved2   LockMode
}

// Bundles used by the paths in spec §5's table. Every acquisition walks
// Association, then QoS, then User, then TRES, then the two reserved
// slots, in that fixed order — the total order that rules out deadlock
// between two callers holding overlapping bundles.
var (
	BundleAdmission = LockBundle{Association: LockRead, QoS: LockRead, User: LockRead}
	BundleRunnable  = LockBundle{Association: LockRead, QoS: LockRead}
	BundleMutator   = LockBundle{Association: LockWrite, QoS: LockWrite}
	BundleQuery     = LockBundle{Association: LockRead, QoS: LockRead}
)

// lockSet is the manager's physical lock bundle: one reader/writer lock
// per named sub-lock. A zero-value lockSet is ready to use.
type lockSet struct {
	association sync.RWMutex
	qos         sync.RWMutex
	user        sync.RWMutex
	tres        sync.RWMutex
}

// acquire locks every non-NO slot of b, in Association/QoS/User/TRES
// order, and returns a function that releases them in reverse order.
func (l *lockSet) acquire(b LockBundle) func() {
	type step struct {
		mode LockMode
		mu   *sync.RWMutex
	}
	steps := []step{
		{b.Association, &l.association},
		{b.QoS, &l.qos},
		{b.User, &l.user},
		{b.TRES, &l.tres},
	}

	var release []func()
	for _, s := range steps {
		switch s.mode {
		case LockRead:
			s.mu.RLock()
			release = append(release, s.mu.RUnlock)
		case LockWrite:
			s.mu.Lock()
			release = append(release, s.mu.Unlock)
		}
	}
	return func() {
		for i := len(release) - 1; i >= 0; i-- {
			release[i]()
		}
	}
}

// JobUpdateClock tracks last_job_update (spec §6): a single timestamp the
// core bumps whenever it mutates an observable job field (time_limit,
// state_reason). It has no per-job granularity, matching the source's
// single global watched by the scheduler's main loop.
type JobUpdateClock struct {
	mu sync.Mutex
	t  time.Time
}

// Bump records now as the last time the core touched an observable job field.
func (c *JobUpdateClock) Bump() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Now()
}

// Get returns the last bump time, or the zero Time if none has happened.
func (c *JobUpdateClock) Get() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Engine is the explicit handle every public operation is called
// against — the association manager's lock bundle and root pointer,
// modeled as a value instead of shared mutable package-level globals
// (spec §9).
type Engine struct {
	locks lockSet

	Associations *registry.AssociationRegistry
	QoSes        *registry.QoSRegistry
	Partitions   *registry.PartitionRegistry

	Enforce config.EnforceFlags

	Resolver   collaborators.AssociationResolver
	Priority   collaborators.PriorityHook
	Accounting collaborators.AccountingHook
	Events     collaborators.EventPublisher

	LastJobUpdate *JobUpdateClock

	log     logging.Logger
	metrics metrics.Collector
}

// New constructs an Engine over already-populated registries. Callers
// build the registries (Register every QoS/association/partition, then
// PropagateCtld) before handing them to New, since the engine itself
// never mutates configuration, only usage.
func New(
	assocs *registry.AssociationRegistry,
	qoses *registry.QoSRegistry,
	partitions *registry.PartitionRegistry,
	enforce config.EnforceFlags,
	resolver collaborators.AssociationResolver,
	priority collaborators.PriorityHook,
	accounting collaborators.AccountingHook,
	events collaborators.EventPublisher,
	log logging.Logger,
	m metrics.Collector,
) *Engine {
	if resolver == nil {
		resolver = collaborators.NoopAssociationResolver{}
	}
	if priority == nil {
		priority = collaborators.NoopPriorityHook{}
	}
	if accounting == nil {
		accounting = collaborators.NoopAccountingHook{}
	}
	if events == nil {
		events = collaborators.NoopEventPublisher{}
	}
	if log == nil {
		log = logging.NoOpLogger{}
	}
	if m == nil {
		m = metrics.NewInMemoryCollector()
	}
	return &Engine{
		Associations:  assocs,
		QoSes:         qoses,
		Partitions:    partitions,
		Enforce:       enforce,
		Resolver:      resolver,
		Priority:      priority,
		Accounting:    accounting,
		Events:        events,
		LastJobUpdate: &JobUpdateClock{},
		log:           log,
		metrics:       m,
	}
}

// decisionID produces a fresh trace id for one lifecycle call, carried
// into logs and the admin API's decision-event stream so an operator can
// correlate a hold with the request that produced it.
func decisionID() string { return uuid.NewString() }

// recordDecision reports one lifecycle outcome to the metrics collector
// and the decision-event stream. Called after the lock bundle has already
// been released: neither collaborator may block the caller holding it.
func (e *Engine) recordDecision(ctx context.Context, operation string, job *types.Job, allowed bool, reason types.ReasonCode) {
	e.metrics.RecordDecision(operation, string(reason), allowed)
	id := decisionID()
	e.log.Debug("policy decision", "trace_id", id, "op", operation, "job_id", job.JobID, "allowed", allowed, "reason", string(reason))
	e.Events.Publish(ctx, types.DecisionEvent{
		Timestamp: time.Now(),
		TraceID:   id,
		Operation: operation,
		JobID:     job.JobID,
		UserID:    job.UserID,
		Allowed:   allowed,
		Reason:    reason,
	})
}

// withLock runs fn while holding b, releasing it (in reverse acquisition
// order) however fn returns.
func (e *Engine) withLock(b LockBundle, fn func()) {
	release := e.locks.acquire(b)
	defer release()
	fn()
}

// ctxOrBackground is a small convenience so every public operation can
// accept a context for its collaborator calls without every internal
// helper needing to guard against nil.
func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
