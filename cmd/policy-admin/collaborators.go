// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
	"github.com/jontk/slurm-policy-engine/internal/registry"
	"github.com/jontk/slurm-policy-engine/pkg/errors"
	"github.com/jontk/slurm-policy-engine/pkg/logging"
	"github.com/jontk/slurm-policy-engine/pkg/streaming"
)

// registryAssociationResolver implements collaborators.AssociationResolver
// over the admin instance's own association table: a stale or missing
// job.AssocID is re-bound by scanning for the leaf association matching
// (account, partition, uid), mirroring the source's assoc_mgr
// lookup-or-fill path (spec §4.6 step 1).
type registryAssociationResolver struct {
	assocs *registry.AssociationRegistry
}

func (r *registryAssociationResolver) Resolve(ctx context.Context, account, partition, userID string) (*types.Association, error) {
	for _, a := range r.assocs.All() {
		if a.Account == account && a.UserID == userID && (partition == "" || a.Partition == "" || a.Partition == partition) {
			return a, nil
		}
	}
	return nil, errors.NewPolicyError(errors.ErrorCodeUnknownAssociation,
		"no association for account="+account+" user="+userID+" partition="+partition)
}

// httpAssociationResolver implements collaborators.AssociationResolver
// against a remote accounting service, for deployments where this admin
// instance is not itself the association system of record. It tries the
// local registry first (registryAssociationResolver); on a miss it fetches
// the account's root-to-leaf association chain from the remote service and
// registers any links this instance has not seen yet, so the returned
// *types.Association is the same object future lookups and usage-counter
// mutations land on, not a throwaway copy.
type httpAssociationResolver struct {
	local   *registryAssociationResolver
	assocs  *registry.AssociationRegistry
	client  *http.Client
	baseURL string
	log     logging.Logger
}

func newHTTPAssociationResolver(baseURL string, client *http.Client, assocs *registry.AssociationRegistry, log logging.Logger) *httpAssociationResolver {
	return &httpAssociationResolver{
		local:   &registryAssociationResolver{assocs: assocs},
		assocs:  assocs,
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

func (r *httpAssociationResolver) Resolve(ctx context.Context, account, partition, userID string) (*types.Association, error) {
	if a, err := r.local.Resolve(ctx, account, partition, userID); err == nil {
		return a, nil
	}

	chain, err := r.fetchChain(ctx, account, partition, userID)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, errors.NewPolicyError(errors.ErrorCodeUnknownAssociation,
			"remote accounting service has no association for account="+account+" user="+userID)
	}

	var leaf *types.Association
	for _, dto := range chain {
		if existing, err := r.assocs.Lookup(dto.ID); err == nil {
			leaf = existing
			continue
		}
		a := types.NewAssociation(dto.ID, dto.Account, dto.ParentID, dto.UserID)
		a.Partition = dto.Partition
		a.Limits = dto.Limits
		if err := r.assocs.Register(a); err != nil {
			return nil, fmt.Errorf("registering association %s from remote accounting service: %w", dto.ID, err)
		}
		leaf = a
	}
	r.assocs.PropagateCtld()
	r.log.Info("registered association from remote accounting service",
		"account", account, "user_id", userID, "assoc_id", leaf.ID)
	return leaf, nil
}

// fetchChain asks the remote accounting service for the root-to-leaf
// association chain covering (account, partition, userID), the same shape
// GET /v1/associations already reports locally (associationDTO), so a
// policy-admin instance can serve as another instance's remote backend.
func (r *httpAssociationResolver) fetchChain(ctx context.Context, account, partition, userID string) ([]associationDTO, error) {
	q := url.Values{"account": {account}, "user_id": {userID}}
	if partition != "" {
		q.Set("partition", partition)
	}
	reqURL := r.baseURL + "/v1/associations/lookup?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building association lookup request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling remote accounting service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote accounting service returned %s", resp.Status)
	}

	var body struct {
		Chain []associationDTO `json:"chain"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding association lookup response: %w", err)
	}
	return body.Chain, nil
}

// loggingPriorityHook and loggingAccountingHook stand in for the real
// priority subsystem and accounting-storage collaborators spec §6 calls
// for: this admin instance has neither, so it just logs the call, the
// same stance the engine's own Noop* defaults take, but visible in the
// log stream for an operator poking at the demo.
type loggingPriorityHook struct{ log logging.Logger }

func (h loggingPriorityHook) JobEnd(ctx context.Context, job *types.Job) {
	h.log.Debug("priority hook: job end", "job_id", job.JobID)
}

type loggingAccountingHook struct{ log logging.Logger }

func (h loggingAccountingHook) JobStartDirect(ctx context.Context, job *types.Job) error {
	h.log.Debug("accounting hook: job start direct", "job_id", job.JobID, "time_limit", job.TimeLimit)
	return nil
}

// hubEventPublisher adapts the engine's collaborators.EventPublisher
// interface onto pkg/streaming's Hub, translating types.DecisionEvent
// into streaming.DecisionEvent at the module boundary (pkg/streaming is
// its own Go module and does not import internal/common/types).
type hubEventPublisher struct {
	hub *streaming.Hub
}

func (p *hubEventPublisher) Publish(ctx context.Context, e types.DecisionEvent) {
	p.hub.Publish(streaming.DecisionEvent{
		Timestamp: e.Timestamp,
		TraceID:   e.TraceID,
		Operation: e.Operation,
		JobID:     e.JobID,
		UserID:    e.UserID,
		Allowed:   e.Allowed,
		Reason:    string(e.Reason),
	})
}
