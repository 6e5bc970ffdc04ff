// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package streaming broadcasts the policy engine's decision events to
// admin clients over WebSocket and Server-Sent Events, adapted from the
// teacher's job/node/partition watch-event streamer (pkg/streaming's
// WebSocketServer/SSEServer) to broadcast one thing instead of three: a
// DecisionEvent published after every admission, runnability, timeout,
// or usage-mutator call the engine makes.
package streaming

import (
	"sync"
	"time"
)

// DecisionEvent mirrors internal/common/types.DecisionEvent. It is
// redeclared here, rather than imported, because this package is its own
// Go module (like the teacher's pkg/streaming) and is meant to be
// consumable independent of the engine's internal packages; cmd/policy-admin
// is responsible for translating one into the other at the boundary.
type DecisionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id"`
	Operation string    `json:"operation"`
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
}

// subscriberBuffer is how many pending events a slow subscriber may queue
// before Publish starts dropping events for it rather than blocking the
// publisher (the engine calls Publish with its lock bundle already
// released, but a blocked send here would still stall the caller).
const subscriberBuffer = 64

// Hub fans out DecisionEvents to any number of SSE/WebSocket subscribers.
// A zero-value Hub is not ready to use; call NewHub.
type Hub struct {
	mu   sync.Mutex
	subs map[chan DecisionEvent]struct{}
}

// NewHub returns a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan DecisionEvent]struct{})}
}

// Publish broadcasts event to every current subscriber, dropping it for
// any subscriber whose buffer is full rather than blocking.
func (h *Hub) Publish(event DecisionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its event channel and
// an unsubscribe function the caller must invoke when done.
func (h *Hub) Subscribe() (<-chan DecisionEvent, func()) {
	ch := make(chan DecisionEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// SubscriberCount reports the number of currently connected subscribers,
// for the admin API's own health/metrics surface.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
