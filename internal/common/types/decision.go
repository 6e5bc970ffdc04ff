// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// DecisionEvent records one lifecycle call the engine made a call on:
// an admission/runnability/timeout decision, or a usage-mutator
// transition. It is published to the EventPublisher collaborator (never
// persisted by the core itself) so an operator can watch holds and
// timeouts happen live instead of only polling (spec §6's external
// surface needs exactly this to be observable).
type DecisionEvent struct {
	Timestamp time.Time
	TraceID   string
	Operation string // "validate", "pre_select", "post_select", "timeout_check", "max_nodes", "add_submit", "remove_submit", "begin", "fini", "alter"
	JobID     string
	UserID    string
	Allowed   bool
	Reason    ReasonCode
}
