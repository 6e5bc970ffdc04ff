// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/jontk/slurm-policy-engine/internal/common/types"
)

// UpdatePendingJob re-derives a still-pending job's effective limits
// against current policy (spec §6's external "update pending job"
// surface), then hands the job to the accounting-storage collaborator so
// whatever time limit Validate just installed is durably recorded. It is
// the path an admin API PATCH against a queued job takes, as opposed to
// the scheduler's own Validate call at submission.
func (e *Engine) UpdatePendingJob(ctx context.Context, job *types.Job) error {
	ctx = ctxOrBackground(ctx)
	ok, err := e.Validate(ctx, job, false)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return e.Accounting.JobStartDirect(ctx, job)
}
