package resolver

import (
	"context"
	"errors"
	"time"

	"porter/internal/diag"
	"porter/internal/patch"
	"porter/internal/source"
)

const stageResolve = "resolve"

// RetryPolicy bounds how hard the orchestrator leans on the collaborator.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy is three attempts with linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}
}

// Stats summarizes an orchestrator run.
type Stats struct {
	Attempted int
	Applied   int
	Rejected  int
	Failed    int
}

// Orchestrator walks the pending steps and asks the collaborator for
// patches through the toolbox. A step whose attempts are exhausted stays
// unresolved and is escalated as a diagnostic; it never fails the file.
type Orchestrator struct {
	tools    *Toolbox
	resolver Resolver
	policy   RetryPolicy
	log      *diag.Log
}

// NewOrchestrator wires the collaborator to the toolbox boundary.
func NewOrchestrator(tools *Toolbox, r Resolver, policy RetryPolicy, log *diag.Log) *Orchestrator {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Orchestrator{tools: tools, resolver: r, policy: policy, log: log}
}

// Run resolves pending steps in plan order. It returns early only on
// context cancellation; per-step failures are recorded and skipped.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for _, id := range o.tools.ListPendingSteps() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Attempted++
		o.resolveStep(ctx, id, &stats)
	}
	return stats, nil
}

func (o *Orchestrator) resolveStep(ctx context.Context, id source.NodeID, stats *Stats) {
	req, err := o.tools.FetchContext(id)
	if err != nil {
		stats.Failed++
		o.log.Addf(diag.CodeResolverFailure, diag.SeverityWarning, stageResolve, id, nil,
			"fetch context: %v", err)
		return
	}

	var lastErr error
	canceled := false
	for attempt := 1; attempt <= o.policy.MaxAttempts && !canceled; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				canceled = true
				continue
			case <-time.After(o.policy.Backoff * time.Duration(attempt-1)):
			}
		}

		proposal, err := o.resolver.ResolveStep(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		hunk, err := o.tools.ProposePatch(id, proposal.Replacement)
		if err == nil {
			stats.Applied++
			return
		}
		lastErr = err
		if hunk != nil && hunk.State == patch.StateRejected {
			// The applier already logged the rejection; a fresh proposal may
			// still succeed within the attempt budget.
			stats.Rejected++
		}
	}

	stats.Failed++
	code := diag.CodeResolverFailure
	if errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(lastErr, context.Canceled) {
		code = diag.CodeResolverTimeout
	}
	o.log.Addf(code, diag.SeverityWarning, stageResolve, id, nil,
		"step unresolved after %d attempts: %v", o.policy.MaxAttempts, lastErr)
}
