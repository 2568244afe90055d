package resolver

import (
	"context"
	"errors"
)

// Chain tries several resolvers in order for each step, falling back to the
// next when one has no proposal or fails. It is itself a Resolver, so the
// orchestrator treats a chain and a single collaborator identically.
type Chain struct {
	resolvers []Resolver
}

// NewChain builds a fallback chain. Order matters: the first resolver that
// returns a proposal wins.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

func (c *Chain) Name() string {
	return "chain"
}

// ResolveStep asks each resolver in turn. Context errors stop the chain
// immediately; anything else falls through to the next resolver.
func (c *Chain) ResolveStep(ctx context.Context, req StepRequest) (Proposal, error) {
	var lastErr error = ErrNoProposal
	for _, r := range c.resolvers {
		if err := ctx.Err(); err != nil {
			return Proposal{}, err
		}
		prop, err := r.ResolveStep(ctx, req)
		if err == nil {
			return prop, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Proposal{}, err
		}
		lastErr = err
	}
	return Proposal{}, lastErr
}
