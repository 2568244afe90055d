package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"porter/internal/patch"
	"porter/internal/plan"
	"porter/internal/source"
)

// StepRequest is everything the external collaborator is allowed to see
// about one step: the original source, advice, and a read-only window of
// surrounding emitted text.
type StepRequest struct {
	NodeID       source.NodeID `json:"node_id"`
	OriginalText string        `json:"original_text"`
	Advice       []string      `json:"advice,omitempty"`
	Before       string        `json:"before"`
	After        string        `json:"after"`
}

// Proposal is the collaborator's suggested replacement for a step's marker.
type Proposal struct {
	Replacement string `json:"replacement"`
}

// Resolver is the non-deterministic external collaborator. Implementations
// are substitutable: the pipeline's safety invariants hold regardless of
// what a Resolver returns, because every proposal goes through the guarded
// applier.
type Resolver interface {
	Name() string
	ResolveStep(ctx context.Context, req StepRequest) (Proposal, error)
}

// Toolbox is the fixed, allow-listed tool surface exposed across the
// security boundary. It can list steps, fetch a step's context, and propose
// a patch; nothing else. Proposals land in the patch applier, which
// enforces the edit boundary.
type Toolbox struct {
	plan    *plan.TranslationPlan
	applier *patch.Applier
}

// NewToolbox binds a plan to its applier.
func NewToolbox(p *plan.TranslationPlan, a *patch.Applier) *Toolbox {
	return &Toolbox{plan: p, applier: a}
}

// ListPendingSteps returns the node ids of steps without an applied patch,
// in plan order.
func (t *Toolbox) ListPendingSteps() []source.NodeID {
	var out []source.NodeID
	for _, s := range t.plan.Steps {
		if !t.applier.Resolved(s.NodeID) {
			out = append(out, s.NodeID)
		}
	}
	return out
}

// FetchContext builds the read-only request payload for one step.
func (t *Toolbox) FetchContext(id source.NodeID) (StepRequest, error) {
	step, ok := t.plan.StepFor(id)
	if !ok {
		return StepRequest{}, fmt.Errorf("no step for node %s", id)
	}
	req := StepRequest{
		NodeID:       step.NodeID,
		OriginalText: step.OriginalText,
		Before:       step.Before,
		After:        step.After,
	}
	for _, d := range step.Diagnostics {
		req.Advice = append(req.Advice, d.Message)
	}
	return req, nil
}

// ProposePatch wraps a replacement into a hunk and runs it through the
// guarded applier. The returned hunk carries its final state.
func (t *Toolbox) ProposePatch(id source.NodeID, replacement string) (*patch.Hunk, error) {
	h := patch.NewHunk(uuid.NewString(), id, replacement)
	err := t.applier.Apply(h)
	return h, err
}

// ErrNoProposal signals the collaborator had nothing to offer for a step.
var ErrNoProposal = errors.New("resolver returned no proposal")
