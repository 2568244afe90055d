package patch

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"porter/internal/diag"
	"porter/internal/plan"
	"porter/internal/source"
)

const stagePatch = "patch"

// State is a hunk's position in the applier state machine.
type State string

const (
	StatePending   State = "PENDING"
	StateValidated State = "VALIDATED"
	StateApplied   State = "APPLIED"
	StateRejected  State = "REJECTED"
)

// Hunk is an externally proposed edit for one Step. Hunks are created
// PENDING and either end APPLIED or REJECTED, never in between.
type Hunk struct {
	ID          string        `json:"id"`
	TargetNode  source.NodeID `json:"target_node"`
	Replacement string        `json:"replacement"`
	// Region optionally narrows the edit inside the Step's allowed region.
	// When nil the whole allowed region is replaced.
	Region *source.Span `json:"region,omitempty"`

	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// NewHunk creates a pending hunk for a step.
func NewHunk(id string, target source.NodeID, replacement string) *Hunk {
	if id == "" {
		id = string(target)
	}
	return &Hunk{ID: id, TargetNode: target, Replacement: replacement, State: StatePending}
}

// Applier validates and atomically applies hunks strictly within the
// placeholder regions of one emitted file. It owns the file text: every
// observer sees either the pre-patch state or the fully patched one.
type Applier struct {
	log  *diag.Log
	text string

	regions  map[source.NodeID]source.Span
	resolved map[source.NodeID]string
	applied  map[string]bool
}

// NewApplier creates an applier over a plan and the emitted text it refers to.
func NewApplier(p *plan.TranslationPlan, text string, log *diag.Log) *Applier {
	a := &Applier{
		log:      log,
		text:     text,
		regions:  make(map[source.NodeID]source.Span),
		resolved: make(map[source.NodeID]string),
		applied:  make(map[string]bool),
	}
	for _, s := range p.Steps {
		a.regions[s.NodeID] = s.AllowedRegion
	}
	return a
}

// Text returns the current file content.
func (a *Applier) Text() string {
	return a.text
}

// Resolved reports whether a step already has an applied patch.
func (a *Applier) Resolved(id source.NodeID) bool {
	_, ok := a.resolved[id]
	return ok
}

// AppliedCount returns how many steps have an applied patch.
func (a *Applier) AppliedCount() int {
	return len(a.resolved)
}

// UnresolvedCount returns how many steps still have no applied patch.
func (a *Applier) UnresolvedCount() int {
	return len(a.regions) - len(a.resolved)
}

// Apply drives the hunk through the state machine. A hunk that was already
// applied is a no-op. The returned error mirrors the REJECTED state; the
// file text is untouched on any rejection.
func (a *Applier) Apply(h *Hunk) error {
	if a.applied[h.ID] {
		h.State = StateApplied
		return nil
	}
	if err := a.validate(h); err != nil {
		return err
	}
	h.State = StateValidated

	region := a.regions[h.TargetNode]
	editStart, editEnd := region.StartByte, region.EndByte
	if h.Region != nil {
		editStart, editEnd = h.Region.StartByte, h.Region.EndByte
	}

	// Atomic by construction: the new text is assembled fully before the
	// swap, so cancellation or failure can never leave a byte-level mixture.
	newText := a.text[:editStart] + h.Replacement + a.text[editEnd:]
	a.text = newText

	delta := len(h.Replacement) - (editEnd - editStart)
	for id, r := range a.regions {
		if r.StartByte >= editEnd {
			r.StartByte += delta
			r.EndByte += delta
			a.regions[id] = r
		}
	}

	a.resolved[h.TargetNode] = h.ID
	a.applied[h.ID] = true
	h.State = StateApplied
	return nil
}

func (a *Applier) validate(h *Hunk) error {
	region, ok := a.regions[h.TargetNode]
	if !ok {
		return a.reject(h, diag.CodePatchOutOfBounds,
			"no step targets node %s", h.TargetNode)
	}
	if prior, done := a.resolved[h.TargetNode]; done {
		// First valid hunk wins; later hunks for the same step are conflicts.
		return a.rejectWith(h, diag.CodePatchConflict, &region,
			"step %s already resolved by hunk %s", h.TargetNode, prior)
	}
	if h.Region != nil {
		if h.Region.File != region.File || !region.Contains(*h.Region) {
			return a.rejectWith(h, diag.CodePatchOutOfBounds, &region,
				"edit region [%d,%d) escapes allowed region [%d,%d)",
				h.Region.StartByte, h.Region.EndByte, region.StartByte, region.EndByte)
		}
	}

	editStart, editEnd := region.StartByte, region.EndByte
	if h.Region != nil {
		editStart, editEnd = h.Region.StartByte, h.Region.EndByte
	}
	candidate := a.text[:editStart] + h.Replacement + a.text[editEnd:]
	if err := reparseTarget(candidate); err != nil {
		return a.rejectWith(h, diag.CodePatchOutOfBounds, &region,
			"replacement does not re-parse: %v", err)
	}
	return nil
}

func (a *Applier) reject(h *Hunk, code diag.Code, format string, args ...interface{}) error {
	return a.rejectWith(h, code, nil, format, args...)
}

func (a *Applier) rejectWith(h *Hunk, code diag.Code, region *source.Span, format string, args ...interface{}) error {
	h.State = StateRejected
	h.Reason = fmt.Sprintf(format, args...)
	a.log.Addf(code, diag.SeverityError, stagePatch, h.TargetNode, region,
		"hunk %s rejected: %s", h.ID, h.Reason)
	return fmt.Errorf("hunk %s rejected: %s", h.ID, h.Reason)
}

// reparseTarget checks that the patched file is still valid TypeScript.
func reparseTarget(text string) error {
	p := sitter.NewParser()
	p.SetLanguage(typescript.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, []byte(text))
	if err != nil {
		return err
	}
	if tree.RootNode().HasError() {
		return fmt.Errorf("syntax error in patched output")
	}
	return nil
}
