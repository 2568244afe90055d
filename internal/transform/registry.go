package transform

import (
	"fmt"

	"porter/internal/diag"
	"porter/internal/ir"
)

const stageTransform = "transform"

// maxPasses bounds the fixed-point loop. The rule set converges in two
// passes; the bound is a backstop against a misbehaving rule.
const maxPasses = 4

// Rule is one deterministic rewrite. Matches is the structural guard,
// Safe the semantic one: a node that Matches but is not Safe is left
// untouched and flagged for a later or manual stage. Rewrite must be pure
// and must not match its own output, so re-running the registry is a no-op.
type Rule interface {
	Name() string
	Kinds() []ir.Kind
	Matches(n *ir.Node, ctx *Context) bool
	Safe(n *ir.Node, ctx *Context) bool
	Rewrite(n *ir.Node, ctx *Context) *ir.Node
}

// Stats counts what a registry run did.
type Stats struct {
	Applied map[string]int
	Skipped map[string]int
	Passes  int
}

func newStats() Stats {
	return Stats{Applied: make(map[string]int), Skipped: make(map[string]int)}
}

// TotalApplied sums applied counts across rules.
func (s Stats) TotalApplied() int {
	n := 0
	for _, v := range s.Applied {
		n += v
	}
	return n
}

// Registry is the process-wide, read-only-after-init table of rewrite
// rules, grouped into priority tiers. Within a tier, rules must cover
// disjoint node kinds; overlap at equal priority is a construction error
// rather than a tie to break at runtime.
type Registry struct {
	tiers [][]Rule
}

// NewRegistry builds a registry from priority tiers (highest first) and
// enforces the disjoint-coverage invariant.
func NewRegistry(tiers ...[]Rule) (*Registry, error) {
	for ti, tier := range tiers {
		seen := make(map[ir.Kind]string)
		for _, rule := range tier {
			for _, k := range rule.Kinds() {
				if other, ok := seen[k]; ok {
					return nil, fmt.Errorf(
						"rules %q and %q both cover kind %s at priority %d",
						other, rule.Name(), k, ti)
				}
				seen[k] = rule.Name()
			}
		}
	}
	return &Registry{tiers: tiers}, nil
}

// Default returns the standard Python-to-TypeScript rule set.
func Default() *Registry {
	r, err := NewRegistry(
		[]Rule{
			&rangeLoopRule{},
			&printCallRule{},
			&literalSpellingRule{},
			&operatorSpellingRule{},
		},
		[]Rule{
			&lenCallRule{},
			&selfNameRule{},
		},
		[]Rule{
			&appendPushRule{},
		},
	)
	if err != nil {
		// The default tiers are static; overlap here is a programming error.
		panic(err)
	}
	return r
}

// RuleNames lists every rule in priority order.
func (r *Registry) RuleNames() []string {
	var out []string
	for _, tier := range r.tiers {
		for _, rule := range tier {
			out = append(out, rule.Name())
		}
	}
	return out
}

// Apply runs the registry against the tree in place, looping passes until a
// fixed point or the pass bound. Safety failures are recorded once, on the
// first pass.
func (r *Registry) Apply(root *ir.Node, log *diag.Log) Stats {
	stats := newStats()
	for pass := 0; pass < maxPasses; pass++ {
		ctx := newContext()
		changed := r.applyNode(root, ctx, pass == 0, log, &stats)
		stats.Passes = pass + 1
		if !changed {
			break
		}
	}
	return stats
}

// applyNode transforms n's subtree, replacing children through their parent
// slot. The node itself is only replaced via its parent, so the module root
// is never swapped out.
func (r *Registry) applyNode(n *ir.Node, ctx *Context, firstPass bool, log *diag.Log, stats *Stats) bool {
	changed := false

	ctx.enter(n)
	defer ctx.leave(n)

	for i := range n.Children {
		child := n.Children[i]

		if replaced, rewrote := r.applyRules(child, ctx, firstPass, log, stats); rewrote {
			n.Children[i] = replaced
			child = replaced
			changed = true
		}
		if r.applyNode(child, ctx, firstPass, log, stats) {
			changed = true
		}
		ctx.observe(child)
	}
	return changed
}

// applyRules finds the first rule, in priority order, that structurally
// matches the node and passes its safety predicate.
func (r *Registry) applyRules(n *ir.Node, ctx *Context, firstPass bool, log *diag.Log, stats *Stats) (*ir.Node, bool) {
	for _, tier := range r.tiers {
		for _, rule := range tier {
			if !coversKind(rule, n.Kind) || !rule.Matches(n, ctx) {
				continue
			}
			if !rule.Safe(n, ctx) {
				stats.Skipped[rule.Name()]++
				if firstPass {
					log.Addf(diag.CodeSafetyCheckFailed, diag.SeverityWarning, stageTransform,
						"", n.Origin, "rule %q declined: unsafe without more context", rule.Name())
				}
				continue
			}
			out := rule.Rewrite(n, ctx)
			if out == nil || out == n {
				return n, false
			}
			stats.Applied[rule.Name()]++
			return out, true
		}
	}
	return n, false
}

func coversKind(r Rule, k ir.Kind) bool {
	for _, rk := range r.Kinds() {
		if rk == k {
			return true
		}
	}
	return false
}
