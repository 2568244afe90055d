package plan

import (
	"sort"

	"porter/internal/diag"
	"porter/internal/emit"
	"porter/internal/source"
)

// contextRadius is how many bytes of surrounding emitted text a Step
// exposes to the resolver, read-only.
const contextRadius = 240

// Step is one resolvable gap: a placeholder marker, the only region a
// patch for it may touch, and everything the resolver is allowed to see.
type Step struct {
	NodeID        source.NodeID     `json:"node_id"`
	AllowedRegion source.Span       `json:"allowed_region"`
	Origin        *source.Span      `json:"origin,omitempty"`
	OriginalText  string            `json:"original_text"`
	Diagnostics   []diag.Diagnostic `json:"diagnostics,omitempty"`
	Before        string            `json:"before"`
	After         string            `json:"after"`
}

// TranslationPlan is the ordered work list handed to the resolver stage.
type TranslationPlan struct {
	File  string `json:"file"`
	Steps []Step `json:"steps"`
}

// StepFor returns the step targeting the given node id.
func (p *TranslationPlan) StepFor(id source.NodeID) (Step, bool) {
	for _, s := range p.Steps {
		if s.NodeID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Build aggregates the emitter's placeholder marks and the accumulated
// diagnostics into a plan. Steps are ordered by origin span start so the
// resolver's traversal order is stable across runs.
func Build(file string, res *emit.Result, log *diag.Log) *TranslationPlan {
	p := &TranslationPlan{File: file}
	all := log.All()
	for _, m := range res.Marks {
		step := Step{
			NodeID:        source.NodeID(m.ID),
			AllowedRegion: m.Region,
			Origin:        m.Origin,
			OriginalText:  m.Text,
			Diagnostics:   diagnosticsFor(m, all),
			Before:        contextBefore(res.Output, m.Region.StartByte),
			After:         contextAfter(res.Output, m.Region.EndByte),
		}
		p.Steps = append(p.Steps, step)
	}

	sort.SliceStable(p.Steps, func(i, j int) bool {
		a, b := p.Steps[i].Origin, p.Steps[j].Origin
		if a == nil || b == nil {
			return a != nil
		}
		if a.StartByte == b.StartByte {
			return p.Steps[i].NodeID < p.Steps[j].NodeID
		}
		return a.StartByte < b.StartByte
	})
	return p
}

// diagnosticsFor collects everything recorded about a mark's construct.
// The emitter logs against the marker id directly; the annotator and the
// IR builder ran before that id existed, so their records join through
// origin span containment instead.
func diagnosticsFor(m emit.Mark, all []diag.Diagnostic) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range all {
		if d.NodeID == source.NodeID(m.ID) {
			out = append(out, d)
			continue
		}
		if d.Span != nil && m.Origin != nil &&
			d.Span.File == m.Origin.File && m.Origin.Contains(*d.Span) {
			out = append(out, d)
		}
	}
	return out
}

func contextBefore(text string, at int) string {
	lo := at - contextRadius
	if lo < 0 {
		lo = 0
	}
	return text[lo:at]
}

func contextAfter(text string, at int) string {
	hi := at + contextRadius
	if hi > len(text) {
		hi = len(text)
	}
	return text[at:hi]
}
