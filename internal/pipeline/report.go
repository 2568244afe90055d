package pipeline

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"porter/internal/annotate"
	"porter/internal/diag"
	"porter/internal/ir"
	"porter/internal/patch"
	"porter/internal/resolver"
	"porter/internal/transform"
)

// Report is the final structured output for one file.
type Report struct {
	RunID       string `json:"run_id"`
	File        string `json:"file"`
	OutputFile  string `json:"output_file"`
	GeneratedAt string `json:"generated_at"`

	Classifications map[string]int `json:"classifications"`
	Transforms      map[string]int `json:"transforms"`
	TransformPasses int            `json:"transform_passes"`

	StatementCount   int `json:"statement_count"`
	PlaceholderCount int `json:"placeholder_count"`
	UnresolvedCount  int `json:"unresolved_count"`
	AppliedPatches   int `json:"applied_patches"`
	RejectedPatches  int `json:"rejected_patches"`

	Completeness float64        `json:"completeness"`
	Diagnostics  map[string]int `json:"diagnostics"`
}

func buildReport(res *FileResult, labels []annotate.ChunkLabel, tstats transform.Stats, rstats resolver.Stats, applier *patch.Applier, tree *ir.Node) *Report {
	r := &Report{
		RunID:           uuid.NewString(),
		File:            res.SourcePath,
		OutputFile:      res.OutputPath,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		Classifications: make(map[string]int),
		Transforms:      tstats.Applied,
		TransformPasses: tstats.Passes,
		Diagnostics:     make(map[string]int),
	}
	for _, l := range labels {
		r.Classifications[string(l.Classification)]++
	}
	for sev, n := range res.Log.CountsBySeverity() {
		r.Diagnostics[string(sev)] = n
	}

	statements := 0
	tree.Walk(func(n *ir.Node) bool {
		if n.IsStatement() {
			statements++
		}
		return true
	})
	r.StatementCount = statements
	r.PlaceholderCount = len(res.Plan.Steps)
	r.UnresolvedCount = applier.UnresolvedCount()
	r.AppliedPatches = applier.AppliedCount()
	r.RejectedPatches = rstats.Rejected

	if statements > 0 {
		r.Completeness = 1.0 - float64(r.UnresolvedCount)/float64(statements)
	} else {
		r.Completeness = 1.0
	}
	return r
}

// Marshal renders the report as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// DiagnosticList flattens the log for persistence alongside the report.
func DiagnosticList(log *diag.Log) []diag.Diagnostic {
	return log.All()
}
