package storage

import (
	"context"

	"porter/internal/diag"
	"porter/internal/pipeline"
)

// RunSummary is one row of run history.
type RunSummary struct {
	RunID        string  `json:"run_id"`
	File         string  `json:"file"`
	GeneratedAt  string  `json:"generated_at"`
	Completeness float64 `json:"completeness"`
	Unresolved   int     `json:"unresolved"`
	Rejected     int     `json:"rejected"`
}

// Store persists run reports and their diagnostics for later inspection.
type Store interface {
	// SaveRun persists a report together with its full diagnostics trail.
	SaveRun(ctx context.Context, report *pipeline.Report, diags []diag.Diagnostic) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// RunDiagnostics returns the diagnostics recorded for one run.
	RunDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error)

	Close() error
}
