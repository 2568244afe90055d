package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"porter/internal/annotate"
	"porter/internal/diag"
	"porter/internal/dialect"
	"porter/internal/emit"
	"porter/internal/index"
	"porter/internal/ir"
	"porter/internal/parser"
	"porter/internal/patch"
	"porter/internal/plan"
	"porter/internal/resolver"
	"porter/internal/transform"
)

// Pipeline runs the translation stages for one file at a time. The registry
// and profile are shared read-only across files; everything else is
// per-file state, so a batch can run files concurrently.
type Pipeline struct {
	Parser   *parser.Parser
	Registry *transform.Registry
	Profile  dialect.Profile

	// Resolver is optional; when nil, placeholders stay unresolved and the
	// plan ships in the result for a later resolve pass.
	Resolver resolver.Resolver
	Retry    resolver.RetryPolicy
}

// New builds a pipeline with the default registry.
func New(p *parser.Parser, profile dialect.Profile) *Pipeline {
	return &Pipeline{
		Parser:   p,
		Registry: transform.Default(),
		Profile:  profile,
	}
}

// FileResult is everything one file's run produced.
type FileResult struct {
	SourcePath string
	OutputPath string
	Output     string
	Mirror     string
	Sidecar    *annotate.Sidecar
	Symbols    []index.Symbol
	Plan       *plan.TranslationPlan
	Log        *diag.Log
	Report     *Report
}

// RunFile runs the full per-file pipeline. The returned error is non-nil
// only for parse failures, which are fatal for this file alone.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*FileResult, error) {
	f, err := p.Parser.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, f)
}

// RunSource is RunFile over in-memory source, used by tests and the
// playground boundary.
func (p *Pipeline) RunSource(ctx context.Context, path string, src []byte) (*FileResult, error) {
	f, err := p.Parser.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, f)
}

// run executes the stages in fixed order. Each stage's output is the next
// stage's input; there is no internal parallelism because transform passes
// are order-sensitive.
func (p *Pipeline) run(ctx context.Context, f *parser.File) (*FileResult, error) {
	log := diag.NewLog()
	res := &FileResult{
		SourcePath: f.Path,
		OutputPath: OutputPath(f.Path),
		Log:        log,
	}

	// Stage 1: annotate.
	ann := annotate.New(f, log).Run()
	res.Mirror = ann.Mirror
	res.Sidecar = annotate.BuildSidecar(f.Path, ann.Labels, log)

	// Stage 2: build IR.
	tree, err := ir.NewBuilder(f, log, p.Profile).Build()
	if err != nil {
		return nil, fmt.Errorf("ir build failed for %s: %w", f.Path, err)
	}

	// Stage 3: deterministic transforms.
	stats := p.Registry.Apply(tree, log)

	// Symbol side-index over the transformed tree, so node ids line up
	// with the emitted placeholder paths.
	idx := index.NewIndex()
	idx.Collect(f.Path, tree)
	res.Symbols = idx.Symbols

	// Stage 4: emit.
	emitted := emit.New(p.Profile, log).Emit(tree, res.OutputPath)
	res.Output = emitted.Output

	// Stage 5: plan.
	res.Plan = plan.Build(f.Path, emitted, log)

	// Stage 6: guarded resolution, when a collaborator is configured.
	applier := patch.NewApplier(res.Plan, emitted.Output, log)
	var rstats resolver.Stats
	if p.Resolver != nil && len(res.Plan.Steps) > 0 {
		tools := resolver.NewToolbox(res.Plan, applier)
		orch := resolver.NewOrchestrator(tools, p.Resolver, p.Retry, log)
		rstats, err = orch.Run(ctx)
		if err != nil {
			// Cancellation: patched state is still consistent, report as-is.
			res.Output = applier.Text()
			res.Report = buildReport(res, ann.Labels, stats, rstats, applier, tree)
			return res, err
		}
		res.Output = applier.Text()
	}

	res.Report = buildReport(res, ann.Labels, stats, rstats, applier, tree)
	return res, nil
}

// OutputPath maps a source path to its emitted target path.
func OutputPath(src string) string {
	base := strings.TrimSuffix(src, filepath.Ext(src))
	return base + ".ts"
}
