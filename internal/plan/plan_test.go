package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porter/internal/diag"
	"porter/internal/emit"
	"porter/internal/source"
)

func markAt(id string, output string, marker string, originStart int) emit.Mark {
	at := strings.Index(output, marker)
	return emit.Mark{
		ID: id,
		Region: source.Span{
			File:      "out.ts",
			StartByte: at,
			EndByte:   at + len(marker),
		},
		Origin: &source.Span{File: "in.py", StartByte: originStart, EndByte: originStart + 10},
		Text:   "original " + id,
	}
}

func TestBuild_OrdersByOrigin(t *testing.T) {
	output := "let a = 1;\n/* <<porter:0.3>> */;\nlet b = 2;\n/* <<porter:0.1>> */;\n"
	// Marks arrive in emission order; origin order differs.
	res := &emit.Result{
		Output: output,
		Marks: []emit.Mark{
			markAt("0.3", output, "/* <<porter:0.3>> */;", 90),
			markAt("0.1", output, "/* <<porter:0.1>> */;", 10),
		},
	}

	p := Build("in.py", res, diag.NewLog())
	require.Len(t, p.Steps, 2)
	assert.Equal(t, source.NodeID("0.1"), p.Steps[0].NodeID)
	assert.Equal(t, source.NodeID("0.3"), p.Steps[1].NodeID)
	assert.Equal(t, "in.py", p.File)
}

func TestBuild_AttachesDiagnosticsAndContext(t *testing.T) {
	output := "let a = 1;\n/* <<porter:0.2>> */;\nlet b = 2;\n"
	res := &emit.Result{
		Output: output,
		Marks:  []emit.Mark{markAt("0.2", output, "/* <<porter:0.2>> */;", 5)},
	}

	log := diag.NewLog()
	log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, "emit", "0.2", nil, "awaiting resolution")
	log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, "emit", "0.9", nil, "unrelated")

	p := Build("in.py", res, log)
	require.Len(t, p.Steps, 1)
	step := p.Steps[0]

	require.Len(t, step.Diagnostics, 1)
	assert.Equal(t, "awaiting resolution", step.Diagnostics[0].Message)

	assert.Equal(t, "let a = 1;\n", step.Before)
	assert.Equal(t, "\nlet b = 2;\n", step.After)
	assert.Equal(t, "original 0.2", step.OriginalText)
}

func TestBuild_JoinsEarlierStagesByOriginSpan(t *testing.T) {
	output := "/* <<porter:0.0>> */;\n"
	m := markAt("0.0", output, "/* <<porter:0.0>> */;", 20)

	inside := source.Span{File: "in.py", StartByte: 22, EndByte: 28}
	outside := source.Span{File: "in.py", StartByte: 40, EndByte: 50}
	otherFile := source.Span{File: "other.py", StartByte: 22, EndByte: 28}

	log := diag.NewLog()
	// The annotator and builder logged before the marker id existed.
	log.Addf(diag.CodeAmbiguousConstruct, diag.SeverityInfo, "annotate", "0.1", &inside, "with_statement")
	log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, "ir-build", "", &inside, "no mapping rule")
	// The emitter record carries both the id and an in-span origin; it must
	// still appear only once.
	log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityInfo, "emit", "0.0", &inside, "awaiting resolution")
	log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, "ir-build", "", &outside, "elsewhere")
	log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, "ir-build", "", &otherFile, "other file")

	p := Build("in.py", &emit.Result{Output: output, Marks: []emit.Mark{m}}, log)
	require.Len(t, p.Steps, 1)

	diags := p.Steps[0].Diagnostics
	require.Len(t, diags, 3)
	stages := make(map[string]int)
	for _, d := range diags {
		stages[d.Stage]++
	}
	assert.Equal(t, map[string]int{"annotate": 1, "ir-build": 1, "emit": 1}, stages)
}

func TestBuild_ContextWindowBounded(t *testing.T) {
	pad := strings.Repeat("// filler line\n", 40)
	marker := "/* <<porter:0.5>> */;"
	output := pad + marker + "\n" + pad
	res := &emit.Result{
		Output: output,
		Marks:  []emit.Mark{markAt("0.5", output, marker, 0)},
	}

	p := Build("in.py", res, diag.NewLog())
	require.Len(t, p.Steps, 1)
	assert.Len(t, p.Steps[0].Before, contextRadius)
	assert.Len(t, p.Steps[0].After, contextRadius)
}

func TestStepFor(t *testing.T) {
	p := &TranslationPlan{Steps: []Step{{NodeID: "0.1"}, {NodeID: "0.2"}}}

	s, ok := p.StepFor("0.2")
	assert.True(t, ok)
	assert.Equal(t, source.NodeID("0.2"), s.NodeID)

	_, ok = p.StepFor("0.7")
	assert.False(t, ok)
}
