package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porter/internal/diag"
	"porter/internal/dialect"
	"porter/internal/ir"
	"porter/internal/parser"
)

func buildTree(t *testing.T, src string) (*ir.Node, *diag.Log) {
	t.Helper()
	p, err := parser.New("python")
	require.NoError(t, err)
	f, err := p.Parse(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	log := diag.NewLog()
	tree, err := ir.NewBuilder(f, log, dialect.Default()).Build()
	require.NoError(t, err)
	return tree, log
}

type stubRule struct {
	name  string
	kinds []ir.Kind
}

func (r *stubRule) Name() string                            { return r.name }
func (r *stubRule) Kinds() []ir.Kind                        { return r.kinds }
func (r *stubRule) Matches(n *ir.Node, ctx *Context) bool   { return false }
func (r *stubRule) Safe(n *ir.Node, ctx *Context) bool      { return true }
func (r *stubRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node { return nil }

func TestNewRegistry_RejectsOverlapWithinTier(t *testing.T) {
	a := &stubRule{name: "a", kinds: []ir.Kind{ir.KindCall}}
	b := &stubRule{name: "b", kinds: []ir.Kind{ir.KindCall, ir.KindName}}

	_, err := NewRegistry([]Rule{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Contains(t, err.Error(), "Call")
}

func TestNewRegistry_AllowsOverlapAcrossTiers(t *testing.T) {
	a := &stubRule{name: "a", kinds: []ir.Kind{ir.KindCall}}
	b := &stubRule{name: "b", kinds: []ir.Kind{ir.KindCall}}

	r, err := NewRegistry([]Rule{a}, []Rule{b})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.RuleNames())
}

func TestApply_ReachesFixedPoint(t *testing.T) {
	tree, log := buildTree(t, "print(True)\n")

	stats := Default().Apply(tree, log)
	assert.Equal(t, 1, stats.Applied["print-call"])
	assert.Equal(t, 1, stats.Applied["literal-spelling"])
	assert.LessOrEqual(t, stats.Passes, maxPasses)

	// A second run over the transformed tree is a no-op.
	again := Default().Apply(tree, log)
	assert.Equal(t, 0, again.TotalApplied())
	assert.Equal(t, 1, again.Passes)
}

func TestApply_SafetyFailureLoggedOncePerNode(t *testing.T) {
	// The assignment shadows range, so the loop rewrite must decline; the
	// print rewrite still fires, forcing a second pass.
	src := "range = make_counter()\n" +
		"for i in range(3):\n" +
		"    print(i)\n"
	tree, log := buildTree(t, src)

	stats := Default().Apply(tree, log)
	assert.Equal(t, 0, stats.Applied["range-loop"])
	assert.GreaterOrEqual(t, stats.Skipped["range-loop"], 1)
	assert.Equal(t, 1, stats.Applied["print-call"])
	assert.GreaterOrEqual(t, stats.Passes, 2)

	// Declines repeat every pass but the diagnostic is recorded only once.
	assert.Equal(t, 1, log.Count(diag.CodeSafetyCheckFailed))

	loop := tree.Children[1]
	assert.Equal(t, ir.KindFor, loop.Kind)
}

func TestApply_DoesNotReplaceRoot(t *testing.T) {
	tree, log := buildTree(t, "x = 1\n")
	Default().Apply(tree, log)
	assert.Equal(t, ir.KindModule, tree.Kind)
}
