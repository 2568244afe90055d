package ir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porter/internal/diag"
	"porter/internal/dialect"
	"porter/internal/parser"
)

func buildSource(t *testing.T, src string, profile dialect.Profile) (*Node, *diag.Log, error) {
	t.Helper()
	p, err := parser.New("python")
	require.NoError(t, err)
	f, err := p.Parse(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	log := diag.NewLog()
	tree, err := NewBuilder(f, log, profile).Build()
	return tree, log, err
}

func TestBuilder_FunctionDefinition(t *testing.T) {
	tree, log, err := buildSource(t, "def add(a, b):\n    return a + b\n", dialect.Default())
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)

	fn := tree.Children[0]
	assert.Equal(t, KindFuncDef, fn.Kind)
	assert.Equal(t, "add", fn.Name)

	params := fn.Children[0]
	require.Len(t, params.Children, 2)
	assert.Equal(t, "a", params.Children[0].Name)
	assert.Equal(t, "b", params.Children[1].Name)

	body := fn.Children[1]
	require.Len(t, body.Children, 1)
	ret := body.Children[0]
	assert.Equal(t, KindReturn, ret.Kind)
	assert.Equal(t, KindBinOp, ret.Children[0].Kind)
	assert.Equal(t, "+", ret.Children[0].Name)

	assert.Equal(t, 0, log.Count(diag.CodeUnsupportedConstruct))
}

func TestBuilder_StatementConservation(t *testing.T) {
	src := "import os\n" +
		"# a comment between statements\n" +
		"x = 1\n" +
		"with open(x) as f:\n" +
		"    pass\n" +
		"print(x)\n"

	tree, _, err := buildSource(t, src, dialect.Default())
	require.NoError(t, err)

	// Four statements in, four top-level nodes out; comments vanish.
	require.Len(t, tree.Children, 4)
	assert.Equal(t, KindImport, tree.Children[0].Kind)
	assert.Equal(t, KindAssign, tree.Children[1].Kind)
	assert.Equal(t, KindPlaceholder, tree.Children[2].Kind)
	assert.Equal(t, KindExprStmt, tree.Children[3].Kind)
}

func TestBuilder_ElifDesugarsToNestedIf(t *testing.T) {
	src := "if a:\n    pass\nelif b:\n    pass\nelse:\n    pass\n"
	tree, _, err := buildSource(t, src, dialect.Default())
	require.NoError(t, err)

	top := tree.Children[0]
	require.Equal(t, KindIf, top.Kind)
	require.Len(t, top.Children, 3)

	elseBlock := top.Children[2]
	require.Equal(t, KindBlock, elseBlock.Kind)
	require.Len(t, elseBlock.Children, 1)

	nested := elseBlock.Children[0]
	require.Equal(t, KindIf, nested.Kind)
	assert.Equal(t, "b", nested.Children[0].Name)
	// The final else attaches to the innermost if.
	require.Len(t, nested.Children, 3)
}

func TestBuilder_DynamicBaseClassBecomesPlaceholder(t *testing.T) {
	src := "class C(make_base()):\n    pass\n"
	tree, log, err := buildSource(t, src, dialect.Default())
	require.NoError(t, err)

	require.Len(t, tree.Children, 1)
	ph := tree.Children[0]
	assert.Equal(t, KindPlaceholder, ph.Kind)
	assert.Contains(t, ph.Text, "class C")
	assert.Equal(t, 1, log.Count(diag.CodeUnsupportedConstruct))
}

func TestBuilder_StaticBaseClassMaps(t *testing.T) {
	src := "class C(Base):\n    pass\n"
	tree, _, err := buildSource(t, src, dialect.Default())
	require.NoError(t, err)

	cls := tree.Children[0]
	require.Equal(t, KindClassDef, cls.Kind)
	assert.Equal(t, "C", cls.Name)
	require.Len(t, cls.Children[0].Children, 1)
	assert.Equal(t, "Base", cls.Children[0].Children[0].Name)
}

func TestBuilder_ExpressionErrorEscalatesToStatement(t *testing.T) {
	// The f-string sits inside a call inside a statement; the whole
	// statement becomes the placeholder, so it stays statement shaped.
	src := "print(f\"hi {x}\")\n"
	tree, log, err := buildSource(t, src, dialect.Default())
	require.NoError(t, err)

	require.Len(t, tree.Children, 1)
	assert.Equal(t, KindPlaceholder, tree.Children[0].Kind)
	assert.Equal(t, "print(f\"hi {x}\")", tree.Children[0].Text)
	assert.Equal(t, 1, log.Count(diag.CodeUnsupportedConstruct))
}

func TestBuilder_KeywordArgumentsUnsupported(t *testing.T) {
	tree, _, err := buildSource(t, "f(x, key=1)\n", dialect.Default())
	require.NoError(t, err)
	assert.Equal(t, KindPlaceholder, tree.Children[0].Kind)
}

func TestBuilder_RangeForSurvivesAsFor(t *testing.T) {
	src := "for i in range(10):\n    pass\n"
	tree, _, err := buildSource(t, src, dialect.Default())
	require.NoError(t, err)

	loop := tree.Children[0]
	require.Equal(t, KindFor, loop.Kind)
	assert.Equal(t, "i", loop.Children[0].Name)
	assert.Equal(t, KindCall, loop.Children[1].Kind)
}

func TestBuilder_FailPolicyAborts(t *testing.T) {
	profile := dialect.Default()
	profile.Unsupported = dialect.PolicyFail

	_, _, err := buildSource(t, "with open(f) as g:\n    pass\n", profile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported construct")
}

func TestBuilder_ChainedComparisonUnsupported(t *testing.T) {
	tree, _, err := buildSource(t, "x = 1 < y < 10\n", dialect.Default())
	require.NoError(t, err)
	assert.Equal(t, KindPlaceholder, tree.Children[0].Kind)
}

func TestBuilder_ComparisonOperatorRecovered(t *testing.T) {
	tree, _, err := buildSource(t, "x = a != b\n", dialect.Default())
	require.NoError(t, err)

	assign := tree.Children[0]
	require.Equal(t, KindAssign, assign.Kind)
	cmp := assign.Children[1]
	require.Equal(t, KindBinOp, cmp.Kind)
	assert.Equal(t, "!=", cmp.Name)
}
