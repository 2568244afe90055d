package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porter/internal/ir"
)

func applyDefault(t *testing.T, src string) *ir.Node {
	t.Helper()
	tree, log := buildTree(t, src)
	Default().Apply(tree, log)
	return tree
}

func TestRangeLoop_OneArg(t *testing.T) {
	tree := applyDefault(t, "for i in range(10):\n    pass\n")

	loop := tree.Children[0]
	require.Equal(t, ir.KindForRange, loop.Kind)
	assert.Equal(t, "i", loop.Name)
	assert.Equal(t, "0", loop.Children[0].Text)
	assert.Equal(t, "10", loop.Children[1].Text)
	assert.Equal(t, "1", loop.Children[2].Text)
	assert.Equal(t, ir.KindBlock, loop.Children[3].Kind)
}

func TestRangeLoop_ThreeArgs(t *testing.T) {
	tree := applyDefault(t, "for i in range(2, 20, 3):\n    pass\n")

	loop := tree.Children[0]
	require.Equal(t, ir.KindForRange, loop.Kind)
	assert.Equal(t, "2", loop.Children[0].Text)
	assert.Equal(t, "20", loop.Children[1].Text)
	assert.Equal(t, "3", loop.Children[2].Text)
}

func TestPrintCall_BecomesConsoleLog(t *testing.T) {
	tree := applyDefault(t, "print(x, y)\n")

	call := tree.Children[0].Children[0]
	require.Equal(t, ir.KindCall, call.Kind)
	callee := call.Children[0]
	require.Equal(t, ir.KindAttribute, callee.Kind)
	assert.Equal(t, "log", callee.Name)
	assert.Equal(t, "console", callee.Children[0].Name)
	require.Len(t, call.Children, 3)
	assert.Equal(t, "x", call.Children[1].Name)
	assert.Equal(t, "y", call.Children[2].Name)
}

func TestLiteralSpelling(t *testing.T) {
	tree := applyDefault(t, "a = True\nb = False\nc = None\n")

	assert.Equal(t, "true", tree.Children[0].Children[1].Text)
	assert.Equal(t, "false", tree.Children[1].Children[1].Text)
	assert.Equal(t, "null", tree.Children[2].Children[1].Text)
}

func TestOperatorSpelling(t *testing.T) {
	tree := applyDefault(t, "a = x and y\nb = x == y\nc = not x\n")

	assert.Equal(t, "&&", tree.Children[0].Children[1].Name)
	assert.Equal(t, "===", tree.Children[1].Children[1].Name)

	neg := tree.Children[2].Children[1]
	require.Equal(t, ir.KindUnaryOp, neg.Kind)
	assert.Equal(t, "!", neg.Name)
}

func TestLenCall_BecomesLengthAccess(t *testing.T) {
	tree := applyDefault(t, "n = len(items)\n")

	value := tree.Children[0].Children[1]
	require.Equal(t, ir.KindAttribute, value.Kind)
	assert.Equal(t, "length", value.Name)
	assert.Equal(t, "items", value.Children[0].Name)
}

func TestSelfName_RenamedOnlyInsideMethod(t *testing.T) {
	src := "class Point:\n" +
		"    def shift(self, dx):\n" +
		"        self.x = self.x + dx\n"
	tree := applyDefault(t, src)

	method := tree.Children[0].Children[1].Children[0]
	require.Equal(t, ir.KindFuncDef, method.Kind)

	// The receiver parameter keeps its spelling; the emitter drops it.
	params := method.Children[0]
	assert.Equal(t, "self", params.Children[0].Name)

	assign := method.Children[1].Children[0]
	target := assign.Children[0]
	require.Equal(t, ir.KindAttribute, target.Kind)
	assert.Equal(t, "this", target.Children[0].Name)
}

func TestSelfName_DeclinesOutsideClass(t *testing.T) {
	tree := applyDefault(t, "def free(self):\n    return self\n")

	fn := tree.Children[0]
	ret := fn.Children[1].Children[0]
	assert.Equal(t, "self", ret.Children[0].Name)
}

func TestAppendPush_NeedsListEvidence(t *testing.T) {
	withEvidence := applyDefault(t, "items = [1, 2]\nitems.append(3)\n")
	call := withEvidence.Children[1].Children[0]
	require.Equal(t, ir.KindCall, call.Kind)
	assert.Equal(t, "push", call.Children[0].Name)

	withoutEvidence := applyDefault(t, "mystery.append(3)\n")
	call = withoutEvidence.Children[0].Children[0]
	assert.Equal(t, "append", call.Children[0].Name)
}
