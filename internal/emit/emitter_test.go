package emit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porter/internal/diag"
	"porter/internal/dialect"
	"porter/internal/ir"
	"porter/internal/parser"
	"porter/internal/transform"
)

func emitSource(t *testing.T, src string) (*Result, *diag.Log) {
	t.Helper()
	p, err := parser.New("python")
	require.NoError(t, err)
	f, err := p.Parse(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	log := diag.NewLog()
	tree, err := ir.NewBuilder(f, log, dialect.Default()).Build()
	require.NoError(t, err)
	transform.Default().Apply(tree, log)
	return New(dialect.Default(), log).Emit(tree, "test.ts"), log
}

func TestEmit_Function(t *testing.T) {
	src := "import math\n" +
		"\n" +
		"def dist(a, b):\n" +
		"    return math.sqrt(a * a + b * b)\n"

	res, _ := emitSource(t, src)
	expected := "import * as math from \"math\";\n" +
		"function dist(a, b) {\n" +
		"  return math.sqrt((a * a) + (b * b));\n" +
		"}\n"
	assert.Equal(t, expected, res.Output)
	assert.Empty(t, res.Marks)
}

func TestEmit_ClassWithConstructor(t *testing.T) {
	src := "class Counter:\n" +
		"    def __init__(self, start):\n" +
		"        self.n = start\n" +
		"    def bump(self):\n" +
		"        self.n += 1\n"

	res, _ := emitSource(t, src)
	expected := "class Counter {\n" +
		"  constructor(start) {\n" +
		"    this.n = start;\n" +
		"  }\n" +
		"  bump() {\n" +
		"    this.n += 1;\n" +
		"  }\n" +
		"}\n"
	assert.Equal(t, expected, res.Output)
}

func TestEmit_ClassExtends(t *testing.T) {
	res, _ := emitSource(t, "class Dog(Animal):\n    pass\n")
	assert.Equal(t, "class Dog extends Animal {\n  // pass\n}\n", res.Output)
}

func TestEmit_RangeLoops(t *testing.T) {
	res, _ := emitSource(t, "for i in range(10):\n    print(i)\n")
	expected := "for (let i = 0; i < 10; i++) {\n" +
		"  console.log(i);\n" +
		"}\n"
	assert.Equal(t, expected, res.Output)

	res, _ = emitSource(t, "for i in range(10, 0, -1):\n    pass\n")
	assert.Equal(t, "for (let i = 10; i > 0; i -= 1) {\n  // pass\n}\n", res.Output)
}

func TestEmit_AssignDeclaresOnce(t *testing.T) {
	res, _ := emitSource(t, "x = 1\nx = 2\ny = x\n")
	assert.Equal(t, "let x = 1;\nx = 2;\nlet y = x;\n", res.Output)
}

func TestEmit_WhileAndIf(t *testing.T) {
	src := "n = 5\n" +
		"while n > 0:\n" +
		"    if n == 1:\n" +
		"        n = 0\n" +
		"    else:\n" +
		"        n = n - 2\n"
	res, _ := emitSource(t, src)
	expected := "let n = 5;\n" +
		"while (n > 0) {\n" +
		"  if (n === 1) {\n" +
		"    n = 0;\n" +
		"  } else {\n" +
		"    n = n - 2;\n" +
		"  }\n" +
		"}\n"
	assert.Equal(t, expected, res.Output)
}

func TestEmit_PlaceholderMarker(t *testing.T) {
	src := "with open(p) as f:\n    data = f.read()\n"
	res, log := emitSource(t, src)

	require.Len(t, res.Marks, 1)
	m := res.Marks[0]
	assert.Equal(t, "0.0", m.ID)
	assert.Contains(t, m.Text, "with open(p)")

	// The recorded region is exactly the marker text.
	marker := res.Output[m.Region.StartByte:m.Region.EndByte]
	assert.Equal(t, "/* <<porter:0.0>> */;", marker)
	assert.Equal(t, "test.ts", m.Region.File)

	assert.GreaterOrEqual(t, log.Count(diag.CodeUnsupportedConstruct), 1)
}

func TestEmit_MarkerIDFollowsTreePath(t *testing.T) {
	src := "def gen():\n" +
		"    yield 1\n" +
		"x = 1\n"
	res, _ := emitSource(t, src)

	require.Len(t, res.Marks, 1)
	m := res.Marks[0]
	// Function is statement 0, its block child 1, the placeholder child 0.
	assert.Equal(t, "0.0.1.0", m.ID)

	marker := res.Output[m.Region.StartByte:m.Region.EndByte]
	assert.Equal(t, "/* <<porter:0.0.1.0>> */;", marker)
	assert.True(t, strings.Contains(res.Output, "  /* <<porter:0.0.1.0>> */;\n"))
}

func TestEmit_DeterministicMarkers(t *testing.T) {
	src := "import json\nasync def f():\n    pass\n"
	a, _ := emitSource(t, src)
	b, _ := emitSource(t, src)
	assert.Equal(t, a.Output, b.Output)
	assert.Equal(t, a.Marks, b.Marks)
}

func TestEmit_HoistsNestedFirstAssignment(t *testing.T) {
	src := "if c:\n" +
		"    x = 1\n" +
		"x = 2\n"
	res, _ := emitSource(t, src)
	expected := "let x;\n" +
		"if (c) {\n" +
		"  x = 1;\n" +
		"}\n" +
		"x = 2;\n"
	assert.Equal(t, expected, res.Output)
}

func TestEmit_HoistsInsideFunction(t *testing.T) {
	src := "def pick(flag):\n" +
		"    if flag:\n" +
		"        y = 1\n" +
		"    return y\n"
	res, _ := emitSource(t, src)
	expected := "function pick(flag) {\n" +
		"  let y;\n" +
		"  if (flag) {\n" +
		"    y = 1;\n" +
		"  }\n" +
		"  return y;\n" +
		"}\n"
	assert.Equal(t, expected, res.Output)
}

func TestEmit_TopLevelFirstAssignmentNotHoisted(t *testing.T) {
	src := "x = 1\n" +
		"if c:\n" +
		"    x = 2\n"
	res, _ := emitSource(t, src)
	assert.Equal(t, "let x = 1;\nif (c) {\n  x = 2;\n}\n", res.Output)
}

func TestEmit_OneWarningPerPlaceholder(t *testing.T) {
	res, log := emitSource(t, "with open(p) as f:\n    pass\nwith lock:\n    pass\n")
	require.Len(t, res.Marks, 2)

	warnings := 0
	for _, d := range log.All() {
		if d.Code == diag.CodeUnsupportedConstruct && d.Severity == diag.SeverityWarning {
			warnings++
		}
	}
	assert.Equal(t, len(res.Marks), warnings)
}

func TestEmit_MultipleInheritanceFallsBack(t *testing.T) {
	res, _ := emitSource(t, "class C(A, B):\n    pass\n")
	require.Len(t, res.Marks, 1)
	assert.NotContains(t, res.Output, "class C")
}
