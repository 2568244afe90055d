package emit

import (
	"fmt"
	"strings"

	"porter/internal/diag"
	"porter/internal/dialect"
	"porter/internal/ir"
	"porter/internal/source"
)

const stageEmit = "emit"

// Mark is one placeholder marker in the emitted output. The marker id is
// the placeholder's path in the IR tree, so re-emitting an unchanged tree
// reproduces the same ids regardless of placeholder content.
type Mark struct {
	ID     string       `json:"id"`
	Region source.Span  `json:"region"`
	Origin *source.Span `json:"origin,omitempty"`
	Text   string       `json:"text"`
}

// Result is the emitted target text plus the placeholder marks inside it.
type Result struct {
	Output string
	Marks  []Mark
}

// Emitter renders an IR tree as TypeScript. Placeholder nodes become
// uniquely addressable marker statements; everything else renders as
// canonical target syntax for the dialect profile. The output is always
// syntactically well-formed, markers included.
type Emitter struct {
	profile dialect.Profile
	log     *diag.Log

	sb      strings.Builder
	indent  int
	scopes  []map[string]bool
	inClass bool
	outPath string
	marks   []Mark
}

// New creates an emitter for one dialect profile.
func New(profile dialect.Profile, log *diag.Log) *Emitter {
	return &Emitter{profile: profile, log: log}
}

// Emit renders the tree. outPath names the output file in mark regions.
func (e *Emitter) Emit(root *ir.Node, outPath string) *Result {
	e.sb.Reset()
	e.indent = 0
	e.scopes = []map[string]bool{make(map[string]bool)}
	e.inClass = false
	e.outPath = outPath
	e.marks = nil

	e.hoistNested(root)
	for i, stmt := range root.Children {
		e.emitStatement(stmt, fmt.Sprintf("0.%d", i))
	}
	return &Result{Output: e.sb.String(), Marks: e.marks}
}

// hoistNested declares names whose first assignment sits inside a nested
// block. Source-side scoping is function wide, so without the hoist a
// declaration emitted inside an if or loop body would be out of scope for
// later statements.
func (e *Emitter) hoistNested(body *ir.Node) {
	seen := make(map[string]bool)
	var hoist []string
	var scan func(block *ir.Node, nested bool)
	scan = func(block *ir.Node, nested bool) {
		for _, stmt := range block.Children {
			switch stmt.Kind {
			case ir.KindAssign:
				target := stmt.Children[0]
				if target.Kind != ir.KindName || seen[target.Name] || e.declared(target.Name) {
					continue
				}
				seen[target.Name] = true
				if nested {
					hoist = append(hoist, target.Name)
				}
			case ir.KindIf, ir.KindFor, ir.KindForRange, ir.KindWhile:
				for _, c := range stmt.Children {
					if c.Kind == ir.KindBlock {
						scan(c, true)
					}
				}
			}
		}
	}
	scan(body, false)
	for _, name := range hoist {
		e.declare(name)
		e.line("let " + name + ";")
	}
}

func (e *Emitter) write(s string) {
	e.sb.WriteString(s)
}

func (e *Emitter) line(s string) {
	e.write(strings.Repeat(" ", e.indent*e.profile.IndentWidth))
	e.write(s)
	e.write("\n")
}

func (e *Emitter) pushScope() {
	e.scopes = append(e.scopes, make(map[string]bool))
}

func (e *Emitter) popScope() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *Emitter) declare(name string) {
	e.scopes[len(e.scopes)-1][name] = true
}

func (e *Emitter) declared(name string) bool {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if e.scopes[i][name] {
			return true
		}
	}
	return false
}

func (e *Emitter) emitStatement(n *ir.Node, path string) {
	switch n.Kind {
	case ir.KindPlaceholder:
		e.emitMark(n, path)
	case ir.KindImport:
		alias := strings.ReplaceAll(n.Name, ".", "_")
		e.declare(alias)
		e.line(fmt.Sprintf("import * as %s from %q;", alias, n.Name))
	case ir.KindFuncDef:
		e.emitFuncDef(n, path)
	case ir.KindClassDef:
		e.emitClassDef(n, path)
	case ir.KindIf:
		e.emitIf(n, path, "if")
	case ir.KindFor:
		target, iter, body := n.Children[0], n.Children[1], n.Children[2]
		e.line(fmt.Sprintf("for (const %s of %s) {", target.Name, e.expr(iter)))
		e.declare(target.Name)
		e.emitBlock(body, childPath(path, 2))
		e.line("}")
	case ir.KindForRange:
		e.emitForRange(n, path)
	case ir.KindWhile:
		e.line(fmt.Sprintf("while (%s) {", e.expr(n.Children[0])))
		e.emitBlock(n.Children[1], childPath(path, 1))
		e.line("}")
	case ir.KindReturn:
		if len(n.Children) == 0 {
			e.line("return;")
		} else {
			e.line(fmt.Sprintf("return %s;", e.expr(n.Children[0])))
		}
	case ir.KindAssign:
		target, value := n.Children[0], n.Children[1]
		if target.Kind == ir.KindName && !e.declared(target.Name) {
			e.declare(target.Name)
			e.line(fmt.Sprintf("let %s = %s;", target.Name, e.expr(value)))
		} else {
			e.line(fmt.Sprintf("%s = %s;", e.expr(target), e.expr(value)))
		}
	case ir.KindAugAssign:
		e.line(fmt.Sprintf("%s %s %s;", e.expr(n.Children[0]), n.Name, e.expr(n.Children[1])))
	case ir.KindExprStmt:
		e.line(e.expr(n.Children[0]) + ";")
	case ir.KindPass:
		e.line("// pass")
	default:
		// A non-statement kind in statement position has no emission rule.
		e.emitMark(e.fallbackPlaceholder(n, "no emission rule for "+string(n.Kind)), path)
	}
}

func (e *Emitter) emitFuncDef(n *ir.Node, path string) {
	params, body := n.Children[0], n.Children[1]

	var names []string
	for _, p := range params.Children {
		if e.inClass && len(names) == 0 && p.Name == "self" {
			continue
		}
		names = append(names, p.Name)
	}

	head := fmt.Sprintf("function %s(%s) {", n.Name, strings.Join(names, ", "))
	if e.inClass {
		name := n.Name
		if name == "__init__" {
			name = "constructor"
		}
		head = fmt.Sprintf("%s(%s) {", name, strings.Join(names, ", "))
	} else {
		e.declare(n.Name)
	}
	e.line(head)

	e.pushScope()
	for _, name := range names {
		e.declare(name)
	}
	e.indent++
	e.hoistNested(body)
	e.indent--
	wasInClass := e.inClass
	e.inClass = false
	e.emitBlock(body, childPath(path, 1))
	e.inClass = wasInClass
	e.popScope()
	e.line("}")
}

func (e *Emitter) emitClassDef(n *ir.Node, path string) {
	bases, body := n.Children[0], n.Children[1]
	if len(bases.Children) > 1 {
		e.emitMark(e.fallbackPlaceholder(n, "multiple inheritance"), path)
		return
	}
	head := fmt.Sprintf("class %s {", n.Name)
	if len(bases.Children) == 1 {
		head = fmt.Sprintf("class %s extends %s {", n.Name, bases.Children[0].Name)
	}
	e.declare(n.Name)
	e.line(head)

	e.pushScope()
	wasInClass := e.inClass
	e.inClass = true
	e.emitBlock(body, childPath(path, 1))
	e.inClass = wasInClass
	e.popScope()
	e.line("}")
}

func (e *Emitter) emitIf(n *ir.Node, path string, keyword string) {
	e.line(fmt.Sprintf("%s (%s) {", keyword, e.expr(n.Children[0])))
	e.emitBlock(n.Children[1], childPath(path, 1))
	if len(n.Children) == 3 {
		elseBlock := n.Children[2]
		e.line("} else {")
		e.emitBlock(elseBlock, childPath(path, 2))
	}
	e.line("}")
}

func (e *Emitter) emitForRange(n *ir.Node, path string) {
	start, stop, step, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	v := n.Name

	cmp, update := "<", fmt.Sprintf("%s += %s", v, e.expr(step))
	if step.Kind == ir.KindLiteral {
		switch {
		case step.Text == "1":
			update = v + "++"
		case strings.HasPrefix(step.Text, "-"):
			cmp = ">"
			update = fmt.Sprintf("%s -= %s", v, strings.TrimPrefix(step.Text, "-"))
		}
	}
	e.line(fmt.Sprintf("for (let %s = %s; %s %s %s; %s) {",
		v, e.expr(start), v, cmp, e.expr(stop), update))
	e.declare(v)
	e.emitBlock(body, childPath(path, 3))
	e.line("}")
}

func (e *Emitter) emitBlock(block *ir.Node, path string) {
	e.indent++
	for i, stmt := range block.Children {
		e.emitStatement(stmt, childPath(path, i))
	}
	e.indent--
}

// emitMark renders a placeholder as a marker statement: a comment carrying
// the marker id followed by an empty statement, valid TypeScript on its
// own. The recorded region is exactly the marker text, which is the only
// byte range a patch may later touch.
func (e *Emitter) emitMark(n *ir.Node, path string) {
	indent := strings.Repeat(" ", e.indent*e.profile.IndentWidth)
	e.write(indent)

	start := e.sb.Len()
	marker := fmt.Sprintf("/* <<porter:%s>> */;", path)
	e.write(marker)
	e.write("\n")

	region := source.Span{
		File:      e.outPath,
		StartByte: start,
		EndByte:   start + len(marker),
		StartLine: 1 + strings.Count(e.sb.String()[:start], "\n"),
	}
	region.EndLine = region.StartLine + strings.Count(marker, "\n")

	e.marks = append(e.marks, Mark{
		ID:     path,
		Region: region,
		Origin: n.Origin,
		Text:   n.Text,
	})
	// Informational: the warning about the construct was recorded when the
	// placeholder was created, so each gap carries exactly one warning.
	e.log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityInfo, stageEmit,
		source.NodeID(path), n.Origin, "placeholder marker <<porter:%s>> awaiting resolution", path)
}

// fallbackPlaceholder wraps a node the emitter cannot render. The builder
// keeps placeholders statement shaped, so this path only fires for trees
// assembled by hand or by a misbehaving rule.
func (e *Emitter) fallbackPlaceholder(n *ir.Node, reason string) *ir.Node {
	text := n.Text
	if text == "" && n.Origin != nil {
		text = fmt.Sprintf("/* %s */", n.Origin)
	}
	e.log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, stageEmit,
		"", n.Origin, "%s", reason)
	return ir.Placeholder(text, n.Origin)
}

func (e *Emitter) expr(n *ir.Node) string {
	switch n.Kind {
	case ir.KindName:
		return n.Name
	case ir.KindLiteral:
		return n.Text
	case ir.KindCall:
		args := make([]string, 0, len(n.Children)-1)
		for _, a := range n.Children[1:] {
			args = append(args, e.expr(a))
		}
		return fmt.Sprintf("%s(%s)", e.expr(n.Children[0]), strings.Join(args, ", "))
	case ir.KindAttribute:
		obj := e.expr(n.Children[0])
		// "this" keeps member access unparenthesized; other compound objects
		// need no parens either since attribute chains bind tightest.
		return fmt.Sprintf("%s.%s", obj, n.Name)
	case ir.KindIndex:
		return fmt.Sprintf("%s[%s]", e.expr(n.Children[0]), e.expr(n.Children[1]))
	case ir.KindBinOp:
		return fmt.Sprintf("%s %s %s",
			e.operand(n.Children[0]), n.Name, e.operand(n.Children[1]))
	case ir.KindUnaryOp:
		op := n.Name
		if op == "not" {
			op = "!"
		}
		return op + e.operand(n.Children[0])
	case ir.KindListLit:
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			parts = append(parts, e.expr(c))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		e.log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, stageEmit,
			"", n.Origin, "no emission rule for %s expression", n.Kind)
		return "undefined"
	}
}

// operand parenthesizes nested operator expressions instead of reasoning
// about precedence differences between the two languages.
func (e *Emitter) operand(n *ir.Node) string {
	s := e.expr(n)
	if n.Kind == ir.KindBinOp {
		return "(" + s + ")"
	}
	return s
}

func childPath(path string, i int) string {
	return fmt.Sprintf("%s.%d", path, i)
}
