package ir

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"porter/internal/diag"
	"porter/internal/dialect"
	"porter/internal/parser"
	"porter/internal/source"
)

const stageBuild = "ir-build"

// Builder converts a parsed source file into an IR tree. Any statement
// without a defined mapping rule, or containing an expression without one,
// becomes a Placeholder carrying the verbatim source slice. Every top-level
// statement in the input produces exactly one top-level IR node.
type Builder struct {
	file    *parser.File
	log     *diag.Log
	profile dialect.Profile
}

// NewBuilder creates a builder for one file.
func NewBuilder(f *parser.File, log *diag.Log, profile dialect.Profile) *Builder {
	return &Builder{file: f, log: log, profile: profile}
}

// Build produces the IR tree. It fails only when the dialect profile's
// unsupported policy is "fail" and an unsupported construct is seen;
// otherwise unsupported constructs degrade to placeholders.
func (b *Builder) Build() (*Node, error) {
	root := b.file.Root()
	module := NewNode(KindModule)
	module.Origin = b.spanOf(root)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		stmt, err := b.buildStatement(child)
		if err != nil {
			return nil, err
		}
		module.Children = append(module.Children, stmt)
	}
	return module, nil
}

func (b *Builder) spanOf(n *sitter.Node) *source.Span {
	s := b.file.SpanOf(n)
	return &s
}

// placeholder funnels an unsupported statement into a Placeholder leaf and
// records the diagnostic. With the "fail" policy the error aborts the file.
func (b *Builder) placeholder(n *sitter.Node, reason string) (*Node, error) {
	span := b.spanOf(n)
	b.log.Addf(diag.CodeUnsupportedConstruct, diag.SeverityWarning, stageBuild,
		"", span, "%s (%s)", reason, n.Type())
	if b.profile.Unsupported == dialect.PolicyFail {
		return nil, fmt.Errorf("unsupported construct at %s: %s", span, reason)
	}
	return Placeholder(b.file.Content(n), span), nil
}

func (b *Builder) buildStatement(n *sitter.Node) (*Node, error) {
	switch n.Type() {
	case "import_statement", "import_from_statement":
		return b.buildImport(n)
	case "function_definition":
		return b.buildFuncDef(n)
	case "class_definition":
		return b.buildClassDef(n)
	case "if_statement":
		return b.buildIf(n)
	case "for_statement":
		return b.buildFor(n)
	case "while_statement":
		return b.buildWhile(n)
	case "return_statement":
		return b.buildReturn(n)
	case "expression_statement":
		return b.buildExprStatement(n)
	case "pass_statement":
		node := NewNode(KindPass)
		node.Origin = b.spanOf(n)
		return node, nil
	default:
		return b.placeholder(n, "no mapping rule for statement")
	}
}

func (b *Builder) buildImport(n *sitter.Node) (*Node, error) {
	// Aliased or wildcard imports have no direct target-side equivalent.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		t := n.NamedChild(i).Type()
		if t != "dotted_name" {
			return b.placeholder(n, "only plain module imports are mapped")
		}
	}
	first := n.NamedChild(0)
	if first == nil {
		return b.placeholder(n, "empty import")
	}
	node := &Node{Kind: KindImport, Name: b.file.Content(first), Origin: b.spanOf(n)}
	return node, nil
}

func (b *Builder) buildFuncDef(n *sitter.Node) (*Node, error) {
	nameNode := n.ChildByFieldName("name")
	paramsNode := n.ChildByFieldName("parameters")
	bodyNode := n.ChildByFieldName("body")
	if nameNode == nil || bodyNode == nil {
		return b.placeholder(n, "malformed function definition")
	}

	params := NewNode(KindParams)
	if paramsNode != nil {
		for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
			p := paramsNode.NamedChild(i)
			if p.Type() != "identifier" {
				return b.placeholder(n, "only plain positional parameters are mapped")
			}
			params.Children = append(params.Children, &Node{
				Kind: KindName, Name: b.file.Content(p), Origin: b.spanOf(p),
			})
		}
	}

	body, err := b.buildBlock(bodyNode)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return b.placeholder(n, "unsupported statement inside function body")
	}

	node := NewNode(KindFuncDef, params, body)
	node.Name = b.file.Content(nameNode)
	node.Origin = b.spanOf(n)
	return node, nil
}

func (b *Builder) buildClassDef(n *sitter.Node) (*Node, error) {
	nameNode := n.ChildByFieldName("name")
	bodyNode := n.ChildByFieldName("body")
	if nameNode == nil || bodyNode == nil {
		return b.placeholder(n, "malformed class definition")
	}

	bases := NewNode(KindParams)
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := supers.NamedChild(i)
			// A computed base (call, subscript, conditional) means the class
			// hierarchy is decided at runtime. That is exactly the ambiguity
			// the resolver stage exists for.
			if base.Type() != "identifier" && base.Type() != "attribute" {
				return b.placeholder(n, "dynamically computed base class")
			}
			bases.Children = append(bases.Children, &Node{
				Kind: KindName, Name: b.file.Content(base), Origin: b.spanOf(base),
			})
		}
	}

	body, err := b.buildBlock(bodyNode)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return b.placeholder(n, "unsupported statement inside class body")
	}

	node := NewNode(KindClassDef, bases, body)
	node.Name = b.file.Content(nameNode)
	node.Origin = b.spanOf(n)
	return node, nil
}

// buildBlock maps a suite of statements. Unlike the top level, statements
// inside a block still degrade individually to placeholders, so a single
// odd line does not sink its whole function.
func (b *Builder) buildBlock(n *sitter.Node) (*Node, error) {
	block := NewNode(KindBlock)
	block.Origin = b.spanOf(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		stmt, err := b.buildStatement(child)
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, stmt)
	}
	return block, nil
}

func (b *Builder) buildIf(n *sitter.Node) (*Node, error) {
	condNode := n.ChildByFieldName("condition")
	consNode := n.ChildByFieldName("consequence")
	if condNode == nil || consNode == nil {
		return b.placeholder(n, "malformed if statement")
	}
	cond, err := b.buildExpr(condNode)
	if err != nil {
		return b.placeholder(n, err.Error())
	}
	then, berr := b.buildBlock(consNode)
	if berr != nil {
		return nil, berr
	}

	node := NewNode(KindIf, cond, then)
	node.Origin = b.spanOf(n)

	// elif chains desugar into nested If nodes in the else slot.
	var clauses []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "elif_clause" || c.Type() == "else_clause" {
			clauses = append(clauses, c)
		}
	}
	tail := node
	for _, clause := range clauses {
		switch clause.Type() {
		case "elif_clause":
			elifCond, err := b.buildExpr(clause.ChildByFieldName("condition"))
			if err != nil {
				return b.placeholder(n, err.Error())
			}
			elifBody, berr := b.buildBlock(clause.ChildByFieldName("consequence"))
			if berr != nil {
				return nil, berr
			}
			nested := NewNode(KindIf, elifCond, elifBody)
			nested.Origin = b.spanOf(clause)
			tail.Children = append(tail.Children, NewNode(KindBlock, nested))
			tail = nested
		case "else_clause":
			elseBody, berr := b.buildBlock(clause.ChildByFieldName("body"))
			if berr != nil {
				return nil, berr
			}
			tail.Children = append(tail.Children, elseBody)
		}
	}
	return node, nil
}

func (b *Builder) buildFor(n *sitter.Node) (*Node, error) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "else_clause" {
			return b.placeholder(n, "for/else has no target-side equivalent")
		}
	}
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	bodyNode := n.ChildByFieldName("body")
	if left == nil || right == nil || bodyNode == nil {
		return b.placeholder(n, "malformed for statement")
	}
	if left.Type() != "identifier" {
		return b.placeholder(n, "only single-variable loop targets are mapped")
	}
	target := &Node{Kind: KindName, Name: b.file.Content(left), Origin: b.spanOf(left)}
	iter, err := b.buildExpr(right)
	if err != nil {
		return b.placeholder(n, err.Error())
	}
	body, berr := b.buildBlock(bodyNode)
	if berr != nil {
		return nil, berr
	}
	node := NewNode(KindFor, target, iter, body)
	node.Origin = b.spanOf(n)
	return node, nil
}

func (b *Builder) buildWhile(n *sitter.Node) (*Node, error) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "else_clause" {
			return b.placeholder(n, "while/else has no target-side equivalent")
		}
	}
	condNode := n.ChildByFieldName("condition")
	bodyNode := n.ChildByFieldName("body")
	if condNode == nil || bodyNode == nil {
		return b.placeholder(n, "malformed while statement")
	}
	cond, err := b.buildExpr(condNode)
	if err != nil {
		return b.placeholder(n, err.Error())
	}
	body, berr := b.buildBlock(bodyNode)
	if berr != nil {
		return nil, berr
	}
	node := NewNode(KindWhile, cond, body)
	node.Origin = b.spanOf(n)
	return node, nil
}

func (b *Builder) buildReturn(n *sitter.Node) (*Node, error) {
	node := NewNode(KindReturn)
	node.Origin = b.spanOf(n)
	if n.NamedChildCount() > 0 {
		expr, err := b.buildExpr(n.NamedChild(0))
		if err != nil {
			return b.placeholder(n, err.Error())
		}
		node.Children = append(node.Children, expr)
	}
	return node, nil
}

func (b *Builder) buildExprStatement(n *sitter.Node) (*Node, error) {
	if n.NamedChildCount() == 0 {
		return b.placeholder(n, "empty expression statement")
	}
	inner := n.NamedChild(0)
	switch inner.Type() {
	case "assignment":
		if inner.ChildByFieldName("type") != nil {
			return b.placeholder(n, "annotated assignment is not mapped")
		}
		left, err := b.buildExpr(inner.ChildByFieldName("left"))
		if err != nil {
			return b.placeholder(n, err.Error())
		}
		right, err := b.buildExpr(inner.ChildByFieldName("right"))
		if err != nil {
			return b.placeholder(n, err.Error())
		}
		node := NewNode(KindAssign, left, right)
		node.Origin = b.spanOf(n)
		return node, nil
	case "augmented_assignment":
		left, err := b.buildExpr(inner.ChildByFieldName("left"))
		if err != nil {
			return b.placeholder(n, err.Error())
		}
		right, err := b.buildExpr(inner.ChildByFieldName("right"))
		if err != nil {
			return b.placeholder(n, err.Error())
		}
		node := NewNode(KindAugAssign, left, right)
		node.Name = b.operatorText(inner)
		node.Origin = b.spanOf(n)
		return node, nil
	default:
		expr, err := b.buildExpr(inner)
		if err != nil {
			return b.placeholder(n, err.Error())
		}
		node := NewNode(KindExprStmt, expr)
		node.Origin = b.spanOf(n)
		return node, nil
	}
}

// buildExpr maps an expression subtree. Errors bubble up to the enclosing
// statement, which becomes a placeholder, keeping placeholders statement
// shaped so emitted markers stay valid statements.
func (b *Builder) buildExpr(n *sitter.Node) (*Node, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}
	switch n.Type() {
	case "identifier":
		return &Node{Kind: KindName, Name: b.file.Content(n), Origin: b.spanOf(n)}, nil
	case "integer", "float", "true", "false", "none":
		return &Node{Kind: KindLiteral, Text: b.file.Content(n), Origin: b.spanOf(n)}, nil
	case "string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "interpolation" {
				return nil, fmt.Errorf("f-string interpolation is not mapped")
			}
		}
		return &Node{Kind: KindLiteral, Text: b.file.Content(n), Origin: b.spanOf(n)}, nil
	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return nil, fmt.Errorf("empty parenthesized expression")
		}
		return b.buildExpr(n.NamedChild(0))
	case "call":
		return b.buildCall(n)
	case "attribute":
		obj, err := b.buildExpr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return nil, fmt.Errorf("malformed attribute access")
		}
		node := NewNode(KindAttribute, obj)
		node.Name = b.file.Content(attr)
		node.Origin = b.spanOf(n)
		return node, nil
	case "subscript":
		obj, err := b.buildExpr(n.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		idx, err := b.buildExpr(n.ChildByFieldName("subscript"))
		if err != nil {
			return nil, err
		}
		node := NewNode(KindIndex, obj, idx)
		node.Origin = b.spanOf(n)
		return node, nil
	case "binary_operator", "boolean_operator":
		left, err := b.buildExpr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := b.buildExpr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		node := NewNode(KindBinOp, left, right)
		node.Name = b.operatorText(n)
		node.Origin = b.spanOf(n)
		return node, nil
	case "comparison_operator":
		if n.NamedChildCount() != 2 {
			return nil, fmt.Errorf("chained comparisons are not mapped")
		}
		left, err := b.buildExpr(n.NamedChild(0))
		if err != nil {
			return nil, err
		}
		right, err := b.buildExpr(n.NamedChild(1))
		if err != nil {
			return nil, err
		}
		node := NewNode(KindBinOp, left, right)
		node.Name = b.textBetween(n.NamedChild(0), n.NamedChild(1))
		node.Origin = b.spanOf(n)
		return node, nil
	case "unary_operator":
		arg, err := b.buildExpr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		node := NewNode(KindUnaryOp, arg)
		node.Name = b.operatorText(n)
		node.Origin = b.spanOf(n)
		return node, nil
	case "not_operator":
		arg, err := b.buildExpr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		node := NewNode(KindUnaryOp, arg)
		node.Name = "not"
		node.Origin = b.spanOf(n)
		return node, nil
	case "list":
		node := NewNode(KindListLit)
		node.Origin = b.spanOf(n)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			el, err := b.buildExpr(n.NamedChild(i))
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, el)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("no mapping rule for %s expression", n.Type())
	}
}

func (b *Builder) buildCall(n *sitter.Node) (*Node, error) {
	callee, err := b.buildExpr(n.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	node := NewNode(KindCall, callee)
	node.Origin = b.spanOf(n)
	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			a := args.NamedChild(i)
			if a.Type() == "keyword_argument" {
				return nil, fmt.Errorf("keyword arguments are not mapped")
			}
			arg, err := b.buildExpr(a)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, arg)
		}
	}
	return node, nil
}

func (b *Builder) operatorText(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return b.file.Content(op)
	}
	return ""
}

// textBetween recovers the operator token sitting between two operands.
func (b *Builder) textBetween(left, right *sitter.Node) string {
	lo, hi := int(left.EndByte()), int(right.StartByte())
	if lo < 0 || hi > len(b.file.Source) || lo > hi {
		return ""
	}
	return strings.TrimSpace(string(b.file.Source[lo:hi]))
}
