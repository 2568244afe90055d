package ir

import (
	"fmt"
	"strings"

	"porter/internal/source"
)

// Kind tags an IR node variant. The set is closed: the builder maps every
// source construct either onto one of these kinds or onto a Placeholder.
type Kind string

const (
	KindModule      Kind = "Module"
	KindBlock       Kind = "Block"
	KindParams      Kind = "Params"
	KindImport      Kind = "Import"
	KindFuncDef     Kind = "FuncDef"
	KindClassDef    Kind = "ClassDef"
	KindIf          Kind = "If"
	KindFor         Kind = "For"
	KindForRange    Kind = "ForRange"
	KindWhile       Kind = "While"
	KindReturn      Kind = "Return"
	KindAssign      Kind = "Assign"
	KindAugAssign   Kind = "AugAssign"
	KindExprStmt    Kind = "ExprStmt"
	KindPass        Kind = "Pass"
	KindCall        Kind = "Call"
	KindAttribute   Kind = "Attribute"
	KindIndex       Kind = "Index"
	KindBinOp       Kind = "BinOp"
	KindUnaryOp     Kind = "UnaryOp"
	KindName        Kind = "Name"
	KindLiteral     Kind = "Literal"
	KindListLit     Kind = "ListLit"
	KindPlaceholder Kind = "Placeholder"
)

// Node is one node of the language-neutral tree. Child layout by kind:
//
//	Module:   statements
//	Block:    statements
//	Params:   Name nodes (parameters, or base classes on a ClassDef)
//	FuncDef:  [Params, Block]                  Name = function name
//	ClassDef: [Params, Block]                  Name = class name, Params = bases
//	If:       [cond, Block] or [cond, Block, elseBlock]
//	For:      [target, iter, Block]
//	ForRange: [start, stop, step, Block]       Name = loop variable
//	While:    [cond, Block]
//	Return:   [] or [expr]
//	Assign:   [target, value]
//	AugAssign:[target, value]                  Name = operator ("+=", …)
//	ExprStmt: [expr]
//	Call:     [callee, args...]
//	Attribute:[object]                         Name = attribute name
//	Index:    [object, index]
//	BinOp:    [left, right]                    Name = operator
//	UnaryOp:  [operand]                        Name = operator
//	ListLit:  elements
//	Name:     leaf                             Name = identifier
//	Literal:  leaf                             Text = literal spelling
//	Import:   leaf                             Name = module path
//	Pass:     leaf
//	Placeholder: leaf                          Text = verbatim source slice
//
// The tree is strictly acyclic and single-owner: a node appears under
// exactly one parent. Back-references (scopes, symbols) live in side
// indices keyed by node identity, never inside the tree.
type Node struct {
	Kind     Kind
	Name     string
	Text     string
	Children []*Node
	Origin   *source.Span
}

// NewNode creates a node with the given kind and children.
func NewNode(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// Placeholder creates a placeholder leaf carrying the verbatim source slice
// it stands in for.
func Placeholder(text string, origin *source.Span) *Node {
	return &Node{Kind: KindPlaceholder, Text: text, Origin: origin}
}

// IsPlaceholder reports whether the node is a placeholder leaf.
func (n *Node) IsPlaceholder() bool {
	return n.Kind == KindPlaceholder
}

// IsStatement reports whether the kind renders as a statement.
func (n *Node) IsStatement() bool {
	switch n.Kind {
	case KindImport, KindFuncDef, KindClassDef, KindIf, KindFor, KindForRange,
		KindWhile, KindReturn, KindAssign, KindAugAssign, KindExprStmt, KindPass,
		KindPlaceholder:
		return true
	}
	return false
}

// Clone deep-copies the node and its subtree. Origin spans are shared since
// they are immutable.
func (n *Node) Clone() *Node {
	out := &Node{Kind: n.Kind, Name: n.Name, Text: n.Text, Origin: n.Origin}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// Equal reports deep structural equality, ignoring origin spans.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Name != other.Name || n.Text != other.Text ||
		len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Walk visits the subtree top-down. Returning false from fn prunes the
// node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Placeholders collects every placeholder leaf in document order.
func (n *Node) Placeholders() []*Node {
	var out []*Node
	n.Walk(func(node *Node) bool {
		if node.IsPlaceholder() {
			out = append(out, node)
		}
		return true
	})
	return out
}

// Path is a node's position in the IR tree as dot-joined child indices from
// the module root ("0.3.1"). Paths depend only on tree shape, so re-emitting
// an unchanged tree yields the same path for every node.
func (n *Node) Path(target *Node) (string, bool) {
	return findPath(n, target, "0")
}

func findPath(n, target *Node, prefix string) (string, bool) {
	if n == target {
		return prefix, true
	}
	for i, c := range n.Children {
		if p, ok := findPath(c, target, fmt.Sprintf("%s.%d", prefix, i)); ok {
			return p, true
		}
	}
	return "", false
}

// CountKind returns the number of nodes of the given kind in the subtree.
func (n *Node) CountKind(kind Kind) int {
	count := 0
	n.Walk(func(node *Node) bool {
		if node.Kind == kind {
			count++
		}
		return true
	})
	return count
}

func (n *Node) String() string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n *Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(string(n.Kind))
	if n.Name != "" {
		fmt.Fprintf(sb, " name=%q", n.Name)
	}
	if n.Text != "" {
		fmt.Fprintf(sb, " text=%q", firstLine(n.Text))
	}
	sb.WriteString("\n")
	for _, c := range n.Children {
		dump(sb, c, depth+1)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "…"
	}
	return s
}
