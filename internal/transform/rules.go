package transform

import "porter/internal/ir"

// rangeLoopRule rewrites `for x in range(...)` into a counted ForRange
// node the emitter renders as a C-style loop.
type rangeLoopRule struct{}

func (r *rangeLoopRule) Name() string { return "range-loop" }

func (r *rangeLoopRule) Kinds() []ir.Kind { return []ir.Kind{ir.KindFor} }

func (r *rangeLoopRule) Matches(n *ir.Node, ctx *Context) bool {
	if len(n.Children) != 3 {
		return false
	}
	target, iter := n.Children[0], n.Children[1]
	if target.Kind != ir.KindName || iter.Kind != ir.KindCall {
		return false
	}
	callee := iter.Children[0]
	argc := len(iter.Children) - 1
	return callee.Kind == ir.KindName && callee.Name == "range" && argc >= 1 && argc <= 3
}

func (r *rangeLoopRule) Safe(n *ir.Node, ctx *Context) bool {
	// Unsafe if a local binding shadows the range builtin.
	_, shadowed := ctx.BindingKind("range")
	return !shadowed
}

func (r *rangeLoopRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node {
	target, iter, body := n.Children[0], n.Children[1], n.Children[2]
	args := iter.Children[1:]

	start := &ir.Node{Kind: ir.KindLiteral, Text: "0"}
	step := &ir.Node{Kind: ir.KindLiteral, Text: "1"}
	var stop *ir.Node
	switch len(args) {
	case 1:
		stop = args[0]
	case 2:
		start, stop = args[0], args[1]
	case 3:
		start, stop, step = args[0], args[1], args[2]
	}

	out := ir.NewNode(ir.KindForRange, start, stop, step, body)
	out.Name = target.Name
	out.Origin = n.Origin
	return out
}

// printCallRule maps the print builtin onto console.log.
type printCallRule struct{}

func (r *printCallRule) Name() string { return "print-call" }

func (r *printCallRule) Kinds() []ir.Kind { return []ir.Kind{ir.KindCall} }

func (r *printCallRule) Matches(n *ir.Node, ctx *Context) bool {
	return len(n.Children) > 0 &&
		n.Children[0].Kind == ir.KindName && n.Children[0].Name == "print"
}

func (r *printCallRule) Safe(n *ir.Node, ctx *Context) bool {
	_, shadowed := ctx.BindingKind("print")
	return !shadowed
}

func (r *printCallRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node {
	callee := ir.NewNode(ir.KindAttribute, &ir.Node{Kind: ir.KindName, Name: "console"})
	callee.Name = "log"
	out := ir.NewNode(ir.KindCall, append([]*ir.Node{callee}, n.Children[1:]...)...)
	out.Origin = n.Origin
	return out
}

// literalSpellingRule converts Python literal spellings to target ones.
type literalSpellingRule struct{}

var literalSpellings = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

func (r *literalSpellingRule) Name() string { return "literal-spelling" }

func (r *literalSpellingRule) Kinds() []ir.Kind { return []ir.Kind{ir.KindLiteral} }

func (r *literalSpellingRule) Matches(n *ir.Node, ctx *Context) bool {
	_, ok := literalSpellings[n.Text]
	return ok
}

func (r *literalSpellingRule) Safe(n *ir.Node, ctx *Context) bool { return true }

func (r *literalSpellingRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node {
	return &ir.Node{Kind: ir.KindLiteral, Text: literalSpellings[n.Text], Origin: n.Origin}
}

// operatorSpellingRule converts Python operator spellings: boolean words,
// and loose equality to strict equality.
type operatorSpellingRule struct{}

var operatorSpellings = map[string]string{
	"and": "&&",
	"or":  "||",
	"not": "!",
	"==":  "===",
	"!=":  "!==",
}

func (r *operatorSpellingRule) Name() string { return "operator-spelling" }

func (r *operatorSpellingRule) Kinds() []ir.Kind {
	return []ir.Kind{ir.KindBinOp, ir.KindUnaryOp}
}

func (r *operatorSpellingRule) Matches(n *ir.Node, ctx *Context) bool {
	_, ok := operatorSpellings[n.Name]
	return ok
}

func (r *operatorSpellingRule) Safe(n *ir.Node, ctx *Context) bool { return true }

func (r *operatorSpellingRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node {
	out := n.Clone()
	out.Name = operatorSpellings[n.Name]
	return out
}

// lenCallRule maps len(x) to x.length.
type lenCallRule struct{}

func (r *lenCallRule) Name() string { return "len-call" }

func (r *lenCallRule) Kinds() []ir.Kind { return []ir.Kind{ir.KindCall} }

func (r *lenCallRule) Matches(n *ir.Node, ctx *Context) bool {
	return len(n.Children) == 2 &&
		n.Children[0].Kind == ir.KindName && n.Children[0].Name == "len"
}

func (r *lenCallRule) Safe(n *ir.Node, ctx *Context) bool {
	_, shadowed := ctx.BindingKind("len")
	return !shadowed
}

func (r *lenCallRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node {
	out := ir.NewNode(ir.KindAttribute, n.Children[1])
	out.Name = "length"
	out.Origin = n.Origin
	return out
}

// selfNameRule renames the self receiver to this, but only where the walk
// is provably inside a method.
type selfNameRule struct{}

func (r *selfNameRule) Name() string { return "self-name" }

func (r *selfNameRule) Kinds() []ir.Kind { return []ir.Kind{ir.KindName} }

func (r *selfNameRule) Matches(n *ir.Node, ctx *Context) bool {
	// The receiver parameter itself is the emitter's problem, not a rename.
	return n.Name == "self" && !ctx.InParams()
}

func (r *selfNameRule) Safe(n *ir.Node, ctx *Context) bool { return ctx.InMethod() }

func (r *selfNameRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node {
	return &ir.Node{Kind: ir.KindName, Name: "this", Origin: n.Origin}
}

// appendPushRule maps list.append(x) to list.push(x). It only fires when
// the receiver is a name bound to a list literal in an enclosing scope;
// without that evidence, the receiver could be anything with an append
// method and the rewrite declines.
type appendPushRule struct{}

func (r *appendPushRule) Name() string { return "append-push" }

func (r *appendPushRule) Kinds() []ir.Kind { return []ir.Kind{ir.KindCall} }

func (r *appendPushRule) Matches(n *ir.Node, ctx *Context) bool {
	if len(n.Children) != 2 {
		return false
	}
	callee := n.Children[0]
	return callee.Kind == ir.KindAttribute && callee.Name == "append" &&
		len(callee.Children) == 1 && callee.Children[0].Kind == ir.KindName
}

func (r *appendPushRule) Safe(n *ir.Node, ctx *Context) bool {
	receiver := n.Children[0].Children[0]
	kind, ok := ctx.BindingKind(receiver.Name)
	return ok && kind == ir.KindListLit
}

func (r *appendPushRule) Rewrite(n *ir.Node, ctx *Context) *ir.Node {
	callee := n.Children[0].Clone()
	callee.Name = "push"
	out := ir.NewNode(ir.KindCall, callee, n.Children[1])
	out.Origin = n.Origin
	return out
}
