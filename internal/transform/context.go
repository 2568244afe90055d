package transform

import "porter/internal/ir"

// Context is the local evidence safety predicates consult: lexical position
// (inside a class, inside a method) and a binding side-index mapping names
// to the kind of value last assigned to them in an enclosing scope. It is a
// non-owning index; the IR tree itself carries no back-references.
type Context struct {
	scopes      []map[string]ir.Kind
	classDepth  int
	funcDepth   int
	paramsDepth int
}

func newContext() *Context {
	return &Context{scopes: []map[string]ir.Kind{make(map[string]ir.Kind)}}
}

func (c *Context) enter(n *ir.Node) {
	switch n.Kind {
	case ir.KindFuncDef:
		c.funcDepth++
		c.scopes = append(c.scopes, make(map[string]ir.Kind))
	case ir.KindClassDef:
		c.classDepth++
		c.scopes = append(c.scopes, make(map[string]ir.Kind))
	case ir.KindParams:
		c.paramsDepth++
	}
}

func (c *Context) leave(n *ir.Node) {
	switch n.Kind {
	case ir.KindFuncDef:
		c.funcDepth--
		c.scopes = c.scopes[:len(c.scopes)-1]
	case ir.KindClassDef:
		c.classDepth--
		c.scopes = c.scopes[:len(c.scopes)-1]
	case ir.KindParams:
		c.paramsDepth--
	}
}

// observe records bindings as statements are passed, so evidence is visible
// to rules running on later statements in the same scope.
func (c *Context) observe(n *ir.Node) {
	if n.Kind != ir.KindAssign || len(n.Children) != 2 {
		return
	}
	target, value := n.Children[0], n.Children[1]
	if target.Kind != ir.KindName {
		return
	}
	c.scopes[len(c.scopes)-1][target.Name] = value.Kind
}

// InMethod reports whether the walk is inside a function nested in a class.
func (c *Context) InMethod() bool {
	return c.funcDepth > 0 && c.classDepth > 0
}

// InParams reports whether the walk is inside a parameter or base list.
// Receiver parameters are handled by the emitter, not renamed here.
func (c *Context) InParams() bool {
	return c.paramsDepth > 0
}

// BindingKind looks a name up through the scope stack, innermost first.
func (c *Context) BindingKind(name string) (ir.Kind, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if k, ok := c.scopes[i][name]; ok {
			return k, true
		}
	}
	return "", false
}
