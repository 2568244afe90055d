package annotate

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"porter/internal/diag"
	"porter/internal/parser"
	"porter/internal/source"
)

const stageAnnotate = "annotate"

// Classification is the annotator's judgement of how a construct translates.
type Classification string

const (
	// ClassDirect constructs have a one-to-one deterministic mapping.
	ClassDirect Classification = "direct"
	// ClassContextNeeded constructs map deterministically only when local
	// evidence (types, bindings) confirms the rewrite is safe.
	ClassContextNeeded Classification = "context-needed"
	// ClassAmbiguous constructs need the resolver stage.
	ClassAmbiguous Classification = "ambiguous"
)

// ChunkLabel is the structured advice record for one labeled node. Each
// labeled node gets exactly one label.
type ChunkLabel struct {
	NodeID         source.NodeID  `json:"node_id"`
	Kind           string         `json:"kind"`
	Classification Classification `json:"classification"`
	Advice         string         `json:"advice"`
	Span           source.Span    `json:"span"`
}

// Result bundles the annotator outputs: the label records and the textual
// mirror with inline labels.
type Result struct {
	Labels []ChunkLabel
	Mirror string
}

// Annotator walks the AST top-down and classifies each statement-level node
// against a fixed rule table. It never alters or reorders source.
type Annotator struct {
	file *parser.File
	log  *diag.Log
}

// New creates an annotator for one parsed file.
func New(f *parser.File, log *diag.Log) *Annotator {
	return &Annotator{file: f, log: log}
}

// Run labels the file and renders the annotated mirror.
func (a *Annotator) Run() *Result {
	res := &Result{}
	a.visit(a.file.Root(), source.RootID, false, &res.Labels)
	res.Mirror = a.renderMirror(res.Labels)
	return res
}

func (a *Annotator) visit(n *sitter.Node, id source.NodeID, inClass bool, out *[]ChunkLabel) {
	if cls, advice, ok := a.classify(n, inClass); ok {
		label := ChunkLabel{
			NodeID:         id,
			Kind:           n.Type(),
			Classification: cls,
			Advice:         advice,
			Span:           a.file.SpanOf(n),
		}
		*out = append(*out, label)
		if cls == ClassAmbiguous {
			span := label.Span
			a.log.Addf(diag.CodeAmbiguousConstruct, diag.SeverityInfo, stageAnnotate,
				id, &span, "%s: %s", n.Type(), advice)
		}
	}
	childInClass := inClass || n.Type() == "class_definition"
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.visit(n.NamedChild(i), source.ChildID(id, i), childInClass, out)
	}
}

// classify applies the fixed rule table keyed on node kind plus local
// context. Unlisted node kinds carry no label of their own; they are judged
// at their enclosing statement.
func (a *Annotator) classify(n *sitter.Node, inClass bool) (Classification, string, bool) {
	switch n.Type() {
	case "import_statement":
		return ClassDirect, "maps to a module import", true
	case "import_from_statement":
		return ClassContextNeeded, "named imports need module layout on the target side", true
	case "function_definition":
		if hasNonIdentifierParams(n) {
			return ClassAmbiguous, "default or starred parameters have no direct mapping", true
		}
		if inClass {
			return ClassContextNeeded, "method receiver binding depends on class shape", true
		}
		return ClassDirect, "maps to a function declaration", true
	case "class_definition":
		if hasDynamicBase(n) {
			return ClassAmbiguous, "base class is computed at runtime", true
		}
		return ClassDirect, "maps to a class declaration", true
	case "for_statement":
		if isRangeLoop(n, a.file.Source) {
			return ClassDirect, "counted range loop maps to a C-style for", true
		}
		return ClassContextNeeded, "iteration protocol of the iterable must be known", true
	case "while_statement":
		return ClassDirect, "maps to a while loop", true
	case "if_statement":
		return ClassDirect, "maps to an if/else chain", true
	case "with_statement", "try_statement", "decorated_definition",
		"global_statement", "nonlocal_statement", "lambda", "yield":
		return ClassAmbiguous, "construct has no deterministic target-side form", true
	default:
		return "", "", false
	}
}

func hasNonIdentifierParams(n *sitter.Node) bool {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return false
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if params.NamedChild(i).Type() != "identifier" {
			return true
		}
	}
	return false
}

func hasDynamicBase(n *sitter.Node) bool {
	supers := n.ChildByFieldName("superclasses")
	if supers == nil {
		return false
	}
	for i := 0; i < int(supers.NamedChildCount()); i++ {
		t := supers.NamedChild(i).Type()
		if t != "identifier" && t != "attribute" {
			return true
		}
	}
	return false
}

func isRangeLoop(n *sitter.Node, src []byte) bool {
	right := n.ChildByFieldName("right")
	if right == nil || right.Type() != "call" {
		return false
	}
	fn := right.ChildByFieldName("function")
	return fn != nil && fn.Type() == "identifier" && fn.Content(src) == "range"
}

// mirrorPrefix marks inserted label lines. Stripping every line that starts
// with it (after indentation) reproduces the original source byte-for-byte.
const mirrorPrefix = "# porter: "

// escapePrefix shields original source lines that would otherwise be taken
// for label lines when the mirror is stripped. The two prefixes diverge at
// the ninth byte, so a line can match at most one of them.
const escapePrefix = "# porter-src: "

// renderMirror interleaves label comment lines with the original source.
// Labels attach above the first line of the labeled node, reusing its
// indentation.
func (a *Annotator) renderMirror(labels []ChunkLabel) string {
	byLine := make(map[int][]ChunkLabel)
	for _, l := range labels {
		byLine[l.Span.StartLine] = append(byLine[l.Span.StartLine], l)
	}

	var sb strings.Builder
	lines := splitKeepEnds(string(a.file.Source))
	for i, line := range lines {
		for _, l := range byLine[i+1] {
			sb.WriteString(indentOf(line))
			sb.WriteString(mirrorPrefix)
			sb.WriteString(strings.ToUpper(l.Kind))
			sb.WriteString(": ")
			sb.WriteString(string(l.Classification))
			sb.WriteString(" → ")
			sb.WriteString(l.Advice)
			sb.WriteString("\n")
		}
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, mirrorPrefix) || strings.HasPrefix(trimmed, escapePrefix) {
			sb.WriteString(indentOf(line))
			sb.WriteString(escapePrefix)
			sb.WriteString(trimmed)
		} else {
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// StripMirror removes the label lines a mirror added and unshields escaped
// source lines, recovering the original source exactly.
func StripMirror(mirror string) string {
	var sb strings.Builder
	for _, line := range splitKeepEnds(mirror) {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, escapePrefix):
			sb.WriteString(indentOf(line))
			sb.WriteString(strings.TrimPrefix(trimmed, escapePrefix))
		case strings.HasPrefix(trimmed, mirrorPrefix):
		default:
			sb.WriteString(line)
		}
	}
	return sb.String()
}

func splitKeepEnds(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

func indentOf(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	return line[:len(line)-len(trimmed)]
}
