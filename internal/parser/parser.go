package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"

	"porter/internal/source"
)

// SourceLanguage is the interface a source-side grammar adapter must
// implement. The rest of the pipeline only sees spans and node kinds, so
// adding a new source language means adding one implementation here.
type SourceLanguage interface {
	Name() string
	GetLanguage() *sitter.Language
	// FileExtensions lists the filename suffixes this language claims.
	FileExtensions() []string
	// CommentPrefix is the line-comment prefix used by the mirror writer.
	CommentPrefix() string
}

// File is the result of parsing one source file: the syntax tree, the raw
// bytes it was parsed from, and the span index for every named node.
type File struct {
	Path   string
	Source []byte
	Lang   SourceLanguage
	Map    *source.Map

	tree *sitter.Tree
}

// Root returns the file's module-level syntax node.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Content returns the source text of a syntax node.
func (f *File) Content(n *sitter.Node) string {
	return n.Content(f.Source)
}

// SpanOf builds a span for an arbitrary syntax node.
func (f *File) SpanOf(n *sitter.Node) source.Span {
	return source.Span{
		File:        f.Path,
		StartByte:   int(n.StartByte()),
		EndByte:     int(n.EndByte()),
		StartLine:   int(n.StartPoint().Row) + 1,
		EndLine:     int(n.EndPoint().Row) + 1,
		StartColumn: int(n.StartPoint().Column),
		EndColumn:   int(n.EndPoint().Column),
	}
}

// Parser turns source text into a File using a language adapter.
type Parser struct {
	lang SourceLanguage
}

// New creates a parser for a named source language.
func New(lang string) (*Parser, error) {
	switch lang {
	case "python", "python3":
		return &Parser{lang: &PythonSource{}}, nil
	default:
		return nil, fmt.Errorf("unsupported source language: %s", lang)
	}
}

// Language returns the parser's language adapter.
func (p *Parser) Language() SourceLanguage {
	return p.lang
}

// ParseFile reads and parses a file from disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return p.Parse(ctx, path, src)
}

// Parse parses source bytes into a File. A tree containing syntax errors is
// a parse failure: this stage is fatal for the file, per-file only.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*File, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(p.lang.GetLanguage())
	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	root := tree.RootNode()
	if bad := firstErrorNode(root); bad != nil {
		line := int(bad.StartPoint().Row) + 1
		return nil, fmt.Errorf("syntax error in %s at line %d", path, line)
	}

	f := &File{
		Path:   path,
		Source: src,
		Lang:   p.lang,
		Map:    source.NewMap(),
		tree:   tree,
	}
	indexSpans(f, root, source.RootID)
	return f, nil
}

// indexSpans assigns path-based node ids to every named node and records
// their spans. Ids depend only on tree shape, so identical input yields
// identical ids on every run.
func indexSpans(f *File, n *sitter.Node, id source.NodeID) {
	f.Map.Put(id, f.SpanOf(n))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		indexSpans(f, n.NamedChild(i), source.ChildID(id, i))
	}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstErrorNode(n.Child(i)); bad != nil {
			return bad
		}
	}
	return n
}
