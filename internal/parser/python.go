package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonSource implements SourceLanguage for Python 3.
type PythonSource struct{}

func (p *PythonSource) Name() string {
	return "python"
}

func (p *PythonSource) GetLanguage() *sitter.Language {
	return python.GetLanguage()
}

func (p *PythonSource) FileExtensions() []string {
	return []string{".py"}
}

func (p *PythonSource) CommentPrefix() string {
	return "#"
}
