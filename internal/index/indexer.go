package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"porter/internal/ir"
	"porter/internal/source"
)

// Symbol is one named definition discovered in a translated file.
type Symbol struct {
	File      string        `json:"file"`
	NodeID    source.NodeID `json:"node_id"`
	Kind      string        `json:"kind"` // "function", "class", "method"
	Name      string        `json:"name"`
	Qualified string        `json:"qualified"`
	StartLine int           `json:"start_line,omitempty"`
	EndLine   int           `json:"end_line,omitempty"`
}

// Index is the cross-file symbol side-index built during a run. It lets a
// later resolve pass look up where a name is defined without re-parsing.
type Index struct {
	Symbols []Symbol `json:"symbols"`

	byName map[string][]int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{byName: make(map[string][]int)}
}

// Collect walks a file's tree and records every function and class
// definition. Methods are qualified with their class name.
func (x *Index) Collect(file string, tree *ir.Node) {
	x.collect(file, tree, tree, "")
}

func (x *Index) collect(file string, root, n *ir.Node, class string) {
	switch n.Kind {
	case ir.KindFuncDef:
		kind := "function"
		qualified := n.Name
		if class != "" {
			kind = "method"
			qualified = class + "." + n.Name
		}
		x.add(file, root, n, kind, qualified)
	case ir.KindClassDef:
		x.add(file, root, n, "class", n.Name)
		class = n.Name
	}
	for _, c := range n.Children {
		x.collect(file, root, c, class)
	}
}

func (x *Index) add(file string, root, n *ir.Node, kind, qualified string) {
	path, _ := root.Path(n)
	sym := Symbol{
		File:      file,
		NodeID:    source.NodeID(path),
		Kind:      kind,
		Name:      n.Name,
		Qualified: qualified,
	}
	if n.Origin != nil {
		sym.StartLine = n.Origin.StartLine
		sym.EndLine = n.Origin.EndLine
	}
	x.byName[sym.Name] = append(x.byName[sym.Name], len(x.Symbols))
	x.Symbols = append(x.Symbols, sym)
}

// Lookup returns every symbol with the given unqualified name.
func (x *Index) Lookup(name string) []Symbol {
	var out []Symbol
	for _, i := range x.byName[name] {
		out = append(out, x.Symbols[i])
	}
	return out
}

// Len returns the number of indexed symbols.
func (x *Index) Len() int {
	return len(x.Symbols)
}

// Sort orders symbols by file then source position for stable output.
func (x *Index) Sort() {
	sort.SliceStable(x.Symbols, func(i, j int) bool {
		a, b := x.Symbols[i], x.Symbols[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.StartLine < b.StartLine
	})
	x.rebuild()
}

// Save persists the index to a JSON file.
func (x *Index) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(x); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// Load reads an index from a JSON file.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	x := NewIndex()
	if err := json.NewDecoder(f).Decode(x); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}

	// The name lookup map is not serialized.
	x.rebuild()
	return x, nil
}

func (x *Index) rebuild() {
	x.byName = make(map[string][]int)
	for i, s := range x.Symbols {
		x.byName[s.Name] = append(x.byName[s.Name], i)
	}
}
