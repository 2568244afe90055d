package source

import "fmt"

// Span is an immutable reference to a contiguous range of a source file.
// Offsets are byte offsets; Line and Column are 1-based / 0-based as
// reported by the parser.
type Span struct {
	File        string `json:"file"`
	StartByte   int    `json:"start_byte"`
	EndByte     int    `json:"end_byte"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	StartColumn int    `json:"start_column"`
	EndColumn   int    `json:"end_column"`
}

// Valid reports whether the span describes a well-formed range.
func (s Span) Valid() bool {
	return s.StartByte >= 0 && s.StartByte <= s.EndByte
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int {
	return s.EndByte - s.StartByte
}

// Contains reports whether other lies fully inside s.
func (s Span) Contains(other Span) bool {
	return other.StartByte >= s.StartByte && other.EndByte <= s.EndByte
}

// Slice extracts the span's bytes from the file content it was built against.
func (s Span) Slice(src []byte) string {
	if !s.Valid() || s.EndByte > len(src) {
		return ""
	}
	return string(src[s.StartByte:s.EndByte])
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartColumn)
}

// NodeID identifies a node by its path of child indices from the root,
// e.g. "0.3.1". Paths are stable across re-parses of identical input and
// independent of node content.
type NodeID string

// ChildID extends a node id with one more path segment.
func ChildID(parent NodeID, index int) NodeID {
	if parent == "" {
		return NodeID(fmt.Sprintf("%d", index))
	}
	return NodeID(fmt.Sprintf("%s.%d", parent, index))
}

// RootID is the id of a file's module node.
const RootID NodeID = "0"

// Map indexes node ids to their origin spans. It is created once at parse
// time and read-only afterwards.
type Map struct {
	spans map[NodeID]Span
}

// NewMap creates an empty source map.
func NewMap() *Map {
	return &Map{spans: make(map[NodeID]Span)}
}

// Put records the span for a node id. Later writes for the same id are
// ignored so the parse-time mapping stays authoritative.
func (m *Map) Put(id NodeID, span Span) {
	if _, ok := m.spans[id]; ok {
		return
	}
	m.spans[id] = span
}

// Get returns the span recorded for id.
func (m *Map) Get(id NodeID) (Span, bool) {
	s, ok := m.spans[id]
	return s, ok
}

// Len returns the number of mapped nodes.
func (m *Map) Len() int {
	return len(m.spans)
}
