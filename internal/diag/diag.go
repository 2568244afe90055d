package diag

import (
	"fmt"
	"sort"
	"sync"

	"porter/internal/source"
)

// Severity ranks how serious a diagnostic is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Code identifies the condition a diagnostic reports.
type Code string

const (
	CodeParseError           Code = "ParseError"
	CodeUnsupportedConstruct Code = "UnsupportedConstruct"
	CodeSafetyCheckFailed    Code = "SafetyCheckFailed"
	CodePatchOutOfBounds     Code = "PatchOutOfBounds"
	CodePatchConflict        Code = "PatchConflict"
	CodeResolverTimeout      Code = "ResolverTimeout"
	CodeResolverFailure      Code = "ResolverFailure"
	CodeAmbiguousConstruct   Code = "AmbiguousConstruct"
)

// Diagnostic is a single flagged decision or failure from a pipeline stage.
// Diagnostics are append-only: once recorded they are never mutated or removed.
type Diagnostic struct {
	Code     Code          `json:"code"`
	Severity Severity      `json:"severity"`
	Stage    string        `json:"stage"`
	NodeID   source.NodeID `json:"node_id,omitempty"`
	Span     *source.Span  `json:"span,omitempty"`
	Message  string        `json:"message"`
}

func (d Diagnostic) String() string {
	loc := string(d.NodeID)
	if d.Span != nil {
		loc = d.Span.String()
	}
	return fmt.Sprintf("[%s] %s %s: %s", d.Severity, d.Code, loc, d.Message)
}

// Log is the per-file append-only diagnostics record. It is the audit trail
// for every stage decision. Safe for concurrent appends, though the per-file
// pipeline itself is sequential.
type Log struct {
	mu      sync.Mutex
	entries []Diagnostic
}

// NewLog creates an empty diagnostics log.
func NewLog() *Log {
	return &Log{}
}

// Add appends a diagnostic to the log.
func (l *Log) Add(d Diagnostic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, d)
}

// Addf appends a diagnostic built from a format string.
func (l *Log) Addf(code Code, sev Severity, stage string, nodeID source.NodeID, span *source.Span, format string, args ...interface{}) {
	l.Add(Diagnostic{
		Code:     code,
		Severity: sev,
		Stage:    stage,
		NodeID:   nodeID,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	})
}

// All returns a copy of every recorded diagnostic in append order.
func (l *Log) All() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.entries))
	copy(out, l.entries)
	return out
}

// ForNode returns the diagnostics recorded against a specific node id.
func (l *Log) ForNode(id source.NodeID) []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Diagnostic
	for _, d := range l.entries {
		if d.NodeID == id {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of diagnostics matching code. An empty code
// counts everything.
func (l *Log) Count(code Code) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if code == "" {
		return len(l.entries)
	}
	n := 0
	for _, d := range l.entries {
		if d.Code == code {
			n++
		}
	}
	return n
}

// CountsBySeverity summarizes the log for reporting.
func (l *Log) CountsBySeverity() map[Severity]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Severity]int)
	for _, d := range l.entries {
		out[d.Severity]++
	}
	return out
}

// Codes returns the distinct diagnostic codes present, sorted.
func (l *Log) Codes() []Code {
	l.mu.Lock()
	defer l.mu.Unlock()
	set := make(map[Code]bool)
	for _, d := range l.entries {
		set[d.Code] = true
	}
	codes := make([]Code, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
