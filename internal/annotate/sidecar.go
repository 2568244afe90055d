package annotate

import (
	"encoding/json"
	"sort"

	"porter/internal/diag"
	"porter/internal/source"
)

// SidecarEntry is the machine-readable record for one labeled node.
type SidecarEntry struct {
	Label       ChunkLabel        `json:"label"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// Sidecar is the metadata file emitted alongside the annotated mirror,
// keyed by node id.
type Sidecar struct {
	File    string                         `json:"file"`
	Entries map[source.NodeID]SidecarEntry `json:"entries"`
}

// BuildSidecar joins labels with the diagnostics recorded against the same
// nodes.
func BuildSidecar(file string, labels []ChunkLabel, log *diag.Log) *Sidecar {
	sc := &Sidecar{File: file, Entries: make(map[source.NodeID]SidecarEntry)}
	for _, l := range labels {
		sc.Entries[l.NodeID] = SidecarEntry{
			Label:       l,
			Diagnostics: log.ForNode(l.NodeID),
		}
	}
	return sc
}

// Marshal renders the sidecar as stable, indented JSON.
func (s *Sidecar) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// NodeIDs returns the labeled node ids in sorted order.
func (s *Sidecar) NodeIDs() []source.NodeID {
	ids := make([]source.NodeID, 0, len(s.Entries))
	for id := range s.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
