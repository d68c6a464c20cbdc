// ABOUTME: Edge type connecting one output handle to one input handle, with content-addressed identity.
// ABOUTME: The edge id is derived deterministically from its endpoints so duplicates collapse to one id.
package graph

import "fmt"

// EdgeID derives the deterministic identifier for an edge between the given
// endpoints. Re-deriving for the same endpoints always yields the same id,
// so there can never be duplicate parallel edges between the same two ports.
func EdgeID(source, sourceHandle, target, targetHandle string) string {
	return fmt.Sprintf("%s-%s-%s-%s", source, sourceHandle, target, targetHandle)
}

// Edge is a directed connection from an output handle on the source node to
// an input handle on the target node. IsProcessing is a transient flag owned
// by the execution layer; the graph core carries it but never reads it.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle,omitempty"`
	IsProcessing bool   `json:"isProcessing,omitempty"`
}

// NewEdge constructs an edge with its id derived from the endpoints.
func NewEdge(source, sourceHandle, target, targetHandle string) *Edge {
	return &Edge{
		ID:           EdgeID(source, sourceHandle, target, targetHandle),
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	}
}

// DerivedID returns the id the edge's current endpoints derive to. A stored
// edge is consistent when ID equals DerivedID.
func (e *Edge) DerivedID() string {
	return EdgeID(e.Source, e.SourceHandle, e.Target, e.TargetHandle)
}

// Touches reports whether the edge has nodeID as its source or target.
func (e *Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	out := *e
	return &out
}
