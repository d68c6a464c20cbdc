// ABOUTME: Structural snapshots of a document's nodes and edges for history capture.
// ABOUTME: Canonical encoding sorts edges by id so identical states digest identically.
package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Snapshot holds a deep copy of a document's structural state. Viewport and
// metadata are deliberately outside it; undo and redo move nodes and edges
// only.
type Snapshot struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Capture deep-copies the document's nodes and edges into a snapshot. Edges
// are sorted by id so the canonical encoding of equal states is identical.
func (d *Document) Capture() *Snapshot {
	s := &Snapshot{
		Nodes: make([]*Node, 0, len(d.Nodes)),
		Edges: make([]*Edge, 0, len(d.Edges)),
	}
	for _, n := range d.Nodes {
		s.Nodes = append(s.Nodes, n.Clone())
	}
	for _, e := range d.Edges {
		s.Edges = append(s.Edges, e.Clone())
	}
	sort.Slice(s.Edges, func(i, j int) bool { return s.Edges[i].ID < s.Edges[j].ID })
	return s
}

// Canonical encodes the snapshot deterministically. Map keys are sorted by
// the encoder and edges were sorted at capture, so equal states produce
// byte-identical output.
func (s *Snapshot) Canonical() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a canonical snapshot encoding.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Nodes == nil {
		s.Nodes = []*Node{}
	}
	if s.Edges == nil {
		s.Edges = []*Edge{}
	}
	return &s, nil
}

// Restore replaces the document's nodes and edges with deep copies of the
// snapshot's. Document identity, name, viewport and metadata are untouched.
func (d *Document) Restore(s *Snapshot) {
	nodes := make([]*Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes = append(nodes, n.Clone())
	}
	edges := make([]*Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		edges = append(edges, e.Clone())
	}
	d.Nodes = nodes
	d.Edges = edges
}
