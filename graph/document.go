// ABOUTME: Document aggregate holding the ordered node list, edge set, and workflow metadata.
// ABOUTME: Provides lookups, cascade removal, deep cloning, and lossless JSON round-tripping.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// SchemaVersion is the persisted document schema this package produces.
const SchemaVersion = 1

// Viewport is the saved camera state of the canvas.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Document is the full workflow graph at one point in time: an ordered list
// of nodes (visual/priority order, not execution order), an unordered set of
// edges, and workflow metadata. Node ids are unique within a document; edge
// ids are unique and consistent with their endpoints.
type Document struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	SchemaVersion int            `json:"schemaVersion"`
	Nodes         []*Node        `json:"nodes"`
	Edges         []*Edge        `json:"edges"`
	Viewport      Viewport       `json:"viewport"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewDocument returns an empty document with a fresh ULID id.
func NewDocument(name string) *Document {
	return &Document{
		ID:            ulid.Make().String(),
		Name:          name,
		SchemaVersion: SchemaVersion,
		Nodes:         []*Node{},
		Edges:         []*Edge{},
		Viewport:      Viewport{Zoom: 1},
	}
}

// FindNode returns the node with the given id, or nil if not found.
func (d *Document) FindNode(id string) *Node {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// HasNode reports whether a node with the given id exists.
func (d *Document) HasNode(id string) bool {
	return d.FindNode(id) != nil
}

// AddNode appends a node to the document. Callers are responsible for id
// uniqueness; the mutation gateway resolves collisions before calling this.
func (d *Document) AddNode(n *Node) {
	d.Nodes = append(d.Nodes, n)
}

// FindEdge returns the edge with the given id, or nil if not found.
func (d *Document) FindEdge(id string) *Edge {
	for _, e := range d.Edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// HasEdge reports whether an edge with the given id exists.
func (d *Document) HasEdge(id string) bool {
	return d.FindEdge(id) != nil
}

// AddEdge appends an edge unless one with the same id already exists.
// Returns whether the edge was added.
func (d *Document) AddEdge(e *Edge) bool {
	if d.HasEdge(e.ID) {
		return false
	}
	d.Edges = append(d.Edges, e)
	return true
}

// RemoveEdge deletes the edge with the given id. Returns whether it existed.
func (d *Document) RemoveEdge(id string) bool {
	for i, e := range d.Edges {
		if e.ID == id {
			d.Edges = append(d.Edges[:i], d.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// EdgesTouching returns every edge whose source or target is the given node.
func (d *Document) EdgesTouching(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range d.Edges {
		if e.Touches(nodeID) {
			out = append(out, e)
		}
	}
	return out
}

// RemoveNodes deletes the named nodes and cascade-deletes every edge touching
// any of them. Ids with no matching node are ignored. Returns the removed
// node ids and the cascaded edge ids, in document order.
func (d *Document) RemoveNodes(ids ...string) (removedNodes []string, removedEdges []string) {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if d.HasNode(id) {
			doomed[id] = true
		}
	}
	if len(doomed) == 0 {
		return nil, nil
	}

	keptNodes := d.Nodes[:0]
	for _, n := range d.Nodes {
		if doomed[n.ID] {
			removedNodes = append(removedNodes, n.ID)
			continue
		}
		keptNodes = append(keptNodes, n)
	}
	d.Nodes = keptNodes

	keptEdges := d.Edges[:0]
	for _, e := range d.Edges {
		if doomed[e.Source] || doomed[e.Target] {
			removedEdges = append(removedEdges, e.ID)
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	d.Edges = keptEdges

	return removedNodes, removedEdges
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		ID:            d.ID,
		Name:          d.Name,
		SchemaVersion: d.SchemaVersion,
		Nodes:         make([]*Node, len(d.Nodes)),
		Edges:         make([]*Edge, len(d.Edges)),
		Viewport:      d.Viewport,
	}
	for i, n := range d.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range d.Edges {
		out.Edges[i] = e.Clone()
	}
	if d.Metadata != nil {
		out.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = cloneValue(v)
		}
	}
	return out
}

// Marshal encodes the document as indented JSON in the persisted shape.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ParseDocument decodes a persisted document and normalizes it: nil node and
// edge slices become empty, edges with a missing or stale id get the id their
// endpoints derive to, and a later edge duplicating an earlier id is dropped.
// Duplicate node ids are an unrecoverable inconsistency and are rejected.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = []*Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []*Edge{}
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = SchemaVersion
	}

	seenNodes := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if seenNodes[n.ID] {
			return nil, fmt.Errorf("parse document: duplicate node id %q", n.ID)
		}
		seenNodes[n.ID] = true
	}

	seenEdges := make(map[string]bool, len(doc.Edges))
	kept := doc.Edges[:0]
	for _, e := range doc.Edges {
		if derived := e.DerivedID(); e.ID != derived {
			e.ID = derived
		}
		if seenEdges[e.ID] {
			continue
		}
		seenEdges[e.ID] = true
		kept = append(kept, e)
	}
	doc.Edges = kept

	return &doc, nil
}
