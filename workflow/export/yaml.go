// ABOUTME: Exports a workflow document as a structured YAML summary.
// ABOUTME: Uses gopkg.in/yaml.v3 for serialization with deterministic ordering.
package export

import (
	"fmt"
	"sort"

	"github.com/2389-research/noder/graph"
	"gopkg.in/yaml.v3"
)

// YamlHandle is a serializable YAML representation of a node handle.
type YamlHandle struct {
	ID        string `yaml:"id"`
	Direction string `yaml:"direction"`
	Kind      string `yaml:"kind,omitempty"`
}

// YamlNode is a serializable YAML representation of a workflow node.
type YamlNode struct {
	ID      string         `yaml:"id"`
	Type    string         `yaml:"type"`
	Label   string         `yaml:"label,omitempty"`
	X       float64        `yaml:"x"`
	Y       float64        `yaml:"y"`
	Data    map[string]any `yaml:"data,omitempty"`
	Handles []YamlHandle   `yaml:"handles,omitempty"`
}

// YamlEdge is a serializable YAML representation of a workflow edge.
type YamlEdge struct {
	ID           string `yaml:"id"`
	Source       string `yaml:"source"`
	SourceHandle string `yaml:"source_handle,omitempty"`
	Target       string `yaml:"target"`
	TargetHandle string `yaml:"target_handle,omitempty"`
}

// YamlWorkflow is the top-level serializable YAML representation of a document.
type YamlWorkflow struct {
	Name    string     `yaml:"name"`
	Version string     `yaml:"version"`
	Nodes   []YamlNode `yaml:"nodes"`
	Edges   []YamlEdge `yaml:"edges"`
}

// ExportYAML exports a document as structured YAML.
//
// Nodes keep document order; edges are sorted by id so repeated exports of the
// same document are byte-identical.
func ExportYAML(doc *graph.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document must not be nil")
	}

	nodes := make([]YamlNode, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		yn := YamlNode{
			ID:    n.ID,
			Type:  n.Type,
			Label: n.Label,
			X:     n.Position.X,
			Y:     n.Position.Y,
			Data:  n.Data,
		}
		if len(n.Handles) > 0 {
			yn.Handles = make([]YamlHandle, 0, len(n.Handles))
			for _, h := range n.Handles {
				yn.Handles = append(yn.Handles, YamlHandle{
					ID:        h.ID,
					Direction: string(h.Direction),
					Kind:      string(h.Kind),
				})
			}
		}
		nodes = append(nodes, yn)
	}

	edges := make([]YamlEdge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		edges = append(edges, YamlEdge{
			ID:           e.ID,
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
		})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	workflow := YamlWorkflow{
		Name:    doc.Name,
		Version: "0.1",
		Nodes:   nodes,
		Edges:   edges,
	}

	data, err := yaml.Marshal(&workflow)
	if err != nil {
		return "", fmt.Errorf("yaml marshal: %w", err)
	}
	return string(data), nil
}
