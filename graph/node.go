// ABOUTME: Node type for the workflow graph: one pipeline step with typed ports and an open config map.
// ABOUTME: Provides handle lookup by id and direction plus deep cloning of the JSON-shaped data map.
package graph

// Position is a 2D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a graph vertex representing one pipeline step. Type names a node
// kind registered externally; Data holds kind-specific configuration and the
// last computed output, both opaque to the graph core. Handles declared here
// on the instance take precedence over the node type's defaults.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label,omitempty"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
	Handles  []Handle       `json:"handles,omitempty"`
}

// FindHandle returns the instance-level handle with the given id, or nil.
func (n *Node) FindHandle(id string) *Handle {
	for i := range n.Handles {
		if n.Handles[i].ID == id {
			return &n.Handles[i]
		}
	}
	return nil
}

// HandlesByDirection returns the instance-level handles whose canonical
// direction matches dir, preserving declaration order.
func (n *Node) HandlesByDirection(dir Direction) []Handle {
	var out []Handle
	want := dir.Canonical()
	for _, h := range n.Handles {
		if h.Direction.Canonical() == want {
			out = append(out, h)
		}
	}
	return out
}

// Clone returns a deep copy of the node. The data map is copied recursively
// so mutations of the clone never reach the original.
func (n *Node) Clone() *Node {
	out := &Node{
		ID:       n.ID,
		Type:     n.Type,
		Label:    n.Label,
		Position: n.Position,
	}
	if n.Data != nil {
		out.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			out.Data[k] = cloneValue(v)
		}
	}
	if n.Handles != nil {
		out.Handles = make([]Handle, len(n.Handles))
		copy(out.Handles, n.Handles)
	}
	return out
}

// cloneValue deep-copies the JSON-shaped values stored in a node's data map.
// Scalars are returned as-is; maps and slices are copied recursively.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
