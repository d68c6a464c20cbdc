// ABOUTME: Explicit node type registry supplying default handle lists and fresh data maps per type.
// ABOUTME: Constructed and passed in rather than ambient, so the core is testable with a fake catalog.
package graph

// NodeType describes one registered kind of node: its default handle list and
// a constructor for a fresh node's initial data map.
type NodeType struct {
	Name           string
	Label          string
	DefaultHandles []Handle

	// NewData builds the initial data map for a freshly created node of this
	// type. May be nil for types with no default configuration.
	NewData func() map[string]any
}

// NodeTypeRegistry is the catalog of node types a document may contain. It is
// an explicit value handed to the mutation gateway and the validation engine
// at construction time.
type NodeTypeRegistry struct {
	order []string
	types map[string]NodeType
}

// NewNodeTypeRegistry returns an empty registry.
func NewNodeTypeRegistry() *NodeTypeRegistry {
	return &NodeTypeRegistry{types: make(map[string]NodeType)}
}

// Register adds or replaces a node type.
func (r *NodeTypeRegistry) Register(t NodeType) {
	if _, exists := r.types[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.types[t.Name] = t
}

// Lookup returns the node type with the given name.
func (r *NodeTypeRegistry) Lookup(name string) (NodeType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Has reports whether a node type with the given name is registered.
func (r *NodeTypeRegistry) Has(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Names returns the registered type names in registration order.
func (r *NodeTypeRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultHandles returns the default handle list for the named type, or nil
// if the type is unknown.
func (r *NodeTypeRegistry) DefaultHandles(name string) []Handle {
	t, ok := r.types[name]
	if !ok {
		return nil
	}
	return t.DefaultHandles
}

// NewNodeData builds a fresh initial data map for the named type. Returns an
// empty map for unknown types or types without a constructor.
func (r *NodeTypeRegistry) NewNodeData(name string) map[string]any {
	t, ok := r.types[name]
	if !ok || t.NewData == nil {
		return map[string]any{}
	}
	data := t.NewData()
	if data == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

// BuiltinRegistry returns the standard node catalog of the desktop editor:
// text, image, video, and audio generators plus an image upscaler. The
// modelDefaults map seeds each type's initial "model" entry, keyed by type
// name; missing or empty entries leave the model unset.
func BuiltinRegistry(modelDefaults map[string]string) *NodeTypeRegistry {
	newData := func(typeName string, extra map[string]any) func() map[string]any {
		return func() map[string]any {
			data := map[string]any{}
			if m := modelDefaults[typeName]; m != "" {
				data["model"] = m
			}
			for k, v := range extra {
				data[k] = v
			}
			return data
		}
	}

	r := NewNodeTypeRegistry()
	r.Register(NodeType{
		Name:  "text",
		Label: "Text",
		DefaultHandles: []Handle{
			{ID: "prompt-in", Direction: DirectionInput, Kind: KindText},
			{ID: "text-out", Direction: DirectionOutput, Kind: KindText},
		},
		NewData: newData("text", map[string]any{"prompt": ""}),
	})
	r.Register(NodeType{
		Name:  "image",
		Label: "Image",
		DefaultHandles: []Handle{
			{ID: "prompt-in", Direction: DirectionInput, Kind: KindText},
			{ID: "image-in", Direction: DirectionInput, Kind: KindImage},
			{ID: "image-out", Direction: DirectionOutput, Kind: KindImage},
		},
		NewData: newData("image", nil),
	})
	r.Register(NodeType{
		Name:  "video",
		Label: "Video",
		DefaultHandles: []Handle{
			{ID: "prompt-in", Direction: DirectionInput, Kind: KindText},
			{ID: "image-in", Direction: DirectionInput, Kind: KindImage},
			{ID: "video-out", Direction: DirectionOutput, Kind: KindVideo},
		},
		NewData: newData("video", nil),
	})
	r.Register(NodeType{
		Name:  "audio",
		Label: "Audio",
		DefaultHandles: []Handle{
			{ID: "prompt-in", Direction: DirectionInput, Kind: KindText},
			{ID: "audio-out", Direction: DirectionOutput, Kind: KindAudio},
		},
		NewData: newData("audio", nil),
	})
	r.Register(NodeType{
		Name:  "upscale",
		Label: "Upscale",
		DefaultHandles: []Handle{
			{ID: "image-in", Direction: DirectionInput, Kind: KindImage},
			{ID: "image-out", Direction: DirectionOutput, Kind: KindImage},
		},
		NewData: newData("upscale", nil),
	})
	return r
}
