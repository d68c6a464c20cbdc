// ABOUTME: Handle kind and direction resolution chains plus automatic handle selection for edges.
// ABOUTME: Resolvers run in order (instance handles, type defaults) and short-circuit on the first hit.
package graph

// ResolvedKind is the outcome of resolving a handle's kind. Declared is true
// when the kind came from handle metadata (instance or type default); it is
// false when the resolution fell through to the direction-string fallback,
// which exists so validation never fails solely because metadata is absent.
type ResolvedKind struct {
	Kind     Kind
	Declared bool
}

// kindResolver attempts to resolve the kind of one handle on one node,
// returning false when its source has no answer.
type kindResolver func(reg *NodeTypeRegistry, node *Node, handleID string) (Kind, bool)

// kindResolvers is the ordered resolution chain. The direction-string
// fallback is applied by ResolveKind after the chain is exhausted.
var kindResolvers = []kindResolver{
	kindFromInstance,
	kindFromTypeDefaults,
}

func kindFromInstance(_ *NodeTypeRegistry, node *Node, handleID string) (Kind, bool) {
	h := node.FindHandle(handleID)
	if h == nil || h.Kind == "" {
		return "", false
	}
	return h.Kind, true
}

func kindFromTypeDefaults(reg *NodeTypeRegistry, node *Node, handleID string) (Kind, bool) {
	if reg == nil {
		return "", false
	}
	for _, h := range reg.DefaultHandles(node.Type) {
		if h.ID == handleID && h.Kind != "" {
			return h.Kind, true
		}
	}
	return "", false
}

// ResolveKind resolves the kind of the handle with the given id on node,
// walking the resolver chain and short-circuiting on the first hit. When no
// declared kind exists anywhere, the canonical direction string of the role
// the edge assigns the handle becomes the kind, marked undeclared.
func ResolveKind(reg *NodeTypeRegistry, node *Node, handleID string, role Direction) ResolvedKind {
	for _, resolve := range kindResolvers {
		if k, ok := resolve(reg, node, handleID); ok {
			return ResolvedKind{Kind: k, Declared: true}
		}
	}
	return ResolvedKind{Kind: Kind(role.Canonical())}
}

// ResolveDirection returns the declared direction of the handle with the
// given id, checking the instance handle list and then the node type's
// defaults. The second return is false when no declaration exists, in which
// case the handle's direction is whatever role the edge assigns it.
func ResolveDirection(reg *NodeTypeRegistry, node *Node, handleID string) (Direction, bool) {
	if h := node.FindHandle(handleID); h != nil && h.Direction != "" {
		return h.Direction, true
	}
	if reg != nil {
		for _, h := range reg.DefaultHandles(node.Type) {
			if h.ID == handleID && h.Direction != "" {
				return h.Direction, true
			}
		}
	}
	return "", false
}

// EffectiveHandles returns the handle list in force for a node: the instance
// declaration when present, otherwise the node type's defaults.
func EffectiveHandles(reg *NodeTypeRegistry, node *Node) []Handle {
	if len(node.Handles) > 0 {
		return node.Handles
	}
	if reg == nil {
		return nil
	}
	return reg.DefaultHandles(node.Type)
}

// PickHandle selects a handle id on node for an edge endpoint whose spec
// omitted one. Among the handles of the required direction, preference order
// is: exact kind match with the hint, compatible kind with the hint, exact
// kind match with the other endpoint's resolved kind, compatible kind with
// it, and finally the first handle of the direction. Returns false when the
// node has no handle of the required direction at all.
func PickHandle(reg *NodeTypeRegistry, node *Node, dir Direction, hint Kind, otherKind Kind) (string, bool) {
	var candidates []Handle
	want := dir.Canonical()
	for _, h := range EffectiveHandles(reg, node) {
		if h.Direction.Canonical() == want {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	for _, prefer := range []Kind{hint, otherKind} {
		if prefer == "" {
			continue
		}
		for _, h := range candidates {
			if h.Kind == prefer {
				return h.ID, true
			}
		}
		for _, h := range candidates {
			if h.Kind != "" && Compatible(h.Kind, prefer) {
				return h.ID, true
			}
		}
	}
	return candidates[0].ID, true
}
