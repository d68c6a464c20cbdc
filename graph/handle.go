// ABOUTME: Handle and Direction types for the typed, directional ports on a node.
// ABOUTME: Accepts source/target as synonyms for output/input and canonicalizes at comparison time.
package graph

// Direction marks which way data flows through a handle.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"

	// Wire synonyms: edge endpoints in the persisted shape call their
	// handles source and target, so both spellings are accepted.
	DirectionSource Direction = "source"
	DirectionTarget Direction = "target"
)

// Canonical maps the accepted synonyms onto input or output. Unrecognized
// values are returned unchanged.
func (d Direction) Canonical() Direction {
	switch d {
	case DirectionOutput, DirectionSource:
		return DirectionOutput
	case DirectionInput, DirectionTarget:
		return DirectionInput
	}
	return d
}

// IsOutput reports whether the direction canonicalizes to output.
func (d Direction) IsOutput() bool {
	return d.Canonical() == DirectionOutput
}

// IsInput reports whether the direction canonicalizes to input.
func (d Direction) IsInput() bool {
	return d.Canonical() == DirectionInput
}

// Handle is a typed, directional port on a node through which edges attach.
// The id is unique within the owning node. Kind may be empty when the
// declaring document carried no kind metadata for the port.
type Handle struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Kind      Kind      `json:"kind,omitempty"`
}
