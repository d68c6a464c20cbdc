// ABOUTME: Command is a tagged union representing all operations on a workflow document.
// ABOUTME: Nine variants decoded from a {command, arguments} envelope with loose JSON payloads.
package core

import (
	"encoding/json"
	"fmt"

	"github.com/2389-research/noder/graph"
)

// Command represents one operation against the mutation gateway.
type Command interface {
	CommandName() string
	commandSeal()
}

// NodeSpec describes one node to create. Omitted fields are filled in by the
// gateway: ids are generated, positions come from the grid layout, data is
// seeded from the node type's constructor.
type NodeSpec struct {
	ID             string          `json:"id,omitempty"`
	Type           string          `json:"type"`
	Label          string          `json:"label,omitempty"`
	Position       *graph.Position `json:"position,omitempty"`
	Data           map[string]any  `json:"data,omitempty"`
	Handles        []graph.Handle  `json:"handles,omitempty"`
	ExecutionOrder *float64        `json:"executionOrder,omitempty"`
}

// EdgeSpec describes one connection to attempt. Handles may be omitted; the
// gateway resolves them, using DataType as a kind hint when given.
type EdgeSpec struct {
	Source       string     `json:"source"`
	SourceHandle string     `json:"sourceHandle,omitempty"`
	Target       string     `json:"target"`
	TargetHandle string     `json:"targetHandle,omitempty"`
	DataType     graph.Kind `json:"dataType,omitempty"`
}

// EdgeMatcher selects edges for deletion. Source and target are required;
// a nil handle constraint matches edges regardless of that handle.
type EdgeMatcher struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
	TargetHandle *string `json:"targetHandle,omitempty"`
}

// Matches reports whether the edge satisfies every constraint present in the matcher.
func (m EdgeMatcher) Matches(e *graph.Edge) bool {
	if e.Source != m.Source || e.Target != m.Target {
		return false
	}
	if m.SourceHandle != nil && e.SourceHandle != *m.SourceHandle {
		return false
	}
	if m.TargetHandle != nil && e.TargetHandle != *m.TargetHandle {
		return false
	}
	return true
}

// CreateCommand creates nodes and optionally connects them. Replace discards
// the existing document and mirror first.
type CreateCommand struct {
	Nodes   []NodeSpec `json:"nodes,omitempty"`
	Edges   []EdgeSpec `json:"edges,omitempty"`
	Replace bool       `json:"replace,omitempty"`
}

func (c CreateCommand) CommandName() string { return "create" }
func (c CreateCommand) commandSeal()        {}

// ConnectCommand attempts connections against the current document.
type ConnectCommand struct {
	Edges []EdgeSpec `json:"edges"`
}

func (c ConnectCommand) CommandName() string { return "connect" }
func (c ConnectCommand) commandSeal()        {}

// ValidateCommand runs the edge rules over the current document without mutating it.
type ValidateCommand struct{}

func (c ValidateCommand) CommandName() string { return "validate" }
func (c ValidateCommand) commandSeal()        {}

// GetStateCommand returns the full document with counts and history availability.
type GetStateCommand struct{}

func (c GetStateCommand) CommandName() string { return "getState" }
func (c GetStateCommand) commandSeal()        {}

// GetNodeCommand returns one node and every edge touching it.
type GetNodeCommand struct {
	ID string `json:"id"`
}

func (c GetNodeCommand) CommandName() string { return "getNode" }
func (c GetNodeCommand) commandSeal()        {}

// UpdateNodeCommand shallow-merges a data patch into a node and/or replaces its label.
type UpdateNodeCommand struct {
	ID    string         `json:"id"`
	Data  map[string]any `json:"data,omitempty"`
	Label *string        `json:"label,omitempty"`
}

func (c UpdateNodeCommand) CommandName() string { return "updateNode" }
func (c UpdateNodeCommand) commandSeal()        {}

// DeleteNodesCommand removes nodes and cascade-removes their edges.
type DeleteNodesCommand struct {
	IDs []string `json:"ids"`
}

func (c DeleteNodesCommand) CommandName() string { return "deleteNodes" }
func (c DeleteNodesCommand) commandSeal()        {}

// DeleteEdgesCommand removes every edge matched by any of the matchers.
type DeleteEdgesCommand struct {
	Edges []EdgeMatcher `json:"edges"`
}

func (c DeleteEdgesCommand) CommandName() string { return "deleteEdges" }
func (c DeleteEdgesCommand) commandSeal()        {}

// ClearCommand empties the document. Refused unless Confirm is true.
type ClearCommand struct {
	Confirm bool `json:"confirm,omitempty"`
}

func (c ClearCommand) CommandName() string { return "clear" }
func (c ClearCommand) commandSeal()        {}

// Request is the wire envelope for the command surface.
type Request struct {
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// DecodeRequest parses a raw request envelope into a typed Command.
// Malformed payloads come back as ArgumentError so callers can recover.
func DecodeRequest(data []byte) (Command, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &ArgumentError{Reason: fmt.Sprintf("malformed request envelope: %v", err)}
	}
	if req.Command == "" {
		return nil, &ArgumentError{Reason: "missing command name"}
	}
	return DecodeCommand(req.Command, req.Arguments)
}

// DecodeCommand resolves a command name and argument payload to a typed Command.
func DecodeCommand(name string, args json.RawMessage) (Command, error) {
	switch name {
	case "create":
		var c CreateCommand
		return c, unmarshalArgs(name, args, &c)
	case "connect":
		var c ConnectCommand
		return c, unmarshalArgs(name, args, &c)
	case "validate":
		return ValidateCommand{}, nil
	case "getState":
		return GetStateCommand{}, nil
	case "getNode":
		var c GetNodeCommand
		return c, unmarshalArgs(name, args, &c)
	case "updateNode":
		var c UpdateNodeCommand
		return c, unmarshalArgs(name, args, &c)
	case "deleteNodes":
		var c DeleteNodesCommand
		return c, unmarshalArgs(name, args, &c)
	case "deleteEdges":
		var c DeleteEdgesCommand
		return c, unmarshalArgs(name, args, &c)
	case "clear":
		var c ClearCommand
		return c, unmarshalArgs(name, args, &c)
	default:
		return nil, &UnknownCommandError{Name: name}
	}
}

// MarshalCommand serializes a Command back into its request envelope.
func MarshalCommand(c Command) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cannot marshal nil command")
	}
	args, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Request{Command: c.CommandName(), Arguments: args})
}

// unmarshalArgs decodes an argument payload into dst. An absent payload
// leaves dst at its zero value; a malformed one becomes ArgumentError.
func unmarshalArgs(name string, args json.RawMessage, dst any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return &ArgumentError{Reason: fmt.Sprintf("malformed arguments for %s: %v", name, err)}
	}
	return nil
}
