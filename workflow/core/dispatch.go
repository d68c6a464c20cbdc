// ABOUTME: Command surface: thin dispatch from decoded commands to gateway calls.
// ABOUTME: Mutating commands snapshot history first; failures come back as error payloads, never panics.
package core

import (
	"encoding/json"
	"errors"
)

// Error kinds carried in error payloads so callers can classify failures.
// Edge validation rejections are not an error kind; they ride in result
// payloads per edge so the rest of a batch can still apply.
const (
	ErrKindNotFound     = "notFound"
	ErrKindArgument     = "argumentError"
	ErrKindConfirmation = "confirmationRequired"
	ErrKindInternal     = "internal"
)

// Execute resolves a typed command to one gateway call. Every mutating
// command takes an immediate snapshot first, so each externally visible
// mutation is individually undoable. Argument problems and the missing
// confirmation flag are rejected before the snapshot, leaving no trace.
func (e *Engine) Execute(cmd Command) (any, error) {
	if err := checkArguments(cmd); err != nil {
		return nil, err
	}

	if mutates(cmd) {
		if err := e.TakeSnapshot(true); err != nil {
			return nil, err
		}
	}

	switch c := cmd.(type) {
	case CreateCommand:
		return e.CreateNodes(c.Nodes, c.Edges, c.Replace)
	case ConnectCommand:
		return e.Connect(c.Edges)
	case ValidateCommand:
		return e.Validate(), nil
	case GetStateCommand:
		return e.State(), nil
	case GetNodeCommand:
		return e.Node(c.ID)
	case UpdateNodeCommand:
		return e.UpdateNode(c.ID, c.Data, c.Label)
	case DeleteNodesCommand:
		return e.DeleteNodes(c.IDs)
	case DeleteEdgesCommand:
		return e.DeleteEdges(c.Edges)
	case ClearCommand:
		return e.Clear(c.Confirm)
	default:
		return nil, &UnknownCommandError{Name: cmd.CommandName()}
	}
}

// checkArguments rejects commands missing required arguments before any
// mutation or snapshot happens.
func checkArguments(cmd Command) error {
	switch c := cmd.(type) {
	case GetNodeCommand:
		if c.ID == "" {
			return &ArgumentError{Reason: "getNode requires a node id"}
		}
	case UpdateNodeCommand:
		if c.ID == "" {
			return &ArgumentError{Reason: "updateNode requires a node id"}
		}
		if len(c.Data) == 0 && c.Label == nil {
			return ErrEmptyPatch
		}
	case ConnectCommand:
		if len(c.Edges) == 0 {
			return &ArgumentError{Reason: "connect requires at least one edge spec"}
		}
	case DeleteNodesCommand:
		if len(c.IDs) == 0 {
			return &ArgumentError{Reason: "deleteNodes requires at least one node id"}
		}
	case DeleteEdgesCommand:
		if len(c.Edges) == 0 {
			return &ArgumentError{Reason: "deleteEdges requires at least one edge matcher"}
		}
	case ClearCommand:
		if !c.Confirm {
			return ErrConfirmationRequired
		}
	}
	return nil
}

// mutates reports whether a command changes the document.
func mutates(cmd Command) bool {
	switch cmd.(type) {
	case CreateCommand, ConnectCommand, UpdateNodeCommand, DeleteNodesCommand, DeleteEdgesCommand, ClearCommand:
		return true
	default:
		return false
	}
}

// errorPayload is the wire shape for failed commands.
type errorPayload struct {
	Error     string `json:"error"`
	ErrorKind string `json:"errorKind"`
}

// classifyError maps an error to its taxonomy kind.
func classifyError(err error) string {
	var notFound *NodeNotFoundError
	var argument *ArgumentError
	var unknown *UnknownCommandError
	switch {
	case errors.Is(err, ErrConfirmationRequired):
		return ErrKindConfirmation
	case errors.As(err, &notFound):
		return ErrKindNotFound
	case errors.As(err, &argument), errors.As(err, &unknown), errors.Is(err, ErrEmptyPatch):
		return ErrKindArgument
	default:
		return ErrKindInternal
	}
}

// errorJSON renders an error payload. Marshaling a flat struct of two
// strings cannot fail, so the fallback literal is unreachable in practice.
func errorJSON(err error) []byte {
	data, merr := json.Marshal(errorPayload{Error: err.Error(), ErrorKind: classifyError(err)})
	if merr != nil {
		return []byte(`{"error":"internal error","errorKind":"internal"}`)
	}
	return data
}

// HandleRequest parses a raw command envelope, executes it, and returns the
// marshaled result. All failures, including malformed JSON, come back as an
// error payload so an automated caller can recover and retry.
func (e *Engine) HandleRequest(raw []byte) []byte {
	cmd, err := DecodeRequest(raw)
	if err != nil {
		return errorJSON(err)
	}
	result, err := e.Execute(cmd)
	if err != nil {
		return errorJSON(err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errorJSON(err)
	}
	return data
}
