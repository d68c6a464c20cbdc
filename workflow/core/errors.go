// ABOUTME: Sentinel and typed errors for workflow mutation commands.
// ABOUTME: Every failure here is recoverable data for the caller; nothing at this layer is fatal.
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfirmationRequired indicates a destructive command arrived without its explicit confirmation flag.
	ErrConfirmationRequired = errors.New("confirmation required: pass confirm=true")

	// ErrEmptyPatch indicates updateNode was called with neither a data patch nor a label patch.
	ErrEmptyPatch = errors.New("update requires a data patch or a label patch")
)

// NodeNotFoundError indicates the referenced node doesn't exist.
type NodeNotFoundError struct {
	ID string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}

// UnknownCommandError indicates the command name is not recognized.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %q", e.Name)
}

// ArgumentError indicates malformed or missing command arguments. It is
// always raised before any mutation occurs.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments: %s", e.Reason)
}
