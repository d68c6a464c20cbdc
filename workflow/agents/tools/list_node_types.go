// ABOUTME: Implements the list_node_types tool for browsing the node catalog via mux Tool interface.
// ABOUTME: Formats each registered type with its handles so an agent can plan valid connections.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389-research/mux/tool"
	"github.com/2389-research/noder/workflow/core"
)

// ListNodeTypesTool lists every registered node type and its handle layout.
type ListNodeTypesTool struct {
	Engine *core.Engine
}

func (t *ListNodeTypesTool) Name() string {
	return "list_node_types"
}

func (t *ListNodeTypesTool) Description() string {
	return "List the node types that can be created, with each type's input and output handles and their data kinds."
}

func (t *ListNodeTypesTool) RequiresApproval(_ map[string]any) bool {
	return false
}

func (t *ListNodeTypesTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []any{},
	}
}

func (t *ListNodeTypesTool) Execute(_ context.Context, _ map[string]any) (*tool.Result, error) {
	registry := t.Engine.Registry()

	var lines []string
	for _, name := range registry.Names() {
		nodeType, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("## %s (%s)", nodeType.Name, nodeType.Label))
		for _, h := range nodeType.DefaultHandles {
			lines = append(lines, fmt.Sprintf("- %s: %s %s", h.ID, h.Direction, h.Kind))
		}
		lines = append(lines, "")
	}

	output := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	return tool.NewResult("list_node_types", true, output, ""), nil
}
