// ABOUTME: Implements the get_node tool for inspecting a single node via mux Tool interface.
// ABOUTME: Returns the node's full configuration plus its touching edges as JSON.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389-research/mux/tool"
	"github.com/2389-research/noder/workflow/core"
)

// GetNodeTool returns one node's full detail, including the edges touching it.
type GetNodeTool struct {
	Engine *core.Engine
}

func (t *GetNodeTool) Name() string {
	return "get_node"
}

func (t *GetNodeTool) Description() string {
	return "Get a single node's full configuration by id, including its data map, handles, and every edge connected to it. Returns JSON."
}

func (t *GetNodeTool) RequiresApproval(_ map[string]any) bool {
	return false
}

func (t *GetNodeTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "The id of the node to inspect.",
			},
		},
		"required": []any{"id"},
	}
}

func (t *GetNodeTool) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	id, ok := params["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("missing 'id' parameter")
	}

	result, err := t.Engine.Node(id)
	if err != nil {
		return tool.NewResult("get_node", false, "", err.Error()), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal node: %w", err)
	}
	return tool.NewResult("get_node", true, string(data), ""), nil
}
