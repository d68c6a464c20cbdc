// ABOUTME: Implements the run_commands tool for submitting graph-mutating commands via mux Tool interface.
// ABOUTME: Parses JSON command envelopes and executes each against the engine, reporting successes and failures.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/2389-research/mux/tool"
	"github.com/2389-research/noder/workflow/core"
)

// RunCommandsTool accepts an array of command envelopes and executes each
// against the workflow engine.
type RunCommandsTool struct {
	Engine  *core.Engine
	AgentID string
}

func (t *RunCommandsTool) Name() string {
	return "run_commands"
}

func (t *RunCommandsTool) Description() string {
	return "Submit one or more commands to modify the workflow graph. Commands can create nodes, connect them, update node data, delete nodes or edges, or clear the canvas."
}

func (t *RunCommandsTool) RequiresApproval(_ map[string]any) bool {
	return false
}

func (t *RunCommandsTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"commands": map[string]any{
				"type":        "array",
				"description": "List of command envelopes to execute against the graph. Each envelope has a 'command' name and an 'arguments' object.",
				"items": map[string]any{
					"type":        "object",
					"description": "A command envelope. The 'command' field selects the operation.",
					"properties": map[string]any{
						"command": map[string]any{
							"type": "string",
							"enum": []any{"create", "connect", "validate", "getState", "getNode", "updateNode", "deleteNodes", "deleteEdges", "clear"},
						},
						"arguments": map[string]any{
							"type": "object",
						},
					},
					"required": []any{"command"},
				},
			},
		},
		"required": []any{"commands"},
	}
}

func (t *RunCommandsTool) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	commandsRaw, ok := params["commands"]
	if !ok {
		return nil, fmt.Errorf("missing 'commands' parameter")
	}

	// Marshal the raw params back to JSON for proper deserialization through
	// DecodeRequest.
	commandsJSON, err := json.Marshal(commandsRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal commands: %w", err)
	}

	var rawCommands []json.RawMessage
	if err := json.Unmarshal(commandsJSON, &rawCommands); err != nil {
		return nil, fmt.Errorf("failed to parse commands array: %w", err)
	}

	if len(rawCommands) == 0 {
		return tool.NewResult("run_commands", true, "No commands to execute.", ""), nil
	}

	total := len(rawCommands)
	successes := 0
	var failures []string

	for i, raw := range rawCommands {
		cmd, err := core.DecodeRequest(raw)
		if err != nil {
			log.Printf("agent %s: command %d parse error: %v", t.AgentID, i, err)
			failures = append(failures, fmt.Sprintf("command %d: parse error: %v", i, err))
			continue
		}

		if _, err := t.Engine.Execute(cmd); err != nil {
			log.Printf("agent %s: command %d execution failed: %v", t.AgentID, i, err)
			failures = append(failures, fmt.Sprintf("command %d (%s): %v", i, cmd.CommandName(), err))
		} else {
			successes++
		}
	}

	var summary string
	if len(failures) == 0 {
		summary = fmt.Sprintf("All %d commands executed successfully.", total)
	} else {
		summary = fmt.Sprintf("%d/%d commands succeeded. Failures:\n%s",
			successes, total, strings.Join(failures, "\n"))
	}

	return tool.NewResult("run_commands", true, summary, ""), nil
}
