// ABOUTME: Implements the read_state tool for reading the current document via mux Tool interface.
// ABOUTME: Formats the workflow graph into a human-readable text summary for LLM consumption.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389-research/mux/tool"
	"github.com/2389-research/noder/workflow/core"
)

// ReadStateTool reads the current document and returns a formatted text summary.
type ReadStateTool struct {
	Engine *core.Engine
}

func (t *ReadStateTool) Name() string {
	return "read_state"
}

func (t *ReadStateTool) Description() string {
	return "Read the current workflow state including all nodes, edges, and undo availability. Returns a text summary of the graph."
}

func (t *ReadStateTool) RequiresApproval(_ map[string]any) bool {
	return false
}

func (t *ReadStateTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []any{},
	}
}

func (t *ReadStateTool) Execute(_ context.Context, _ map[string]any) (*tool.Result, error) {
	state := t.Engine.State()
	doc := state.Document

	var lines []string
	lines = append(lines, fmt.Sprintf("# %s", doc.Name))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("## Nodes (%d)", state.NodeCount))
	for _, n := range doc.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		line := fmt.Sprintf("- [%s] %s (type: %s) at (%.0f, %.0f)",
			n.ID, label, n.Type, n.Position.X, n.Position.Y)
		if order, ok := n.Data["executionOrder"]; ok {
			line += fmt.Sprintf(" order=%v", order)
		}
		if prompt, ok := n.Data["prompt"].(string); ok && prompt != "" {
			line += fmt.Sprintf(" prompt=%q", truncateUTF8Safe(prompt, 60))
		}
		lines = append(lines, line)
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("## Edges (%d)", state.EdgeCount))
	for _, e := range doc.Edges {
		lines = append(lines, fmt.Sprintf("- %s.%s -> %s.%s",
			e.Source, e.SourceHandle, e.Target, e.TargetHandle))
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Undo available: %t, redo available: %t",
		state.CanUndo, state.CanRedo))

	output := strings.Join(lines, "\n")
	return tool.NewResult("read_state", true, output, ""), nil
}

// truncateUTF8Safe truncates a string to at most maxChars characters,
// appending "..." if truncated. Safe for multibyte UTF-8.
func truncateUTF8Safe(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "..."
}
