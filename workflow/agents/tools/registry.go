// ABOUTME: Factory function that creates and registers all 4 workflow tools.
// ABOUTME: BuildRegistry returns a mux tool.Registry with tools bound to an engine and agent ID.
package tools

import (
	"github.com/2389-research/mux/tool"
	"github.com/2389-research/noder/workflow/core"
)

// BuildRegistry creates a tool registry with all 4 workflow tools registered.
// The returned registry contains: read_state, get_node, run_commands,
// list_node_types. Every tool operates on the given engine.
func BuildRegistry(engine *core.Engine, agentID string) *tool.Registry {
	registry := tool.NewRegistry()

	registry.Register(&ReadStateTool{
		Engine: engine,
	})

	registry.Register(&GetNodeTool{
		Engine: engine,
	})

	registry.Register(&RunCommandsTool{
		Engine:  engine,
		AgentID: agentID,
	})

	registry.Register(&ListNodeTypesTool{
		Engine: engine,
	})

	return registry
}
