// ABOUTME: Tests for the tool registry factory function BuildRegistry.
// ABOUTME: Validates registration, schemas, approval flags, and command execution side effects.
package tools

import (
	"context"
	"sort"
	"testing"

	"github.com/2389-research/mux/tool"
	"github.com/2389-research/noder/graph"
	"github.com/2389-research/noder/workflow/core"
)

func makeTestEngine() *core.Engine {
	return core.NewEngine(graph.BuiltinRegistry(nil))
}

func TestBuildRegistryRegistersAll4Tools(t *testing.T) {
	registry := BuildRegistry(makeTestEngine(), "test-agent")

	if registry.Count() != 4 {
		t.Errorf("expected 4 tools, got %d", registry.Count())
	}

	names := registry.List()
	sort.Strings(names)

	expected := []string{
		"get_node",
		"list_node_types",
		"read_state",
		"run_commands",
	}

	if len(names) != len(expected) {
		t.Fatalf("expected %d names, got %d", len(expected), len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("expected name %q at index %d, got %q", name, i, names[i])
		}
	}
}

func TestRegistryToolsAreRetrievableByName(t *testing.T) {
	registry := BuildRegistry(makeTestEngine(), "test-agent")

	for _, name := range []string{"read_state", "get_node", "run_commands", "list_node_types"} {
		got, ok := registry.Get(name)
		if !ok {
			t.Errorf("tool '%s' should be in registry", name)
			continue
		}
		if got.Name() != name {
			t.Errorf("expected tool name '%s', got '%s'", name, got.Name())
		}
	}
}

func TestAllToolsImplementSchemaProvider(t *testing.T) {
	registry := BuildRegistry(makeTestEngine(), "test-agent")

	for _, toolObj := range registry.All() {
		sp, ok := toolObj.(tool.SchemaProvider)
		if !ok {
			t.Errorf("tool '%s' does not implement SchemaProvider", toolObj.Name())
			continue
		}
		schema := sp.InputSchema()
		if schema == nil {
			t.Errorf("tool '%s' returned nil schema", toolObj.Name())
		}
		if schema["type"] != "object" {
			t.Errorf("tool '%s' schema type should be 'object', got '%v'", toolObj.Name(), schema["type"])
		}
	}
}

func TestAllToolsReturnFalseForRequiresApproval(t *testing.T) {
	registry := BuildRegistry(makeTestEngine(), "test-agent")

	for _, toolObj := range registry.All() {
		if toolObj.RequiresApproval(nil) {
			t.Errorf("tool '%s' should not require approval", toolObj.Name())
		}
	}
}

func TestRunCommandsExecutesAgainstEngine(t *testing.T) {
	engine := makeTestEngine()
	runner := &RunCommandsTool{Engine: engine, AgentID: "test-agent"}

	params := map[string]any{
		"commands": []any{
			map[string]any{
				"command": "create",
				"arguments": map[string]any{
					"nodes": []any{
						map[string]any{"type": "text"},
						map[string]any{"type": "image"},
					},
					"edges": []any{
						map[string]any{"source": "text-1", "target": "image-1"},
					},
				},
			},
		},
	}

	result, err := runner.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}

	state := engine.State()
	if state.NodeCount != 2 {
		t.Errorf("NodeCount = %d, want 2", state.NodeCount)
	}
	if state.EdgeCount != 1 {
		t.Errorf("EdgeCount = %d, want 1", state.EdgeCount)
	}
}

func TestRunCommandsMissingParameter(t *testing.T) {
	runner := &RunCommandsTool{Engine: makeTestEngine(), AgentID: "test-agent"}

	if _, err := runner.Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing commands parameter")
	}
}

func TestRunCommandsContinuesPastFailures(t *testing.T) {
	engine := makeTestEngine()
	runner := &RunCommandsTool{Engine: engine, AgentID: "test-agent"}

	params := map[string]any{
		"commands": []any{
			map[string]any{"command": "frobnicate"},
			map[string]any{
				"command": "create",
				"arguments": map[string]any{
					"nodes": []any{map[string]any{"type": "text"}},
				},
			},
		},
	}

	result, err := runner.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if engine.State().NodeCount != 1 {
		t.Errorf("NodeCount = %d, want 1 (good command still applied)", engine.State().NodeCount)
	}
}

func TestReadStateExecutes(t *testing.T) {
	engine := makeTestEngine()
	if _, err := engine.CreateNodes([]core.NodeSpec{{Type: "text"}}, nil, false); err != nil {
		t.Fatalf("CreateNodes: %v", err)
	}

	reader := &ReadStateTool{Engine: engine}
	result, err := reader.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestGetNodeRequiresID(t *testing.T) {
	getter := &GetNodeTool{Engine: makeTestEngine()}

	if _, err := getter.Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing id parameter")
	}
}

func TestGetNodeExecutes(t *testing.T) {
	engine := makeTestEngine()
	created, err := engine.CreateNodes([]core.NodeSpec{{ID: "n1", Type: "text"}}, nil, false)
	if err != nil {
		t.Fatalf("CreateNodes: %v", err)
	}
	if len(created.CreatedNodeIDs) != 1 {
		t.Fatalf("created = %v, want one node", created.CreatedNodeIDs)
	}

	getter := &GetNodeTool{Engine: engine}
	result, err := getter.Execute(context.Background(), map[string]any{"id": "n1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestListNodeTypesExecutes(t *testing.T) {
	lister := &ListNodeTypesTool{Engine: makeTestEngine()}

	result, err := lister.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}
