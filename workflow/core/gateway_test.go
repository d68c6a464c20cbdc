// ABOUTME: Tests for the mutation gateway covering node creation, connection, updates, and deletion.
// ABOUTME: Exercises id collision handling, grid layout, execution ordering, replace, and clear.
package core_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/2389-research/noder/graph"
	"github.com/2389-research/noder/workflow/core"
)

type fakeMirror struct {
	clears int
}

func (m *fakeMirror) Clear() error {
	m.clears++
	return nil
}

func newTestEngine(opts ...core.EngineOption) *core.Engine {
	return core.NewEngine(graph.BuiltinRegistry(nil), opts...)
}

// pipelineEngine builds the two-node scenario used across connect tests:
// node A is a text generator, node B accepts only a text prompt.
func pipelineEngine(t *testing.T) *core.Engine {
	t.Helper()
	eng := newTestEngine()
	_, err := eng.CreateNodes([]core.NodeSpec{
		{ID: "A", Type: "text"},
		{ID: "B", Type: "image", Handles: []graph.Handle{
			{ID: "prompt-in", Direction: graph.DirectionInput, Kind: graph.KindText},
		}},
	}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return eng
}

func TestCreateNodes_GeneratesTypeIDs(t *testing.T) {
	eng := newTestEngine()

	res, err := eng.CreateNodes([]core.NodeSpec{{Type: "text"}, {Type: "text"}, {Type: "image"}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"text-1", "text-2", "image-1"}
	if len(res.CreatedNodeIDs) != len(want) {
		t.Fatalf("created %v, want %v", res.CreatedNodeIDs, want)
	}
	for i := range want {
		if res.CreatedNodeIDs[i] != want[i] {
			t.Errorf("CreatedNodeIDs[%d] = %q, want %q", i, res.CreatedNodeIDs[i], want[i])
		}
	}
	if res.IDMap != nil {
		t.Errorf("IDMap = %v, want none for generated ids", res.IDMap)
	}
}

func TestCreateNodes_CollisionAppendsSuffix(t *testing.T) {
	eng := newTestEngine()

	if _, err := eng.CreateNodes([]core.NodeSpec{{ID: "n1", Type: "text"}}, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := eng.CreateNodes([]core.NodeSpec{{ID: "n1", Type: "text"}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CreatedNodeIDs[0] != "n1-1" {
		t.Errorf("renamed id = %q, want n1-1", res.CreatedNodeIDs[0])
	}
	if res.IDMap["n1"] != "n1-1" {
		t.Errorf("IDMap = %v, want n1 -> n1-1", res.IDMap)
	}

	res, err = eng.CreateNodes([]core.NodeSpec{{ID: "n1", Type: "text"}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CreatedNodeIDs[0] != "n1-2" {
		t.Errorf("third requested n1 = %q, want n1-2", res.CreatedNodeIDs[0])
	}
}

func TestCreateNodes_IDMapIncludesUnrenamed(t *testing.T) {
	eng := newTestEngine()

	res, err := eng.CreateNodes([]core.NodeSpec{{ID: "fresh", Type: "text"}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IDMap["fresh"] != "fresh" {
		t.Errorf("IDMap = %v, want fresh -> fresh", res.IDMap)
	}
}

func TestCreateNodes_GridLayoutWrapsEveryThree(t *testing.T) {
	eng := newTestEngine()

	res, err := eng.CreateNodes([]core.NodeSpec{
		{Type: "text"}, {Type: "text"}, {Type: "text"}, {Type: "text"},
	}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := eng.Document()
	first := doc.FindNode(res.CreatedNodeIDs[0]).Position
	second := doc.FindNode(res.CreatedNodeIDs[1]).Position
	fourth := doc.FindNode(res.CreatedNodeIDs[3]).Position

	if first == second {
		t.Error("auto-placed nodes should not overlap")
	}
	if second.Y != first.Y {
		t.Errorf("second node should share the first row, got y=%v vs %v", second.Y, first.Y)
	}
	if fourth.Y <= first.Y {
		t.Errorf("fourth node should wrap to a new row, got y=%v vs %v", fourth.Y, first.Y)
	}
	if fourth.X != first.X {
		t.Errorf("fourth node should start the new row at the origin column, got x=%v vs %v", fourth.X, first.X)
	}
}

func TestCreateNodes_ExplicitPositionKept(t *testing.T) {
	eng := newTestEngine()

	res, err := eng.CreateNodes([]core.NodeSpec{
		{Type: "text", Position: &graph.Position{X: 999, Y: 777}},
	}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := eng.Document().FindNode(res.CreatedNodeIDs[0]).Position
	if pos.X != 999 || pos.Y != 777 {
		t.Errorf("position = %+v, want explicit 999,777", pos)
	}
}

func TestCreateNodes_ExecutionOrderContinues(t *testing.T) {
	eng := newTestEngine()

	if _, err := eng.CreateNodes([]core.NodeSpec{{Type: "text"}, {Type: "text"}}, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := eng.CreateNodes([]core.NodeSpec{{Type: "image"}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := eng.Document()
	order := doc.FindNode(res.CreatedNodeIDs[0]).Data["executionOrder"]
	if order != 3.0 {
		t.Errorf("executionOrder = %v, want 3 (continues past previous max)", order)
	}
}

func TestCreateNodes_ExplicitExecutionOrderWins(t *testing.T) {
	eng := newTestEngine()
	order := 42.0

	res, err := eng.CreateNodes([]core.NodeSpec{{Type: "text", ExecutionOrder: &order}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := eng.Document().FindNode(res.CreatedNodeIDs[0]).Data["executionOrder"]
	if got != 42.0 {
		t.Errorf("executionOrder = %v, want explicit 42", got)
	}
}

func TestCreateNodes_UnknownTypeSkipped(t *testing.T) {
	eng := newTestEngine()

	res, err := eng.CreateNodes([]core.NodeSpec{
		{Type: "ghost"},
		{Type: "text"},
	}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.CreatedNodeIDs) != 1 {
		t.Errorf("created = %v, want only the text node", res.CreatedNodeIDs)
	}
	if len(res.SkippedNodes) != 1 {
		t.Fatalf("skipped = %+v, want one entry", res.SkippedNodes)
	}
	if !strings.Contains(res.SkippedNodes[0].Reason, "not registered") {
		t.Errorf("reason = %q, want registration complaint", res.SkippedNodes[0].Reason)
	}
}

func TestCreateNodes_SeedsTypeData(t *testing.T) {
	eng := core.NewEngine(graph.BuiltinRegistry(map[string]string{"text": "model-small"}))

	res, err := eng.CreateNodes([]core.NodeSpec{{Type: "text", Data: map[string]any{"prompt": "hi"}}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := eng.Document().FindNode(res.CreatedNodeIDs[0]).Data
	if data["model"] != "model-small" {
		t.Errorf("model = %v, want seeded default", data["model"])
	}
	if data["prompt"] != "hi" {
		t.Errorf("prompt = %v, want spec value to win the merge", data["prompt"])
	}
}

func TestCreateNodes_ReplaceDiscardsDocument(t *testing.T) {
	mirror := &fakeMirror{}
	eng := newTestEngine(core.WithMirror(mirror))

	specs := make([]core.NodeSpec, 10)
	for i := range specs {
		specs[i] = core.NodeSpec{Type: "text"}
	}
	if _, err := eng.CreateNodes(specs, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := eng.Connect([]core.EdgeSpec{{Source: "text-1", Target: "text-2"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := eng.CreateNodes([]core.NodeSpec{{ID: "n1", Type: "text"}}, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Replaced {
		t.Error("result should report the replace")
	}

	doc := eng.Document()
	if len(doc.Nodes) != 1 || doc.Nodes[0].ID != "n1" {
		t.Errorf("document should contain exactly n1, got %d nodes", len(doc.Nodes))
	}
	if len(doc.Edges) != 0 {
		t.Errorf("document should have zero edges, got %d", len(doc.Edges))
	}
	if mirror.clears != 1 {
		t.Errorf("mirror cleared %d times, want 1", mirror.clears)
	}
}

func TestCreateNodes_EdgeSpecsUseFinalIDs(t *testing.T) {
	eng := newTestEngine()

	if _, err := eng.CreateNodes([]core.NodeSpec{{ID: "a", Type: "text"}}, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Requested id "a" collides and becomes "a-1"; the edge spec still says "a".
	res, err := eng.CreateNodes(
		[]core.NodeSpec{{ID: "a", Type: "text"}, {ID: "b", Type: "image"}},
		[]core.EdgeSpec{{Source: "a", Target: "b"}},
		false,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.AcceptedEdges) != 1 {
		t.Fatalf("accepted = %+v, want one edge", res.AcceptedEdges)
	}
	if res.AcceptedEdges[0].Source != "a-1" {
		t.Errorf("edge source = %q, want renamed a-1", res.AcceptedEdges[0].Source)
	}
}

func TestConnect_ResolvesHandlesAutomatically(t *testing.T) {
	eng := pipelineEngine(t)

	res, err := eng.Connect([]core.EdgeSpec{{Source: "A", Target: "B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.AcceptedEdges) != 1 {
		t.Fatalf("accepted = %+v, skipped = %+v", res.AcceptedEdges, res.SkippedEdges)
	}
	edge := res.AcceptedEdges[0]
	if edge.SourceHandle != "text-out" || edge.TargetHandle != "prompt-in" {
		t.Errorf("resolved handles = %q -> %q, want text-out -> prompt-in", edge.SourceHandle, edge.TargetHandle)
	}
}

func TestConnect_ReversedFailsDirectionMismatch(t *testing.T) {
	eng := pipelineEngine(t)

	res, err := eng.Connect([]core.EdgeSpec{{Source: "B", Target: "A"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.AcceptedEdges) != 0 {
		t.Fatalf("reversed connect should fail, accepted %+v", res.AcceptedEdges)
	}
	if len(res.SkippedEdges) != 1 {
		t.Fatalf("skipped = %+v, want one entry", res.SkippedEdges)
	}
	joined := strings.Join(res.SkippedEdges[0].Reasons, "; ")
	if !strings.Contains(joined, "direction-mismatch") {
		t.Errorf("reasons = %q, want direction-mismatch", joined)
	}
}

func TestConnect_Idempotent(t *testing.T) {
	eng := pipelineEngine(t)
	spec := []core.EdgeSpec{{Source: "A", Target: "B"}}

	first, err := eng.Connect(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := eng.Connect(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(second.AcceptedEdges) != 1 {
		t.Fatalf("repeat connect = %+v, want accepted", second.AcceptedEdges)
	}
	if first.AcceptedEdges[0].ID != second.AcceptedEdges[0].ID {
		t.Errorf("edge ids differ: %q vs %q", first.AcceptedEdges[0].ID, second.AcceptedEdges[0].ID)
	}
	if n := len(eng.Document().Edges); n != 1 {
		t.Errorf("document has %d edges, want no duplicate", n)
	}
}

func TestConnect_KindMismatchRejected(t *testing.T) {
	eng := newTestEngine()
	if _, err := eng.CreateNodes([]core.NodeSpec{
		{ID: "t", Type: "text"},
		{ID: "u", Type: "upscale"},
	}, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := eng.Connect([]core.EdgeSpec{
		{Source: "t", SourceHandle: "text-out", Target: "u", TargetHandle: "image-in"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.SkippedEdges) != 1 {
		t.Fatalf("skipped = %+v, want one rejection", res.SkippedEdges)
	}
	joined := strings.Join(res.SkippedEdges[0].Reasons, "; ")
	if !strings.Contains(joined, "kind-match") {
		t.Errorf("reasons = %q, want kind-match", joined)
	}
}

func TestConnect_SelfLoopRejected(t *testing.T) {
	eng := pipelineEngine(t)

	res, err := eng.Connect([]core.EdgeSpec{{Source: "A", Target: "A", SourceHandle: "text-out", TargetHandle: "prompt-in"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.AcceptedEdges) != 0 {
		t.Errorf("self-loop accepted: %+v", res.AcceptedEdges)
	}
	joined := strings.Join(res.SkippedEdges[0].Reasons, "; ")
	if !strings.Contains(joined, "no-self-loop") {
		t.Errorf("reasons = %q, want no-self-loop", joined)
	}
}

func TestConnect_MissingNodeSkipped(t *testing.T) {
	eng := pipelineEngine(t)

	res, err := eng.Connect([]core.EdgeSpec{{Source: "ghost", Target: "B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.SkippedEdges) != 1 {
		t.Fatalf("skipped = %+v, want one entry", res.SkippedEdges)
	}
	if !strings.Contains(res.SkippedEdges[0].Reasons[0], "not found") {
		t.Errorf("reason = %q, want not found", res.SkippedEdges[0].Reasons[0])
	}
}

func TestUpdateNode_ReturnsPreviousValues(t *testing.T) {
	eng := newTestEngine()
	if _, err := eng.CreateNodes([]core.NodeSpec{
		{ID: "n", Type: "text", Label: "Old", Data: map[string]any{"prompt": "before"}},
	}, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	label := "New"
	res, err := eng.UpdateNode("n", map[string]any{"prompt": "after", "fresh": true}, &label)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.PreviousData["prompt"] != "before" {
		t.Errorf("PreviousData[prompt] = %v, want before", res.PreviousData["prompt"])
	}
	if _, ok := res.PreviousData["fresh"]; ok {
		t.Error("keys without a previous value should not be reported")
	}
	if res.PreviousLabel == nil || *res.PreviousLabel != "Old" {
		t.Errorf("PreviousLabel = %v, want Old", res.PreviousLabel)
	}

	node := eng.Document().FindNode("n")
	if node.Data["prompt"] != "after" || node.Data["fresh"] != true || node.Label != "New" {
		t.Errorf("patch not applied: %+v label=%q", node.Data, node.Label)
	}
}

func TestUpdateNode_NotFound(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.UpdateNode("ghost", map[string]any{"x": 1}, nil)
	var notFound *core.NodeNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NodeNotFoundError", err)
	}
	if notFound.ID != "ghost" {
		t.Errorf("ID = %q, want ghost", notFound.ID)
	}
}

func TestUpdateNode_EmptyPatch(t *testing.T) {
	eng := pipelineEngine(t)

	if _, err := eng.UpdateNode("A", nil, nil); err != core.ErrEmptyPatch {
		t.Errorf("err = %v, want ErrEmptyPatch", err)
	}
}

func TestDeleteNodes_CascadesAndReportsMissing(t *testing.T) {
	eng := pipelineEngine(t)
	if _, err := eng.Connect([]core.EdgeSpec{{Source: "A", Target: "B"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := eng.DeleteNodes([]string{"A", "ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.DeletedNodeIDs) != 1 || res.DeletedNodeIDs[0] != "A" {
		t.Errorf("DeletedNodeIDs = %v, want [A]", res.DeletedNodeIDs)
	}
	if len(res.DeletedEdgeIDs) != 1 {
		t.Errorf("DeletedEdgeIDs = %v, want the cascade-removed edge", res.DeletedEdgeIDs)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "ghost" {
		t.Errorf("Missing = %v, want [ghost]", res.Missing)
	}
	if len(eng.Document().Edges) != 0 {
		t.Error("edges touching a deleted node must be removed")
	}
}

func TestDeleteEdges_Matchers(t *testing.T) {
	eng := newTestEngine()
	if _, err := eng.CreateNodes([]core.NodeSpec{
		{ID: "a", Type: "text"},
		{ID: "b", Type: "image"},
		{ID: "c", Type: "image"},
	}, []core.EdgeSpec{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
	}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := eng.DeleteEdges([]core.EdgeMatcher{{Source: "a", Target: "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.DeletedEdgeIDs) != 1 {
		t.Errorf("DeletedEdgeIDs = %v, want one", res.DeletedEdgeIDs)
	}
	if n := len(eng.Document().Edges); n != 1 {
		t.Errorf("document has %d edges, want the a->c edge kept", n)
	}
}

func TestDeleteEdges_HandleConstraint(t *testing.T) {
	eng := pipelineEngine(t)
	if _, err := eng.Connect([]core.EdgeSpec{{Source: "A", Target: "B"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wrong := "nonexistent-handle"
	res, err := eng.DeleteEdges([]core.EdgeMatcher{{Source: "A", Target: "B", SourceHandle: &wrong}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.DeletedEdgeIDs) != 0 {
		t.Errorf("constrained matcher should not match, deleted %v", res.DeletedEdgeIDs)
	}
	if len(res.Unmatched) != 1 {
		t.Errorf("Unmatched = %+v, want the matcher reported", res.Unmatched)
	}
}

func TestClear_RequiresConfirmation(t *testing.T) {
	mirror := &fakeMirror{}
	eng := newTestEngine(core.WithMirror(mirror))
	if _, err := eng.CreateNodes([]core.NodeSpec{{Type: "text"}}, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := eng.Clear(false); err != core.ErrConfirmationRequired {
		t.Fatalf("err = %v, want ErrConfirmationRequired", err)
	}
	if len(eng.Document().Nodes) != 1 {
		t.Error("refused clear must have zero side effects")
	}
	if mirror.clears != 0 {
		t.Error("refused clear must not touch the mirror")
	}

	res, err := eng.Clear(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ClearedNodes != 1 {
		t.Errorf("ClearedNodes = %d, want 1", res.ClearedNodes)
	}
	if len(eng.Document().Nodes) != 0 {
		t.Error("confirmed clear should empty the document")
	}
	if mirror.clears != 1 {
		t.Errorf("mirror cleared %d times, want 1", mirror.clears)
	}
}

func TestValidate_ReportsWithoutMutating(t *testing.T) {
	eng := pipelineEngine(t)
	if _, err := eng.Connect([]core.EdgeSpec{{Source: "A", Target: "B"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := eng.Validate()
	if report.NodeCount != 2 || report.EdgeCount != 1 {
		t.Errorf("counts = %d nodes %d edges, want 2 and 1", report.NodeCount, report.EdgeCount)
	}
	if report.AcceptedCount != 1 || len(report.Rejected) != 0 {
		t.Errorf("report = %+v, want all edges accepted", report)
	}
	if len(eng.Document().Edges) != 1 {
		t.Error("validate must not mutate the document")
	}
}

func TestChanges_BroadcastOnMutation(t *testing.T) {
	eng := newTestEngine()
	ch := eng.Subscribe()
	defer eng.Unsubscribe(ch)

	if _, err := eng.CreateNodes([]core.NodeSpec{{ID: "n", Type: "text"}}, nil, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Op != core.OpCreate {
			t.Errorf("Op = %q, want %q", ev.Op, core.OpCreate)
		}
		if len(ev.NodeIDs) != 1 || ev.NodeIDs[0] != "n" {
			t.Errorf("NodeIDs = %v, want [n]", ev.NodeIDs)
		}
	default:
		t.Fatal("expected a change event after create")
	}
}
