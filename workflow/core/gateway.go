// ABOUTME: Mutation gateway: the sole entry point for changing a workflow document.
// ABOUTME: Resolves node/edge specs, runs validation, and reports applied versus skipped work.
package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/2389-research/noder/graph"
	"github.com/2389-research/noder/graph/validator"
)

// Grid layout for nodes created without an explicit position.
const (
	layoutOriginX = 80.0
	layoutOriginY = 80.0
	layoutStepX   = 280.0
	layoutStepY   = 200.0
	layoutColumns = 3
)

// Mirror is an external key-value store the gateway clears on replace and
// clear. Writing to it is the persistence collaborator's job, driven by
// change notifications.
type Mirror interface {
	Clear() error
}

// Engine owns the live document and serializes all mutations. Callers from
// multiple goroutines are safe, but the intended model is a single active
// mutator; the internal mutex is an outstanding-call guard, not a
// transaction system.
type Engine struct {
	mu       sync.Mutex
	doc      *graph.Document
	registry *graph.NodeTypeRegistry
	history  *History
	mirror   Mirror
	bus      *ChangeBroadcaster
}

// EngineOption customizes an Engine at construction time.
type EngineOption func(*Engine)

// WithDocument starts the engine on an existing document instead of a fresh one.
func WithDocument(doc *graph.Document) EngineOption {
	return func(e *Engine) { e.doc = doc }
}

// WithMirror attaches an external mirror cleared on replace and clear.
func WithMirror(m Mirror) EngineOption {
	return func(e *Engine) { e.mirror = m }
}

// WithMaxHistory bounds the undo stack depth.
func WithMaxHistory(max int) EngineOption {
	return func(e *Engine) { e.history = NewHistory(max, e.history.debounce) }
}

// WithDebounce sets the coalescing window for non-immediate snapshots.
func WithDebounce(d time.Duration) EngineOption {
	return func(e *Engine) { e.history = NewHistory(e.history.max, d) }
}

// NewEngine creates an engine over a fresh document with default history limits.
func NewEngine(registry *graph.NodeTypeRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		doc:      graph.NewDocument("Untitled Workflow"),
		registry: registry,
		history:  NewHistory(DefaultMaxHistory, DefaultDebounce),
		bus:      NewChangeBroadcaster(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SkippedNode reports one node spec that was not applied and why.
type SkippedNode struct {
	Spec   NodeSpec `json:"spec"`
	Reason string   `json:"reason"`
}

// SkippedEdge reports one edge spec that was not applied and every reason.
type SkippedEdge struct {
	Spec    EdgeSpec `json:"spec"`
	Reasons []string `json:"reasons"`
}

// CreateResult reports what createNodes applied and what it skipped.
type CreateResult struct {
	CreatedNodeIDs []string          `json:"createdNodeIds"`
	IDMap          map[string]string `json:"idMap,omitempty"`
	AcceptedEdges  []*graph.Edge     `json:"acceptedEdges"`
	SkippedNodes   []SkippedNode     `json:"skippedNodes,omitempty"`
	SkippedEdges   []SkippedEdge     `json:"skippedEdges,omitempty"`
	Replaced       bool              `json:"replaced,omitempty"`
}

// ConnectResult reports accepted and skipped connections.
type ConnectResult struct {
	AcceptedEdges []*graph.Edge `json:"acceptedEdges"`
	SkippedEdges  []SkippedEdge `json:"skippedEdges,omitempty"`
}

// UpdateResult reports the previous values of everything updateNode overwrote.
type UpdateResult struct {
	ID            string         `json:"id"`
	PreviousData  map[string]any `json:"previousData,omitempty"`
	PreviousLabel *string        `json:"previousLabel,omitempty"`
}

// DeleteNodesResult reports removed nodes, cascade-removed edges, and
// requested ids that did not exist.
type DeleteNodesResult struct {
	DeletedNodeIDs []string `json:"deletedNodeIds"`
	DeletedEdgeIDs []string `json:"deletedEdgeIds"`
	Missing        []string `json:"missing,omitempty"`
}

// DeleteEdgesResult reports removed edges and matchers that matched nothing.
type DeleteEdgesResult struct {
	DeletedEdgeIDs []string      `json:"deletedEdgeIds"`
	Unmatched      []EdgeMatcher `json:"unmatched,omitempty"`
}

// ClearResult reports what the clear removed.
type ClearResult struct {
	ClearedNodes int `json:"clearedNodes"`
	ClearedEdges int `json:"clearedEdges"`
}

// RejectedEdge is one existing edge that fails validation, with reasons.
type RejectedEdge struct {
	EdgeID  string   `json:"edgeId"`
	Reasons []string `json:"reasons"`
}

// ValidationReport summarizes a read-only validation pass over the document.
type ValidationReport struct {
	NodeCount     int            `json:"nodeCount"`
	EdgeCount     int            `json:"edgeCount"`
	AcceptedCount int            `json:"acceptedCount"`
	Rejected      []RejectedEdge `json:"rejected,omitempty"`
}

// StateResult is the full document view returned by getState.
type StateResult struct {
	Document  *graph.Document `json:"document"`
	NodeCount int             `json:"nodeCount"`
	EdgeCount int             `json:"edgeCount"`
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
}

// NodeResult is one node plus every edge touching it.
type NodeResult struct {
	Node  *graph.Node   `json:"node"`
	Edges []*graph.Edge `json:"edges"`
}

// CreateNodes places nodes and then attempts the edge specs against the
// final id mapping, so edges may reference requested ids even after a
// collision rename. Replace discards the current document and mirror first.
// Failures are collected per node and edge spec; the batch never aborts partway.
func (e *Engine) CreateNodes(specs []NodeSpec, edgeSpecs []EdgeSpec, replace bool) (*CreateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := &CreateResult{
		CreatedNodeIDs: []string{},
		AcceptedEdges:  []*graph.Edge{},
		IDMap:          map[string]string{},
	}

	if replace {
		if e.mirror != nil {
			if err := e.mirror.Clear(); err != nil {
				return nil, fmt.Errorf("clearing mirror: %w", err)
			}
		}
		e.doc.Nodes = []*graph.Node{}
		e.doc.Edges = []*graph.Edge{}
		res.Replaced = true
	}

	prevMax := maxExecutionOrder(e.doc)
	autoPositioned := 0
	batchPos := 0

	for _, spec := range specs {
		if spec.Type == "" {
			res.SkippedNodes = append(res.SkippedNodes, SkippedNode{Spec: spec, Reason: "node spec missing a type"})
			continue
		}
		if !e.registry.Has(spec.Type) {
			res.SkippedNodes = append(res.SkippedNodes, SkippedNode{
				Spec:   spec,
				Reason: fmt.Sprintf("node type %q is not registered", spec.Type),
			})
			continue
		}

		var id string
		if spec.ID != "" {
			id = uniqueNodeID(e.doc, spec.ID)
			res.IDMap[spec.ID] = id
		} else {
			id = autoNodeID(e.doc, spec.Type)
		}

		var pos graph.Position
		if spec.Position != nil {
			pos = *spec.Position
		} else {
			pos = graph.Position{
				X: layoutOriginX + float64(autoPositioned%layoutColumns)*layoutStepX,
				Y: layoutOriginY + float64(autoPositioned/layoutColumns)*layoutStepY,
			}
			autoPositioned++
		}

		data := e.registry.NewNodeData(spec.Type)
		for k, v := range spec.Data {
			data[k] = v
		}
		batchPos++
		if spec.ExecutionOrder != nil {
			data["executionOrder"] = *spec.ExecutionOrder
		} else if _, ok := data["executionOrder"]; !ok {
			data["executionOrder"] = prevMax + float64(batchPos)
		}

		e.doc.AddNode(&graph.Node{
			ID:       id,
			Type:     spec.Type,
			Label:    spec.Label,
			Position: pos,
			Data:     data,
			Handles:  spec.Handles,
		})
		res.CreatedNodeIDs = append(res.CreatedNodeIDs, id)
	}

	res.AcceptedEdges, res.SkippedEdges = e.resolveAndConnect(edgeSpecs, res.IDMap)
	if len(res.IDMap) == 0 {
		res.IDMap = nil
	}

	if res.Replaced || len(res.CreatedNodeIDs) > 0 || len(res.AcceptedEdges) > 0 {
		e.bus.Broadcast(ChangeEvent{
			Op:         OpCreate,
			DocumentID: e.doc.ID,
			NodeIDs:    res.CreatedNodeIDs,
			EdgeIDs:    edgeIDs(res.AcceptedEdges),
		})
	}
	return res, nil
}

// Connect attempts connections against the current document.
func (e *Engine) Connect(specs []EdgeSpec) (*ConnectResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accepted, skipped := e.resolveAndConnect(specs, nil)
	if len(accepted) > 0 {
		e.bus.Broadcast(ChangeEvent{
			Op:         OpConnect,
			DocumentID: e.doc.ID,
			EdgeIDs:    edgeIDs(accepted),
		})
	}
	return &ConnectResult{AcceptedEdges: accepted, SkippedEdges: skipped}, nil
}

// resolveAndConnect resolves edge specs, validates the new candidates, and
// adds accepted edges. A spec resolving to an edge id that already exists is
// reported accepted without creating a parallel duplicate. Caller holds e.mu.
func (e *Engine) resolveAndConnect(specs []EdgeSpec, idMap map[string]string) ([]*graph.Edge, []SkippedEdge) {
	accepted := []*graph.Edge{}
	var skipped []SkippedEdge
	var candidates []*graph.Edge
	specFor := make(map[string]EdgeSpec)

	for _, spec := range specs {
		edge, reason := resolveEdgeSpec(e.doc, e.registry, spec, idMap)
		if reason != "" {
			skipped = append(skipped, SkippedEdge{Spec: spec, Reasons: []string{reason}})
			continue
		}
		if existing := e.doc.FindEdge(edge.ID); existing != nil {
			accepted = append(accepted, existing.Clone())
			continue
		}
		candidates = append(candidates, edge)
		specFor[edge.ID] = spec
	}

	ok, rejections := validator.Validate(e.doc, candidates, e.registry)
	for _, edge := range ok {
		e.doc.AddEdge(edge)
		accepted = append(accepted, edge.Clone())
	}
	for _, rej := range rejections {
		skipped = append(skipped, SkippedEdge{Spec: specFor[rej.Edge.ID], Reasons: rej.Reasons()})
	}
	return accepted, skipped
}

// resolveEdgeSpec maps requested ids through idMap and fills in omitted
// handles. The source handle resolves first so the target choice can prefer
// a kind compatible with it. A non-empty reason means the edge spec is skipped.
func resolveEdgeSpec(doc *graph.Document, reg *graph.NodeTypeRegistry, spec EdgeSpec, idMap map[string]string) (*graph.Edge, string) {
	source := spec.Source
	if mapped, ok := idMap[source]; ok {
		source = mapped
	}
	target := spec.Target
	if mapped, ok := idMap[target]; ok {
		target = mapped
	}

	if source == "" || target == "" {
		return nil, "edge spec requires source and target node ids"
	}
	srcNode := doc.FindNode(source)
	if srcNode == nil {
		return nil, fmt.Sprintf("source node %q not found", source)
	}
	tgtNode := doc.FindNode(target)
	if tgtNode == nil {
		return nil, fmt.Sprintf("target node %q not found", target)
	}

	sourceHandle := spec.SourceHandle
	if sourceHandle == "" {
		picked, ok := graph.PickHandle(reg, srcNode, graph.DirectionOutput, spec.DataType, "")
		if !ok {
			return nil, fmt.Sprintf("%s: node %q has no output handle", validator.RuleDirectionMismatch, source)
		}
		sourceHandle = picked
	}

	targetHandle := spec.TargetHandle
	if targetHandle == "" {
		var otherKind graph.Kind
		if resolved := graph.ResolveKind(reg, srcNode, sourceHandle, graph.DirectionOutput); resolved.Declared {
			otherKind = resolved.Kind
		}
		picked, ok := graph.PickHandle(reg, tgtNode, graph.DirectionInput, spec.DataType, otherKind)
		if !ok {
			return nil, fmt.Sprintf("%s: node %q has no input handle", validator.RuleDirectionMismatch, target)
		}
		targetHandle = picked
	}

	return graph.NewEdge(source, sourceHandle, target, targetHandle), ""
}

// Validate runs the edge rules over the current document without mutating it.
func (e *Engine) Validate() *ValidationReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, rejections := validator.Validate(e.doc, e.doc.Edges, e.registry)
	report := &ValidationReport{
		NodeCount:     len(e.doc.Nodes),
		EdgeCount:     len(e.doc.Edges),
		AcceptedCount: len(e.doc.Edges) - len(rejections),
	}
	for _, rej := range rejections {
		report.Rejected = append(report.Rejected, RejectedEdge{EdgeID: rej.Edge.ID, Reasons: rej.Reasons()})
	}
	return report
}

// UpdateNode shallow-merges a data patch and/or replaces the label,
// returning the previous value of every overwritten key.
func (e *Engine) UpdateNode(id string, dataPatch map[string]any, labelPatch *string) (*UpdateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(dataPatch) == 0 && labelPatch == nil {
		return nil, ErrEmptyPatch
	}
	node := e.doc.FindNode(id)
	if node == nil {
		return nil, &NodeNotFoundError{ID: id}
	}

	res := &UpdateResult{ID: id}
	if len(dataPatch) > 0 {
		if node.Data == nil {
			node.Data = make(map[string]any, len(dataPatch))
		}
		for k, v := range dataPatch {
			if prev, ok := node.Data[k]; ok {
				if res.PreviousData == nil {
					res.PreviousData = make(map[string]any)
				}
				res.PreviousData[k] = prev
			}
			node.Data[k] = v
		}
	}
	if labelPatch != nil {
		prev := node.Label
		res.PreviousLabel = &prev
		node.Label = *labelPatch
	}

	e.bus.Broadcast(ChangeEvent{Op: OpUpdate, DocumentID: e.doc.ID, NodeIDs: []string{id}})
	return res, nil
}

// DeleteNodes removes the named nodes and every edge touching them.
// Missing ids are reported without failing the rest of the batch.
func (e *Engine) DeleteNodes(ids []string) (*DeleteNodesResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var present, missing []string
	for _, id := range ids {
		if e.doc.HasNode(id) {
			present = append(present, id)
		} else {
			missing = append(missing, id)
		}
	}

	removedNodes, removedEdges := e.doc.RemoveNodes(present...)
	res := &DeleteNodesResult{
		DeletedNodeIDs: notNil(removedNodes),
		DeletedEdgeIDs: notNil(removedEdges),
		Missing:        missing,
	}
	if len(removedNodes) > 0 {
		e.bus.Broadcast(ChangeEvent{
			Op:         OpDeleteNodes,
			DocumentID: e.doc.ID,
			NodeIDs:    removedNodes,
			EdgeIDs:    removedEdges,
		})
	}
	return res, nil
}

// DeleteEdges removes every edge matched by any matcher. Matchers that
// match nothing are reported, not failed.
func (e *Engine) DeleteEdges(matchers []EdgeMatcher) (*DeleteEdgesResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	deleted := []string{}
	var unmatched []EdgeMatcher
	for _, m := range matchers {
		var ids []string
		for _, edge := range e.doc.Edges {
			if m.Matches(edge) {
				ids = append(ids, edge.ID)
			}
		}
		if len(ids) == 0 {
			unmatched = append(unmatched, m)
			continue
		}
		for _, id := range ids {
			if e.doc.RemoveEdge(id) {
				deleted = append(deleted, id)
			}
		}
	}

	if len(deleted) > 0 {
		e.bus.Broadcast(ChangeEvent{Op: OpDeleteEdges, DocumentID: e.doc.ID, EdgeIDs: deleted})
	}
	return &DeleteEdgesResult{DeletedEdgeIDs: deleted, Unmatched: unmatched}, nil
}

// Clear empties the document and the external mirror. Refused without the
// confirmation flag, with zero side effects.
func (e *Engine) Clear(confirm bool) (*ClearResult, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mirror != nil {
		if err := e.mirror.Clear(); err != nil {
			return nil, fmt.Errorf("clearing mirror: %w", err)
		}
	}
	res := &ClearResult{ClearedNodes: len(e.doc.Nodes), ClearedEdges: len(e.doc.Edges)}
	e.doc.Nodes = []*graph.Node{}
	e.doc.Edges = []*graph.Edge{}

	e.bus.Broadcast(ChangeEvent{Op: OpClear, DocumentID: e.doc.ID})
	return res, nil
}

// TakeSnapshot records the current document into history. Non-immediate
// snapshots coalesce within the debounce window.
func (e *Engine) TakeSnapshot(immediate bool) error {
	e.mu.Lock()
	snap := e.doc.Capture()
	e.mu.Unlock()
	return e.history.Record(snap, immediate)
}

// Undo restores the most recent past state. Returns false with no error
// when there is nothing to undo.
func (e *Engine) Undo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	restored, ok, err := e.history.Undo(e.doc.Capture())
	if err != nil || !ok {
		return ok, err
	}
	e.doc.Restore(restored)
	e.bus.Broadcast(ChangeEvent{Op: OpUndo, DocumentID: e.doc.ID})
	return true, nil
}

// Redo restores the most recent undone state. Returns false with no error
// when there is nothing to redo.
func (e *Engine) Redo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	restored, ok, err := e.history.Redo(e.doc.Capture())
	if err != nil || !ok {
		return ok, err
	}
	e.doc.Restore(restored)
	e.bus.Broadcast(ChangeEvent{Op: OpRedo, DocumentID: e.doc.ID})
	return true, nil
}

// ClearHistory empties both history stacks without touching the document.
func (e *Engine) ClearHistory() {
	e.history.Clear()
}

// CanUndo reports whether undo would restore a state.
func (e *Engine) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether redo would restore a state.
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// State returns a deep copy of the document with counts and history availability.
func (e *Engine) State() *StateResult {
	e.mu.Lock()
	doc := e.doc.Clone()
	e.mu.Unlock()

	return &StateResult{
		Document:  doc,
		NodeCount: len(doc.Nodes),
		EdgeCount: len(doc.Edges),
		CanUndo:   e.history.CanUndo(),
		CanRedo:   e.history.CanRedo(),
	}
}

// Node returns a deep copy of one node and every edge touching it.
func (e *Engine) Node(id string) (*NodeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node := e.doc.FindNode(id)
	if node == nil {
		return nil, &NodeNotFoundError{ID: id}
	}
	res := &NodeResult{Node: node.Clone(), Edges: []*graph.Edge{}}
	for _, edge := range e.doc.EdgesTouching(id) {
		res.Edges = append(res.Edges, edge.Clone())
	}
	return res, nil
}

// Document returns a deep copy of the live document.
func (e *Engine) Document() *graph.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// DocumentID returns the live document's id.
func (e *Engine) DocumentID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.ID
}

// SetName renames the live document.
func (e *Engine) SetName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc.Name = name
}

// MarshalDocument serializes the live document in its persisted shape.
func (e *Engine) MarshalDocument() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Marshal()
}

// Registry returns the node type registry the engine was built with.
func (e *Engine) Registry() *graph.NodeTypeRegistry {
	return e.registry
}

// Subscribe returns a channel receiving change events for committed mutations.
func (e *Engine) Subscribe() chan ChangeEvent {
	return e.bus.Subscribe()
}

// Unsubscribe removes a change subscription and closes its channel.
func (e *Engine) Unsubscribe(ch chan ChangeEvent) {
	e.bus.Unsubscribe(ch)
}

// maxExecutionOrder scans the document for the highest executionOrder value.
func maxExecutionOrder(doc *graph.Document) float64 {
	max := 0.0
	for _, n := range doc.Nodes {
		if v, ok := n.Data["executionOrder"].(float64); ok && v > max {
			max = v
		}
	}
	return max
}

// uniqueNodeID returns the requested id, or the first free suffixed variant
// when it collides with an existing node.
func uniqueNodeID(doc *graph.Document, requested string) string {
	if !doc.HasNode(requested) {
		return requested
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", requested, i)
		if !doc.HasNode(candidate) {
			return candidate
		}
	}
}

// autoNodeID generates an id of the form type-N for specs without one.
func autoNodeID(doc *graph.Document, nodeType string) string {
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", nodeType, i)
		if !doc.HasNode(candidate) {
			return candidate
		}
	}
}

func edgeIDs(edges []*graph.Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func notNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
