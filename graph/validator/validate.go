// ABOUTME: Edge validation rules for workflow graphs plus whole-document lint for the CLI.
// ABOUTME: Validate classifies candidate edges against every rule; Lint adds structural checks.
package validator

import (
	"fmt"

	"github.com/2389-research/noder/graph"
)

// Rule names carried by rejections and diagnostics.
const (
	RuleDirectionMismatch = "direction-mismatch"
	RuleDistinctHandles   = "distinct-handles"
	RuleNoSelfLoop        = "no-self-loop"
	RuleKindMatch         = "kind-match"
)

// Violation is one failed rule on one candidate edge.
type Violation struct {
	Rule    string
	Message string
}

// Rejection carries a refused candidate edge and every rule it violated, in
// rule evaluation order.
type Rejection struct {
	Edge       *graph.Edge
	Violations []Violation
}

// Reasons renders the violations as "rule: message" strings.
func (r Rejection) Reasons() []string {
	reasons := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		reasons = append(reasons, v.Rule+": "+v.Message)
	}
	return reasons
}

// Diagnostic is one lint finding on a document.
type Diagnostic struct {
	Severity string // "error", "warning"
	Message  string
	NodeID   string
	EdgeID   string
	Rule     string
}

// Validate classifies candidate edges against the document's nodes. Every
// rule is evaluated independently so a rejection lists all violations on an
// edge, not just the first. An edge is accepted only when no rule fails.
// Neither the document nor the candidates are mutated.
func Validate(doc *graph.Document, candidates []*graph.Edge, reg *graph.NodeTypeRegistry) (accepted []*graph.Edge, rejections []Rejection) {
	for _, e := range candidates {
		var violations []Violation
		violations = append(violations, checkDirections(doc, e, reg)...)
		violations = append(violations, checkDistinctHandles(e)...)
		violations = append(violations, checkSelfLoop(e)...)
		violations = append(violations, checkKinds(doc, e, reg)...)

		if len(violations) == 0 {
			accepted = append(accepted, e)
		} else {
			rejections = append(rejections, Rejection{Edge: e, Violations: violations})
		}
	}
	return accepted, rejections
}

// checkDirections verifies the edge leaves an output handle and enters an
// input handle. Only declared directions can contradict the edge; a handle
// with no declaration anywhere takes the direction its role implies.
func checkDirections(doc *graph.Document, e *graph.Edge, reg *graph.NodeTypeRegistry) []Violation {
	var violations []Violation
	if src := doc.FindNode(e.Source); src != nil && e.SourceHandle != "" {
		if dir, declared := graph.ResolveDirection(reg, src, e.SourceHandle); declared && !dir.IsOutput() {
			violations = append(violations, Violation{
				Rule:    RuleDirectionMismatch,
				Message: fmt.Sprintf("source handle %q on node %q has direction %q, expected output", e.SourceHandle, e.Source, dir),
			})
		}
	}
	if tgt := doc.FindNode(e.Target); tgt != nil && e.TargetHandle != "" {
		if dir, declared := graph.ResolveDirection(reg, tgt, e.TargetHandle); declared && !dir.IsInput() {
			violations = append(violations, Violation{
				Rule:    RuleDirectionMismatch,
				Message: fmt.Sprintf("target handle %q on node %q has direction %q, expected input", e.TargetHandle, e.Target, dir),
			})
		}
	}
	return violations
}

// checkDistinctHandles flags edges naming the same handle id at both ends.
// Edges with no handle ids at all are left to the other rules.
func checkDistinctHandles(e *graph.Edge) []Violation {
	if e.SourceHandle == "" && e.TargetHandle == "" {
		return nil
	}
	if e.SourceHandle != e.TargetHandle {
		return nil
	}
	return []Violation{{
		Rule:    RuleDistinctHandles,
		Message: fmt.Sprintf("edge uses handle %q as both source and target", e.SourceHandle),
	}}
}

// checkSelfLoop flags edges whose source and target node are the same.
func checkSelfLoop(e *graph.Edge) []Violation {
	if e.Source != e.Target {
		return nil
	}
	return []Violation{{
		Rule:    RuleNoSelfLoop,
		Message: fmt.Sprintf("self-loop on node %q", e.Source),
	}}
}

// checkKinds verifies the source handle's kind is compatible with the
// target's. The comparison runs only when both endpoints carry a declared
// kind; absent metadata on either side never fails an edge.
func checkKinds(doc *graph.Document, e *graph.Edge, reg *graph.NodeTypeRegistry) []Violation {
	src := doc.FindNode(e.Source)
	tgt := doc.FindNode(e.Target)
	if src == nil || tgt == nil {
		return nil
	}
	sk := graph.ResolveKind(reg, src, e.SourceHandle, graph.DirectionOutput)
	tk := graph.ResolveKind(reg, tgt, e.TargetHandle, graph.DirectionInput)
	if !sk.Declared || !tk.Declared {
		return nil
	}
	if graph.Compatible(sk.Kind, tk.Kind) {
		return nil
	}
	return []Violation{{
		Rule:    RuleKindMatch,
		Message: fmt.Sprintf("source kind %q is not compatible with target kind %q", sk.Kind, tk.Kind),
	}}
}

// Lint runs structural checks plus the edge rules over a whole document,
// for use on loaded workflow files where anything may be malformed.
func Lint(doc *graph.Document, reg *graph.NodeTypeRegistry) []Diagnostic {
	var diags []Diagnostic

	diags = append(diags, checkDuplicateNodeIDs(doc)...)
	diags = append(diags, checkEdgeEndpoints(doc)...)
	diags = append(diags, checkEdgeIDs(doc)...)
	diags = append(diags, checkUnknownTypes(doc, reg)...)

	_, rejections := Validate(doc, doc.Edges, reg)
	for _, rej := range rejections {
		for _, v := range rej.Violations {
			diags = append(diags, Diagnostic{
				Severity: "error",
				Message:  v.Message,
				EdgeID:   rej.Edge.ID,
				Rule:     v.Rule,
			})
		}
	}
	return diags
}

// checkDuplicateNodeIDs flags node ids appearing more than once.
func checkDuplicateNodeIDs(doc *graph.Document) []Diagnostic {
	var diags []Diagnostic
	seen := make(map[string]bool)
	for _, n := range doc.Nodes {
		if seen[n.ID] {
			diags = append(diags, Diagnostic{
				Severity: "error",
				Message:  fmt.Sprintf("duplicate node id %q", n.ID),
				NodeID:   n.ID,
				Rule:     "duplicate-node-id",
			})
		}
		seen[n.ID] = true
	}
	return diags
}

// checkEdgeEndpoints verifies every edge references existing nodes.
func checkEdgeEndpoints(doc *graph.Document) []Diagnostic {
	var diags []Diagnostic
	for _, e := range doc.Edges {
		if !doc.HasNode(e.Source) {
			diags = append(diags, Diagnostic{
				Severity: "error",
				Message:  fmt.Sprintf("edge source node %q does not exist", e.Source),
				EdgeID:   e.ID,
				Rule:     "edge-endpoint-exists",
			})
		}
		if !doc.HasNode(e.Target) {
			diags = append(diags, Diagnostic{
				Severity: "error",
				Message:  fmt.Sprintf("edge target node %q does not exist", e.Target),
				EdgeID:   e.ID,
				Rule:     "edge-endpoint-exists",
			})
		}
	}
	return diags
}

// checkEdgeIDs flags edges whose stored id disagrees with the id derived
// from their endpoints.
func checkEdgeIDs(doc *graph.Document) []Diagnostic {
	var diags []Diagnostic
	for _, e := range doc.Edges {
		if derived := e.DerivedID(); e.ID != derived {
			diags = append(diags, Diagnostic{
				Severity: "warning",
				Message:  fmt.Sprintf("edge id %q does not match derived id %q", e.ID, derived),
				EdgeID:   e.ID,
				Rule:     "edge-id-derived",
			})
		}
	}
	return diags
}

// checkUnknownTypes flags node types absent from the registry. Unknown
// types still load and edit; the warning exists for operators inspecting
// files by hand.
func checkUnknownTypes(doc *graph.Document, reg *graph.NodeTypeRegistry) []Diagnostic {
	if reg == nil {
		return nil
	}
	var diags []Diagnostic
	for _, n := range doc.Nodes {
		if !reg.Has(n.Type) {
			diags = append(diags, Diagnostic{
				Severity: "warning",
				Message:  fmt.Sprintf("node %q has unknown type %q", n.ID, n.Type),
				NodeID:   n.ID,
				Rule:     "type-known",
			})
		}
	}
	return diags
}
