// Package protocol walks an operation graph (the automation script that
// drives a fluidic sketch over time) and extracts the set of sketch edges
// that every valid mapping of that sketch must realize as flows.
package protocol

import (
	"fmt"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/graphcore"
)

// OperationKind names the concrete operation kinds this pre-pass recognizes,
// per original_source/tst_graph.cpp's makeTimeProtocol fixture and the
// distilled spec's examples (set-continuous-flow, transfer, load-container
// from an upstream inlet, mix via recirculation).
type OperationKind int

const (
	// OpOther is any operation the pre-pass does not need to interpret
	// (e.g. TimeStep, a bare Loop guard) — it contributes no required edge.
	OpOther OperationKind = iota
	// OpLoadContainer loads a container; contributes an edge only when
	// backed by an upstream inlet container (UpstreamInlet set).
	OpLoadContainer
	// OpSetContinuousFlow sets a continuous flow between two containers;
	// always contributes its sketch edge.
	OpSetContinuousFlow
	// OpTransfer moves fluid between two containers in one shot; always
	// contributes its sketch edge.
	OpTransfer
	// OpMix mixes a container; contributes its recirculation edge only
	// when ViaRecirculation is set.
	OpMix
	// OpDiverge is a conditional branch: both successor sub-graphs'
	// required edges are unioned in, since either may execute at runtime.
	OpDiverge
)

// OperationID identifies an operation node in a ProtocolGraph.
type OperationID int64

// Operation is one node of the operation graph.
type Operation struct {
	ID   OperationID
	Kind OperationKind

	// Source/Target identify the sketch containers involved, for kinds that
	// move fluid between exactly two containers (SetContinuousFlow,
	// Transfer), and for LoadContainer and Mix as described on
	// UpstreamInlet and ViaRecirculation. Unused by other kinds.
	Source, Target graphcore.NodeID

	// UpstreamInlet is set for OpLoadContainer when the load is backed by
	// an upstream inlet container; Source then names that inlet and Target
	// the loaded container.
	UpstreamInlet bool

	// ViaRecirculation is set for OpMix when mixing is implemented by
	// recirculating through Source back into Target.
	ViaRecirculation bool
}

// ProtocolGraph mirrors graphcore.Graph structurally but over operation
// identifiers: operation nodes plus directed edges describing execution
// order (sequencing, loop back-edges, and the two arms of a Diverge).
type ProtocolGraph struct {
	name       string
	operations map[OperationID]Operation
	order      []OperationID
	successors map[OperationID][]OperationID
}

// NewProtocolGraph creates an empty named protocol graph.
func NewProtocolGraph(name string) *ProtocolGraph {
	return &ProtocolGraph{
		name:       name,
		operations: make(map[OperationID]Operation),
		successors: make(map[OperationID][]OperationID),
	}
}

// AddOperation registers an operation node.
func (p *ProtocolGraph) AddOperation(op Operation) error {
	if _, exists := p.operations[op.ID]; exists {
		return fmt.Errorf("protocol: operation %d already exists: %w", op.ID, ferrors.ErrInvalidGraph)
	}
	p.operations[op.ID] = op
	p.order = append(p.order, op.ID)
	return nil
}

// Connect records that to may execute after from (sequencing, loop
// back-edge, or one arm of a conditional branch).
func (p *ProtocolGraph) Connect(from, to OperationID) error {
	if _, ok := p.operations[from]; !ok {
		return fmt.Errorf("protocol: unknown operation %d: %w", from, ferrors.ErrInvalidGraph)
	}
	if _, ok := p.operations[to]; !ok {
		return fmt.Errorf("protocol: unknown operation %d: %w", to, ferrors.ErrInvalidGraph)
	}
	p.successors[from] = append(p.successors[from], to)
	return nil
}

// RequiredFlows walks every operation reachable from the graph's
// insertion-ordered roots and returns the set of sketch edges (as flows of
// length 1) that a valid mapping must realize, deduplicated by
// graphcore.Flow.ToText(). Loop back-edges are handled by the visited set:
// each operation's contribution is collected once regardless of how many
// times a cyclic walk would otherwise revisit it.
func (p *ProtocolGraph) RequiredFlows() ([]*graphcore.Flow, error) {
	seenText := make(map[string]struct{})
	var out []*graphcore.Flow
	visited := make(map[OperationID]bool)

	add := func(u, v graphcore.NodeID) error {
		f, err := graphcore.NewFlowFromEdges([]graphcore.Edge{{Source: u, Target: v}})
		if err != nil {
			return err
		}
		text := f.ToText()
		if _, ok := seenText[text]; ok {
			return nil
		}
		seenText[text] = struct{}{}
		out = append(out, f)
		return nil
	}

	var walk func(id OperationID) error
	walk = func(id OperationID) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		op, ok := p.operations[id]
		if !ok {
			return fmt.Errorf("protocol: unknown operation %d: %w", id, ferrors.ErrInvalidGraph)
		}
		switch op.Kind {
		case OpSetContinuousFlow, OpTransfer:
			if err := add(op.Source, op.Target); err != nil {
				return err
			}
		case OpLoadContainer:
			if op.UpstreamInlet {
				if err := add(op.Source, op.Target); err != nil {
					return err
				}
			}
		case OpMix:
			if op.ViaRecirculation {
				if err := add(op.Source, op.Target); err != nil {
					return err
				}
			}
		case OpDiverge, OpOther:
			// Diverge contributes no edge of its own; both its successor
			// arms are walked below like any other operation, which unions
			// their required edges in.
		}
		for _, next := range p.successors[id] {
			if err := walk(next); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range p.order {
		if len(predecessorsOf(p, id)) == 0 {
			if err := walk(id); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// predecessorsOf returns the operations with id in their successor list.
// Used only to find root operations (those nothing points to) so the walk
// starts from every entry point in insertion order.
func predecessorsOf(p *ProtocolGraph, id OperationID) []OperationID {
	var preds []OperationID
	for from, tos := range p.successors {
		for _, to := range tos {
			if to == id {
				preds = append(preds, from)
			}
		}
	}
	return preds
}
