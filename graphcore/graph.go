// Package graphcore implements the typed directed graph substrate shared by
// sketches and executable machines: nodes keyed by a stable integer id,
// at-most-one edge per ordered pair, insertion-order iteration, and the
// incidence indexes (arriving/leaving) that the rest of fluidmap builds on.
package graphcore

import (
	"fmt"

	"github.com/fluidlab/fluidmap/ferrors"
)

// NodeID identifies a node, globally unique within its Graph.
type NodeID int64

// Edge is identified by its ordered endpoint pair. Index disambiguates
// parallel edges in a true multigraph; Graph currently enforces at most one
// edge per ordered pair (see AddEdge), so Index is always 0 — it is kept on
// the type so a future relaxation of that invariant does not change the
// representation.
type Edge struct {
	Source NodeID
	Target NodeID
	Index  int
}

func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.Source, e.Target)
}

// Node carries no payload beyond its id at this layer; subtypes (fluidic
// container nodes) attach payload alongside, not inside, a Node.
type Node struct {
	ID NodeID
}

// Graph is a directed graph: at most one edge per ordered (source, target)
// pair, insertion order preserved and observable on every iteration surface.
type Graph struct {
	name string

	nodes     map[NodeID]Node
	nodeOrder []NodeID

	edges     map[Edge]struct{}
	edgeOrder []Edge

	// arriving/leaving have no key for a node that was never added or that
	// was removed — distinct from a present node with no edges, whose key
	// maps to an empty (possibly nil) slice.
	arriving map[NodeID][]Edge
	leaving  map[NodeID][]Edge
}

// New creates an empty named graph.
func New(name string) *Graph {
	return &Graph{
		name:     name,
		nodes:    make(map[NodeID]Node),
		edges:    make(map[Edge]struct{}),
		arriving: make(map[NodeID][]Edge),
		leaving:  make(map[NodeID][]Edge),
	}
}

// Name returns the graph's name, set at construction.
func (g *Graph) Name() string { return g.name }

// AddNode inserts a node. Fails if the id is already present.
func (g *Graph) AddNode(id NodeID) error {
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("graphcore: add node %d: %w (already present)", id, ferrors.ErrInvalidGraph)
	}
	g.nodes[id] = Node{ID: id}
	g.nodeOrder = append(g.nodeOrder, id)
	g.arriving[id] = nil
	g.leaving[id] = nil
	return nil
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge inserts an edge. Fails if either endpoint is missing or an edge
// with the same (source, target) is already present.
func (g *Graph) AddEdge(e Edge) error {
	if !g.HasNode(e.Source) {
		return fmt.Errorf("graphcore: add edge %s: missing source %d: %w", e, e.Source, ferrors.ErrInvalidGraph)
	}
	if !g.HasNode(e.Target) {
		return fmt.Errorf("graphcore: add edge %s: missing target %d: %w", e, e.Target, ferrors.ErrInvalidGraph)
	}
	key := Edge{Source: e.Source, Target: e.Target}
	if _, ok := g.edges[key]; ok {
		return fmt.Errorf("graphcore: add edge %s: already present: %w", e, ferrors.ErrInvalidGraph)
	}
	g.edges[key] = struct{}{}
	g.edgeOrder = append(g.edgeOrder, key)
	g.leaving[e.Source] = append(g.leaving[e.Source], key)
	g.arriving[e.Target] = append(g.arriving[e.Target], key)
	return nil
}

// RemoveNode removes a node and every edge incident to it. Fails if absent.
func (g *Graph) RemoveNode(id NodeID) error {
	if !g.HasNode(id) {
		return fmt.Errorf("graphcore: remove node %d: %w (not present)", id, ferrors.ErrInvalidGraph)
	}

	incident := make(map[Edge]struct{})
	for _, e := range g.arriving[id] {
		incident[e] = struct{}{}
	}
	for _, e := range g.leaving[id] {
		incident[e] = struct{}{}
	}
	for e := range incident {
		g.removeEdgeUnchecked(e)
	}

	delete(g.nodes, id)
	delete(g.arriving, id)
	delete(g.leaving, id)
	g.nodeOrder = removeID(g.nodeOrder, id)
	return nil
}

// RemoveEdge removes a single edge. Fails if absent.
func (g *Graph) RemoveEdge(e Edge) error {
	key := Edge{Source: e.Source, Target: e.Target}
	if _, ok := g.edges[key]; !ok {
		return fmt.Errorf("graphcore: remove edge %s: %w (not present)", e, ferrors.ErrInvalidGraph)
	}
	g.removeEdgeUnchecked(key)
	return nil
}

func (g *Graph) removeEdgeUnchecked(e Edge) {
	delete(g.edges, e)
	g.edgeOrder = removeEdge(g.edgeOrder, e)
	g.leaving[e.Source] = removeEdge(g.leaving[e.Source], e)
	g.arriving[e.Target] = removeEdge(g.arriving[e.Target], e)
}

// Arriving returns the edges arriving at id in insertion order. ok is false
// when id is absent, distinct from a present node with no arriving edges.
func (g *Graph) Arriving(id NodeID) (edges []Edge, ok bool) {
	edges, ok = g.arriving[id]
	return
}

// Leaving returns the edges leaving id in insertion order. ok is false when
// id is absent, distinct from a present node with no leaving edges.
func (g *Graph) Leaving(id NodeID) (edges []Edge, ok bool) {
	edges, ok = g.leaving[id]
	return
}

// HasEdge reports whether an edge with the given (source, target) exists.
func (g *Graph) HasEdge(source, target NodeID) bool {
	_, ok := g.edges[Edge{Source: source, Target: target}]
	return ok
}

// GetEdge returns the edge between source and target, if present.
func (g *Graph) GetEdge(source, target NodeID) (Edge, bool) {
	key := Edge{Source: source, Target: target}
	_, ok := g.edges[key]
	return key, ok
}

// Nodes returns all node ids in insertion order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edgeOrder))
	copy(out, g.edgeOrder)
	return out
}

// NodeCount and EdgeCount report the current sizes.
func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

func removeID(s []NodeID, id NodeID) []NodeID {
	for i, v := range s {
		if v == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func removeEdge(s []Edge, e Edge) []Edge {
	for i, v := range s {
		if v.Source == e.Source && v.Target == e.Target {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
