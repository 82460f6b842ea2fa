package fluidic

import (
	"fmt"
	"sort"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/graphcore"
)

// Container is a fluidic container node: a sketch ContainerNode carries only
// type and capacity; a machine ExecutableContainerNode additionally carries
// CapabilitySlots (Capabilities != nil).
type Container struct {
	ID           graphcore.NodeID
	Type         ContainerNodeType
	Capacity     float64
	Capabilities *CapabilitySlots
}

// IsExecutable reports whether this container carries capability slots
// (i.e. is a machine container rather than a sketch container).
func (c Container) IsExecutable() bool { return c.Capabilities != nil }

// ConditionalEdge extends a plain edge with the set of edges allowed to
// immediately precede it in a flow. An empty set means "no restriction".
type ConditionalEdge struct {
	Edge                graphcore.Edge
	AllowedPredecessors map[graphcore.Edge]struct{}
}

// Unrestricted reports whether this conditional edge has no predecessor
// restriction (empty allowed set is a wildcard per §3).
func (c ConditionalEdge) Unrestricted() bool { return len(c.AllowedPredecessors) == 0 }

// Graph is a typed fluidic graph: containers with (movement, role) tags and
// capability slots, plain and conditional edges, built atop graphcore.Graph.
type Graph struct {
	name       string
	g          *graphcore.Graph
	containers map[graphcore.NodeID]Container
	conditions map[graphcore.Edge]ConditionalEdge
}

// NewGraph creates an empty named fluidic graph.
func NewGraph(name string) *Graph {
	return &Graph{
		name:       name,
		g:          graphcore.New(name),
		containers: make(map[graphcore.NodeID]Container),
		conditions: make(map[graphcore.Edge]ConditionalEdge),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// Core exposes the underlying generic graph for the path enumerator and
// flow generator, which only need node/edge structure, not fluidic types.
func (g *Graph) Core() *graphcore.Graph { return g.g }

// AddContainer adds a sketch-side container: type and capacity only, no
// capability requirement is checked.
func (g *Graph) AddContainer(id graphcore.NodeID, t ContainerNodeType, capacity float64) error {
	if err := g.g.AddNode(id); err != nil {
		return err
	}
	g.containers[id] = Container{ID: id, Type: t, Capacity: capacity}
	return nil
}

// AddExecutableContainer adds a machine-side container, validating that the
// given capability slots satisfy the role's requirement (§3).
func (g *Graph) AddExecutableContainer(id graphcore.NodeID, t ContainerNodeType, capacity float64, caps CapabilitySlots) error {
	if err := caps.ValidateForRole(t.Role); err != nil {
		return err
	}
	if err := g.g.AddNode(id); err != nil {
		return err
	}
	g.containers[id] = Container{ID: id, Type: t, Capacity: capacity, Capabilities: &caps}
	return nil
}

// Container returns the container metadata for id.
func (g *Graph) Container(id graphcore.NodeID) (Container, bool) {
	c, ok := g.containers[id]
	return c, ok
}

// Containers returns all containers in insertion order.
func (g *Graph) Containers() []Container {
	out := make([]Container, 0, len(g.containers))
	for _, id := range g.g.Nodes() {
		out = append(out, g.containers[id])
	}
	return out
}

// Connect adds a plain (unconditional) edge u -> v.
func (g *Graph) Connect(u, v graphcore.NodeID) error {
	return g.g.AddEdge(graphcore.Edge{Source: u, Target: v})
}

// ConnectConditional adds a conditional edge u -> v whose traversal is
// permitted only when the immediately preceding edge in the flow is in
// allowed (or allowed is empty, meaning unrestricted). Self-reference and
// unknown edges in allowed are rejected on insertion.
func (g *Graph) ConnectConditional(u, v graphcore.NodeID, allowed []graphcore.Edge) error {
	edge := graphcore.Edge{Source: u, Target: v}
	for _, pred := range allowed {
		if pred.Source == u && pred.Target == v {
			return fmt.Errorf("fluidic: conditional edge %s: self-reference in allowed predecessors: %w", edge, ferrors.ErrInvalidGraph)
		}
		if !g.g.HasEdge(pred.Source, pred.Target) {
			return fmt.Errorf("fluidic: conditional edge %s: unknown predecessor %s: %w", edge, pred, ferrors.ErrInvalidGraph)
		}
	}
	if err := g.g.AddEdge(edge); err != nil {
		return err
	}
	allowedSet := make(map[graphcore.Edge]struct{}, len(allowed))
	for _, pred := range allowed {
		allowedSet[graphcore.Edge{Source: pred.Source, Target: pred.Target}] = struct{}{}
	}
	g.conditions[edge] = ConditionalEdge{Edge: edge, AllowedPredecessors: allowedSet}
	return nil
}

// GetEdge returns the edge between u and v, used by conditional-predicate
// builders.
func (g *Graph) GetEdge(u, v graphcore.NodeID) (graphcore.Edge, bool) {
	return g.g.GetEdge(u, v)
}

// Condition returns the conditional-edge record for edge, if it is
// conditional. ok is false for a plain edge (treated as unrestricted).
func (g *Graph) Condition(edge graphcore.Edge) (ConditionalEdge, bool) {
	key := graphcore.Edge{Source: edge.Source, Target: edge.Target}
	c, ok := g.conditions[key]
	return c, ok
}

// AllowsPredecessor reports whether candidate may legally follow prev in a
// flow: true when edge is unconditional, conditional with an empty allowed
// set, or prev is in the allowed set. prevOK is false for the first edge of
// a flow (no predecessor yet); a restricted conditional edge is then
// rejected, since no predecessor can be in its allowed set.
func (g *Graph) AllowsPredecessor(edge graphcore.Edge, prev graphcore.Edge, prevOK bool) bool {
	cond, isConditional := g.Condition(edge)
	if !isConditional || cond.Unrestricted() {
		return true
	}
	if !prevOK {
		return false
	}
	_, allowed := cond.AllowedPredecessors[graphcore.Edge{Source: prev.Source, Target: prev.Target}]
	return allowed
}

// NodesOfType returns every container id whose type matches the predicate,
// in ascending id order (used by type-predicate path enumeration).
func (g *Graph) NodesOfType(predicate ContainerNodeType) []graphcore.NodeID {
	var out []graphcore.NodeID
	for _, id := range g.g.Nodes() {
		if predicate.Matches(g.containers[id].Type) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
