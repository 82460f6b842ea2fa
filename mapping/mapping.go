// Package mapping implements the backtracking search that assigns a
// fluidic sketch onto an executable machine: each sketch container to a
// distinct machine container, and each sketch edge (plus every protocol
// pre-pass required flow) to a machine flow.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/flowgen"
	"github.com/fluidlab/fluidmap/fluidic"
	"github.com/fluidlab/fluidmap/graphcore"
	"github.com/fluidlab/fluidmap/paths"
)

// subtypeTable lists, for each sketch role, the machine roles acceptable as
// a structural supertype (§4.F). Every role accepts itself.
var subtypeTable = map[fluidic.RoleType][]fluidic.RoleType{
	fluidic.RoleInlet:               {fluidic.RoleInlet, fluidic.RoleConvergentSwitchInlet, fluidic.RoleBidirectionalSwitch},
	fluidic.RoleSink:                {fluidic.RoleSink, fluidic.RoleDivergentSwitchSink, fluidic.RoleBidirectionalSwitch},
	fluidic.RoleFlow:                {fluidic.RoleFlow, fluidic.RoleBidirectionalSwitch},
	fluidic.RoleConvergentSwitch:    {fluidic.RoleConvergentSwitch, fluidic.RoleBidirectionalSwitch, fluidic.RoleConvergentSwitchInlet},
	fluidic.RoleDivergentSwitch:     {fluidic.RoleDivergentSwitch, fluidic.RoleBidirectionalSwitch, fluidic.RoleDivergentSwitchSink},
	fluidic.RoleBidirectionalSwitch: {fluidic.RoleBidirectionalSwitch},
}

// Mapping is the result of a successful search: a one-to-one node
// assignment and, for every sketch edge (including those contributed by
// required flows), the machine flow realizing it.
type Mapping struct {
	nodes map[graphcore.NodeID]graphcore.NodeID
	edges map[graphcore.Edge]*graphcore.Flow
}

// MappedContainerID returns the machine container assigned to sketchID.
func (m *Mapping) MappedContainerID(sketchID graphcore.NodeID) (graphcore.NodeID, bool) {
	id, ok := m.nodes[sketchID]
	return id, ok
}

// MappedEdge returns the machine flow realizing the given sketch edge.
func (m *Mapping) MappedEdge(sketchEdge graphcore.Edge) (*graphcore.Flow, bool) {
	f, ok := m.edges[sketchEdge]
	return f, ok
}

// Engine holds the two graphs a search is run against. Both are treated as
// immutable for the lifetime of the engine; the search snapshots edge-used
// sets, never the graphs themselves.
type Engine struct {
	sketch  *fluidic.Graph
	machine *fluidic.Graph
}

// NewEngine pairs a sketch with the machine it should be mapped onto.
func NewEngine(sketch, machine *fluidic.Graph) *Engine {
	return &Engine{sketch: sketch, machine: machine}
}

// StartMapping runs the search. requiredFlows is the set of sketch flows
// the protocol pre-pass (protocol.RequiredFlows) declared mandatory; each
// is solved for exactly as any other sketch edge, then additionally
// reassembled and checked once every sketch edge is resolved. ctx supplies
// the cooperative cancellation flag and wall-clock budget of §5: it is
// checked between top-level node choices.
func (e *Engine) StartMapping(ctx context.Context, requiredFlows []*graphcore.Flow) (*Mapping, error) {
	if err := e.checkIncompatibleSketch(); err != nil {
		return nil, err
	}
	order := e.candidateOrder()
	state := &searchState{
		mapped:    make(map[graphcore.NodeID]graphcore.NodeID),
		used:      make(map[graphcore.NodeID]bool),
		usedEdges: make(map[graphcore.Edge]bool),
		edgeFlows: make(map[graphcore.Edge]*graphcore.Flow),
		required:  requiredFlows,
	}
	result, err := e.search(ctx, order, 0, state)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("mapping: no feasible assignment found: %w", ferrors.ErrInfeasible)
	}
	return result, nil
}

type searchState struct {
	mapped    map[graphcore.NodeID]graphcore.NodeID
	used      map[graphcore.NodeID]bool
	usedEdges map[graphcore.Edge]bool
	edgeFlows map[graphcore.Edge]*graphcore.Flow
	required  []*graphcore.Flow
}

// candidateOrder ranks sketch nodes most-constrained-first: roles with
// fewer acceptable machine roles first, then higher total degree, then
// ascending sketch id (§4.F "Initial candidate ordering").
func (e *Engine) candidateOrder() []graphcore.NodeID {
	ids := append([]graphcore.NodeID(nil), e.sketch.Core().Nodes()...)
	degree := func(id graphcore.NodeID) int {
		in, _ := e.sketch.Core().Arriving(id)
		out, _ := e.sketch.Core().Leaving(id)
		return len(in) + len(out)
	}
	constraint := func(id graphcore.NodeID) int {
		c, _ := e.sketch.Container(id)
		return len(subtypeTable[c.Type.Role])
	}
	sort.SliceStable(ids, func(i, j int) bool {
		ci, cj := constraint(ids[i]), constraint(ids[j])
		if ci != cj {
			return ci < cj
		}
		di, dj := degree(ids[i]), degree(ids[j])
		if di != dj {
			return di > dj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// candidateMachineNodes enumerates machine nodes compatible with ns, not
// yet in the image of M, in ascending machine id order.
func (e *Engine) candidateMachineNodes(ns graphcore.NodeID, used map[graphcore.NodeID]bool) []graphcore.NodeID {
	sc, _ := e.sketch.Container(ns)
	machineIDs := append([]graphcore.NodeID(nil), e.machine.Core().Nodes()...)
	sort.Slice(machineIDs, func(i, j int) bool { return machineIDs[i] < machineIDs[j] })

	var out []graphcore.NodeID
	for _, nm := range machineIDs {
		if used[nm] {
			continue
		}
		mc, _ := e.machine.Container(nm)
		if e.compatible(sc, mc) {
			out = append(out, nm)
		}
	}
	return out
}

func (e *Engine) compatible(sketchNode, machineNode fluidic.Container) bool {
	if !roleAndCapabilityCompatible(sketchNode, machineNode) {
		return false
	}
	sin, _ := e.sketch.Core().Arriving(sketchNode.ID)
	sout, _ := e.sketch.Core().Leaving(sketchNode.ID)
	min, _ := e.machine.Core().Arriving(machineNode.ID)
	mout, _ := e.machine.Core().Leaving(machineNode.ID)
	if len(sin) > len(min) || len(sout) > len(mout) {
		return false
	}
	return true
}

// roleAndCapabilityCompatible checks the role-subtype, movement, and
// capability requirements a machine node must meet to host sketchNode,
// ignoring degree — used both by compatible() and by the static
// incompatible-sketch pre-check, which must not conflate "no structurally
// suitable machine node exists anywhere" with "this specific node's degree
// is already spoken for by another assignment".
func roleAndCapabilityCompatible(sketchNode, machineNode fluidic.Container) bool {
	acceptable := subtypeTable[sketchNode.Type.Role]
	roleOK := false
	for _, r := range acceptable {
		if r == machineNode.Type.Role {
			roleOK = true
			break
		}
	}
	if !roleOK {
		return false
	}
	if !movementCompatible(sketchNode.Type.Movement, machineNode.Type.Movement) {
		return false
	}
	if machineNode.Capabilities == nil {
		return false
	}
	if err := machineNode.Capabilities.ValidateForRole(sketchNode.Type.Role); err != nil {
		return false
	}
	return true
}

// checkIncompatibleSketch performs the static pre-check of §7: a sketch
// node whose role/capability requirement no machine node anywhere can ever
// satisfy is reported as ErrIncompatibleSketch before the search runs,
// distinguishing it from a search that merely exhausts every candidate
// ordering (ErrInfeasible).
func (e *Engine) checkIncompatibleSketch() error {
	machineContainers := e.machine.Containers()
	for _, sc := range e.sketch.Containers() {
		ok := false
		for _, mc := range machineContainers {
			if roleAndCapabilityCompatible(sc, mc) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("mapping: sketch container %d (role %s) has no structurally compatible machine container: %w", sc.ID, sc.Type.Role, ferrors.ErrIncompatibleSketch)
		}
	}
	return nil
}

func movementCompatible(a, b fluidic.MovementType) bool {
	return a == fluidic.MovementIrrelevant || b == fluidic.MovementIrrelevant || a == b
}

// search implements the six-step procedure of §4.F. It returns a non-nil
// Mapping on success, (nil, nil) when this branch is infeasible (caller
// should try the next candidate or report Infeasible), and a non-nil error
// only when ctx signals cancellation or timeout.
func (e *Engine) search(ctx context.Context, order []graphcore.NodeID, idx int, st *searchState) (*Mapping, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if idx == len(order) {
		if err := e.verifyRequiredFlows(st); err != nil {
			if errors.Is(err, ferrors.ErrInfeasible) {
				return nil, nil
			}
			return nil, err
		}
		return &Mapping{nodes: copyNodeMap(st.mapped), edges: copyEdgeMap(st.edgeFlows)}, nil
	}

	ns := order[idx]
	for _, nm := range e.candidateMachineNodes(ns, st.used) {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		st.mapped[ns] = nm
		st.used[nm] = true

		newly, ok, err := e.resolveEdges(st)
		if err != nil {
			return nil, err
		}

		var result *Mapping
		if ok {
			result, err = e.search(ctx, order, idx+1, st)
			if err != nil {
				return nil, err
			}
		}

		if result != nil {
			return result, nil
		}

		undoResolved(newly, st)
		delete(st.mapped, ns)
		delete(st.used, nm)
	}
	return nil, nil
}

// resolveEdges solves every sketch edge whose both endpoints are now
// mapped but which has no machine flow yet. It returns the keys resolved
// during this call (so the caller can undo them) and whether all such
// edges were solved successfully.
func (e *Engine) resolveEdges(st *searchState) ([]graphcore.Edge, bool, error) {
	var newly []graphcore.Edge
	for _, se := range e.sketch.Core().Edges() {
		if _, done := st.edgeFlows[se]; done {
			continue
		}
		mu, uok := st.mapped[se.Source]
		mv, vok := st.mapped[se.Target]
		if !uok || !vok {
			continue
		}
		flow, found, err := findMachinePath(e.machine, mu, mv, st.usedEdges)
		if err != nil {
			return newly, false, err
		}
		if !found {
			return newly, false, nil
		}
		st.edgeFlows[se] = flow
		for _, me := range flow.Edges() {
			st.usedEdges[me] = true
		}
		newly = append(newly, se)
	}
	return newly, true, nil
}

func undoResolved(newly []graphcore.Edge, st *searchState) {
	for _, se := range newly {
		f := st.edgeFlows[se]
		for _, me := range f.Edges() {
			delete(st.usedEdges, me)
		}
		delete(st.edgeFlows, se)
	}
}

// findMachinePath returns the first simple machine path from src to dst
// whose edges are disjoint from used and whose conditional edges all have
// their preceding edge in their allowed set.
func findMachinePath(machine *fluidic.Graph, src, dst graphcore.NodeID, used map[graphcore.Edge]bool) (*graphcore.Flow, bool, error) {
	it, err := paths.NewFromIDToID(machine, src, dst)
	if err != nil {
		return nil, false, err
	}
	for it.HasNext() {
		f, _ := it.Next()
		if pathUsable(machine, f, used) {
			return f, true, nil
		}
	}
	return nil, false, nil
}

func pathUsable(machine *fluidic.Graph, f *graphcore.Flow, used map[graphcore.Edge]bool) bool {
	edges := f.Edges()
	for _, e := range edges {
		if used[e] {
			return false
		}
	}
	for i, e := range edges {
		if i == 0 {
			if !machine.AllowsPredecessor(e, graphcore.Edge{}, false) {
				return false
			}
			continue
		}
		if !machine.AllowsPredecessor(e, edges[i-1], true) {
			return false
		}
	}
	return true
}

// verifyRequiredFlows reassembles, for each required sketch flow, the
// concatenation of its constituent sketch edges' already-chosen machine
// flows into a single machine flow (via flowgen, in case reordering is
// needed) and checks the join points respect conditional-edge predicates.
func (e *Engine) verifyRequiredFlows(st *searchState) error {
	for _, rf := range st.required {
		var bag []graphcore.Edge
		for _, se := range rf.Edges() {
			mf, ok := st.edgeFlows[se]
			if !ok {
				return fmt.Errorf("mapping: required flow %s: constituent edge %s unresolved: %w", rf.ToText(), se, ferrors.ErrInfeasible)
			}
			bag = append(bag, mf.Edges()...)
		}
		assembled, err := flowgen.Assemble(bag)
		if err != nil {
			return fmt.Errorf("mapping: required flow %s: %w: %v", rf.ToText(), ferrors.ErrInfeasible, err)
		}
		if !pathUsable(e.machine, assembled, map[graphcore.Edge]bool{}) {
			return fmt.Errorf("mapping: required flow %s: conditional predecessor violated: %w", rf.ToText(), ferrors.ErrInfeasible)
		}
	}
	return nil
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("mapping: %w", ferrors.ErrTimeout)
		}
		return fmt.Errorf("mapping: %w", ferrors.ErrCancelled)
	default:
		return nil
	}
}

func copyNodeMap(m map[graphcore.NodeID]graphcore.NodeID) map[graphcore.NodeID]graphcore.NodeID {
	out := make(map[graphcore.NodeID]graphcore.NodeID, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyEdgeMap(m map[graphcore.Edge]*graphcore.Flow) map[graphcore.Edge]*graphcore.Flow {
	out := make(map[graphcore.Edge]*graphcore.Flow, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
