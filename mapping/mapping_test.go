package mapping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/fluidic"
	"github.com/fluidlab/fluidmap/graphcore"
)

func actuator(name string) *fluidic.ActuatorRef {
	return &fluidic.ActuatorRef{CommunicationsChannelID: 1, PluginName: name}
}

func mustAddSketch(t *testing.T, g *fluidic.Graph, id graphcore.NodeID, role fluidic.RoleType, movement fluidic.MovementType) {
	t.Helper()
	if err := g.AddContainer(id, fluidic.ContainerNodeType{Movement: movement, Role: role}, 100.0); err != nil {
		t.Fatalf("add sketch container %d: %v", id, err)
	}
}

func mustAddMachine(t *testing.T, g *fluidic.Graph, id graphcore.NodeID, role fluidic.RoleType, movement fluidic.MovementType, caps fluidic.CapabilitySlots) {
	t.Helper()
	if err := g.AddExecutableContainer(id, fluidic.ContainerNodeType{Movement: movement, Role: role}, 100.0, caps); err != nil {
		t.Fatalf("add machine container %d: %v", id, err)
	}
}

func mustConnect(t *testing.T, g *fluidic.Graph, u, v graphcore.NodeID) {
	t.Helper()
	if err := g.Connect(u, v); err != nil {
		t.Fatalf("connect %d->%d: %v", u, v, err)
	}
}

// buildTurbidostatSketch reproduces the makeTurbidostatSketch fixture:
// continuous inlet(1) -> continuous flow(2) -> irrelevant-movement sink(3).
func buildTurbidostatSketch(t *testing.T) *fluidic.Graph {
	t.Helper()
	g := fluidic.NewGraph("sketchTurbidostat")
	mustAddSketch(t, g, 1, fluidic.RoleInlet, fluidic.MovementContinuous)
	mustAddSketch(t, g, 2, fluidic.RoleFlow, fluidic.MovementContinuous)
	mustAddSketch(t, g, 3, fluidic.RoleSink, fluidic.MovementIrrelevant)
	mustConnect(t, g, 1, 2)
	mustConnect(t, g, 2, 3)
	return g
}

// buildMappingMachine reproduces the seven-container mapping machine
// fixture used throughout paths tests: InletContainer(1,4),
// DivergentSwitchSink(2), FlowContainer(3), ConvergentSwitchInlet(5),
// BidirectionalSwitch(6), ConvergentSwitch(7).
func buildMappingMachine(t *testing.T) *fluidic.Graph {
	t.Helper()
	g := fluidic.NewGraph("mappingMachine")
	extractor := actuator("EvoprogV2Pump")
	injector := actuator("EvoprogDummyInjector")
	control := *actuator("Evoprog4WayValve")
	odSensor := actuator("EvoprogOdSensor")
	cont := fluidic.MovementContinuous

	mustAddMachine(t, g, 1, fluidic.RoleInlet, cont, fluidic.CapabilitySlots{Extractor: extractor})
	mustAddMachine(t, g, 2, fluidic.RoleDivergentSwitchSink, cont, fluidic.CapabilitySlots{
		Injector: injector, Extractor: extractor, Controls: []fluidic.ActuatorRef{control},
	})
	mustAddMachine(t, g, 3, fluidic.RoleFlow, cont, fluidic.CapabilitySlots{Extractor: extractor, Injector: injector})
	mustAddMachine(t, g, 4, fluidic.RoleInlet, cont, fluidic.CapabilitySlots{Extractor: extractor})
	mustAddMachine(t, g, 5, fluidic.RoleConvergentSwitchInlet, cont, fluidic.CapabilitySlots{
		Injector: injector, Extractor: extractor, Controls: []fluidic.ActuatorRef{control},
	})
	mustAddMachine(t, g, 6, fluidic.RoleBidirectionalSwitch, cont, fluidic.CapabilitySlots{
		Extractor: extractor, Injector: injector, Controls: []fluidic.ActuatorRef{control, control}, ODSensor: odSensor,
	})
	mustAddMachine(t, g, 7, fluidic.RoleConvergentSwitch, cont, fluidic.CapabilitySlots{Injector: injector, Controls: []fluidic.ActuatorRef{control}})

	for _, e := range [][2]graphcore.NodeID{{1, 5}, {2, 5}, {3, 6}, {4, 6}, {5, 7}, {6, 7}, {6, 2}, {2, 3}} {
		mustConnect(t, g, e[0], e[1])
	}
	return g
}

func TestStartMappingTurbidostat(t *testing.T) {
	sketch := buildTurbidostatSketch(t)
	machine := buildMappingMachine(t)
	eng := NewEngine(sketch, machine)

	m, err := eng.StartMapping(context.Background(), nil)
	if err != nil {
		t.Fatalf("StartMapping: %v", err)
	}

	wantNodes := map[graphcore.NodeID]graphcore.NodeID{1: 4, 2: 3, 3: 6}
	for sketchID, wantMachineID := range wantNodes {
		got, ok := m.MappedContainerID(sketchID)
		if !ok {
			t.Fatalf("sketch node %d not mapped", sketchID)
		}
		if got != wantMachineID {
			t.Fatalf("sketch node %d mapped to %d, want %d", sketchID, got, wantMachineID)
		}
	}

	f1, ok := m.MappedEdge(graphcore.Edge{Source: 1, Target: 2})
	if !ok {
		t.Fatal("sketch edge 1->2 not mapped")
	}
	if got, want := f1.ToText(), "4->3:4->6;6->2;2->3;"; got != want {
		t.Fatalf("edge 1->2 mapped to %q, want %q", got, want)
	}

	f2, ok := m.MappedEdge(graphcore.Edge{Source: 2, Target: 3})
	if !ok {
		t.Fatal("sketch edge 2->3 not mapped")
	}
	if got, want := f2.ToText(), "3->6:3->6;"; got != want {
		t.Fatalf("edge 2->3 mapped to %q, want %q", got, want)
	}
}

// TestStartMappingConditionalEdgeForcesAlternatePath builds a machine where
// the lexicographically-first candidate path from the mapped inlet to the
// mapped sink is blocked by a conditional edge whose allowed-predecessor
// set can never be satisfied along that route, forcing the mapping engine
// to fall through to the next path.
func TestStartMappingConditionalEdgeForcesAlternatePath(t *testing.T) {
	sketch := fluidic.NewGraph("directSketch")
	mustAddSketch(t, sketch, 1, fluidic.RoleInlet, fluidic.MovementIrrelevant)
	mustAddSketch(t, sketch, 2, fluidic.RoleSink, fluidic.MovementIrrelevant)
	mustConnect(t, sketch, 1, 2)

	machine := fluidic.NewGraph("branchyMachine")
	mustAddMachine(t, machine, 1, fluidic.RoleInlet, fluidic.MovementIrrelevant, fluidic.CapabilitySlots{Extractor: actuator("e")})
	mustAddMachine(t, machine, 2, fluidic.RoleFlow, fluidic.MovementIrrelevant, fluidic.CapabilitySlots{Injector: actuator("i"), Extractor: actuator("e")})
	mustAddMachine(t, machine, 3, fluidic.RoleFlow, fluidic.MovementIrrelevant, fluidic.CapabilitySlots{Injector: actuator("i"), Extractor: actuator("e")})
	mustAddMachine(t, machine, 4, fluidic.RoleSink, fluidic.MovementIrrelevant, fluidic.CapabilitySlots{Injector: actuator("i")})

	mustConnect(t, machine, 1, 2)
	mustConnect(t, machine, 1, 3)
	mustConnect(t, machine, 3, 4)
	if err := machine.ConnectConditional(2, 4, []graphcore.Edge{{Source: 1, Target: 3}}); err != nil {
		t.Fatalf("connect conditional: %v", err)
	}

	eng := NewEngine(sketch, machine)
	m, err := eng.StartMapping(context.Background(), nil)
	if err != nil {
		t.Fatalf("StartMapping: %v", err)
	}

	f, ok := m.MappedEdge(graphcore.Edge{Source: 1, Target: 2})
	if !ok {
		t.Fatal("sketch edge 1->2 not mapped")
	}
	if got, want := f.ToText(), "1->4:1->3;3->4;"; got != want {
		t.Fatalf("mapped edge = %q, want %q (path via node 2 should be rejected by the conditional edge)", got, want)
	}
}

// TestStartMappingIncompatibleSketchWhenNoStructuralMatch checks the static
// pre-check of §7: a sketch needing a flow-role container against a machine
// offering only inlet and sink roles is rejected before the search runs.
func TestStartMappingIncompatibleSketchWhenNoStructuralMatch(t *testing.T) {
	sketch := buildTurbidostatSketch(t) // needs a flow-compatible node
	machine := fluidic.NewGraph("tooSimple")
	mustAddMachine(t, machine, 1, fluidic.RoleInlet, fluidic.MovementContinuous, fluidic.CapabilitySlots{Extractor: actuator("e")})
	mustAddMachine(t, machine, 2, fluidic.RoleSink, fluidic.MovementIrrelevant, fluidic.CapabilitySlots{Injector: actuator("i")})
	mustConnect(t, machine, 1, 2)

	eng := NewEngine(sketch, machine)
	_, err := eng.StartMapping(context.Background(), nil)
	if err == nil {
		t.Fatal("expected IncompatibleSketch error")
	}
	if !errors.Is(err, ferrors.ErrIncompatibleSketch) {
		t.Fatalf("error should wrap ErrIncompatibleSketch, got %v", err)
	}
}

// TestStartMappingInfeasibleWhenInjectivityExhausted checks a case that
// passes the structural pre-check (each sketch node individually has a
// compatible machine node) but has no feasible assignment once injectivity
// is enforced: two disconnected sketch inlets can only ever be offered the
// same single machine inlet.
func TestStartMappingInfeasibleWhenInjectivityExhausted(t *testing.T) {
	sketch := fluidic.NewGraph("twoInlets")
	mustAddSketch(t, sketch, 1, fluidic.RoleInlet, fluidic.MovementIrrelevant)
	mustAddSketch(t, sketch, 2, fluidic.RoleInlet, fluidic.MovementIrrelevant)

	machine := fluidic.NewGraph("oneInlet")
	mustAddMachine(t, machine, 1, fluidic.RoleInlet, fluidic.MovementIrrelevant, fluidic.CapabilitySlots{Extractor: actuator("e")})

	eng := NewEngine(sketch, machine)
	_, err := eng.StartMapping(context.Background(), nil)
	if err == nil {
		t.Fatal("expected Infeasible error")
	}
	if !errors.Is(err, ferrors.ErrInfeasible) {
		t.Fatalf("error should wrap ErrInfeasible, got %v", err)
	}
}

func TestStartMappingRespectsCancellation(t *testing.T) {
	sketch := buildTurbidostatSketch(t)
	machine := buildMappingMachine(t)
	eng := NewEngine(sketch, machine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.StartMapping(ctx, nil)
	if err == nil {
		t.Fatal("expected Cancelled error")
	}
	if !errors.Is(err, ferrors.ErrCancelled) {
		t.Fatalf("error should wrap ErrCancelled, got %v", err)
	}
}

func TestStartMappingRespectsTimeout(t *testing.T) {
	sketch := buildTurbidostatSketch(t)
	machine := buildMappingMachine(t)
	eng := NewEngine(sketch, machine)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := eng.StartMapping(ctx, nil)
	if err == nil {
		t.Fatal("expected Timeout error")
	}
	if !errors.Is(err, ferrors.ErrTimeout) {
		t.Fatalf("error should wrap ErrTimeout, got %v", err)
	}
}

func TestStartMappingWithRequiredFlow(t *testing.T) {
	sketch := buildTurbidostatSketch(t)
	machine := buildMappingMachine(t)
	eng := NewEngine(sketch, machine)

	required, err := graphcore.NewFlowFromEdges([]graphcore.Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}})
	if err != nil {
		t.Fatal(err)
	}

	m, err := eng.StartMapping(context.Background(), []*graphcore.Flow{required})
	if err != nil {
		t.Fatalf("StartMapping with required flow: %v", err)
	}
	if _, ok := m.MappedContainerID(1); !ok {
		t.Fatal("expected sketch node 1 to be mapped")
	}
}
