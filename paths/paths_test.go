package paths

import (
	"sort"
	"testing"

	"github.com/fluidlab/fluidmap/fluidic"
	"github.com/fluidlab/fluidmap/graphcore"
)

// buildMappingMachine reproduces the seven-container mapping machine fixture:
// InletContainer(1), DivergentSwitchSink(2), FlowContainer(3),
// InletContainer(4), ConvergentSwitchInlet(5), BidirectionalSwitch(6),
// ConvergentSwitch(7), wired 1->5, 2->5, 3->6, 4->6, 5->7, 6->7, 6->2, 2->3.
func buildMappingMachine(t *testing.T) *fluidic.Graph {
	t.Helper()
	g := fluidic.NewGraph("mappingMachine")

	extractor := &fluidic.ActuatorRef{CommunicationsChannelID: 1, PluginName: "EvoprogV2Pump"}
	injector := &fluidic.ActuatorRef{CommunicationsChannelID: 1, PluginName: "EvoprogDummyInjector"}
	control := fluidic.ActuatorRef{CommunicationsChannelID: 1, PluginName: "Evoprog4WayValve"}
	odSensor := &fluidic.ActuatorRef{CommunicationsChannelID: 1, PluginName: "EvoprogOdSensor"}

	cont := fluidic.MovementContinuous

	add := func(id graphcore.NodeID, role fluidic.RoleType, caps fluidic.CapabilitySlots) {
		t.Helper()
		typ := fluidic.ContainerNodeType{Movement: cont, Role: role}
		if err := g.AddExecutableContainer(id, typ, 100.0, caps); err != nil {
			t.Fatalf("add container %d: %v", id, err)
		}
	}

	add(1, fluidic.RoleInlet, fluidic.CapabilitySlots{Extractor: extractor})
	add(2, fluidic.RoleDivergentSwitchSink, fluidic.CapabilitySlots{
		Injector: injector, Extractor: extractor, Controls: []fluidic.ActuatorRef{control},
	})
	add(3, fluidic.RoleFlow, fluidic.CapabilitySlots{Extractor: extractor, Injector: injector})
	add(4, fluidic.RoleInlet, fluidic.CapabilitySlots{Extractor: extractor})
	add(5, fluidic.RoleConvergentSwitchInlet, fluidic.CapabilitySlots{
		Injector: injector, Extractor: extractor, Controls: []fluidic.ActuatorRef{control},
	})
	add(6, fluidic.RoleBidirectionalSwitch, fluidic.CapabilitySlots{
		Extractor: extractor, Injector: injector, Controls: []fluidic.ActuatorRef{control, control}, ODSensor: odSensor,
	})
	add(7, fluidic.RoleConvergentSwitch, fluidic.CapabilitySlots{Injector: injector, Controls: []fluidic.ActuatorRef{control}})

	for _, e := range [][2]graphcore.NodeID{{1, 5}, {2, 5}, {3, 6}, {4, 6}, {5, 7}, {6, 7}, {6, 2}, {2, 3}} {
		if err := g.Connect(e[0], e[1]); err != nil {
			t.Fatalf("connect %v: %v", e, err)
		}
	}
	return g
}

func collectTexts(t *testing.T, it *PathIterator) []string {
	t.Helper()
	var out []string
	for it.HasNext() {
		f, ok := it.Next()
		if !ok {
			t.Fatal("HasNext true but Next returned false")
		}
		out = append(out, f.ToText())
	}
	sort.Strings(out)
	return out
}

func TestPathsIDToID2To7(t *testing.T) {
	g := buildMappingMachine(t)
	it, err := NewFromIDToID(g, 2, 7)
	if err != nil {
		t.Fatal(err)
	}
	got := collectTexts(t, it)
	want := []string{"2->7:2->5;5->7;", "2->7:2->3;3->6;6->7;"}
	sort.Strings(want)
	assertStringSlicesEqual(t, got, want)
}

func TestPathsTypeToID_ContinuousInletTo7(t *testing.T) {
	g := buildMappingMachine(t)
	inletPredicate := fluidic.ContainerNodeType{Movement: fluidic.MovementContinuous, Role: fluidic.RoleInlet}
	it, err := NewFromTypeToID(g, inletPredicate, 7)
	if err != nil {
		t.Fatal(err)
	}
	got := collectTexts(t, it)
	// Only nodes 1 and 4 match the inlet predicate; NewFromTypeToID enumerates
	// all of 1's routes to 7 before any of 4's (ascending source id).
	want := []string{
		"1->7:1->5;5->7;",
		"4->7:4->6;6->7;",
		"4->7:4->6;6->2;2->5;5->7;",
	}
	sort.Strings(want)
	assertStringSlicesEqual(t, got, want)
}

func TestPathsIDToType_6ToDivergentSwitchSink(t *testing.T) {
	g := buildMappingMachine(t)
	sinkPredicate := fluidic.ContainerNodeType{Movement: fluidic.MovementIrrelevant, Role: fluidic.RoleDivergentSwitchSink}
	it, err := NewFromIDToType(g, 6, sinkPredicate)
	if err != nil {
		t.Fatal(err)
	}
	got := collectTexts(t, it)
	// node 2 is the only divergent_switch_sink; 6->2 is a direct edge.
	want := []string{"6->2:6->2;"}
	assertStringSlicesEqual(t, got, want)
}

func TestPathsNoPathBetweenUnconnectedNodes(t *testing.T) {
	g := buildMappingMachine(t)
	it, err := NewFromIDToID(g, 7, 1)
	if err != nil {
		t.Fatal(err)
	}
	if it.HasNext() {
		t.Fatal("expected no paths from 7 to 1 (7 has no outgoing edges)")
	}
}

func TestPathsHasNextIdempotentBeforeNext(t *testing.T) {
	g := buildMappingMachine(t)
	it, err := NewFromIDToID(g, 2, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !it.HasNext() {
		t.Fatal("expected at least one path")
	}
	if !it.HasNext() {
		t.Fatal("HasNext should be idempotent before Next is called")
	}
	first, ok := it.Next()
	if !ok {
		t.Fatal("Next() after HasNext() true should succeed")
	}
	if first.ToText() == "" {
		t.Fatal("expected non-empty flow text")
	}
}

func TestPathsUnknownNodeIsError(t *testing.T) {
	g := buildMappingMachine(t)
	if _, err := NewFromIDToID(g, 999, 7); err == nil {
		t.Fatal("expected error for unknown source node")
	}
	if _, err := NewFromIDToID(g, 2, 999); err == nil {
		t.Fatal("expected error for unknown destination node")
	}
}

func assertStringSlicesEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
