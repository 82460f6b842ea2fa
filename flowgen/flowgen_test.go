package flowgen

import (
	"errors"
	"testing"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/graphcore"
)

func edge(s, t int64) graphcore.Edge {
	return graphcore.Edge{Source: graphcore.NodeID(s), Target: graphcore.NodeID(t)}
}

func TestAssembleFullBag(t *testing.T) {
	bag := []graphcore.Edge{edge(4, 5), edge(2, 3), edge(3, 4), edge(1, 2)}
	f, err := Assemble(bag)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got, want := f.ToText(), "1->5:1->2;2->3;3->4;4->5;"; got != want {
		t.Fatalf("ToText() = %q, want %q", got, want)
	}
}

func TestAssemblePartialBag(t *testing.T) {
	bag := []graphcore.Edge{edge(2, 3), edge(3, 4)}
	f, err := Assemble(bag)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got, want := f.ToText(), "2->4:2->3;3->4;"; got != want {
		t.Fatalf("ToText() = %q, want %q", got, want)
	}
}

func TestAssembleDisjointBagFails(t *testing.T) {
	bag := []graphcore.Edge{edge(1, 2), edge(5, 6)}
	_, err := Assemble(bag)
	if err == nil {
		t.Fatal("expected assembly failure for disjoint edges")
	}
	if !errors.Is(err, ferrors.ErrAssemblyFailure) {
		t.Fatalf("error should wrap ErrAssemblyFailure, got %v", err)
	}
}

func TestAssembleBranchingHasNoSingleChain(t *testing.T) {
	// 1->2, 1->3, 3->4: two edges (1->2, 1->3) share a source, so no ordering
	// uses all three edges as one contiguous chain; every starting edge
	// eventually dead-ends with edges left over.
	bag := []graphcore.Edge{edge(1, 2), edge(1, 3), edge(3, 4)}
	_, err := Assemble(bag)
	if err == nil {
		t.Fatal("expected assembly failure: no ordering chains all three edges")
	}
}

func TestAssembleSingleEdge(t *testing.T) {
	f, err := Assemble([]graphcore.Edge{edge(1, 2)})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got, want := f.ToText(), "1->2:1->2;"; got != want {
		t.Fatalf("ToText() = %q, want %q", got, want)
	}
}

func TestAssembleEmptyBag(t *testing.T) {
	f, err := Assemble(nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !f.IsEmpty() {
		t.Fatal("expected empty flow for empty bag")
	}
}
