package graphcore

import "testing"

func TestFlowAppendAndToText(t *testing.T) {
	f := NewFlow()
	for _, e := range []Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}, {Source: 3, Target: 4}} {
		if err := f.Append(e); err != nil {
			t.Fatalf("append %s: %v", e, err)
		}
	}
	want := "1->4:1->2;2->3;3->4;"
	if got := f.ToText(); got != want {
		t.Fatalf("ToText() = %q, want %q", got, want)
	}
}

func TestFlowAppendRejectsDiscontinuity(t *testing.T) {
	f := NewFlow()
	if err := f.Append(Edge{Source: 1, Target: 2}); err != nil {
		t.Fatal(err)
	}
	if err := f.Append(Edge{Source: 5, Target: 6}); err == nil {
		t.Fatal("expected error appending discontinuous edge")
	}
}

func TestFlowAppendFlow(t *testing.T) {
	a, _ := NewFlowFromEdges([]Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}})
	b, _ := NewFlowFromEdges([]Edge{{Source: 3, Target: 4}})
	if err := a.AppendFlow(b); err != nil {
		t.Fatalf("append flow: %v", err)
	}
	if got, want := a.ToText(), "1->4:1->2;2->3;3->4;"; got != want {
		t.Fatalf("ToText() = %q, want %q", got, want)
	}
}

func TestFlowAppendFlowRejectsMismatch(t *testing.T) {
	a, _ := NewFlowFromEdges([]Edge{{Source: 1, Target: 2}})
	b, _ := NewFlowFromEdges([]Edge{{Source: 9, Target: 10}})
	if err := a.AppendFlow(b); err == nil {
		t.Fatal("expected error appending mismatched flow")
	}
}

func TestFlowContainsVertex(t *testing.T) {
	f, _ := NewFlowFromEdges([]Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}})
	for _, id := range []NodeID{1, 2, 3} {
		if !f.ContainsVertex(id) {
			t.Errorf("ContainsVertex(%d) = false, want true", id)
		}
	}
	if f.ContainsVertex(4) {
		t.Error("ContainsVertex(4) = true, want false")
	}
}

func TestFlowTextRoundTrip(t *testing.T) {
	cases := [][]Edge{
		{{Source: 1, Target: 2}, {Source: 2, Target: 3}, {Source: 3, Target: 4}, {Source: 4, Target: 5}},
		{{Source: 2, Target: 3}, {Source: 3, Target: 4}},
		{{Source: 2, Target: 7}},
	}
	for _, edges := range cases {
		f, err := NewFlowFromEdges(edges)
		if err != nil {
			t.Fatalf("build flow: %v", err)
		}
		text := f.ToText()
		parsed, err := ParseFlowText(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if parsed.ToText() != text {
			t.Fatalf("round trip mismatch: %q != %q", parsed.ToText(), text)
		}
	}
}
