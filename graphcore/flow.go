package graphcore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fluidlab/fluidmap/ferrors"
)

// Flow is an ordered sequence of edges e1...en with target(ei) == source(ei+1)
// for all i. The empty flow is permitted transiently during construction.
type Flow struct {
	edges []Edge
}

// NewFlow returns an empty flow.
func NewFlow() *Flow { return &Flow{} }

// NewFlowFromEdges builds a flow from an already-contiguous edge sequence,
// validating contiguity.
func NewFlowFromEdges(edges []Edge) (*Flow, error) {
	f := NewFlow()
	for _, e := range edges {
		if err := f.Append(e); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// IsEmpty reports whether the flow has no edges yet.
func (f *Flow) IsEmpty() bool { return len(f.edges) == 0 }

// Start returns the flow's start node. Only meaningful when !IsEmpty().
func (f *Flow) Start() NodeID { return f.edges[0].Source }

// End returns the flow's end node. Only meaningful when !IsEmpty().
func (f *Flow) End() NodeID { return f.edges[len(f.edges)-1].Target }

// Edges returns the flow's edges in order. The returned slice must not be
// mutated by the caller.
func (f *Flow) Edges() []Edge { return f.edges }

// Len returns the number of edges in the flow.
func (f *Flow) Len() int { return len(f.edges) }

// Append adds a single edge to the end of the flow. Fails if the flow is
// non-empty and the edge's source does not match the flow's current end.
func (f *Flow) Append(e Edge) error {
	if !f.IsEmpty() && e.Source != f.End() {
		return fmt.Errorf("graphcore: append edge %s to flow ending at %d: %w", e, f.End(), ferrors.ErrInvalidGraph)
	}
	f.edges = append(f.edges, e)
	return nil
}

// Truncate discards edges from the end of the flow until n remain. Used by
// backtracking reassembly to undo a dead-end choice.
func (f *Flow) Truncate(n int) {
	f.edges = f.edges[:n]
}

// AppendFlow concatenates other onto the end of f, preserving edge order.
// Fails if f is non-empty and f.End() != other.Start().
func (f *Flow) AppendFlow(other *Flow) error {
	if other.IsEmpty() {
		return nil
	}
	if !f.IsEmpty() && f.End() != other.Start() {
		return fmt.Errorf("graphcore: append flow starting at %d to flow ending at %d: %w", other.Start(), f.End(), ferrors.ErrInvalidGraph)
	}
	f.edges = append(f.edges, other.edges...)
	return nil
}

// ContainsVertex reports whether id appears as an endpoint of any edge in
// the flow. Used by the path enumerator to enforce simplicity.
func (f *Flow) ContainsVertex(id NodeID) bool {
	if f.IsEmpty() {
		return false
	}
	if f.Start() == id {
		return true
	}
	for _, e := range f.edges {
		if e.Target == id {
			return true
		}
	}
	return false
}

// Clone returns a copy of the flow whose edge slice is independent of f's.
func (f *Flow) Clone() *Flow {
	out := &Flow{edges: make([]Edge, len(f.edges))}
	copy(out.edges, f.edges)
	return out
}

// ToText renders the flow's canonical textual identity:
// "<start>-><end>:s1->t1;s2->t2;...;" (trailing semicolon included). This
// string is the stable identity of a flow for tests and de-duplication.
func (f *Flow) ToText() string {
	if f.IsEmpty() {
		return "->:"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d->%d:", f.Start(), f.End())
	for _, e := range f.edges {
		fmt.Fprintf(&b, "%d->%d;", e.Source, e.Target)
	}
	return b.String()
}

// ParseFlowText parses the canonical textual form produced by ToText back
// into a Flow, validating contiguity as it goes.
func ParseFlowText(s string) (*Flow, error) {
	idx := strings.Index(s, ":")
	if idx < 0 {
		return nil, fmt.Errorf("graphcore: parse flow text %q: missing ':': %w", s, ferrors.ErrInvalidGraph)
	}
	body := s[idx+1:]
	f := NewFlow()
	if body == "" {
		return f, nil
	}
	segments := strings.Split(strings.TrimSuffix(body, ";"), ";")
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		parts := strings.SplitN(seg, "->", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("graphcore: parse flow text %q: malformed edge %q: %w", s, seg, ferrors.ErrInvalidGraph)
		}
		src, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("graphcore: parse flow text %q: source %q: %w", s, parts[0], ferrors.ErrInvalidGraph)
		}
		tgt, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("graphcore: parse flow text %q: target %q: %w", s, parts[1], ferrors.ErrInvalidGraph)
		}
		if err := f.Append(Edge{Source: NodeID(src), Target: NodeID(tgt)}); err != nil {
			return nil, err
		}
	}
	return f, nil
}
