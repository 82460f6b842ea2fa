// Package flowgen reassembles an unordered bag of edges believed to form a
// single simple path into one ordered flow.
package flowgen

import (
	"fmt"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/graphcore"
)

// Assemble attempts to order edges into a single simple flow containing
// exactly those edges. It tries each edge as a starting edge; at each step
// it picks any remaining edge whose source matches the flow-so-far's end,
// recurses, and undoes the choice on a dead end. Success is the first
// complete assembly found; failure (ferrors.ErrAssemblyFailure) iff no
// starting edge leads to a complete assembly.
//
// Used by the mapping engine to join partial segments; inputs are small in
// practice (tens of edges), so the backtracking search is not memoized.
func Assemble(edges []graphcore.Edge) (*graphcore.Flow, error) {
	if len(edges) == 0 {
		return graphcore.NewFlow(), nil
	}
	remaining := make([]graphcore.Edge, len(edges))
	copy(remaining, edges)

	for i := range remaining {
		used := make([]bool, len(remaining))
		flow := graphcore.NewFlow()
		if err := flow.Append(remaining[i]); err != nil {
			continue
		}
		used[i] = true
		if extend(flow, remaining, used, len(remaining)-1) {
			return flow, nil
		}
	}
	return nil, fmt.Errorf("flowgen: no assembly exists for %d edges: %w", len(edges), ferrors.ErrAssemblyFailure)
}

// extend tries to append remaining unused edges onto flow, one at a time,
// until none remain (success) or every candidate leads to a dead end.
func extend(flow *graphcore.Flow, remaining []graphcore.Edge, used []bool, left int) bool {
	if left == 0 {
		return true
	}
	end := flow.End()
	for i, e := range remaining {
		if used[i] || e.Source != end {
			continue
		}
		used[i] = true
		if err := flow.Append(e); err != nil {
			used[i] = false
			continue
		}
		if extend(flow, remaining, used, left-1) {
			return true
		}
		flow.Truncate(flow.Len() - 1)
		used[i] = false
	}
	return false
}
