// Package ferrors defines the shared error taxonomy used across the fluidmap
// core: graph construction, path enumeration, flow reassembly, mapping
// search, and the store/HTTP/CLI boundaries that classify them.
package ferrors

import "errors"

var (
	// ErrInvalidGraph covers duplicate ids, missing endpoints, malformed
	// capability configuration, and malformed serialized forms.
	ErrInvalidGraph = errors.New("fluidmap: invalid graph")

	// ErrIncompatibleSketch is returned by the mapping engine's static
	// pre-check when the sketch requires roles or capabilities the machine
	// does not offer, distinguishing this from a search-exhausted Infeasible.
	ErrIncompatibleSketch = errors.New("fluidmap: sketch incompatible with machine")

	// ErrInfeasible is returned when the mapping search exhausts all
	// candidates without finding an assignment. No root cause is localized.
	ErrInfeasible = errors.New("fluidmap: no feasible mapping")

	// ErrCancelled is returned when a caller-driven cancellation flag fires
	// between top-level node choices.
	ErrCancelled = errors.New("fluidmap: mapping cancelled")

	// ErrTimeout is returned when a caller-supplied wall-clock budget is
	// exceeded between node choices.
	ErrTimeout = errors.New("fluidmap: mapping timed out")

	// ErrAssemblyFailure is returned by the flow generator when no
	// ordering of the given edge bag forms a single simple flow.
	ErrAssemblyFailure = errors.New("fluidmap: flow assembly failed")
)
