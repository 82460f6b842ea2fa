// Package store persists fluidic graphs and mapping results using the
// stable textual forms fluidmap already defines elsewhere (fluidic's JSON
// document, graphcore.Flow's text form), rather than reaching into the
// in-memory graph/mapping types directly. This keeps the storage boundary
// a stable serialization contract instead of a second copy of the core
// model.
package store

import (
	"context"
	"errors"
)

var (
	// ErrGraphNotFound is returned when a named graph has no saved record.
	ErrGraphNotFound = errors.New("store: graph not found")
	// ErrMappingNotFound is returned when a mapping run ID has no saved record.
	ErrMappingNotFound = errors.New("store: mapping not found")
)

// GraphRecord is a named fluidic graph as persisted: its stable JSON
// document form (fluidic.Graph.MarshalJSON / ParseGraphJSON).
type GraphRecord struct {
	Name     string
	Document []byte
}

// MappingRecord is a persisted mapping result: the sketch/machine it was
// computed against, the node assignment, and for every sketch edge the
// machine flow realizing it — recorded in stable text form ("src->tgt" for
// a sketch edge key, graphcore.Flow.ToText() for the mapped value) so this
// package never needs to import the mapping package's in-memory types.
type MappingRecord struct {
	ID          string
	SketchName  string
	MachineName string
	Nodes       map[string]string // sketch node id (decimal) -> machine node id (decimal)
	Edges       map[string]string // "src->tgt" sketch edge -> flow text
}

// Store is the persistence contract for named graphs and mapping runs.
// Mirrors the shape of a schema-managed, transactionally-consistent CRUD
// store over two related record kinds, generalized from DAG nodes/edges to
// fluidic graphs and mapping results.
type Store interface {
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	SaveGraph(ctx context.Context, g GraphRecord) error
	GetGraph(ctx context.Context, name string) (*GraphRecord, error)
	DeleteGraph(ctx context.Context, name string) error

	SaveMapping(ctx context.Context, m MappingRecord) (string, error)
	GetMapping(ctx context.Context, id string) (*MappingRecord, error)
}
