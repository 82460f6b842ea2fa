package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a new PGStore backed by the given pgx connection pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS fluidic_graphs (
    name       TEXT PRIMARY KEY,
    document   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS mapping_runs (
    id           TEXT PRIMARY KEY,
    sketch_name  TEXT NOT NULL,
    machine_name TEXT NOT NULL,
    nodes        JSONB NOT NULL,
    edges        JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_mapping_runs_sketch  ON mapping_runs(sketch_name);
CREATE INDEX IF NOT EXISTS idx_mapping_runs_machine ON mapping_runs(machine_name);
`

// CreateSchema creates the fluidic_graphs and mapping_runs tables if they
// don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops both tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS mapping_runs, fluidic_graphs CASCADE;`)
	return err
}

// SaveGraph upserts a named graph's JSON document.
func (s *PGStore) SaveGraph(ctx context.Context, g GraphRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO fluidic_graphs (name, document) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET document = EXCLUDED.document`,
		g.Name, g.Document,
	)
	if err != nil {
		return fmt.Errorf("store: save graph %s: %w", g.Name, err)
	}
	return nil
}

// GetGraph fetches a named graph's JSON document.
func (s *PGStore) GetGraph(ctx context.Context, name string) (*GraphRecord, error) {
	var g GraphRecord
	g.Name = name
	err := s.db.QueryRow(ctx,
		`SELECT document FROM fluidic_graphs WHERE name = $1`, name,
	).Scan(&g.Document)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrGraphNotFound
		}
		return nil, fmt.Errorf("store: get graph %s: %w", name, err)
	}
	return &g, nil
}

// DeleteGraph removes a named graph. No error if absent.
func (s *PGStore) DeleteGraph(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM fluidic_graphs WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("store: delete graph %s: %w", name, err)
	}
	return nil
}

// SaveMapping inserts a mapping run, generating an ID if m.ID is empty.
// Returns the run ID.
func (s *PGStore) SaveMapping(ctx context.Context, m MappingRecord) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	nodesJSON, err := json.Marshal(m.Nodes)
	if err != nil {
		return "", fmt.Errorf("store: marshal mapping nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(m.Edges)
	if err != nil {
		return "", fmt.Errorf("store: marshal mapping edges: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO mapping_runs (id, sketch_name, machine_name, nodes, edges) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.SketchName, m.MachineName, nodesJSON, edgesJSON,
	)
	if err != nil {
		return "", fmt.Errorf("store: save mapping %s: %w", m.ID, err)
	}
	return m.ID, nil
}

// GetMapping fetches a mapping run by its ID.
func (s *PGStore) GetMapping(ctx context.Context, id string) (*MappingRecord, error) {
	var m MappingRecord
	m.ID = id
	var nodesJSON, edgesJSON []byte
	err := s.db.QueryRow(ctx,
		`SELECT sketch_name, machine_name, nodes, edges FROM mapping_runs WHERE id = $1`, id,
	).Scan(&m.SketchName, &m.MachineName, &nodesJSON, &edgesJSON)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrMappingNotFound
		}
		return nil, fmt.Errorf("store: get mapping %s: %w", id, err)
	}
	if err := json.Unmarshal(nodesJSON, &m.Nodes); err != nil {
		return nil, fmt.Errorf("store: unmarshal mapping nodes: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &m.Edges); err != nil {
		return nil, fmt.Errorf("store: unmarshal mapping edges: %w", err)
	}
	return &m, nil
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return err != nil && err.Error() == "no rows in result set"
}
