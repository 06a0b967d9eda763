// Package flows persists debug flow documents in SQLite.
package flows

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/db"
)

var (
	ErrNotFound  = errors.New("flow not found")
	ErrEmptyName = errors.New("flow name must not be empty")
)

// Store provides CRUD operations for flows. The graph itself is kept as the
// opaque JSON document the editor produced.
type Store struct {
	db  *db.DB
	now func() time.Time
}

func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the metadata of every flow, most recently modified first.
func (s *Store) List(ctx context.Context) ([]contracts.FlowMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, num_nodes, num_edges, last_modified
		 FROM flows ORDER BY last_modified DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	result := []contracts.FlowMetadata{}
	for rows.Next() {
		var m contracts.FlowMetadata
		if err := rows.Scan(&m.ID, &m.Name, &m.NumNodes, &m.NumEdges, &m.LastModifiedDate); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// Create inserts an empty flow called name.
func (s *Store) Create(ctx context.Context, name string) (contracts.FlowMetadata, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return contracts.FlowMetadata{}, ErrEmptyName
	}
	m := contracts.FlowMetadata{ID: uuid.NewString(), Name: name, LastModifiedDate: s.now()}
	empty, err := json.Marshal(contracts.ReactFlowState{Nodes: []json.RawMessage{}, Edges: []json.RawMessage{}})
	if err != nil {
		return contracts.FlowMetadata{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flows (id, name, reactflow, num_nodes, num_edges, created_at, last_modified)
		 VALUES (?, ?, ?, 0, 0, ?, ?)`,
		m.ID, m.Name, string(empty), m.LastModifiedDate, m.LastModifiedDate,
	)
	if err != nil {
		return contracts.FlowMetadata{}, fmt.Errorf("create flow: %w", err)
	}
	return m, nil
}

// Get returns the stored document of flow id.
func (s *Store) Get(ctx context.Context, id string) (contracts.FlowData, error) {
	var (
		data      contracts.FlowData
		reactflow string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, reactflow FROM flows WHERE id = ?`, id,
	).Scan(&data.Name, &reactflow)
	if errors.Is(err, sql.ErrNoRows) {
		return data, fmt.Errorf("get flow %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return data, fmt.Errorf("get flow %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(reactflow), &data.Reactflow); err != nil {
		return data, fmt.Errorf("decode flow %s: %w", id, err)
	}
	normalize(&data.Reactflow)
	return data, nil
}

// Save replaces the document of an existing flow and refreshes its
// counters and modification time. An empty name keeps the stored one.
func (s *Store) Save(ctx context.Context, id string, data contracts.FlowData) (contracts.FlowMetadata, error) {
	normalize(&data.Reactflow)
	doc, err := json.Marshal(data.Reactflow)
	if err != nil {
		return contracts.FlowMetadata{}, fmt.Errorf("encode flow %s: %w", id, err)
	}
	m := contracts.FlowMetadata{
		ID:               id,
		Name:             strings.TrimSpace(data.Name),
		NumNodes:         len(data.Reactflow.Nodes),
		NumEdges:         len(data.Reactflow.Edges),
		LastModifiedDate: s.now(),
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE flows SET name = COALESCE(NULLIF(?, ''), name), reactflow = ?, num_nodes = ?, num_edges = ?, last_modified = ?
		 WHERE id = ?`,
		m.Name, string(doc), m.NumNodes, m.NumEdges, m.LastModifiedDate, id,
	)
	if err != nil {
		return contracts.FlowMetadata{}, fmt.Errorf("save flow %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contracts.FlowMetadata{}, fmt.Errorf("save flow %s: %w", id, ErrNotFound)
	}
	if m.Name == "" {
		if err := s.db.QueryRowContext(ctx, `SELECT name FROM flows WHERE id = ?`, id).Scan(&m.Name); err != nil {
			return contracts.FlowMetadata{}, fmt.Errorf("save flow %s: %w", id, err)
		}
	}
	return m, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete flow %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete flow %s: %w", id, ErrNotFound)
	}
	return nil
}

func normalize(state *contracts.ReactFlowState) {
	if state.Nodes == nil {
		state.Nodes = []json.RawMessage{}
	}
	if state.Edges == nil {
		state.Edges = []json.RawMessage{}
	}
}
