package graph

import "fmt"

const DefaultEdgeType = "default"

type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Type         string `json:"type,omitempty"`
	Selected     bool   `json:"selected,omitempty"`
}

// Connection is a completed drag from one node handle to another.
type Connection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

func EdgeID(c Connection) string {
	return fmt.Sprintf("xy-edge__%s%s-%s%s", c.Source, c.SourceHandle, c.Target, c.TargetHandle)
}

// AddEdge returns edges extended by an edge for c. Connections that already
// exist, or that miss an endpoint, leave the list unchanged.
func AddEdge(c Connection, edges []Edge) []Edge {
	if c.Source == "" || c.Target == "" {
		return edges
	}
	for _, e := range edges {
		if e.Source == c.Source && e.Target == c.Target &&
			e.SourceHandle == c.SourceHandle && e.TargetHandle == c.TargetHandle {
			return edges
		}
	}
	out := make([]Edge, len(edges), len(edges)+1)
	copy(out, edges)
	return append(out, Edge{
		ID:           EdgeID(c),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	})
}

// WithEdgeType returns a copy of edges where every edge is drawn as t.
func WithEdgeType(edges []Edge, t string) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		e.Type = t
		out[i] = e
	}
	return out
}
