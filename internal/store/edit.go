package store

import (
	"github.com/debug-flow/debug-flow/internal/graph"
)

// ApplyNodeChanges applies a batch of canvas edits to the nodes. Changes the
// graph ignores, such as removing the root, neither enter history nor mark
// the document dirty.
func (s *Store) ApplyNodeChanges(changes []graph.NodeChange) {
	if len(changes) == 0 {
		return
	}
	s.update(func(d *document) bool {
		changes := graph.EffectiveNodeChanges(changes, d.nodes)
		if len(changes) == 0 {
			return false
		}
		if d.mode == historyIdle && nodeChangesNotableForUndo(changes, d.nodes) {
			d.pushUndo()
		}
		d.nodes = graph.ApplyNodeChanges(changes, d.nodes)
		if nodeChangesNotableForDirty(changes) {
			d.markDirty()
		}
		return true
	})
}

// ApplyEdgeChanges applies a batch of canvas edits to the edges. Anything
// but a selection change is recorded in history and marks the document
// dirty, as long as the document has nodes.
func (s *Store) ApplyEdgeChanges(changes []graph.EdgeChange) {
	if len(changes) == 0 {
		return
	}
	s.update(func(d *document) bool {
		notable := edgeChangesNotable(changes, d.nodes)
		if notable && d.mode == historyIdle {
			d.pushUndo()
		}
		d.edges = graph.ApplyEdgeChanges(changes, d.edges)
		if notable {
			d.markDirty()
		}
		return true
	})
}

// Connect adds an edge for a completed connection.
func (s *Store) Connect(c graph.Connection) {
	s.update(func(d *document) bool {
		d.edges = graph.AddEdge(c, d.edges)
		d.markDirty()
		return true
	})
}

// SetEdgeType changes how every edge is drawn. It is not recorded in
// history.
func (s *Store) SetEdgeType(t string) {
	s.update(func(d *document) bool {
		d.edges = graph.WithEdgeType(d.edges, t)
		return true
	})
}

// RemoveNode deletes a node together with the edges attached to it as a
// single history entry.
func (s *Store) RemoveNode(id string) bool {
	var removed bool
	s.update(func(d *document) bool {
		n, ok := graph.FindNode(d.nodes, id)
		if !ok || !n.IsDeletable() {
			return false
		}
		if d.mode == historyIdle {
			d.pushUndo()
		}
		d.nodes = graph.ApplyNodeChanges([]graph.NodeChange{graph.RemoveNode(id)}, d.nodes)
		var edgeChanges []graph.EdgeChange
		for _, eid := range graph.EdgesTouching(d.edges, id) {
			edgeChanges = append(edgeChanges, graph.RemoveEdge(eid))
		}
		d.edges = graph.ApplyEdgeChanges(edgeChanges, d.edges)
		d.markDirty()
		removed = true
		return true
	})
	return removed
}
