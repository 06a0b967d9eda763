package store

import (
	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/graph"
)

// historyMode tracks whether an undo or redo result is being delivered.
// Changes fed back into the store in that window are not recorded.
type historyMode uint8

const (
	historyIdle historyMode = iota
	historyApplyingUndo
	historyApplyingRedo
)

func (m historyMode) String() string {
	switch m {
	case historyApplyingUndo:
		return "applying-undo"
	case historyApplyingRedo:
		return "applying-redo"
	default:
		return "idle"
	}
}

type graphState struct {
	nodes []graph.Node
	edges []graph.Edge
}

type document struct {
	nodes []graph.Node
	edges []graph.Edge

	undo []graphState
	redo []graphState
	mode historyMode

	current *FlowRef
	flows   []contracts.FlowMetadata
	dirty   bool
	// version increases with every edit that marks the document dirty.
	version uint64

	dialog *DialogNode
}

func (d *document) pushUndo() {
	d.undo = append(d.undo, graphState{nodes: d.nodes, edges: d.edges})
	d.redo = nil
}

func (d *document) markDirty() {
	d.dirty = true
	d.version++
}

// replace swaps in a new graph, dropping history and the dirty flag.
func (d *document) replace(current *FlowRef, nodes []graph.Node, edges []graph.Edge) {
	d.nodes = nodes
	d.edges = edges
	d.undo = nil
	d.redo = nil
	d.current = current
	d.dirty = false
	d.version++
	d.dialog = nil
}

func nodeChangesNotableForUndo(changes []graph.NodeChange, nodes []graph.Node) bool {
	// The creation of the first node cannot be undone.
	if len(nodes) == 0 {
		return false
	}
	for _, ch := range changes {
		switch ch.Kind {
		case graph.ChangeAdd, graph.ChangeRemove, graph.ChangeReplace:
			return true
		}
	}
	return false
}

func nodeChangesNotableForDirty(changes []graph.NodeChange) bool {
	for _, ch := range changes {
		switch ch.Kind {
		case graph.ChangeAdd, graph.ChangeRemove, graph.ChangeReplace, graph.ChangePosition:
			return true
		}
	}
	return false
}

func edgeChangesNotable(changes []graph.EdgeChange, nodes []graph.Node) bool {
	if len(nodes) == 0 {
		return false
	}
	for _, ch := range changes {
		if ch.Kind != graph.ChangeSelect {
			return true
		}
	}
	return false
}

// Undo restores the graph before the last recorded edit.
func (s *Store) Undo() {
	s.travel(historyApplyingUndo)
}

// Redo reapplies the last undone edit.
func (s *Store) Redo() {
	s.travel(historyApplyingRedo)
}

func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.undo) > 0
}

func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.redo) > 0
}

func (s *Store) travel(mode historyMode) {
	s.mu.Lock()
	d := &s.doc
	if d.mode != historyIdle {
		s.mu.Unlock()
		return
	}
	from, to := &d.undo, &d.redo
	if mode == historyApplyingRedo {
		from, to = &d.redo, &d.undo
	}
	if len(*from) == 0 {
		s.mu.Unlock()
		return
	}
	target := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, graphState{nodes: d.nodes, edges: d.edges})
	d.nodes = target.nodes
	d.edges = target.edges
	d.markDirty()
	d.mode = mode
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist()
	s.publish(snap)

	s.mu.Lock()
	s.doc.mode = historyIdle
	s.mu.Unlock()
}
