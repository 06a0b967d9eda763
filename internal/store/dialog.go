package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/debug-flow/debug-flow/internal/graph"
	"github.com/debug-flow/debug-flow/internal/revision"
)

var (
	ErrNoDialog       = errors.New("no node dialog is open")
	ErrNodeNotFound   = errors.New("node not found")
	ErrDocumentExists = errors.New("document already has nodes")
)

type DialogKind string

const (
	DialogPending DialogKind = "pending"
	DialogEdit    DialogKind = "edit"
)

// PendingNode is a staged request to create a node, usually after a
// connection was dropped on empty canvas.
type PendingNode struct {
	ScreenPosition graph.Position     `json:"eventScreenPosition"`
	Type           graph.NodeType     `json:"type"`
	FromNodeID     string             `json:"fromNodeId,omitempty"`
	DefaultRev     *revision.Metadata `json:"defaultRev"`
}

// DialogNode is the node form currently open: either a creation request or
// an existing node being edited.
type DialogNode struct {
	Kind    DialogKind
	Pending *PendingNode
	Edit    *graph.Node
}

// NodeForm carries the values submitted from a node dialog.
type NodeForm struct {
	Title       string
	Description string
	Git         *revision.Metadata
	State       graph.State
}

// ConnectionDrop describes the end of a connection drag.
type ConnectionDrop struct {
	FromNodeID     string
	ValidTarget    bool
	ScreenPosition graph.Position
}

func (s *Store) Dialog() *DialogNode {
	return s.Snapshot().Dialog
}

// SetPendingNode stages a creation request; nil closes the dialog.
func (s *Store) SetPendingNode(p *PendingNode) {
	s.update(func(d *document) bool {
		if p == nil {
			d.dialog = nil
			return true
		}
		pending := *p
		d.dialog = &DialogNode{Kind: DialogPending, Pending: &pending}
		return true
	})
}

// SetEditNode opens the edit dialog for node id.
func (s *Store) SetEditNode(id string) error {
	var err error
	s.update(func(d *document) bool {
		n, ok := graph.FindNode(d.nodes, id)
		if !ok {
			err = fmt.Errorf("edit node %s: %w", id, ErrNodeNotFound)
			return false
		}
		d.dialog = &DialogNode{Kind: DialogEdit, Edit: &n}
		return true
	})
	return err
}

// CancelDialog closes the node dialog. The creation dialog for the first
// node of a document cannot be dismissed; false is returned in that case.
func (s *Store) CancelDialog() bool {
	cancelled := false
	s.update(func(d *document) bool {
		if d.dialog == nil {
			return false
		}
		if d.dialog.Kind == DialogPending && len(d.nodes) == 0 {
			return false
		}
		d.dialog = nil
		cancelled = true
		return true
	})
	return cancelled
}

// OnConnectionDropped proposes a new node when a connection drag ends on
// empty canvas. The proposal alternates node types and defaults its revision
// to the one of the originating node. When that revision cannot be resolved
// the proposal is dropped.
func (s *Store) OnConnectionDropped(ctx context.Context, drop ConnectionDrop) error {
	if drop.ValidTarget {
		return nil
	}
	s.mu.Lock()
	from, ok := graph.FindNode(s.doc.nodes, drop.FromNodeID)
	s.mu.Unlock()
	if !ok || !from.Type.Valid() {
		return nil
	}

	newType := from.Type.Complement()
	defaultRev, err := revision.Match(ctx, s.gateway, from.Data.Git, newType.RevisionTarget())
	if err != nil {
		slog.Error("resolve matching revision",
			slog.String("from", from.ID),
			slog.Any("error", err),
		)
		return fmt.Errorf("propose node from %s: %w", from.ID, err)
	}
	s.SetPendingNode(&PendingNode{
		ScreenPosition: drop.ScreenPosition,
		Type:           newType,
		FromNodeID:     from.ID,
		DefaultRev:     defaultRev,
	})
	return nil
}

// RequestRootNode stages the creation of the first status node of an empty
// document, defaulting to the commit currently checked out.
func (s *Store) RequestRootNode(ctx context.Context, pos graph.Position) error {
	s.mu.Lock()
	empty := len(s.doc.nodes) == 0
	s.mu.Unlock()
	if !empty {
		return ErrDocumentExists
	}
	head, err := s.gateway.CommitForRevision(ctx, "HEAD")
	if err != nil {
		return s.fail(err)
	}
	s.SetPendingNode(&PendingNode{
		ScreenPosition: pos,
		Type:           graph.StatusNode,
		DefaultRev:     &head,
	})
	return nil
}

// SubmitPendingNode creates the staged node from form. The node becomes the
// root when the document is empty; otherwise it is connected to the node the
// request originated from. Both additions form a single history entry.
func (s *Store) SubmitPendingNode(form NodeForm) (graph.Node, error) {
	var (
		created graph.Node
		err     error
	)
	s.update(func(d *document) bool {
		if d.dialog == nil || d.dialog.Kind != DialogPending || d.dialog.Pending == nil {
			err = ErrNoDialog
			return false
		}
		pending := d.dialog.Pending
		isRoot := len(d.nodes) == 0
		data := graph.NodeData{
			Title:       form.Title,
			Description: form.Description,
			Git:         form.Git,
			State:       form.State,
		}
		if data.Git == nil {
			data.Git = pending.DefaultRev
		}
		created = graph.NewNode(graph.NewNodeID(), pending.Type, pending.ScreenPosition, data, isRoot && pending.Type == graph.StatusNode)
		if err = created.Validate(); err != nil {
			return false
		}

		if d.mode == historyIdle && nodeChangesNotableForUndo([]graph.NodeChange{graph.AddNode(created)}, d.nodes) {
			d.pushUndo()
		}
		d.nodes = graph.ApplyNodeChanges([]graph.NodeChange{graph.AddNode(created)}, d.nodes)
		if pending.FromNodeID != "" {
			if _, ok := graph.FindNode(d.nodes, pending.FromNodeID); ok {
				edge := graph.Edge{
					ID:     "edge-" + uuid.NewString(),
					Source: pending.FromNodeID,
					Target: created.ID,
				}
				d.edges = graph.ApplyEdgeChanges([]graph.EdgeChange{graph.AddEdgeChange(edge)}, d.edges)
			}
		}
		d.markDirty()
		d.dialog = nil
		return true
	})
	return created, err
}

// SubmitEditNode applies form to the node open in the edit dialog.
func (s *Store) SubmitEditNode(form NodeForm) (graph.Node, error) {
	var (
		edited graph.Node
		err    error
	)
	s.update(func(d *document) bool {
		if d.dialog == nil || d.dialog.Kind != DialogEdit || d.dialog.Edit == nil {
			err = ErrNoDialog
			return false
		}
		current, ok := graph.FindNode(d.nodes, d.dialog.Edit.ID)
		if !ok {
			err = fmt.Errorf("edit node %s: %w", d.dialog.Edit.ID, ErrNodeNotFound)
			return false
		}
		edited = current
		edited.Data.Title = form.Title
		edited.Data.Description = form.Description
		edited.Data.Git = form.Git
		if current.Type == graph.StatusNode && form.State != "" {
			edited.Data.State = form.State
		}
		if err = edited.Validate(); err != nil {
			return false
		}
		changes := []graph.NodeChange{graph.ReplaceNode(edited)}
		if d.mode == historyIdle && nodeChangesNotableForUndo(changes, d.nodes) {
			d.pushUndo()
		}
		d.nodes = graph.ApplyNodeChanges(changes, d.nodes)
		d.markDirty()
		d.dialog = nil
		return true
	})
	return edited, err
}
