package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrEmptyFlowName = errors.New("flow name must not be empty")

// beginLifecycle starts a flow operation and returns its generation.
func (s *Store) beginLifecycle() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowIssued++
	return s.flowIssued
}

// commitLifecycle applies fn unless a flow operation started after gen has
// already committed. Must not be called with s.mu held.
func (s *Store) commitLifecycle(gen uint64, fn func(d *document)) bool {
	committed := false
	s.update(func(d *document) bool {
		if gen < s.flowCommitted {
			return false
		}
		s.flowCommitted = gen
		fn(d)
		committed = true
		return true
	})
	return committed
}

// commitNextLifecycle issues and commits a generation in one step. s.mu must
// be held.
func (s *Store) commitNextLifecycle() {
	s.flowIssued++
	s.flowCommitted = s.flowIssued
}

// CreateFlow creates a new flow on the server and opens it as an empty
// document.
func (s *Store) CreateFlow(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyFlowName
	}
	gen := s.beginLifecycle()
	meta, err := s.gateway.CreateFlow(ctx, name)
	if err != nil {
		return s.fail(err)
	}
	ok := s.commitLifecycle(gen, func(d *document) {
		d.replace(&FlowRef{ID: meta.ID, Name: meta.Name}, nil, nil)
	})
	if !ok {
		slog.Debug("discarding superseded flow creation", slog.String("id", meta.ID))
		return ErrSuperseded
	}
	s.notifier.Success(fmt.Sprintf("Created Flow %s", meta.Name))
	return nil
}

// LoadFlow replaces the document with the stored flow id.
func (s *Store) LoadFlow(ctx context.Context, id string) error {
	gen := s.beginLifecycle()
	flow, err := s.gateway.Flow(ctx, id)
	if err != nil {
		return s.fail(err)
	}
	ok := s.commitLifecycle(gen, func(d *document) {
		d.replace(&FlowRef{ID: id, Name: flow.Name}, flow.Nodes, flow.Edges)
	})
	if !ok {
		slog.Debug("discarding superseded flow load", slog.String("id", id))
		return ErrSuperseded
	}
	return nil
}

// SaveFlow stores the open document when it has unsaved changes. The dirty
// flag is only cleared when nothing changed while the request was running.
func (s *Store) SaveFlow(ctx context.Context) error {
	s.mu.Lock()
	current := s.doc.current
	dirty := s.doc.dirty
	nodes, edges := s.doc.nodes, s.doc.edges
	version := s.doc.version
	s.mu.Unlock()
	if current == nil || !dirty {
		return nil
	}

	if err := s.gateway.StoreFlow(ctx, current.ID, current.Name, nodes, edges); err != nil {
		return s.fail(err)
	}
	s.update(func(d *document) bool {
		if d.version != version || d.current == nil || d.current.ID != current.ID {
			return false
		}
		d.dirty = false
		return true
	})
	s.notifier.Success("Saved")
	return nil
}

// DeleteFlow deletes flow id on the server, closes it when it is open and
// refreshes the listing.
func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	if err := s.gateway.DeleteFlow(ctx, id); err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	active := s.doc.current != nil && s.doc.current.ID == id
	s.mu.Unlock()
	if active {
		s.CloseFlow()
	}
	return s.LoadFlowsMetadata(ctx)
}

// CloseFlow empties the document and forgets the open flow.
func (s *Store) CloseFlow() {
	s.update(func(d *document) bool {
		s.commitNextLifecycle()
		d.replace(nil, nil, nil)
		return true
	})
}

// LoadFlowsMetadata refreshes the list of stored flows. On failure the
// previous listing is kept.
func (s *Store) LoadFlowsMetadata(ctx context.Context) error {
	flows, err := s.gateway.Flows(ctx)
	if err != nil {
		return s.fail(err)
	}
	s.update(func(d *document) bool {
		d.flows = flows
		return true
	})
	return nil
}
