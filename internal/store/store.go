// Package store holds the editing state of a debug flow: the graph document
// with its undo history, the revision pins, the checkout tracker and the view
// preferences.
package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/debug-flow/debug-flow/internal/api"
	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/debounce"
	"github.com/debug-flow/debug-flow/internal/graph"
	"github.com/debug-flow/debug-flow/internal/revision"
)

// ErrSuperseded is returned when a flow request completed after a newer
// flow operation had already replaced the document.
var ErrSuperseded = errors.New("superseded by a newer flow operation")

type FlowGateway interface {
	Flows(ctx context.Context) ([]contracts.FlowMetadata, error)
	CreateFlow(ctx context.Context, name string) (contracts.FlowMetadata, error)
	Flow(ctx context.Context, id string) (api.Flow, error)
	StoreFlow(ctx context.Context, id, name string, nodes []graph.Node, edges []graph.Edge) error
	DeleteFlow(ctx context.Context, id string) error
}

type GitGateway interface {
	revision.CommitResolver
	Checkout(ctx context.Context, rev string) (contracts.Commit, error)
	Status(ctx context.Context) (api.GitStatus, error)
	Diffs(ctx context.Context, baseRev, headRev string) ([]contracts.Diff, error)
}

type Gateway interface {
	FlowGateway
	GitGateway
}

type FlowRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is an immutable view of the document handed to observers.
type Snapshot struct {
	Nodes             []graph.Node
	Edges             []graph.Edge
	CurrentFlow       *FlowRef
	Flows             []contracts.FlowMetadata
	HasUnsavedChanges bool
	Dialog            *DialogNode
	CanUndo           bool
	CanRedo           bool
}

type Options struct {
	Gateway  Gateway
	Notifier Notifier
	// Storage persists the document between runs. Nil disables persistence.
	Storage Storage
	// PersistDelay coalesces persistence writes. Zero writes synchronously
	// after each mutation.
	PersistDelay time.Duration
}

type Store struct {
	mu  sync.Mutex
	doc document
	// Every flow lifecycle operation takes the next number from flowIssued.
	// flowCommitted is the number of the newest operation that changed the
	// document; a response older than it is discarded. Failed operations
	// never commit, so they supersede nothing.
	flowIssued    uint64
	flowCommitted uint64

	gateway  Gateway
	notifier Notifier

	storage  Storage
	saveMu   sync.Mutex
	persistD *debounce.Debouncer

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int

	pins *PinTracker
	git  *GitStatusTracker
}

func New(opts Options) *Store {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	s := &Store{
		gateway:   opts.Gateway,
		notifier:  notifier,
		storage:   opts.Storage,
		observers: map[int]func(Snapshot){},
		pins:      NewPinTracker(),
		git:       NewGitStatusTracker(opts.Gateway, notifier),
	}
	if s.storage != nil {
		s.restore()
		if opts.PersistDelay > 0 {
			s.persistD = debounce.New(opts.PersistDelay, s.writeRecord)
		}
	}
	return s
}

func (s *Store) restore() {
	var rec flowRecord
	ok, err := s.storage.Load(FlowStorageName, &rec)
	if err == nil && ok {
		var doc document
		if err = rec.apply(&doc); err == nil {
			s.doc = doc
		}
	}
	if err != nil {
		slog.Warn("discarding persisted flow state", slog.Any("error", err))
	}
}

func (s *Store) Pins() *PinTracker      { return s.pins }
func (s *Store) Git() *GitStatusTracker { return s.git }

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Nodes() []graph.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.nodes)
}

func (s *Store) Edges() []graph.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.edges)
}

func (s *Store) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.dirty
}

func (s *Store) CurrentFlow() *FlowRef {
	return s.Snapshot().CurrentFlow
}

func (s *Store) Flows() []contracts.FlowMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.flows)
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Nodes:             slices.Clone(s.doc.nodes),
		Edges:             slices.Clone(s.doc.edges),
		Flows:             slices.Clone(s.doc.flows),
		HasUnsavedChanges: s.doc.dirty,
		CanUndo:           len(s.doc.undo) > 0,
		CanRedo:           len(s.doc.redo) > 0,
	}
	if s.doc.current != nil {
		ref := *s.doc.current
		snap.CurrentFlow = &ref
	}
	if s.doc.dialog != nil {
		d := *s.doc.dialog
		snap.Dialog = &d
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after every committed
// mutation. Observers run on the mutating goroutine without the store lock
// held, so they may call back into the store.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) publish(snap Snapshot) {
	s.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for id := range s.nextObs {
		if fn, ok := s.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// update runs fn under the store lock. When fn reports a change the state
// is persisted and observers are notified.
func (s *Store) update(fn func(d *document) bool) bool {
	s.mu.Lock()
	changed := fn(&s.doc)
	var snap Snapshot
	if changed {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()
	if changed {
		s.persist()
		s.publish(snap)
	}
	return changed
}

func (s *Store) persist() {
	if s.storage == nil {
		return
	}
	if s.persistD != nil {
		s.persistD.Trigger()
		return
	}
	s.writeRecord()
}

func (s *Store) writeRecord() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.Lock()
	rec := newFlowRecord(&s.doc)
	s.mu.Unlock()
	if err := s.storage.Save(FlowStorageName, rec); err != nil {
		slog.Warn("persist flow state", slog.Any("error", err))
	}
}

// Close flushes pending persistence writes.
func (s *Store) Close() {
	if s.persistD != nil {
		s.persistD.Stop()
		s.writeRecord()
	}
}

// Reset returns the store, pins and checkout tracker to their initial empty
// state.
func (s *Store) Reset() {
	s.update(func(d *document) bool {
		s.commitNextLifecycle()
		*d = document{}
		return true
	})
	s.pins.reset()
	s.git.reset()
}

func (s *Store) fail(err error) error {
	s.notifier.Error(err)
	return err
}

// PinnedDiffs fetches the changes between the two pinned revisions.
func (s *Store) PinnedDiffs(ctx context.Context) ([]contracts.Diff, error) {
	base, head, ok := s.pins.Range()
	if !ok {
		return nil, errors.New("pin two revisions to compare them")
	}
	diffs, err := s.gateway.Diffs(ctx, base.Rev(), head.Rev())
	if err != nil {
		return nil, s.fail(err)
	}
	return diffs, nil
}
