package store

import (
	"context"
	"errors"
	"sync"

	"github.com/debug-flow/debug-flow/internal/api"
	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/graph"
	"github.com/debug-flow/debug-flow/internal/revision"
)

var errNotImplemented = errors.New("not implemented")

type fakeGateway struct {
	flowsFunc             func(ctx context.Context) ([]contracts.FlowMetadata, error)
	createFlowFunc        func(ctx context.Context, name string) (contracts.FlowMetadata, error)
	flowFunc              func(ctx context.Context, id string) (api.Flow, error)
	storeFlowFunc         func(ctx context.Context, id, name string, nodes []graph.Node, edges []graph.Edge) error
	deleteFlowFunc        func(ctx context.Context, id string) error
	commitForRevisionFunc func(ctx context.Context, rev string) (revision.Metadata, error)
	checkoutFunc          func(ctx context.Context, rev string) (contracts.Commit, error)
	statusFunc            func(ctx context.Context) (api.GitStatus, error)
	diffsFunc             func(ctx context.Context, baseRev, headRev string) ([]contracts.Diff, error)
}

func (f *fakeGateway) Flows(ctx context.Context) ([]contracts.FlowMetadata, error) {
	if f.flowsFunc == nil {
		return nil, nil
	}
	return f.flowsFunc(ctx)
}

func (f *fakeGateway) CreateFlow(ctx context.Context, name string) (contracts.FlowMetadata, error) {
	if f.createFlowFunc == nil {
		return contracts.FlowMetadata{}, errNotImplemented
	}
	return f.createFlowFunc(ctx, name)
}

func (f *fakeGateway) Flow(ctx context.Context, id string) (api.Flow, error) {
	if f.flowFunc == nil {
		return api.Flow{}, errNotImplemented
	}
	return f.flowFunc(ctx, id)
}

func (f *fakeGateway) StoreFlow(ctx context.Context, id, name string, nodes []graph.Node, edges []graph.Edge) error {
	if f.storeFlowFunc == nil {
		return errNotImplemented
	}
	return f.storeFlowFunc(ctx, id, name, nodes, edges)
}

func (f *fakeGateway) DeleteFlow(ctx context.Context, id string) error {
	if f.deleteFlowFunc == nil {
		return errNotImplemented
	}
	return f.deleteFlowFunc(ctx, id)
}

func (f *fakeGateway) CommitForRevision(ctx context.Context, rev string) (revision.Metadata, error) {
	if f.commitForRevisionFunc == nil {
		return revision.Metadata{}, errNotImplemented
	}
	return f.commitForRevisionFunc(ctx, rev)
}

func (f *fakeGateway) Checkout(ctx context.Context, rev string) (contracts.Commit, error) {
	if f.checkoutFunc == nil {
		return contracts.Commit{}, errNotImplemented
	}
	return f.checkoutFunc(ctx, rev)
}

func (f *fakeGateway) Status(ctx context.Context) (api.GitStatus, error) {
	if f.statusFunc == nil {
		return api.GitStatus{}, errNotImplemented
	}
	return f.statusFunc(ctx)
}

func (f *fakeGateway) Diffs(ctx context.Context, baseRev, headRev string) ([]contracts.Diff, error) {
	if f.diffsFunc == nil {
		return nil, errNotImplemented
	}
	return f.diffsFunc(ctx, baseRev, headRev)
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []error
}

func (r *recordingNotifier) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recordingNotifier) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recordingNotifier) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes), len(r.errors)
}
