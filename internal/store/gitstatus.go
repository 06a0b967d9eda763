package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/debug-flow/debug-flow/internal/api"
)

// GitStatusTracker remembers where the repository was before the first
// checkout made from the editor so it can be restored with one step.
type GitStatusTracker struct {
	// ops serializes Checkout and Restore; mu guards the slots.
	ops sync.Mutex
	mu  sync.Mutex

	gateway  GitGateway
	notifier Notifier

	current  *api.GitStatus
	previous *api.GitStatus
}

func NewGitStatusTracker(gateway GitGateway, notifier Notifier) *GitStatusTracker {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &GitStatusTracker{gateway: gateway, notifier: notifier}
}

func (g *GitStatusTracker) Current() (api.GitStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return api.GitStatus{}, false
	}
	return *g.current, true
}

func (g *GitStatusTracker) Previous() (api.GitStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.previous == nil {
		return api.GitStatus{}, false
	}
	return *g.previous, true
}

// Checkout checks out rev. Nothing is recorded unless every request
// succeeds.
func (g *GitStatusTracker) Checkout(ctx context.Context, rev string) error {
	g.ops.Lock()
	defer g.ops.Unlock()

	g.mu.Lock()
	previous := g.previous
	g.mu.Unlock()

	if previous == nil {
		st, err := g.gateway.Status(ctx)
		if err != nil {
			return g.fail(err)
		}
		previous = &st
	}
	if _, err := g.gateway.Checkout(ctx, rev); err != nil {
		return g.fail(err)
	}
	st, err := g.gateway.Status(ctx)
	if err != nil {
		return g.fail(err)
	}

	g.mu.Lock()
	g.previous = previous
	g.current = &st
	g.mu.Unlock()

	slog.Debug("checked out revision",
		slog.String("rev", rev),
		slog.String("previous", previous.Revision.Rev()),
	)
	g.notifier.Success(fmt.Sprintf("Checked out revision %s", rev))
	return nil
}

// Restore checks out the revision recorded before the first Checkout and
// forgets both snapshots. Without a recorded revision it does nothing.
func (g *GitStatusTracker) Restore(ctx context.Context) error {
	g.ops.Lock()
	defer g.ops.Unlock()

	g.mu.Lock()
	previous := g.previous
	g.mu.Unlock()
	if previous == nil {
		return nil
	}

	rev := previous.Revision.Rev()
	if _, err := g.gateway.Checkout(ctx, rev); err != nil {
		return g.fail(err)
	}

	g.mu.Lock()
	g.previous = nil
	g.current = nil
	g.mu.Unlock()

	g.notifier.Success(fmt.Sprintf("Checked out revision %s", rev))
	return nil
}

func (g *GitStatusTracker) reset() {
	g.mu.Lock()
	g.previous = nil
	g.current = nil
	g.mu.Unlock()
}

func (g *GitStatusTracker) fail(err error) error {
	g.notifier.Error(err)
	return err
}
