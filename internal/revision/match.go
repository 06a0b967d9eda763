package revision

import (
	"context"
	"fmt"
)

// Target describes the node that will hold the resolved metadata.
type Target uint8

const (
	ForAction Target = iota
	ForStatus
)

// CommitResolver looks up the commit a revision currently points at.
type CommitResolver interface {
	CommitForRevision(ctx context.Context, rev string) (Metadata, error)
}

// Match derives the metadata a freshly created node should default to when
// it is spawned from a node carrying m.
//
// Branches move, so their head is always re-resolved. Status nodes record a
// snapshot of the repository and therefore receive the resolved commit
// instead of the branch itself.
func Match(ctx context.Context, resolver CommitResolver, m *Metadata, target Target) (*Metadata, error) {
	if m == nil {
		return nil, nil
	}
	if !m.IsBranch() {
		out := *m
		return &out, nil
	}
	commit, err := resolver.CommitForRevision(ctx, m.rev)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", m.rev, err)
	}
	if target == ForStatus {
		out := Commit(commit.rev, commit.summary)
		return &out, nil
	}
	out := m.WithSummary(commit.summary)
	return &out, nil
}
