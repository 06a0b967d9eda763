package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

// CommitRange selects commits reachable from HeadRev (HEAD when empty) but
// not from BaseRev. Filter keeps commits whose hash starts with it or whose
// summary contains it, ignoring case. Limit caps the result when positive.
type CommitRange struct {
	Filter  string
	BaseRev string
	HeadRev string
	Limit   int
}

// Commits lists the commits of r, newest first.
func (s *Service) Commits(ctx context.Context, r CommitRange) ([]contracts.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	headRev := r.HeadRev
	if headRev == "" {
		if _, err := s.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []contracts.Commit{}, nil
		}
		headRev = "HEAD"
	}
	head, err := s.resolveLocked(headRev)
	if err != nil {
		return nil, err
	}

	hidden := map[plumbing.Hash]bool{}
	if r.BaseRev != "" {
		base, err := s.resolveLocked(r.BaseRev)
		if err != nil {
			return nil, err
		}
		if err := s.collectAncestorsLocked(ctx, base.Hash, hidden); err != nil {
			return nil, err
		}
	}

	iter := object.NewCommitIterCTime(head, hidden, nil)
	defer iter.Close()

	filter := strings.ToLower(strings.TrimSpace(r.Filter))
	out := []contracts.Commit{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		if hidden[c.Hash] {
			continue
		}
		commit := toCommit(c)
		if !matchesFilter(commit, filter) {
			continue
		}
		out = append(out, commit)
		if r.Limit > 0 && len(out) >= r.Limit {
			break
		}
	}
	slog.Debug("listed commits",
		slog.String("head", headRev),
		slog.String("base", r.BaseRev),
		slog.String("filter", r.Filter),
		slog.Int("count", len(out)),
	)
	return out, nil
}

func (s *Service) collectAncestorsLocked(ctx context.Context, from plumbing.Hash, seen map[plumbing.Hash]bool) error {
	iter, err := s.repo.Log(&gitlib.LogOptions{From: from})
	if err != nil {
		return fmt.Errorf("read commits: %w", err)
	}
	defer iter.Close()
	return iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = true
		return nil
	})
}

func matchesFilter(c contracts.Commit, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.HasPrefix(c.ID, filter) || strings.Contains(strings.ToLower(c.Summary), filter)
}
