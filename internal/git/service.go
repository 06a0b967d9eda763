// Package git exposes the repository operations served under /api/v1/git.
package git

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

var (
	ErrRevisionNotFound = errors.New("revision not found")
	ErrInvalidRevision  = errors.New("invalid revision")
	ErrAlreadyExists    = errors.New("reference already exists")
	ErrDirtyWorktree    = errors.New("worktree has uncommitted changes")
)

type Service struct {
	// mu serializes repository access; go-git storers are not safe for
	// concurrent writers.
	mu sync.Mutex

	repo repoState
}

type repoState struct {
	*gitlib.Repository
	path string
}

func Open(repoPath string) (*Service, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if wt, err := repo.Worktree(); err == nil {
		abs = wt.Filesystem.Root()
	}
	slog.Debug("repository opened", slog.String("path", abs))
	return &Service{repo: repoState{path: abs, Repository: repo}}, nil
}

func (s *Service) RepoPath() string {
	return s.repo.path
}

// Commit resolves rev to the commit it points at. rev may be a full or
// abbreviated hash, a branch, a tag or an expression such as HEAD~2.
func (s *Service) Commit(rev string) (contracts.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.resolveLocked(rev)
	if err != nil {
		return contracts.Commit{}, err
	}
	return toCommit(c), nil
}

// Checkout moves the worktree to rev. A local branch name checks out the
// branch; anything else detaches HEAD at the resolved commit.
func (s *Service) Checkout(rev string) (contracts.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.resolveLocked(rev)
	if err != nil {
		return contracts.Commit{}, err
	}
	wt, err := s.repo.Worktree()
	if err != nil {
		return contracts.Commit{}, fmt.Errorf("open worktree: %w", err)
	}
	opts := &gitlib.CheckoutOptions{Hash: c.Hash}
	branch := plumbing.NewBranchReferenceName(strings.TrimSpace(rev))
	if _, err := s.repo.Reference(branch, false); err == nil {
		opts = &gitlib.CheckoutOptions{Branch: branch}
	}
	if err := wt.Checkout(opts); err != nil {
		if errors.Is(err, gitlib.ErrUnstagedChanges) {
			return contracts.Commit{}, fmt.Errorf("check out %s: %w", rev, ErrDirtyWorktree)
		}
		return contracts.Commit{}, fmt.Errorf("check out %s: %w", rev, err)
	}
	slog.Info("checked out revision",
		slog.String("rev", rev),
		slog.String("commit", c.Hash.String()),
		slog.Bool("branch", opts.Branch != ""),
	)
	return toCommit(c), nil
}

// resolveLocked expects the caller to hold s.mu.
func (s *Service) resolveLocked(rev string) (*object.Commit, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return nil, fmt.Errorf("%w: empty revision", ErrInvalidRevision)
	}
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, rev)
		}
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidRevision, rev, err)
	}
	c, err := s.repo.CommitObject(*hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, rev)
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return c, nil
}

func toCommit(c *object.Commit) contracts.Commit {
	summary, body := splitMessage(c.Message)
	committer := c.Committer
	if committer.Name == "" && committer.Email == "" && committer.When.IsZero() {
		committer = c.Author
	}
	return contracts.Commit{
		ID:        c.Hash.String(),
		Summary:   summary,
		Body:      body,
		Time:      committer.When,
		Author:    contracts.Signature{Name: c.Author.Name, Email: c.Author.Email},
		Committer: contracts.Signature{Name: committer.Name, Email: committer.Email},
	}
}

func splitMessage(msg string) (summary, body string) {
	msg = strings.TrimSpace(msg)
	summary, body, _ = strings.Cut(msg, "\n")
	return strings.TrimSpace(summary), strings.TrimSpace(body)
}
