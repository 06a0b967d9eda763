package git

import (
	"errors"
	"fmt"
	"slices"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

// Status reports the checked out branch (nil when HEAD is detached), the
// head commit and the staged and unstaged changes.
func (s *Service) Status() (contracts.RepositoryStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res contracts.RepositoryStatus
	ref, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return res, fmt.Errorf("resolve HEAD: %w", ErrRevisionNotFound)
		}
		return res, fmt.Errorf("resolve HEAD: %w", err)
	}
	if ref.Name().IsBranch() {
		name := ref.Name().Short()
		res.CurrentBranch = &name
	}
	c, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return res, fmt.Errorf("read HEAD commit: %w", err)
	}
	res.Head = toCommit(c)

	wt, err := s.repo.Worktree()
	if err != nil {
		return res, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return res, fmt.Errorf("worktree status: %w", err)
	}
	res.Index, res.Worktree = changeLists(status)
	return res, nil
}

func changeLists(status gitlib.Status) (index, worktree contracts.ChangeList) {
	index, worktree = emptyChangeList(), emptyChangeList()
	for path, st := range status {
		// Untracked files report '?' on both sides.
		if st.Staging != gitlib.Untracked {
			addChange(&index, st.Staging, path)
		}
		addChange(&worktree, st.Worktree, path)
	}
	for _, cl := range []*contracts.ChangeList{&index, &worktree} {
		slices.Sort(cl.NewFiles)
		slices.Sort(cl.ModifiedFiles)
		slices.Sort(cl.RenamedFiles)
		slices.Sort(cl.DeletedFiles)
	}
	return index, worktree
}

func addChange(cl *contracts.ChangeList, code gitlib.StatusCode, path string) {
	switch code {
	case gitlib.Added, gitlib.Untracked, gitlib.Copied:
		cl.NewFiles = append(cl.NewFiles, path)
	case gitlib.Modified, gitlib.UpdatedButUnmerged:
		cl.ModifiedFiles = append(cl.ModifiedFiles, path)
	case gitlib.Renamed:
		cl.RenamedFiles = append(cl.RenamedFiles, path)
	case gitlib.Deleted:
		cl.DeletedFiles = append(cl.DeletedFiles, path)
	}
}

func emptyChangeList() contracts.ChangeList {
	return contracts.ChangeList{
		NewFiles:      []string{},
		ModifiedFiles: []string{},
		RenamedFiles:  []string{},
		DeletedFiles:  []string{},
	}
}
