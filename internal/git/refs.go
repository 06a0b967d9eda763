package git

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

// Tags lists tags whose name contains filter, ignoring case, together with
// the commit each one points at.
func (s *Service) Tags(filter string) ([]contracts.TaggedCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := s.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer refs.Close()

	filter = strings.ToLower(strings.TrimSpace(filter))
	out := []contracts.TaggedCommit{}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			return nil
		}
		hash, ok := s.peelTagCommitHash(ref.Hash())
		if !ok {
			slog.Debug("skipping tag without commit", slog.String("tag", name))
			return nil
		}
		c, err := s.repo.CommitObject(hash)
		if err != nil {
			return fmt.Errorf("read commit of tag %s: %w", name, err)
		}
		out = append(out, contracts.TaggedCommit{Tag: name, Commit: toCommit(c)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b contracts.TaggedCommit) int { return cmp.Compare(a.Tag, b.Tag) })
	return out, nil
}

// CreateTag adds a lightweight tag name at rev.
func (s *Service) CreateTag(name, rev string) (contracts.TaggedCommit, error) {
	if err := validateRefName(name); err != nil {
		return contracts.TaggedCommit{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.resolveLocked(rev)
	if err != nil {
		return contracts.TaggedCommit{}, err
	}
	if _, err := s.repo.CreateTag(name, c.Hash, nil); err != nil {
		if errors.Is(err, gitlib.ErrTagExists) {
			return contracts.TaggedCommit{}, fmt.Errorf("create tag %s: %w", name, ErrAlreadyExists)
		}
		return contracts.TaggedCommit{}, fmt.Errorf("create tag %s: %w", name, err)
	}
	slog.Info("created tag", slog.String("tag", name), slog.String("commit", c.Hash.String()))
	return contracts.TaggedCommit{Tag: name, Commit: toCommit(c)}, nil
}

// Branches lists local branches whose name contains filter, ignoring case.
func (s *Service) Branches(filter string) ([]contracts.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := s.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer refs.Close()

	filter = strings.ToLower(strings.TrimSpace(filter))
	out := []contracts.Branch{}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			return nil
		}
		c, err := s.repo.CommitObject(ref.Hash())
		if err != nil {
			return fmt.Errorf("read head of branch %s: %w", name, err)
		}
		out = append(out, contracts.Branch{Name: name, Head: toCommit(c)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b contracts.Branch) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// CreateBranch adds a local branch name pointing at rev without checking it
// out.
func (s *Service) CreateBranch(name, rev string) (contracts.Branch, error) {
	if err := validateRefName(name); err != nil {
		return contracts.Branch{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.resolveLocked(rev)
	if err != nil {
		return contracts.Branch{}, err
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := s.repo.Reference(refName, false); err == nil {
		return contracts.Branch{}, fmt.Errorf("create branch %s: %w", name, ErrAlreadyExists)
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, c.Hash)); err != nil {
		return contracts.Branch{}, fmt.Errorf("create branch %s: %w", name, err)
	}
	slog.Info("created branch", slog.String("branch", name), slog.String("commit", c.Hash.String()))
	return contracts.Branch{Name: name, Head: toCommit(c)}, nil
}

func (s *Service) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := s.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := s.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func validateRefName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRevision)
	case strings.ContainsAny(name, " ~^:?*[\\\t\n"),
		strings.Contains(name, ".."),
		strings.Contains(name, "@{"),
		strings.HasPrefix(name, "-"),
		strings.HasPrefix(name, "/"),
		strings.HasSuffix(name, "/"),
		strings.HasSuffix(name, ".lock"):
		return fmt.Errorf("%w: %q is not a valid reference name", ErrInvalidRevision, name)
	}
	return nil
}
