package git

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

const diffContextLines = 3

type fileChange struct {
	fromPath string
	toPath   string
	from     *object.File
	to       *object.File
}

// Diffs compares the trees of baseRev and headRev file by file. An empty
// baseRev compares against the empty tree so every file shows up as new; an
// empty headRev means HEAD.
func (s *Service) Diffs(ctx context.Context, baseRev, headRev string) ([]contracts.Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if headRev == "" {
		headRev = "HEAD"
	}
	headTree, err := s.treeLocked(headRev)
	if err != nil {
		return nil, err
	}
	var baseTree *object.Tree
	if baseRev != "" {
		if baseTree, err = s.treeLocked(baseRev); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	out := make([]contracts.Diff, 0, len(changes))
	for _, ch := range changes {
		from, to, err := ch.Files()
		if err != nil {
			return nil, fmt.Errorf("read changed files: %w", err)
		}
		d, err := renderFileDiff(fileChange{
			fromPath: ch.From.Name,
			toPath:   ch.To.Name,
			from:     from,
			to:       to,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b contracts.Diff) int {
		return cmp.Compare(a.Path(), b.Path())
	})
	slog.Debug("computed diffs",
		slog.String("base", baseRev),
		slog.String("head", headRev),
		slog.Int("files", len(out)),
	)
	return out, nil
}

func (s *Service) treeLocked(rev string) (*object.Tree, error) {
	c, err := s.resolveLocked(rev)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", rev, err)
	}
	return tree, nil
}

func renderFileDiff(ch fileChange) (contracts.Diff, error) {
	var d contracts.Diff
	if ch.from != nil {
		d.Old = &contracts.DiffFile{Path: ch.fromPath}
	}
	if ch.to != nil {
		d.New = &contracts.DiffFile{Path: ch.toPath}
	}

	isBinary, err := binaryChange(ch)
	if err != nil {
		return d, err
	}
	if isBinary {
		d.Kind = contracts.DiffBinary
		return d, nil
	}
	d.Kind = contracts.DiffText

	fromLines, fromText, err := fileLines(ch.from)
	if err != nil {
		return d, err
	}
	toLines, toText, err := fileLines(ch.to)
	if err != nil {
		return d, err
	}
	if d.Old != nil {
		d.Old.Content = &fromText
	}
	if d.New != nil {
		d.New.Content = &toText
	}

	fromFile, toFile := "/dev/null", "/dev/null"
	if ch.from != nil {
		fromFile = "a/" + ch.fromPath
	}
	if ch.to != nil {
		toFile = "b/" + ch.toPath
	}
	ud := difflib.UnifiedDiff{
		A:        fromLines,
		B:        toLines,
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  diffContextLines,
	}
	patch, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return d, fmt.Errorf("render patch for %s: %w", d.Path(), err)
	}
	d.Patch = patch
	return d, nil
}

func binaryChange(ch fileChange) (bool, error) {
	for _, f := range []*object.File{ch.from, ch.to} {
		if f == nil {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil {
			return false, err
		}
		if bin {
			return true, nil
		}
	}
	return false, nil
}

func fileLines(f *object.File) ([]string, string, error) {
	if f == nil {
		return []string{}, "", nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	if content == "" {
		return []string{}, "", nil
	}
	return difflib.SplitLines(content), content, nil
}
