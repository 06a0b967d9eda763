package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/revision"
)

// GitStatus is the checked out revision: a branch, or a commit when HEAD is
// detached.
type GitStatus struct {
	Revision revision.Metadata
}

func StatusFromRepository(st contracts.RepositoryStatus) GitStatus {
	if st.CurrentBranch != nil && *st.CurrentBranch != "" {
		return GitStatus{Revision: revision.Branch(*st.CurrentBranch, st.Head.Summary)}
	}
	return GitStatus{Revision: revision.Commit(st.Head.ID, st.Head.Summary)}
}

type CommitQuery struct {
	Filter  string
	BaseRev string
	HeadRev string
	// Limit caps the number of commits when positive.
	Limit int
}

func (q CommitQuery) values() url.Values {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	if q.BaseRev != "" {
		v.Set("baseRev", q.BaseRev)
	}
	if q.HeadRev != "" {
		v.Set("headRev", q.HeadRev)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func filterValues(filter string) url.Values {
	if filter == "" {
		return nil
	}
	return url.Values{"filter": {filter}}
}

func (c *Client) Commit(ctx context.Context, rev string) (contracts.Commit, error) {
	var commit contracts.Commit
	if err := c.do(ctx, http.MethodGet, "/git/commit/"+url.PathEscape(rev), nil, nil, &commit); err != nil {
		return contracts.Commit{}, fmt.Errorf("get commit for revision %s: %w", rev, err)
	}
	return commit, nil
}

// CommitForRevision resolves rev to the commit it points at. rev may be a
// hash, an abbreviated hash, a branch, a tag or a symbolic name like HEAD.
func (c *Client) CommitForRevision(ctx context.Context, rev string) (revision.Metadata, error) {
	commit, err := c.Commit(ctx, rev)
	if err != nil {
		return revision.Metadata{}, err
	}
	return revision.Commit(commit.ID, commit.Summary), nil
}

func (c *Client) CurrentHead(ctx context.Context) (revision.Metadata, error) {
	return c.CommitForRevision(ctx, "HEAD")
}

func (c *Client) Checkout(ctx context.Context, rev string) (contracts.Commit, error) {
	var commit contracts.Commit
	if err := c.do(ctx, http.MethodPost, "/git/commit/"+url.PathEscape(rev), nil, nil, &commit); err != nil {
		return contracts.Commit{}, fmt.Errorf("check out revision %s: %w", rev, err)
	}
	return commit, nil
}

func (c *Client) Commits(ctx context.Context, q CommitQuery) ([]contracts.Commit, error) {
	var resp contracts.ListCommitsResponse
	if err := c.do(ctx, http.MethodGet, "/git/commits", q.values(), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch commits: %w", err)
	}
	return resp.Commits, nil
}

func (c *Client) CommitsMetadata(ctx context.Context, filter string) ([]revision.Metadata, error) {
	commits, err := c.Commits(ctx, CommitQuery{Filter: filter})
	if err != nil {
		return nil, err
	}
	out := make([]revision.Metadata, 0, len(commits))
	for _, commit := range commits {
		out = append(out, revision.Commit(commit.ID, commit.Summary))
	}
	return out, nil
}

func (c *Client) Diffs(ctx context.Context, baseRev, headRev string) ([]contracts.Diff, error) {
	q := CommitQuery{BaseRev: baseRev, HeadRev: headRev}
	var resp contracts.ListDiffsResponse
	if err := c.do(ctx, http.MethodGet, "/git/diffs", q.values(), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch diffs: %w", err)
	}
	return resp.Diffs, nil
}

func (c *Client) Tags(ctx context.Context, filter string) ([]revision.Metadata, error) {
	var resp contracts.ListTagsResponse
	if err := c.do(ctx, http.MethodGet, "/git/tags", filterValues(filter), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	out := make([]revision.Metadata, 0, len(resp.Tags))
	for _, tag := range resp.Tags {
		out = append(out, revision.Tag(tag.Tag, tag.Commit.Summary))
	}
	return out, nil
}

func (c *Client) CreateTag(ctx context.Context, name string, at revision.Metadata) (revision.Metadata, error) {
	q := url.Values{"name": {name}, "revision": {at.Rev()}}
	var tag contracts.TaggedCommit
	if err := c.do(ctx, http.MethodPost, "/git/tags", q, nil, &tag); err != nil {
		return revision.Metadata{}, fmt.Errorf("create tag %s: %w", name, err)
	}
	return revision.Tag(tag.Tag, tag.Commit.Summary), nil
}

func (c *Client) Branches(ctx context.Context, filter string) ([]revision.Metadata, error) {
	var resp contracts.ListBranchesResponse
	if err := c.do(ctx, http.MethodGet, "/git/branches", filterValues(filter), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch branches: %w", err)
	}
	out := make([]revision.Metadata, 0, len(resp.Branches))
	for _, b := range resp.Branches {
		out = append(out, revision.Branch(b.Name, b.Head.Summary))
	}
	return out, nil
}

func (c *Client) Branch(ctx context.Context, name string) (revision.Metadata, error) {
	head, err := c.CommitForRevision(ctx, name)
	if err != nil {
		return revision.Metadata{}, err
	}
	return revision.Branch(name, head.Summary()), nil
}

func (c *Client) CreateBranch(ctx context.Context, name string, at revision.Metadata) (revision.Metadata, error) {
	q := url.Values{"name": {name}, "revision": {at.Rev()}}
	var b contracts.Branch
	if err := c.do(ctx, http.MethodPost, "/git/branches", q, nil, &b); err != nil {
		return revision.Metadata{}, fmt.Errorf("create branch %s: %w", name, err)
	}
	return revision.Branch(b.Name, b.Head.Summary), nil
}

func (c *Client) RepositoryStatus(ctx context.Context) (contracts.RepositoryStatus, error) {
	var st contracts.RepositoryStatus
	if err := c.do(ctx, http.MethodGet, "/git/repository/status", nil, nil, &st); err != nil {
		return contracts.RepositoryStatus{}, fmt.Errorf("fetch git status: %w", err)
	}
	return st, nil
}

func (c *Client) Status(ctx context.Context) (GitStatus, error) {
	st, err := c.RepositoryStatus(ctx)
	if err != nil {
		return GitStatus{}, err
	}
	return StatusFromRepository(st), nil
}
