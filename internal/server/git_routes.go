package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/git"
)

func (s *Server) registerGitRoutes(r chi.Router) {
	r.Route("/git", func(r chi.Router) {
		r.Get("/commit/{revision}", s.handleGetCommit)
		r.Post("/commit/{revision}", s.handleCheckout)
		r.Get("/commits", s.handleListCommits)
		r.Get("/diffs", s.handleListDiffs)
		r.Get("/tags", s.handleListTags)
		r.Post("/tags", s.handleCreateTag)
		r.Get("/branches", s.handleListBranches)
		r.Post("/branches", s.handleCreateBranch)
		r.Get("/repository/status", s.handleRepositoryStatus)
	})
}

// revisionParam returns the {revision} path segment. Revisions such as
// feature/x arrive escaped and chi matches on the raw path.
func revisionParam(r *http.Request) (string, error) {
	rev, err := url.PathUnescape(chi.URLParam(r, "revision"))
	if err != nil {
		return "", fmt.Errorf("%w: malformed revision: %v", errBadRequest, err)
	}
	return rev, nil
}

func (s *Server) handleGetCommit(w http.ResponseWriter, r *http.Request) {
	rev, err := revisionParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	commit, err := s.git.Commit(rev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commit)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	rev, err := revisionParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	commit, err := s.git.Checkout(rev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.refreshStatus()
	writeJSON(w, http.StatusOK, commit)
}

func (s *Server) handleListCommits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cr := git.CommitRange{
		Filter:  q.Get("filter"),
		BaseRev: q.Get("baseRev"),
		HeadRev: q.Get("headRev"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		cr.Limit = n
	}
	commits, err := s.git.Commits(r.Context(), cr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.ListCommitsResponse{Commits: commits})
}

func (s *Server) handleListDiffs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	diffs, err := s.git.Diffs(r.Context(), q.Get("baseRev"), q.Get("headRev"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.ListDiffsResponse{Diffs: diffs})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.git.Tags(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.ListTagsResponse{Tags: tags})
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag, err := s.git.CreateTag(q.Get("name"), revisionOrHead(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := s.git.Branches(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.ListBranchesResponse{Branches: branches})
}

func (s *Server) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	branch, err := s.git.CreateBranch(q.Get("name"), revisionOrHead(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.refreshStatus()
	writeJSON(w, http.StatusCreated, branch)
}

func (s *Server) handleRepositoryStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.git.Status()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func revisionOrHead(q url.Values) string {
	if rev := q.Get("revision"); rev != "" {
		return rev
	}
	return "HEAD"
}
