package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/db"
	"github.com/debug-flow/debug-flow/internal/flows"
	"github.com/debug-flow/debug-flow/internal/git"
)

// initRepo creates a repository on main with one commit per message, each
// rewriting a.txt.
func initRepo(t *testing.T, messages ...string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInitWithOptions(dir, &gitlib.PlainInitOptions{
		InitOptions: gitlib.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	when := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, msg := range messages {
		if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(fmt.Sprintf("v%d\n", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add("a.txt"); err != nil {
			t.Fatal(err)
		}
		sig := &object.Signature{Name: "Ada", Email: "ada@example.com", When: when.Add(time.Duration(i) * time.Minute)}
		if _, err := wt.Commit(msg, &gitlib.CommitOptions{Author: sig, Committer: sig}); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	return dir
}

func setupTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	dir := initRepo(t, "first", "second")
	repo, err := git.Open(dir)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	s := New(Config{AllowAll: true}, repo, flows.NewStore(d))
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.hub.close()
		ts.Close()
	})
	return s, ts, dir
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %T from %s: %v", v, data, err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	_, ts, _ := setupTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, body)["status"]; got != "ok" {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestGitRoutes(t *testing.T) {
	t.Parallel()
	_, ts, _ := setupTestServer(t)

	// The steps build on each other.
	steps := []struct {
		name   string
		method string
		path   string
		status int
		check  func(t *testing.T, body []byte)
	}{
		{
			name: "commit at HEAD", method: http.MethodGet, path: "/api/v1/git/commit/HEAD", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				if c := decode[contracts.Commit](t, body); c.Summary != "second" {
					t.Fatalf("unexpected commit %+v", c)
				}
			},
		},
		{
			name: "parent expression", method: http.MethodGet, path: "/api/v1/git/commit/HEAD~1", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				if c := decode[contracts.Commit](t, body); c.Summary != "first" {
					t.Fatalf("unexpected commit %+v", c)
				}
			},
		},
		{name: "unknown revision", method: http.MethodGet, path: "/api/v1/git/commit/nope", status: http.StatusNotFound},
		{
			name: "commits", method: http.MethodGet, path: "/api/v1/git/commits", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp := decode[contracts.ListCommitsResponse](t, body)
				if len(resp.Commits) != 2 || resp.Commits[0].Summary != "second" {
					t.Fatalf("unexpected commits %+v", resp.Commits)
				}
			},
		},
		{
			name: "commits with base", method: http.MethodGet, path: "/api/v1/git/commits?baseRev=HEAD~1", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				if resp := decode[contracts.ListCommitsResponse](t, body); len(resp.Commits) != 1 {
					t.Fatalf("unexpected commits %+v", resp.Commits)
				}
			},
		},
		{name: "bad limit", method: http.MethodGet, path: "/api/v1/git/commits?limit=many", status: http.StatusBadRequest},
		{
			name: "diffs", method: http.MethodGet, path: "/api/v1/git/diffs?baseRev=HEAD~1&headRev=HEAD", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp := decode[contracts.ListDiffsResponse](t, body)
				if len(resp.Diffs) != 1 || resp.Diffs[0].Path() != "a.txt" || resp.Diffs[0].Kind != contracts.DiffText {
					t.Fatalf("unexpected diffs %+v", resp.Diffs)
				}
			},
		},
		{name: "create tag", method: http.MethodPost, path: "/api/v1/git/tags?name=v1&revision=HEAD~1", status: http.StatusCreated},
		{name: "duplicate tag", method: http.MethodPost, path: "/api/v1/git/tags?name=v1", status: http.StatusConflict},
		{name: "invalid tag name", method: http.MethodPost, path: "/api/v1/git/tags?name=a..b", status: http.StatusBadRequest},
		{
			name: "tags", method: http.MethodGet, path: "/api/v1/git/tags?filter=V", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp := decode[contracts.ListTagsResponse](t, body)
				if len(resp.Tags) != 1 || resp.Tags[0].Tag != "v1" || resp.Tags[0].Commit.Summary != "first" {
					t.Fatalf("unexpected tags %+v", resp.Tags)
				}
			},
		},
		{name: "create branch", method: http.MethodPost, path: "/api/v1/git/branches?name=feature/x", status: http.StatusCreated},
		{
			name: "branches", method: http.MethodGet, path: "/api/v1/git/branches", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				resp := decode[contracts.ListBranchesResponse](t, body)
				if len(resp.Branches) != 2 || resp.Branches[0].Name != "feature/x" {
					t.Fatalf("unexpected branches %+v", resp.Branches)
				}
			},
		},
		{name: "escaped branch", method: http.MethodGet, path: "/api/v1/git/commit/feature%2Fx", status: http.StatusOK},
		{name: "checkout branch", method: http.MethodPost, path: "/api/v1/git/commit/feature%2Fx", status: http.StatusOK},
		{
			name: "status", method: http.MethodGet, path: "/api/v1/git/repository/status", status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				st := decode[contracts.RepositoryStatus](t, body)
				if st.CurrentBranch == nil || *st.CurrentBranch != "feature/x" {
					t.Fatalf("expected feature/x checked out, got %+v", st.CurrentBranch)
				}
				if !st.Worktree.Empty() || !st.Index.Empty() {
					t.Fatalf("expected a clean repository, got %+v", st)
				}
			},
		},
	}
	for _, step := range steps {
		resp, body := doRequest(t, ts, step.method, step.path, "")
		if resp.StatusCode != step.status {
			t.Fatalf("%s: expected %d, got %d: %s", step.name, step.status, resp.StatusCode, body)
		}
		if resp.StatusCode >= 400 {
			st := decode[contracts.StatusDetailResponse](t, body)
			if st.Status != step.status || st.Reason != http.StatusText(step.status) || st.Message == "" {
				t.Fatalf("%s: unexpected error body %+v", step.name, st)
			}
		}
		if step.check != nil {
			step.check(t, body)
		}
	}
}

func TestCheckoutDirtyWorktreeConflicts(t *testing.T) {
	t.Parallel()
	_, ts, dir := setupTestServer(t)

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("local edit\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/git/commit/HEAD~1", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, body)
	}
}

func TestFlowRoutes(t *testing.T) {
	t.Parallel()
	_, ts, _ := setupTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/flows", `{"name":"Login bug"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.StatusCode, body)
	}
	created := decode[contracts.CreateFlowResponse](t, body).Flow
	if created.ID == "" || created.Name != "Login bug" {
		t.Fatalf("unexpected flow %+v", created)
	}

	doc := `{"flow":{"name":"Login bug","reactflow":{"nodes":[{"id":"n1"}],"edges":[]}}}`
	resp, body = doRequest(t, ts, http.MethodPost, "/api/v1/flows/"+created.ID, doc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("store: expected 200, got %d: %s", resp.StatusCode, body)
	}
	if m := decode[contracts.CreateFlowResponse](t, body).Flow; m.NumNodes != 1 {
		t.Fatalf("unexpected stored metadata %+v", m)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/flows/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if full := decode[contracts.FullFlow](t, body); len(full.Flow.Reactflow.Nodes) != 1 {
		t.Fatalf("unexpected flow %+v", full)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/flows", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	if list := decode[contracts.ListFlowsResponse](t, body).Flows; len(list) != 1 || list[0].NumNodes != 1 {
		t.Fatalf("unexpected listing %+v", list)
	}

	resp, _ = doRequest(t, ts, http.MethodDelete, "/api/v1/flows/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"get deleted", http.MethodGet, "/api/v1/flows/" + created.ID, "", http.StatusNotFound},
		{"delete deleted", http.MethodDelete, "/api/v1/flows/" + created.ID, "", http.StatusNotFound},
		{"store deleted", http.MethodPost, "/api/v1/flows/" + created.ID, doc, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/api/v1/flows", `{"name":`, http.StatusBadRequest},
		{"empty name", http.MethodPost, "/api/v1/flows", `{"name":" "}`, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, body := doRequest(t, ts, tt.method, tt.path, tt.body)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.status, resp.StatusCode, body)
		}
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("commit x: %w", git.ErrRevisionNotFound), http.StatusNotFound},
		{fmt.Errorf("get flow: %w", flows.ErrNotFound), http.StatusNotFound},
		{git.ErrInvalidRevision, http.StatusBadRequest},
		{flows.ErrEmptyName, http.StatusBadRequest},
		{git.ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("checkout: %w", git.ErrDirtyWorktree), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorListsJoinedErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(rec, req, errors.Join(flows.ErrEmptyName, errors.New("second problem")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[contracts.StatusDetailResponse](t, rec.Body.Bytes())
	if len(body.Details) != 2 || body.Details[1] != "second problem" {
		t.Fatalf("unexpected details %+v", body.Details)
	}
}
