package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gitlib.Repository
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInitWithOptions(dir, &gitlib.PlainInitOptions{
		InitOptions: gitlib.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return &testRepo{
		t:    t,
		dir:  dir,
		repo: repo,
		when: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *testRepo) signature() *object.Signature {
	return &object.Signature{Name: "Ada", Email: "ada@example.com", When: r.when}
}

func (r *testRepo) write(name string, content []byte) {
	r.t.Helper()
	path := filepath.Join(r.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		r.t.Fatal(err)
	}
}

// commit writes files, stages them and commits. An empty content removes the
// file.
func (r *testRepo) commit(msg string, files map[string]string) plumbing.Hash {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatal(err)
	}
	for name, content := range files {
		if content == "" {
			if _, err := wt.Remove(name); err != nil {
				r.t.Fatalf("remove %s: %v", name, err)
			}
			continue
		}
		r.write(name, []byte(content))
		if _, err := wt.Add(name); err != nil {
			r.t.Fatalf("add %s: %v", name, err)
		}
	}
	hash, err := wt.Commit(msg, &gitlib.CommitOptions{Author: r.signature(), Committer: r.signature()})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	r.when = r.when.Add(time.Minute)
	return hash
}

func (r *testRepo) service() *Service {
	r.t.Helper()
	svc, err := Open(r.dir)
	if err != nil {
		r.t.Fatalf("Open: %v", err)
	}
	return svc
}
