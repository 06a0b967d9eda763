package git

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
)

func TestOpenDetectsParentRepository(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.commit("init", map[string]string{"sub/file.txt": "x\n"})

	svc, err := Open(filepath.Join(r.dir, "sub"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want, _ := filepath.EvalSymlinks(r.dir)
	got, _ := filepath.EvalSymlinks(svc.RepoPath())
	if got != want {
		t.Fatalf("RepoPath() = %q, want %q", got, want)
	}

	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error opening a directory without repository")
	}
}

func TestCommitResolvesRevisions(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	first := r.commit("First commit\n\nWith a body", map[string]string{"a.txt": "one\n"})
	second := r.commit("Second commit", map[string]string{"a.txt": "two\n"})
	if _, err := r.repo.CreateTag("v1", first, nil); err != nil {
		t.Fatal(err)
	}
	svc := r.service()

	tests := []struct {
		rev  string
		want plumbing.Hash
	}{
		{"HEAD", second},
		{"main", second},
		{second.String(), second},
		{second.String()[:7], second},
		{"HEAD~1", first},
		{"v1", first},
	}
	for _, tt := range tests {
		got, err := svc.Commit(tt.rev)
		if err != nil {
			t.Fatalf("Commit(%q): %v", tt.rev, err)
		}
		if got.ID != tt.want.String() {
			t.Fatalf("Commit(%q) = %s, want %s", tt.rev, got.ID, tt.want)
		}
	}

	c, err := svc.Commit("v1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Summary != "First commit" || c.Body != "With a body" {
		t.Fatalf("unexpected message split: %q / %q", c.Summary, c.Body)
	}
	if c.Author.Name != "Ada" || c.Time.IsZero() {
		t.Fatalf("unexpected metadata %+v", c)
	}
}

func TestCommitErrors(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.commit("init", map[string]string{"a.txt": "a\n"})
	svc := r.service()

	if _, err := svc.Commit("does-not-exist"); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
	if _, err := svc.Commit("   "); !errors.Is(err, ErrInvalidRevision) {
		t.Fatalf("expected ErrInvalidRevision, got %v", err)
	}
}

func TestCheckoutBranchAndDetached(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	first := r.commit("first", map[string]string{"a.txt": "one\n"})
	r.commit("second", map[string]string{"a.txt": "two\n"})
	svc := r.service()

	c, err := svc.Checkout(first.String())
	if err != nil {
		t.Fatalf("Checkout(hash): %v", err)
	}
	if c.ID != first.String() {
		t.Fatalf("checked out %s, want %s", c.ID, first)
	}
	head, err := r.repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if head.Name() != plumbing.HEAD {
		t.Fatalf("expected detached HEAD, got %s", head.Name())
	}
	data, err := os.ReadFile(filepath.Join(r.dir, "a.txt"))
	if err != nil || string(data) != "one\n" {
		t.Fatalf("worktree not updated: %q %v", data, err)
	}

	if _, err := svc.Checkout("main"); err != nil {
		t.Fatalf("Checkout(main): %v", err)
	}
	head, err = r.repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if head.Name() != plumbing.Main {
		t.Fatalf("expected branch checkout, got %s", head.Name())
	}
}

func TestCheckoutDirtyWorktree(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	first := r.commit("first", map[string]string{"a.txt": "one\n"})
	r.commit("second", map[string]string{"a.txt": "two\n"})
	r.write("a.txt", []byte("local edit\n"))
	svc := r.service()

	if _, err := svc.Checkout(first.String()); !errors.Is(err, ErrDirtyWorktree) {
		t.Fatalf("expected ErrDirtyWorktree, got %v", err)
	}
	if _, err := svc.Checkout("missing"); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg, summary, body string
	}{
		{"", "", ""},
		{"subject\n", "subject", ""},
		{"subject\n\nbody line 1\nbody line 2\n", "subject", "body line 1\nbody line 2"},
		{"  padded  \n", "padded", ""},
	}
	for _, tt := range tests {
		summary, body := splitMessage(tt.msg)
		if summary != tt.summary || body != tt.body {
			t.Errorf("splitMessage(%q) = %q, %q; want %q, %q", tt.msg, summary, body, tt.summary, tt.body)
		}
	}
}
