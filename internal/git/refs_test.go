package git

import (
	"errors"
	"testing"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestTags(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	c1 := r.commit("first", map[string]string{"a.txt": "1\n"})
	c2 := r.commit("second", map[string]string{"a.txt": "2\n"})
	if _, err := r.repo.CreateTag("v1.0", c1, nil); err != nil {
		t.Fatal(err)
	}
	annotated := &gitlib.CreateTagOptions{
		Message: "release",
		Tagger:  &object.Signature{Name: "Ada", Email: "ada@example.com", When: r.when},
	}
	if _, err := r.repo.CreateTag("release-2", c2, annotated); err != nil {
		t.Fatal(err)
	}
	svc := r.service()

	tags, err := svc.Tags("")
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %+v", tags)
	}
	if tags[0].Tag != "release-2" || tags[0].Commit.ID != c2.String() {
		t.Fatalf("annotated tag not peeled: %+v", tags[0])
	}
	if tags[1].Tag != "v1.0" || tags[1].Commit.ID != c1.String() {
		t.Fatalf("unexpected lightweight tag %+v", tags[1])
	}

	filtered, err := svc.Tags("V1")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].Tag != "v1.0" {
		t.Fatalf("unexpected filtered tags %+v", filtered)
	}
}

func TestCreateTag(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	c1 := r.commit("first", map[string]string{"a.txt": "1\n"})
	svc := r.service()

	tag, err := svc.CreateTag("good", c1.String())
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.Tag != "good" || tag.Commit.ID != c1.String() {
		t.Fatalf("unexpected tag %+v", tag)
	}
	if _, err := svc.CreateTag("good", "HEAD"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := svc.CreateTag("bad name", "HEAD"); !errors.Is(err, ErrInvalidRevision) {
		t.Fatalf("expected ErrInvalidRevision, got %v", err)
	}
	if _, err := svc.CreateTag("other", "missing"); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
}

func TestBranchesAndCreateBranch(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	c1 := r.commit("first", map[string]string{"a.txt": "1\n"})
	c2 := r.commit("second", map[string]string{"a.txt": "2\n"})
	svc := r.service()

	b, err := svc.CreateBranch("bugfix/crash", c1.String())
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if b.Name != "bugfix/crash" || b.Head.ID != c1.String() {
		t.Fatalf("unexpected branch %+v", b)
	}
	if _, err := svc.CreateBranch("main", "HEAD"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	branches, err := svc.Branches("")
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	if len(branches) != 2 || branches[0].Name != "bugfix/crash" || branches[1].Name != "main" {
		t.Fatalf("unexpected branches %+v", branches)
	}
	if branches[1].Head.ID != c2.String() {
		t.Fatalf("main should point at the second commit, got %s", branches[1].Head.ID)
	}

	filtered, err := svc.Branches("CRASH")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("unexpected filtered branches %+v", filtered)
	}

	head, err := r.repo.Head()
	if err != nil || head.Name().Short() != "main" {
		t.Fatal("creating a branch must not check it out")
	}
}

func TestValidateRefName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ok   bool
	}{
		{"v1.0", true},
		{"feature/x", true},
		{"", false},
		{"has space", false},
		{"a..b", false},
		{"-flag", false},
		{"trailing/", false},
		{"x.lock", false},
		{"what?", false},
		{"at@{1}", false},
	}
	for _, tt := range tests {
		err := validateRefName(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("validateRefName(%q) = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}
