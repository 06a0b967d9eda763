package git

import (
	"context"
	"strings"
	"testing"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

func TestDiffs(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	c1 := r.commit("first", map[string]string{
		"keep.txt":   "same\n",
		"change.txt": "old line\nshared\n",
		"gone.txt":   "bye\n",
	})
	c2 := r.commit("second", map[string]string{
		"change.txt": "new line\nshared\n",
		"gone.txt":   "",
		"added.txt":  "hello\n",
	})
	svc := r.service()

	diffs, err := svc.Diffs(context.Background(), c1.String(), c2.String())
	if err != nil {
		t.Fatalf("Diffs: %v", err)
	}
	byPath := map[string]contracts.Diff{}
	for _, d := range diffs {
		byPath[d.Path()] = d
	}
	if len(byPath) != 3 {
		t.Fatalf("expected 3 changed files, got %d: %+v", len(byPath), diffs)
	}
	if diffs[0].Path() != "added.txt" || diffs[2].Path() != "gone.txt" {
		t.Fatalf("diffs not sorted by path: %s, %s", diffs[0].Path(), diffs[2].Path())
	}

	changed := byPath["change.txt"]
	if changed.Kind != contracts.DiffText || changed.Old == nil || changed.New == nil {
		t.Fatalf("unexpected modified diff %+v", changed)
	}
	for _, want := range []string{"--- a/change.txt", "+++ b/change.txt", "-old line", "+new line", " shared"} {
		if !strings.Contains(changed.Patch, want) {
			t.Fatalf("patch missing %q:\n%s", want, changed.Patch)
		}
	}
	if *changed.Old.Content != "old line\nshared\n" || *changed.New.Content != "new line\nshared\n" {
		t.Fatal("file contents not attached")
	}

	added := byPath["added.txt"]
	if added.Old != nil || added.New == nil || !strings.Contains(added.Patch, "--- /dev/null") {
		t.Fatalf("unexpected added diff %+v", added)
	}
	gone := byPath["gone.txt"]
	if gone.New != nil || gone.Old == nil || !strings.Contains(gone.Patch, "+++ /dev/null") {
		t.Fatalf("unexpected deleted diff %+v", gone)
	}
}

func TestDiffsAgainstEmptyTree(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.commit("first", map[string]string{"a.txt": "a\n", "dir/b.txt": "b\n"})
	svc := r.service()

	diffs, err := svc.Diffs(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Diffs: %v", err)
	}
	if len(diffs) != 2 {
		t.Fatalf("expected every file as new, got %d", len(diffs))
	}
	for _, d := range diffs {
		if d.Old != nil || d.New == nil {
			t.Fatalf("expected new file, got %+v", d)
		}
	}
}

func TestDiffsBinary(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	c1 := r.commit("first", map[string]string{"img.bin": "\x00\x01\x02"})
	c2 := r.commit("second", map[string]string{"img.bin": "\x00\x03\x04"})
	svc := r.service()

	diffs, err := svc.Diffs(context.Background(), c1.String(), c2.String())
	if err != nil {
		t.Fatalf("Diffs: %v", err)
	}
	if len(diffs) != 1 {
		t.Fatalf("expected one diff, got %d", len(diffs))
	}
	d := diffs[0]
	if d.Kind != contracts.DiffBinary || d.Patch != "" || d.New.Content != nil {
		t.Fatalf("unexpected binary diff %+v", d)
	}
}

func TestDiffsUnknownRevision(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.commit("first", map[string]string{"a.txt": "a\n"})
	svc := r.service()
	if _, err := svc.Diffs(context.Background(), "nope", "HEAD"); err == nil {
		t.Fatal("expected error")
	}
}
