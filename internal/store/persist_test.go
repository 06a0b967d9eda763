package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/debug-flow/debug-flow/internal/graph"
	"github.com/debug-flow/debug-flow/internal/revision"
)

func TestFileStorageRoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatal(err)
	}

	var missing map[string]int
	if ok, err := fs.Load("absent", &missing); ok || err != nil {
		t.Fatalf("Load(absent) = %v, %v", ok, err)
	}
	if err := fs.Save("../escape", 1); err == nil {
		t.Fatal("expected invalid record name error")
	}
	if err := fs.Save("rec", map[string]int{"a": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var got map[string]int
	if ok, err := fs.Load("rec", &got); !ok || err != nil || got["a"] != 1 {
		t.Fatalf("Load = %v, %v, %v", got, ok, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "rec.json" {
		t.Fatalf("unexpected files left behind: %v", entries)
	}
}

func TestStoreRestoresPersistedDocument(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	first := New(Options{Gateway: &fakeGateway{}, Storage: storage})
	seed(t, first)
	rev := revision.Commit("abc", "")
	first.SetPendingNode(&PendingNode{Type: graph.ActionNode, FromNodeID: "root", DefaultRev: &rev})

	second := New(Options{Gateway: &fakeGateway{}, Storage: storage})
	snap := second.Snapshot()
	if len(snap.Nodes) != 1 || !snap.HasUnsavedChanges {
		t.Fatalf("document not restored: %+v", snap)
	}
	if snap.Dialog == nil || snap.Dialog.Kind != DialogPending || snap.Dialog.Pending.FromNodeID != "root" {
		t.Fatalf("pending dialog not restored: %+v", snap.Dialog)
	}
	if snap.CanUndo {
		t.Fatal("history is not persisted")
	}
}

func TestStoreDoesNotPersistEditDialog(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	first := New(Options{Gateway: &fakeGateway{}, Storage: storage})
	seed(t, first)
	if err := first.SetEditNode("root"); err != nil {
		t.Fatal(err)
	}

	second := New(Options{Gateway: &fakeGateway{}, Storage: storage})
	if second.Dialog() != nil {
		t.Fatal("edit dialogs must not be restored")
	}
}

func TestStoreDiscardsNewerRecord(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	if err := storage.Save(FlowStorageName, flowRecord{
		Version: flowRecordVersion + 1,
		Nodes:   []graph.Node{testNode("root", graph.StatusNode, true)},
	}); err != nil {
		t.Fatal(err)
	}
	s := New(Options{Gateway: &fakeGateway{}, Storage: storage})
	if len(s.Nodes()) != 0 {
		t.Fatal("records from a newer version must be discarded")
	}

	var rec flowRecord
	err := rec.apply(&document{})
	if err != nil {
		t.Fatalf("version zero should be accepted: %v", err)
	}
	rec.Version = flowRecordVersion + 1
	if err := rec.apply(&document{}); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestStoreDebouncedPersistFlushesOnClose(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	s := New(Options{Gateway: &fakeGateway{}, Storage: storage, PersistDelay: time.Hour})
	seed(t, s)

	var rec flowRecord
	if ok, _ := storage.Load(FlowStorageName, &rec); ok {
		t.Fatal("write should be delayed")
	}
	s.Close()
	if ok, err := storage.Load(FlowStorageName, &rec); !ok || err != nil || len(rec.Nodes) != 1 {
		t.Fatalf("Close should flush the record: %v %v %+v", ok, err, rec)
	}
}

func TestUIStore(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	u := NewUIStore(storage)
	if got := u.Preferences(); got != DefaultUIPreferences() {
		t.Fatalf("unexpected defaults %+v", got)
	}
	u.SetMiniMapVisible(false)
	u.SetInlineDiff(true)
	u.SetGitDialogOpen(true)

	restored := NewUIStore(storage).Preferences()
	if restored.MiniMapVisible || !restored.InlineDiff {
		t.Fatalf("preferences not restored: %+v", restored)
	}
	if restored.GitDialogOpen {
		t.Fatal("the git dialog state must not be persisted")
	}
}

func TestUIStoreFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	storage := NewMemoryStorage()
	if err := storage.Save(UIStorageName, uiRecord{Version: uiRecordVersion + 1, IsInlineDiff: true}); err != nil {
		t.Fatal(err)
	}
	if got := NewUIStore(storage).Preferences(); got != DefaultUIPreferences() {
		t.Fatalf("expected defaults for unsupported record, got %+v", got)
	}
}
