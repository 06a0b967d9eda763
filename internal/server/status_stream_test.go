package server

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/debug-flow/debug-flow/internal/api"
	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

func TestStatusHubKeepsLatestSnapshot(t *testing.T) {
	t.Parallel()

	h := newStatusHub()
	updates, unsubscribe := h.subscribe()

	first := contracts.RepositoryStatus{Head: contracts.Commit{ID: "a"}}
	second := contracts.RepositoryStatus{Head: contracts.Commit{ID: "b"}}
	h.publish(first)
	h.publish(second)
	if got := <-updates; got.Head.ID != "b" {
		t.Fatalf("expected the latest snapshot, got %q", got.Head.ID)
	}

	h.publish(second)
	select {
	case st := <-updates:
		t.Fatalf("unchanged status must not be published again, got %+v", st)
	default:
	}

	unsubscribe()
	if n := h.subscribers(); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	h.close()
	h.close()
	h.publish(first)
}

func TestStatusStream(t *testing.T) {
	t.Parallel()
	s, ts, dir := setupTestServer(t)

	client, err := api.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan contracts.RepositoryStatus, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- client.SubscribeStatus(ctx, func(st contracts.RepositoryStatus) {
			snapshots <- st
		})
	}()

	first := receive(t, snapshots)
	if first.CurrentBranch == nil || *first.CurrentBranch != "main" || !first.Worktree.Empty() {
		t.Fatalf("unexpected first snapshot %+v", first)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.refreshStatus()
	second := receive(t, snapshots)
	if !slices.Equal(second.Worktree.ModifiedFiles, []string{"a.txt"}) {
		t.Fatalf("expected a.txt modified, got %+v", second.Worktree)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("SubscribeStatus: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestStatusSocket(t *testing.T) {
	t.Parallel()
	s, ts, dir := setupTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/git/repository/status/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg socketMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != statusEvent || msg.Status == nil || msg.Status.Head.Summary != "second" {
		t.Fatalf("unexpected message %+v", msg)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("new\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.refreshStatus()
	msg = socketMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Status == nil || !slices.Equal(msg.Status.Worktree.NewFiles, []string{"b.txt"}) {
		t.Fatalf("expected b.txt as a new file, got %+v", msg.Status)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	t.Parallel()
	s, _, dir := setupTestServer(t)

	if err := s.Watch(10 * time.Millisecond); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("watched\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := receive(t, updates)
	if !slices.Contains(st.Worktree.ModifiedFiles, "a.txt") {
		t.Fatalf("expected a.txt modified, got %+v", st.Worktree)
	}
}

func receive(t *testing.T, ch <-chan contracts.RepositoryStatus) contracts.RepositoryStatus {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a status snapshot")
		return contracts.RepositoryStatus{}
	}
}
