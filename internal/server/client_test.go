package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/debug-flow/debug-flow/internal/api"
	"github.com/debug-flow/debug-flow/internal/graph"
	"github.com/debug-flow/debug-flow/internal/revision"
)

func TestClientAgainstServer(t *testing.T) {
	t.Parallel()
	_, ts, _ := setupTestServer(t)
	ctx := context.Background()

	client, err := api.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	head, err := client.CurrentHead(ctx)
	if err != nil {
		t.Fatalf("CurrentHead: %v", err)
	}
	if head.Summary() != "second" || !head.IsCommit() {
		t.Fatalf("unexpected head %v", head)
	}

	branch, err := client.CreateBranch(ctx, "fix/login", head)
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if branch.Rev() != "fix/login" || !branch.IsBranch() {
		t.Fatalf("unexpected branch %v", branch)
	}
	if _, err := client.CreateBranch(ctx, "fix/login", head); api.StatusCode(err) != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate branch, got %v", err)
	}

	if _, err := client.Checkout(ctx, branch.Rev()); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Revision.IsBranch() || st.Revision.Rev() != "fix/login" {
		t.Fatalf("unexpected status %v", st.Revision)
	}

	if _, err := client.CommitForRevision(ctx, "does-not-exist"); !api.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	diffs, err := client.Diffs(ctx, "HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("Diffs: %v", err)
	}
	if len(diffs) != 1 || diffs[0].Patch == "" {
		t.Fatalf("unexpected diffs %+v", diffs)
	}

	meta, err := client.CreateFlow(ctx, "Checkout regression")
	if err != nil {
		t.Fatalf("CreateFlow: %v", err)
	}
	root := graph.NewNode(graph.NewNodeID(), graph.StatusNode, graph.Position{}, graph.NodeData{
		Title: "login fails",
		Git:   &branch,
		State: graph.StateFail,
	}, true)
	action := graph.NewNode(graph.NewNodeID(), graph.ActionNode, graph.Position{X: 200}, graph.NodeData{
		Title: "revert",
		Git:   ptr(revision.Commit(head.Rev(), head.Summary())),
	}, false)
	edges := graph.AddEdge(graph.Connection{Source: root.ID, Target: action.ID}, nil)
	if err := client.StoreFlow(ctx, meta.ID, meta.Name, []graph.Node{root, action}, edges); err != nil {
		t.Fatalf("StoreFlow: %v", err)
	}

	flow, err := client.Flow(ctx, meta.ID)
	if err != nil {
		t.Fatalf("Flow: %v", err)
	}
	if len(flow.Nodes) != 2 || len(flow.Edges) != 1 {
		t.Fatalf("unexpected flow %+v", flow)
	}
	got, ok := graph.FindNode(flow.Nodes, root.ID)
	if !ok || !got.IsRoot() || got.Data.Git == nil || got.Data.Git.Rev() != "fix/login" {
		t.Fatalf("root node did not round-trip: %+v", got)
	}

	list, err := client.Flows(ctx)
	if err != nil {
		t.Fatalf("Flows: %v", err)
	}
	if len(list) != 1 || list[0].NumNodes != 2 || list[0].NumEdges != 1 {
		t.Fatalf("unexpected listing %+v", list)
	}

	if err := client.DeleteFlow(ctx, meta.ID); err != nil {
		t.Fatalf("DeleteFlow: %v", err)
	}
	if _, err := client.Flow(ctx, meta.ID); !api.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
