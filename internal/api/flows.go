package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/graph"
)

// Flow is a stored document decoded into graph types.
type Flow struct {
	ID    string
	Name  string
	Nodes []graph.Node
	Edges []graph.Edge
}

func (c *Client) Flows(ctx context.Context) ([]contracts.FlowMetadata, error) {
	var resp contracts.ListFlowsResponse
	if err := c.do(ctx, http.MethodGet, "/flows", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	return resp.Flows, nil
}

func (c *Client) CreateFlow(ctx context.Context, name string) (contracts.FlowMetadata, error) {
	var resp contracts.CreateFlowResponse
	if err := c.do(ctx, http.MethodPost, "/flows", nil, contracts.CreateFlowRequest{Name: name}, &resp); err != nil {
		return contracts.FlowMetadata{}, fmt.Errorf("create flow %q: %w", name, err)
	}
	return resp.Flow, nil
}

func (c *Client) Flow(ctx context.Context, id string) (Flow, error) {
	var resp contracts.FullFlow
	if err := c.do(ctx, http.MethodGet, "/flows/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return Flow{}, fmt.Errorf("load flow: %w", err)
	}
	nodes, edges, err := DecodeGraph(resp.Flow.Reactflow)
	if err != nil {
		return Flow{}, fmt.Errorf("load flow %s: %w", id, err)
	}
	return Flow{ID: id, Name: resp.Flow.Name, Nodes: nodes, Edges: edges}, nil
}

func (c *Client) StoreFlow(ctx context.Context, id, name string, nodes []graph.Node, edges []graph.Edge) error {
	state, err := EncodeGraph(nodes, edges)
	if err != nil {
		return fmt.Errorf("store flow %s: %w", id, err)
	}
	body := contracts.FullFlow{Flow: contracts.FlowData{Name: name, Reactflow: state}}
	if err := c.do(ctx, http.MethodPost, "/flows/"+url.PathEscape(id), nil, body, nil); err != nil {
		return fmt.Errorf("store flow %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteFlow(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/flows/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete flow %s: %w", id, err)
	}
	return nil
}

func EncodeGraph(nodes []graph.Node, edges []graph.Edge) (contracts.ReactFlowState, error) {
	state := contracts.ReactFlowState{
		Nodes: make([]json.RawMessage, 0, len(nodes)),
		Edges: make([]json.RawMessage, 0, len(edges)),
	}
	for _, n := range nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return contracts.ReactFlowState{}, fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		state.Nodes = append(state.Nodes, data)
	}
	for _, e := range edges {
		data, err := json.Marshal(e)
		if err != nil {
			return contracts.ReactFlowState{}, fmt.Errorf("encode edge %s: %w", e.ID, err)
		}
		state.Edges = append(state.Edges, data)
	}
	return state, nil
}

func DecodeGraph(state contracts.ReactFlowState) ([]graph.Node, []graph.Edge, error) {
	nodes := make([]graph.Node, 0, len(state.Nodes))
	for i, raw := range state.Nodes {
		var n graph.Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, nil, fmt.Errorf("decode node %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	edges := make([]graph.Edge, 0, len(state.Edges))
	for i, raw := range state.Edges {
		var e graph.Edge
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, nil, fmt.Errorf("decode edge %d: %w", i, err)
		}
		edges = append(edges, e)
	}
	return nodes, edges, nil
}
