package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/debug-flow/debug-flow/internal/revision"
)

type NodeType string

const (
	ActionNode NodeType = "actionNode"
	StatusNode NodeType = "statusNode"
)

// Complement returns the node type that is created when a connection is
// dragged out of a node of type t and dropped on empty canvas.
func (t NodeType) Complement() NodeType {
	if t == StatusNode {
		return ActionNode
	}
	return StatusNode
}

func (t NodeType) RevisionTarget() revision.Target {
	if t == StatusNode {
		return revision.ForStatus
	}
	return revision.ForAction
}

func (t NodeType) Valid() bool {
	return t == ActionNode || t == StatusNode
}

func ParseNodeType(raw string) (NodeType, error) {
	switch raw {
	case "action", string(ActionNode):
		return ActionNode, nil
	case "status", string(StatusNode):
		return StatusNode, nil
	default:
		return "", fmt.Errorf("unknown node type %q", raw)
	}
}

// State is the observed outcome recorded on a status node.
type State string

const (
	StateUnknown  State = "unknown"
	StateProgress State = "progress"
	StateFail     State = "fail"
	StateSuccess  State = "success"
)

func (s State) Valid() bool {
	switch s {
	case StateUnknown, StateProgress, StateFail, StateSuccess:
		return true
	}
	return false
}

func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown node state %q", raw)
	}
	return s, nil
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the user editable payload of a node. State and IsRootNode are
// only meaningful on status nodes.
type NodeData struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Git         *revision.Metadata `json:"git"`
	State       State              `json:"state,omitempty"`
	IsRootNode  bool               `json:"isRootNode,omitempty"`
}

type Node struct {
	ID        string   `json:"id"`
	Type      NodeType `json:"type"`
	Position  Position `json:"position"`
	Data      NodeData `json:"data"`
	Selected  bool     `json:"selected,omitempty"`
	Deletable *bool    `json:"deletable,omitempty"`
}

// NewNode builds a node of type t. Root nodes are always status nodes and can
// never be deleted.
func NewNode(id string, t NodeType, pos Position, data NodeData, isRoot bool) Node {
	n := Node{ID: id, Type: t, Position: pos, Data: data}
	switch t {
	case StatusNode:
		if n.Data.State == "" {
			n.Data.State = StateUnknown
		}
		n.Data.IsRootNode = isRoot
		if isRoot {
			deletable := false
			n.Deletable = &deletable
		}
	case ActionNode:
		n.Data.State = ""
		n.Data.IsRootNode = false
	}
	return n
}

func NewNodeID() string {
	return uuid.NewString()
}

func (n Node) IsRoot() bool {
	return n.Type == StatusNode && n.Data.IsRootNode
}

func (n Node) IsDeletable() bool {
	if n.IsRoot() {
		return false
	}
	return n.Deletable == nil || *n.Deletable
}

func (n Node) Validate() error {
	var errs ValidationErrors
	if n.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "must not be empty"})
	}
	switch n.Type {
	case ActionNode:
		if n.Data.State != "" {
			errs = append(errs, FieldError{Field: "data.state", Message: "action nodes carry no state"})
		}
		if n.Data.IsRootNode {
			errs = append(errs, FieldError{Field: "data.isRootNode", Message: "action nodes cannot be the root"})
		}
	case StatusNode:
		if !n.Data.State.Valid() {
			errs = append(errs, FieldError{Field: "data.state", Message: fmt.Sprintf("unknown state %q", n.Data.State)})
		}
		if n.Data.Git.IsBranch() {
			errs = append(errs, FieldError{Field: "data.git", Message: "status nodes must reference a commit or tag"})
		}
	default:
		errs = append(errs, FieldError{Field: "type", Message: fmt.Sprintf("unknown node type %q", n.Type)})
	}
	if err := ValidateTitle(n.Data.Title); err != nil {
		errs = append(errs, FieldError{Field: "data.title", Message: err.Error()})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
