package graph

import "slices"

type ChangeKind string

const (
	ChangeAdd        ChangeKind = "add"
	ChangeRemove     ChangeKind = "remove"
	ChangeReplace    ChangeKind = "replace"
	ChangePosition   ChangeKind = "position"
	ChangeSelect     ChangeKind = "select"
	ChangeDimensions ChangeKind = "dimensions"
)

// NodeChange is a single edit emitted by the canvas. Which fields are read
// depends on Kind: Item for add and replace, Position for position, Selected
// for select.
type NodeChange struct {
	Kind     ChangeKind
	ID       string
	Item     *Node
	Position *Position
	Dragging bool
	Selected bool
}

type EdgeChange struct {
	Kind     ChangeKind
	ID       string
	Item     *Edge
	Selected bool
}

func AddNode(n Node) NodeChange {
	return NodeChange{Kind: ChangeAdd, ID: n.ID, Item: &n}
}

func RemoveNode(id string) NodeChange {
	return NodeChange{Kind: ChangeRemove, ID: id}
}

func ReplaceNode(n Node) NodeChange {
	return NodeChange{Kind: ChangeReplace, ID: n.ID, Item: &n}
}

func MoveNode(id string, pos Position) NodeChange {
	return NodeChange{Kind: ChangePosition, ID: id, Position: &pos}
}

func SelectNode(id string, selected bool) NodeChange {
	return NodeChange{Kind: ChangeSelect, ID: id, Selected: selected}
}

func AddEdgeChange(e Edge) EdgeChange {
	return EdgeChange{Kind: ChangeAdd, ID: e.ID, Item: &e}
}

func RemoveEdge(id string) EdgeChange {
	return EdgeChange{Kind: ChangeRemove, ID: id}
}

func SelectEdge(id string, selected bool) EdgeChange {
	return EdgeChange{Kind: ChangeSelect, ID: id, Selected: selected}
}

// ApplyNodeChanges returns the node list that results from applying changes to
// nodes. The input slice is never modified. A document has at most one root
// and it is never deleted: adding a second root, removing a node that cannot
// be deleted and changes aimed at missing nodes are ignored, and a replace
// keeps the root status of the node it replaces.
func ApplyNodeChanges(changes []NodeChange, nodes []Node) []Node {
	out, _ := applyNodeChanges(changes, nodes)
	return out
}

// EffectiveNodeChanges returns the changes of the batch that ApplyNodeChanges
// would not ignore, in order.
func EffectiveNodeChanges(changes []NodeChange, nodes []Node) []NodeChange {
	_, applied := applyNodeChanges(changes, nodes)
	return applied
}

func applyNodeChanges(changes []NodeChange, nodes []Node) ([]Node, []NodeChange) {
	out := slices.Clone(nodes)
	var applied []NodeChange
	for _, ch := range changes {
		switch ch.Kind {
		case ChangeAdd:
			if ch.Item == nil || indexOfNode(out, ch.ID) >= 0 {
				continue
			}
			if ch.Item.IsRoot() && hasRoot(out) {
				continue
			}
			out = append(out, *ch.Item)
		case ChangeRemove:
			i := indexOfNode(out, ch.ID)
			if i < 0 || !out[i].IsDeletable() {
				continue
			}
			out = slices.Delete(out, i, i+1)
		case ChangeReplace:
			if ch.Item == nil {
				continue
			}
			i := indexOfNode(out, ch.ID)
			if i < 0 {
				continue
			}
			out[i] = keepRootStatus(out[i], *ch.Item)
		case ChangePosition:
			i := indexOfNode(out, ch.ID)
			if ch.Position == nil || i < 0 {
				continue
			}
			out[i].Position = *ch.Position
		case ChangeSelect:
			i := indexOfNode(out, ch.ID)
			if i < 0 {
				continue
			}
			out[i].Selected = ch.Selected
		case ChangeDimensions:
			// Measured sizes are owned by the renderer and not stored.
		default:
			continue
		}
		applied = append(applied, ch)
	}
	return out, applied
}

func hasRoot(nodes []Node) bool {
	return slices.ContainsFunc(nodes, Node.IsRoot)
}

// keepRootStatus returns next with the root status of prev.
func keepRootStatus(prev, next Node) Node {
	next.ID = prev.ID
	if prev.IsRoot() {
		deletable := false
		next.Type = StatusNode
		next.Data.IsRootNode = true
		next.Deletable = &deletable
		return next
	}
	next.Data.IsRootNode = false
	return next
}

func ApplyEdgeChanges(changes []EdgeChange, edges []Edge) []Edge {
	out := slices.Clone(edges)
	for _, ch := range changes {
		switch ch.Kind {
		case ChangeAdd:
			if ch.Item != nil {
				out = append(out, *ch.Item)
			}
		case ChangeRemove:
			out = slices.DeleteFunc(out, func(e Edge) bool { return e.ID == ch.ID })
		case ChangeReplace:
			if ch.Item == nil {
				continue
			}
			if i := indexOfEdge(out, ch.ID); i >= 0 {
				out[i] = *ch.Item
			}
		case ChangeSelect:
			if i := indexOfEdge(out, ch.ID); i >= 0 {
				out[i].Selected = ch.Selected
			}
		}
	}
	return out
}

// EdgesTouching returns the ids of the edges attached to node id.
func EdgesTouching(edges []Edge, id string) []string {
	var ids []string
	for _, e := range edges {
		if e.Source == id || e.Target == id {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func FindNode(nodes []Node, id string) (Node, bool) {
	if i := indexOfNode(nodes, id); i >= 0 {
		return nodes[i], true
	}
	return Node{}, false
}

func indexOfNode(nodes []Node, id string) int {
	return slices.IndexFunc(nodes, func(n Node) bool { return n.ID == id })
}

func indexOfEdge(edges []Edge, id string) int {
	return slices.IndexFunc(edges, func(e Edge) bool { return e.ID == id })
}
