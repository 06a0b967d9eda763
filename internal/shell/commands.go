package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/debug-flow/debug-flow/internal/graph"
	"github.com/debug-flow/debug-flow/internal/render"
	"github.com/debug-flow/debug-flow/internal/revision"
	"github.com/debug-flow/debug-flow/internal/store"
)

// childOffset is the distance between a node and the nodes created from it.
const childOffset = 150

func (sh *Shell) buildCommands() map[string]command {
	cmds := map[string]command{
		"flows":     {"flows", "list stored flows", sh.flows},
		"new":       {"new <name>", "create and open a flow", sh.newFlow},
		"open":      {"open <id|name>", "open a stored flow", sh.open},
		"save":      {"save", "store the open flow", sh.save},
		"close":     {"close [-f]", "close the open flow", sh.close},
		"delete":    {"delete <id|name>", "delete a stored flow", sh.deleteFlow},
		"add":       {"add <root|from-node> <title> [description]", "create a node", sh.add},
		"connect":   {"connect <source> <target>", "connect two nodes", sh.connect},
		"rm":        {"rm <node>", "remove a node and its edges", sh.remove},
		"move":      {"move <node> <x> <y>", "move a node", sh.move},
		"edit":      {"edit <node> <field> <value>...", "edit title, description, state or rev", sh.edit},
		"undo":      {"undo", "undo the last change", sh.undo},
		"redo":      {"redo", "redo the last undone change", sh.redo},
		"edge-type": {"edge-type <type>", "change how edges are drawn", sh.edgeType},
		"pin":       {"pin <node>", "pin the revision of a node for comparison", sh.pin},
		"unpin":     {"unpin [A|B]", "clear one or both pins", sh.unpin},
		"highlight": {"highlight [node]", "highlight a node, or clear the highlight", sh.highlight},
		"diff":      {"diff [path-glob...]", "show the changes between the pinned revisions", sh.diff},
		"checkout":  {"checkout <node|revision>", "check out a revision", sh.checkout},
		"restore":   {"restore", "check out the revision from before the first checkout", sh.restore},
		"status":    {"status", "show the repository status", sh.status},
		"nodes":     {"nodes", "list the nodes of the open flow", sh.nodes},
		"edges":     {"edges", "list the edges of the open flow", sh.edges},
		"ui":        {"ui [minimap|inline-diff on|off]", "show or change view preferences", sh.uiPrefs},
		"help":      {"help [command]", "show help", sh.help},
		"quit":      {"quit", "leave the editor", sh.quit},
	}
	cmds["exit"] = cmds["quit"]
	return cmds
}

func (sh *Shell) flows(ctx context.Context, _ []string) error {
	if err := sh.store.LoadFlowsMetadata(ctx); err != nil {
		return err
	}
	return sh.printer.Flows(sh.store.Flows())
}

func (sh *Shell) newFlow(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return sh.usage("new")
	}
	if err := sh.store.CreateFlow(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(sh.out, "the flow is empty, start it with: add root <title>")
	return err
}

func (sh *Shell) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return sh.usage("open")
	}
	id, err := sh.resolveFlow(ctx, args[0])
	if err != nil {
		return err
	}
	return sh.store.LoadFlow(ctx, id)
}

func (sh *Shell) save(ctx context.Context, _ []string) error {
	if sh.store.CurrentFlow() == nil {
		return errors.New("no flow is open")
	}
	if !sh.store.HasUnsavedChanges() {
		_, err := fmt.Fprintln(sh.out, "nothing to save")
		return err
	}
	return sh.store.SaveFlow(ctx)
}

func (sh *Shell) close(_ context.Context, args []string) error {
	force := len(args) > 0 && (args[0] == "-f" || args[0] == "--force")
	if sh.store.HasUnsavedChanges() && !force {
		return errors.New("the flow has unsaved changes, save it or use close -f")
	}
	sh.store.CloseFlow()
	return nil
}

func (sh *Shell) deleteFlow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return sh.usage("delete")
	}
	id, err := sh.resolveFlow(ctx, args[0])
	if err != nil {
		return err
	}
	return sh.store.DeleteFlow(ctx, id)
}

// resolveFlow matches ref against flow ids, names and id prefixes.
func (sh *Shell) resolveFlow(ctx context.Context, ref string) (string, error) {
	if err := sh.store.LoadFlowsMetadata(ctx); err != nil {
		return "", err
	}
	var matches []string
	for _, f := range sh.store.Flows() {
		if f.ID == ref || f.Name == ref {
			return f.ID, nil
		}
		if strings.HasPrefix(f.ID, ref) {
			matches = append(matches, f.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no flow matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d flows", ref, len(matches))
	}
}

// resolveNode matches ref against node ids or unique id prefixes.
func (sh *Shell) resolveNode(ref string) (graph.Node, error) {
	var matches []graph.Node
	for _, n := range sh.store.Nodes() {
		if n.ID == ref {
			return n, nil
		}
		if strings.HasPrefix(n.ID, ref) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return graph.Node{}, fmt.Errorf("node %s: %w", ref, store.ErrNodeNotFound)
	case 1:
		return matches[0], nil
	default:
		return graph.Node{}, fmt.Errorf("%q matches %d nodes", ref, len(matches))
	}
}

func (sh *Shell) add(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return sh.usage("add")
	}
	form := store.NodeForm{Title: args[1]}
	if len(args) == 3 {
		form.Description = args[2]
	}

	if args[0] == "root" {
		if err := sh.store.RequestRootNode(ctx, graph.Position{}); err != nil {
			return err
		}
	} else {
		from, err := sh.resolveNode(args[0])
		if err != nil {
			return err
		}
		children := 0
		for _, e := range sh.store.Edges() {
			if e.Source == from.ID {
				children++
			}
		}
		drop := store.ConnectionDrop{
			FromNodeID: from.ID,
			ScreenPosition: graph.Position{
				X: from.Position.X + float64(children*childOffset),
				Y: from.Position.Y + childOffset,
			},
		}
		if err := sh.store.OnConnectionDropped(ctx, drop); err != nil {
			return err
		}
	}

	created, err := sh.store.SubmitPendingNode(form)
	if err != nil {
		// The root dialog cannot be dismissed; it stays staged for the
		// next attempt.
		sh.store.CancelDialog()
		return err
	}
	_, err = fmt.Fprintf(sh.out, "added %s %s\n", created.Type, shortID(created.ID))
	return err
}

func (sh *Shell) connect(_ context.Context, args []string) error {
	if len(args) != 2 {
		return sh.usage("connect")
	}
	source, err := sh.resolveNode(args[0])
	if err != nil {
		return err
	}
	target, err := sh.resolveNode(args[1])
	if err != nil {
		return err
	}
	if source.ID == target.ID {
		return errors.New("cannot connect a node to itself")
	}
	sh.store.Connect(graph.Connection{Source: source.ID, Target: target.ID})
	return nil
}

func (sh *Shell) remove(_ context.Context, args []string) error {
	if len(args) != 1 {
		return sh.usage("rm")
	}
	n, err := sh.resolveNode(args[0])
	if err != nil {
		return err
	}
	if !sh.store.RemoveNode(n.ID) {
		return fmt.Errorf("node %s cannot be removed", shortID(n.ID))
	}
	return nil
}

func (sh *Shell) move(_ context.Context, args []string) error {
	if len(args) != 3 {
		return sh.usage("move")
	}
	n, err := sh.resolveNode(args[0])
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("parse x: %w", err)
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("parse y: %w", err)
	}
	sh.store.ApplyNodeChanges([]graph.NodeChange{graph.MoveNode(n.ID, graph.Position{X: x, Y: y})})
	return nil
}

func (sh *Shell) edit(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args)%2 == 0 {
		return sh.usage("edit")
	}
	n, err := sh.resolveNode(args[0])
	if err != nil {
		return err
	}
	form := store.NodeForm{
		Title:       n.Data.Title,
		Description: n.Data.Description,
		Git:         n.Data.Git,
		State:       n.Data.State,
	}
	for i := 1; i < len(args); i += 2 {
		field, value := strings.ToLower(args[i]), args[i+1]
		switch field {
		case "title":
			form.Title = value
		case "description", "desc":
			form.Description = value
		case "state":
			st, err := graph.ParseState(value)
			if err != nil {
				return err
			}
			form.State = st
		case "rev", "revision":
			rev, err := sh.parseRevision(ctx, value)
			if err != nil {
				return err
			}
			form.Git = rev
		default:
			return fmt.Errorf("unknown field %q", args[i])
		}
	}

	if err := sh.store.SetEditNode(n.ID); err != nil {
		return err
	}
	if _, err := sh.store.SubmitEditNode(form); err != nil {
		sh.store.CancelDialog()
		return err
	}
	return nil
}

// parseRevision resolves raw to revision metadata. Tags and branches are
// written as tag:<name> and branch:<name>; anything else is resolved to a
// commit. "none" clears the revision.
func (sh *Shell) parseRevision(ctx context.Context, raw string) (*revision.Metadata, error) {
	if raw == "none" || raw == "" {
		return nil, nil
	}
	kind, name := revision.KindCommit, raw
	if k, rest, ok := strings.Cut(raw, ":"); ok {
		parsed, err := revision.ParseKind(k)
		if err != nil {
			return nil, err
		}
		kind, name = parsed, rest
	}
	commit, err := sh.git.CommitForRevision(ctx, name)
	if err != nil {
		return nil, err
	}
	if kind == revision.KindCommit {
		return &commit, nil
	}
	m, err := revision.New(kind, name, commit.Summary())
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (sh *Shell) undo(context.Context, []string) error {
	if !sh.store.CanUndo() {
		return errors.New("nothing to undo")
	}
	sh.store.Undo()
	return nil
}

func (sh *Shell) redo(context.Context, []string) error {
	if !sh.store.CanRedo() {
		return errors.New("nothing to redo")
	}
	sh.store.Redo()
	return nil
}

func (sh *Shell) edgeType(_ context.Context, args []string) error {
	if len(args) != 1 {
		return sh.usage("edge-type")
	}
	sh.store.SetEdgeType(args[0])
	return nil
}

func (sh *Shell) pin(_ context.Context, args []string) error {
	if len(args) != 1 {
		return sh.usage("pin")
	}
	n, err := sh.resolveNode(args[0])
	if err != nil {
		return err
	}
	if n.Data.Git == nil {
		return fmt.Errorf("node %s has no revision", shortID(n.ID))
	}
	pins := sh.store.Pins()
	if st := pins.StateOf(n.Data.Git); st != store.NotPinned {
		return fmt.Errorf("%s is already pinned as %s", revision.Format(*n.Data.Git), st)
	}
	st := pins.AddPin(n.ID, *n.Data.Git)
	if st == store.NotPinned {
		return errors.New("both pins are taken, unpin one first")
	}
	_, err = fmt.Fprintf(sh.out, "pinned %s as %s\n", revision.Format(*n.Data.Git), st)
	return err
}

func (sh *Shell) unpin(_ context.Context, args []string) error {
	var states []store.PinState
	for _, a := range args {
		switch strings.ToUpper(a) {
		case "A":
			states = append(states, store.PinnedA)
		case "B":
			states = append(states, store.PinnedB)
		default:
			return sh.usage("unpin")
		}
	}
	sh.store.Pins().ClearPins(states...)
	return nil
}

func (sh *Shell) highlight(_ context.Context, args []string) error {
	if len(args) == 0 {
		sh.store.Pins().ClearHighlight()
		return nil
	}
	n, err := sh.resolveNode(args[0])
	if err != nil {
		return err
	}
	sh.store.Pins().Highlight(n.ID)
	return nil
}

func (sh *Shell) diff(ctx context.Context, args []string) error {
	diffs, err := sh.store.PinnedDiffs(ctx)
	if err != nil {
		return err
	}
	if diffs, err = render.FilterDiffs(diffs, args); err != nil {
		return err
	}
	if len(diffs) == 0 {
		_, err := fmt.Fprintln(sh.out, "no changes")
		return err
	}
	return sh.printer.Diffs(diffs)
}

func (sh *Shell) checkout(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return sh.usage("checkout")
	}
	rev := args[0]
	if n, err := sh.resolveNode(rev); err == nil && n.Data.Git != nil {
		rev = n.Data.Git.Rev()
	}
	return sh.store.Git().Checkout(ctx, rev)
}

func (sh *Shell) restore(ctx context.Context, _ []string) error {
	if _, ok := sh.store.Git().Previous(); !ok {
		return errors.New("nothing to restore")
	}
	return sh.store.Git().Restore(ctx)
}

func (sh *Shell) status(ctx context.Context, _ []string) error {
	st, err := sh.git.RepositoryStatus(ctx)
	if err != nil {
		return err
	}
	if err := sh.printer.Status(st); err != nil {
		return err
	}
	if prev, ok := sh.store.Git().Previous(); ok {
		_, err = fmt.Fprintf(sh.out, "\nrestore returns to %s\n", revision.Format(prev.Revision))
	}
	return err
}

func (sh *Shell) nodes(context.Context, []string) error {
	nodes := sh.store.Nodes()
	if len(nodes) == 0 {
		_, err := fmt.Fprintln(sh.out, "no nodes")
		return err
	}
	pins := sh.store.Pins()
	highlighted := pins.Highlighted()
	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTYPE\tSTATE\tREVISION\tPIN\tTITLE")
	for _, n := range nodes {
		mark := ""
		if n.ID == highlighted {
			mark = "*"
		}
		rev, pin := "-", "-"
		if n.Data.Git != nil {
			rev = fmt.Sprintf("%s %s", n.Data.Git.Kind(), revision.Format(*n.Data.Git))
			if st := pins.StateOf(n.Data.Git); st != store.NotPinned {
				pin = st.String()
			}
		}
		state := string(n.Data.State)
		if state == "" {
			state = "-"
		}
		title := n.Data.Title
		if n.IsRoot() {
			title += " (root)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", mark, shortID(n.ID), n.Type, state, rev, pin, title)
	}
	return w.Flush()
}

func (sh *Shell) edges(context.Context, []string) error {
	edges := sh.store.Edges()
	if len(edges) == 0 {
		_, err := fmt.Fprintln(sh.out, "no edges")
		return err
	}
	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTARGET\tTYPE")
	for _, e := range edges {
		t := e.Type
		if t == "" {
			t = graph.DefaultEdgeType
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", shortID(e.Source), shortID(e.Target), t)
	}
	return w.Flush()
}

func (sh *Shell) uiPrefs(_ context.Context, args []string) error {
	switch len(args) {
	case 0:
		p := sh.ui.Preferences()
		_, err := fmt.Fprintf(sh.out, "minimap      %s\ninline-diff  %s\n", onOff(p.MiniMapVisible), onOff(p.InlineDiff))
		return err
	case 2:
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		switch args[0] {
		case "minimap":
			sh.ui.SetMiniMapVisible(on)
		case "inline-diff":
			sh.ui.SetInlineDiff(on)
		default:
			return sh.usage("ui")
		}
		return nil
	default:
		return sh.usage("ui")
	}
}

func (sh *Shell) quit(context.Context, []string) error {
	if sh.store.HasUnsavedChanges() {
		fmt.Fprintln(sh.out, "unsaved changes are kept as a local draft")
	}
	return errQuit
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func parseOnOff(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", raw)
	}
}
