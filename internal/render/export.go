package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/debug-flow/debug-flow/internal/graph"
	"github.com/debug-flow/debug-flow/internal/revision"
)

type exportNode struct {
	ID          string
	Title       string
	Kind        string
	State       string
	Revision    string
	RevKind     string
	Root        bool
	Description template.HTML
	Next        []string
}

type exportPage struct {
	Name      string
	Generated string
	Nodes     []exportNode
	Dark      bool
}

// ExportHTML writes a standalone HTML page describing a flow. Nodes appear in
// breadth first order from the root; node descriptions are rendered as
// markdown.
func (p *Printer) ExportHTML(w io.Writer, name string, nodes []graph.Node, edges []graph.Edge) error {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(p.palette.ChromaStyle),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	titles := make(map[string]string, len(nodes))
	for _, n := range nodes {
		titles[n.ID] = n.Data.Title
	}
	next := make(map[string][]string)
	for _, e := range edges {
		next[e.Source] = append(next[e.Source], e.Target)
	}

	page := exportPage{
		Name:      name,
		Generated: time.Now().Format(timeLayout),
		Dark:      p.palette.IsDark(),
	}
	for _, n := range flowOrder(nodes, edges) {
		var desc bytes.Buffer
		if err := md.Convert([]byte(n.Data.Description), &desc); err != nil {
			return fmt.Errorf("render description of %s: %w", n.ID, err)
		}
		en := exportNode{
			ID:          n.ID,
			Title:       n.Data.Title,
			Kind:        nodeKind(n.Type),
			State:       string(n.Data.State),
			Root:        n.IsRoot(),
			Description: template.HTML(desc.String()),
		}
		if n.Data.Git != nil {
			en.Revision = revision.Format(*n.Data.Git)
			en.RevKind = n.Data.Git.Kind().String()
		}
		for _, id := range next[n.ID] {
			if title, ok := titles[id]; ok {
				en.Next = append(en.Next, title)
			}
		}
		page.Nodes = append(page.Nodes, en)
	}

	tmpl, err := template.New("flow").Parse(flowTemplate)
	if err != nil {
		return fmt.Errorf("parsing flow template: %w", err)
	}
	if err := tmpl.Execute(w, page); err != nil {
		return fmt.Errorf("rendering flow %s: %w", name, err)
	}
	return nil
}

func nodeKind(t graph.NodeType) string {
	if t == graph.StatusNode {
		return "status"
	}
	return "action"
}

// flowOrder lists the root nodes first, then every node reachable from them
// breadth first, then the unreachable rest in document order.
func flowOrder(nodes []graph.Node, edges []graph.Edge) []graph.Node {
	byID := make(map[string]graph.Node, len(nodes))
	var queue []string
	for _, n := range nodes {
		byID[n.ID] = n
		if n.IsRoot() {
			queue = append(queue, n.ID)
		}
	}
	next := make(map[string][]string)
	for _, e := range edges {
		next[e.Source] = append(next[e.Source], e.Target)
	}

	seen := make(map[string]bool, len(nodes))
	out := make([]graph.Node, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, n)
		queue = append(queue, next[id]...)
	}
	for _, n := range nodes {
		if !seen[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

const flowTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem;{{if .Dark}} background: #0d1117; color: #e6edf3;{{end}} }
.node { border: 1px solid #8b949e; border-radius: 6px; padding: .75rem 1rem; margin: 1rem 0; }
.node.status { border-left: 4px solid #0969da; }
.node.action { border-left: 4px solid #8250df; }
.meta { font-size: .85rem; opacity: .75; }
.state-fail { color: #cf222e; }
.state-success { color: #1a7f37; }
.state-progress { color: #9a6700; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p class="meta">Exported {{.Generated}}</p>
{{range .Nodes}}
<section class="node {{.Kind}}" id="{{.ID}}">
<h2>{{.Title}}{{if .Root}} <small>(root)</small>{{end}}</h2>
<p class="meta">{{.Kind}}{{if .State}} · <span class="state-{{.State}}">{{.State}}</span>{{end}}{{if .Revision}} · {{.RevKind}} <code>{{.Revision}}</code>{{end}}</p>
{{.Description}}
{{if .Next}}<p class="meta">leads to: {{range $i, $t := .Next}}{{if $i}}, {{end}}{{$t}}{{end}}</p>{{end}}
</section>
{{end}}
</body>
</html>
`
