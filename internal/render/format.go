package render

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/revision"
)

const timeLayout = "2006-01-02 15:04"

// Status prints a repository status in the spirit of git status.
func (p *Printer) Status(st contracts.RepositoryStatus) error {
	accent := p.r.NewStyle().Foreground(lipgloss.Color(p.palette.Accent)).Bold(true)
	var sb strings.Builder
	if st.CurrentBranch != nil && *st.CurrentBranch != "" {
		fmt.Fprintf(&sb, "On branch %s\n", accent.Render(*st.CurrentBranch))
	} else {
		fmt.Fprintf(&sb, "HEAD detached at %s\n", accent.Render(revision.Short(st.Head.ID)))
	}
	fmt.Fprintf(&sb, "Head: %s %s\n", revision.Short(st.Head.ID), st.Head.Summary)

	if st.Index.Empty() && st.Worktree.Empty() {
		sb.WriteString("\nnothing to commit, working tree clean\n")
	} else {
		p.writeChangeList(&sb, "Changes to be committed:", st.Index, p.palette.DiffAdd)
		p.writeChangeList(&sb, "Changes not staged for commit:", st.Worktree, p.palette.DiffDel)
	}
	_, err := fmt.Fprint(p.w, sb.String())
	return err
}

func (p *Printer) writeChangeList(sb *strings.Builder, title string, cl contracts.ChangeList, color string) {
	if cl.Empty() {
		return
	}
	st := p.r.NewStyle().Background(lipgloss.Color(color))
	fmt.Fprintf(sb, "\n%s\n", title)
	groups := []struct {
		label string
		files []string
	}{
		{"new file:", cl.NewFiles},
		{"modified:", cl.ModifiedFiles},
		{"renamed:", cl.RenamedFiles},
		{"deleted:", cl.DeletedFiles},
	}
	for _, g := range groups {
		for _, f := range g.files {
			fmt.Fprintf(sb, "  %-10s %s\n", g.label, st.Render(f))
		}
	}
}

// Commits prints one commit per line, newest first as given.
func (p *Printer) Commits(commits []contracts.Commit) error {
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, c := range commits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			revision.Short(c.ID),
			c.Time.Local().Format(timeLayout),
			c.Author.Name,
			c.Summary,
		)
	}
	return w.Flush()
}

// Revisions prints tags or branches with the summary of their commit.
func (p *Printer) Revisions(revs []revision.Metadata) error {
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, r := range revs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Kind(), revision.Format(r), r.Summary())
	}
	return w.Flush()
}

func (p *Printer) Flows(list []contracts.FlowMetadata) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(p.w, "no flows yet")
		return err
	}
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tNODES\tEDGES\tLAST MODIFIED")
	for _, f := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.ID,
			f.Name,
			strconv.Itoa(f.NumNodes),
			strconv.Itoa(f.NumEdges),
			relativeTime(f.LastModifiedDate, time.Now()),
		)
	}
	return w.Flush()
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return t.Local().Format(timeLayout)
	}
}
