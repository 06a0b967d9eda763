package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debug-flow/debug-flow/internal/api"
	"github.com/debug-flow/debug-flow/internal/api/contracts"
	"github.com/debug-flow/debug-flow/internal/render"
	"github.com/debug-flow/debug-flow/internal/revision"
)

func newStatusCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of the served repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}
			if !watch {
				st, err := client.RepositoryStatus(cmd.Context())
				if err != nil {
					return err
				}
				return p.Status(st)
			}
			first := true
			return client.SubscribeStatus(cmd.Context(), func(st contracts.RepositoryStatus) {
				if !first {
					fmt.Fprintln(a.stdout, "---")
				}
				first = false
				if err := p.Status(st); err != nil {
					fmt.Fprintf(a.stderr, "print status: %v\n", err)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "print the status again whenever it changes")
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <revision>",
		Short: "Check out a commit, tag or branch in the served repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			commit, err := client.Checkout(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "HEAD is now at %s %s\n", revision.Short(commit.ID), commit.Summary)
			return err
		},
	}
}

func newCommitsCmd(a *app) *cobra.Command {
	var q api.CommitQuery
	cmd := &cobra.Command{
		Use:   "commits",
		Short: "List commits, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			commits, err := client.Commits(cmd.Context(), q)
			if err != nil {
				return err
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}
			return p.Commits(commits)
		},
	}
	cmd.Flags().StringVar(&q.Filter, "filter", "", "only commits whose id or summary contains this text")
	cmd.Flags().StringVar(&q.BaseRev, "base", "", "exclude commits reachable from this revision")
	cmd.Flags().StringVar(&q.HeadRev, "head", "", "start from this revision instead of HEAD")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "show at most this many commits")
	return cmd
}

func newDiffCmd(a *app) *cobra.Command {
	var paths []string
	cmd := &cobra.Command{
		Use:   "diff <base> [head]",
		Short: "Show the changes between two revisions",
		Long:  "Shows the changes between base and head. head defaults to HEAD.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			head := "HEAD"
			if len(args) == 2 {
				head = args[1]
			}
			diffs, err := client.Diffs(cmd.Context(), args[0], head)
			if err != nil {
				return err
			}
			diffs, err = render.FilterDiffs(diffs, paths)
			if err != nil {
				return err
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}
			return p.Diffs(diffs)
		},
	}
	cmd.Flags().StringArrayVarP(&paths, "path", "p", nil, "only show files matching this glob, ** allowed (repeatable)")
	return cmd
}

func newTagsCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "tags [filter]",
		Short: "List tags, or create one with --create",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			create, _ := cmd.Flags().GetString("create")
			if create != "" {
				target, err := client.CommitForRevision(cmd.Context(), at)
				if err != nil {
					return err
				}
				tag, err := client.CreateTag(cmd.Context(), create, target)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "created tag %s at %s\n", tag.Rev(), revision.Format(target))
				return err
			}
			tags, err := client.Tags(cmd.Context(), firstArg(args))
			if err != nil {
				return err
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}
			return p.Revisions(tags)
		},
	}
	cmd.Flags().String("create", "", "create a tag with this name")
	cmd.Flags().StringVar(&at, "at", "HEAD", "revision to create the tag at")
	return cmd
}

func newBranchesCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "branches [filter]",
		Short: "List branches, or create one with --create",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			create, _ := cmd.Flags().GetString("create")
			if create != "" {
				target, err := client.CommitForRevision(cmd.Context(), at)
				if err != nil {
					return err
				}
				branch, err := client.CreateBranch(cmd.Context(), create, target)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "created branch %s at %s\n", branch.Rev(), revision.Format(target))
				return err
			}
			branches, err := client.Branches(cmd.Context(), firstArg(args))
			if err != nil {
				return err
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}
			return p.Revisions(branches)
		},
	}
	cmd.Flags().String("create", "", "create a branch with this name")
	cmd.Flags().StringVar(&at, "at", "HEAD", "revision to create the branch at")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
