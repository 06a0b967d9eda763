package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newFlowsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Manage stored flows",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored flows, most recently modified first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				list, err := client.Flows(cmd.Context())
				if err != nil {
					return err
				}
				p, err := a.printer(a.stdout)
				if err != nil {
					return err
				}
				return p.Flows(list)
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty flow",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				meta, err := client.CreateFlow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "created flow %s (%s)\n", meta.Name, meta.ID)
				return err
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a stored flow",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.client()
				if err != nil {
					return err
				}
				if err := client.DeleteFlow(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "deleted flow %s\n", args[0])
				return err
			},
		},
		newFlowsExportCmd(a),
	)
	return cmd
}

func newFlowsExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a flow as a standalone HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			flow, err := client.Flow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return p.ExportHTML(a.stdout, flow.Name, flow.Nodes, flow.Edges)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := p.ExportHTML(f, flow.Name, flow.Nodes, flow.Edges); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			_, err = fmt.Fprintf(a.stderr, "exported %s to %s\n", flow.Name, output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the page to this file instead of stdout")
	return cmd
}
