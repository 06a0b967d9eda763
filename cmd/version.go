package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debug-flow/debug-flow/internal/buildinfo"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(a.stdout, "debug-flow %s\n", buildinfo.Read())
			return err
		},
	}
}
