package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/debug-flow/debug-flow/internal/shell"
	"github.com/debug-flow/debug-flow/internal/store"
)

func newEditCmd(a *app) *cobra.Command {
	var noState bool
	cmd := &cobra.Command{
		Use:   "edit [flow]",
		Short: "Edit flows interactively",
		Long: `Starts a line oriented editor connected to the server. The open document
and the view preferences are kept in the editor state directory, so an
unsaved flow survives a restart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			out := io.Writer(a.stdout)
			var lines shell.LineReader
			if f, ok := a.stdin.(*os.File); ok && shell.IsTerminal(f) {
				term, err := shell.OpenTerminal(f, a.stdout)
				if err != nil {
					slog.Warn("line editing unavailable", slog.Any("error", err))
				} else {
					defer term.Close()
					out, lines = term, term
				}
			}
			printer, err := a.printer(out)
			if err != nil {
				return err
			}

			var storage store.Storage
			if dir := a.cfg.Editor.StateDir; dir != "" && !noState {
				fs, err := store.NewFileStorage(dir)
				if err != nil {
					return err
				}
				storage = fs
			}
			notifier := shell.NewNotifier(out)
			s := store.New(store.Options{
				Gateway:      client,
				Notifier:     notifier,
				Storage:      storage,
				PersistDelay: a.cfg.Editor.PersistDelay,
			})
			defer s.Close()

			sh := shell.New(shell.Options{
				Store:    s,
				UI:       store.NewUIStore(storage),
				Git:      client,
				Printer:  printer,
				Notifier: notifier,
				Out:      out,
			})
			ctx := cmd.Context()
			if len(args) == 1 {
				if err := sh.Exec(ctx, "open "+quoteArg(args[0])); err != nil {
					return err
				}
			} else if ref := s.CurrentFlow(); ref != nil {
				slog.Info("resuming flow", slog.String("name", ref.Name))
			}
			if lines != nil {
				return sh.Serve(ctx, lines)
			}
			return sh.Run(ctx, a.stdin)
		},
	}
	cmd.Flags().BoolVar(&noState, "no-state", false, "do not restore or keep editor state")
	return cmd
}

// quoteArg quotes s for the shell tokenizer.
func quoteArg(s string) string {
	out := []byte{'"'}
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}
