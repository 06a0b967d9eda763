package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/debug-flow/debug-flow/internal/api"
	"github.com/debug-flow/debug-flow/internal/config"
	"github.com/debug-flow/debug-flow/internal/logging"
	"github.com/debug-flow/debug-flow/internal/render"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app carries the global flags and the loaded configuration to every
// command.
type app struct {
	cfgFile   string
	colorMode string
	logLevel  string
	serverURL string

	cfg *config.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "debug-flow",
		Short: "Record debugging sessions as graphs of actions and observed states",
		Long: `debug-flow keeps debugging sessions as flows: graphs of status nodes,
recording what was observed at a revision, and action nodes, recording what
was tried next. The serve command exposes a git repository and the stored
flows over HTTP; the other commands talk to a running server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", config.DefaultFile, "config file path")
	flags.StringVar(&a.colorMode, "color", "auto", "colorize output: auto, always or never")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides the config file")
	flags.StringVar(&a.serverURL, "server", "", "server URL, overrides the config file")

	root.AddCommand(
		newServeCmd(a),
		newEditCmd(a),
		newStatusCmd(a),
		newCheckoutCmd(a),
		newCommitsCmd(a),
		newDiffCmd(a),
		newTagsCmd(a),
		newBranchesCmd(a),
		newFlowsCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.serverURL != "" {
		cfg.Client.URL = a.serverURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", a.cfgFile, err)
	}
	if _, err := render.ParseColorMode(a.colorMode); err != nil {
		return err
	}
	if err := logging.Setup(a.stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) client() (*api.Client, error) {
	return api.New(a.cfg.Client.URL, api.WithTimeout(a.cfg.Client.Timeout))
}

func (a *app) printer(w io.Writer) (*render.Printer, error) {
	mode, err := render.ParseColorMode(a.colorMode)
	if err != nil {
		return nil, err
	}
	return render.NewPrinter(w, render.ThemePreferenceFromString(string(a.cfg.Editor.Theme)), mode), nil
}
