package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/debug-flow/debug-flow/internal/db"
	"github.com/debug-flow/debug-flow/internal/flows"
	"github.com/debug-flow/debug-flow/internal/git"
	"github.com/debug-flow/debug-flow/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		host    string
		port    int
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve [repository]",
		Short: "Serve a git repository and the stored flows over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if len(args) == 1 {
				cfg.Repository = args[0]
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			repo, err := git.Open(cfg.Repository)
			if err != nil {
				return err
			}
			database, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			srv := server.New(server.Config{
				Host:           cfg.Server.Host,
				Port:           cfg.Server.Port,
				AllowAll:       cfg.Server.AllowAll,
				RequestTimeout: cfg.Server.RequestTimeout,
			}, repo, flows.NewStore(database))
			if !noWatch {
				if err := srv.Watch(cfg.Server.WatchDelay); err != nil {
					slog.Warn("repository changes will not be streamed", slog.Any("error", err))
				}
			}
			return serveUntilDone(cmd.Context(), srv)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "address to listen on")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on")
	cmd.Flags().BoolVar(&noWatch, "nowatch", false, "do not stream repository changes")
	return cmd
}

// serveUntilDone runs srv until it fails or ctx is cancelled, then shuts it
// down gracefully.
func serveUntilDone(ctx context.Context, srv *server.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		shutdownErr := srv.Shutdown(context.Background())
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return shutdownErr
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	return errors.Join(err, <-errCh)
}
