package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/exhibit/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the configured exhibitions with live preview",
	Long: `Serve every exhibition from the configuration on one host page.
Each preview frame updates when an updater element is clicked, when an
editor is changed in the page, or when an editor file changes on disk.

Examples:
  exhibit serve                    # Serve on localhost:8080
  exhibit serve --port 3000 --open # Serve on port 3000 and open a browser`,
	RunE: runServe,
}

var serveFlags *ServerFlags

// shutdownTimeout bounds the graceful shutdown after an interrupt.
const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveFlags = addServerFlags(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	srv := server.New(cfg, server.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d exhibitions at http://%s\n", len(cfg.Exhibitions), cfg.Server.Address())

	finished := false
	select {
	case err = <-errCh:
		finished = true
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error(shutdownCtx, shutdownErr, "Error during server shutdown")
	}

	if !finished {
		select {
		case err = <-errCh:
		case <-shutdownCtx.Done():
		}
	}
	return withSuggestions(fmt.Sprintf("Failed to serve on port %d", cfg.Server.Port), err, cfg)
}
