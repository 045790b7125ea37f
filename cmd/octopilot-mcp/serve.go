package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/octopilot/octopilot-mcp/internal/release"
	octoserver "github.com/octopilot/octopilot-mcp/internal/server"
)

var (
	serveHosted bool
	serveHTTP   string
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio by default)",
		Long: `Start the octopilot MCP server.

By default the server speaks MCP over stdin/stdout. With --http it serves the
streamable HTTP transport on the given address instead. --hosted registers
only generate_skaffold_yaml, generate_ci_workflow and the resources, for
deployments that cannot see the caller's repository.

Logs and op build output always go to stderr.`,
		Args: cobra.NoArgs,
		RunE: serveCommand,
	}
	cmd.Flags().BoolVar(&serveHosted, "hosted", false, "Expose only the stateless generators and resources")
	cmd.Flags().StringVar(&serveHTTP, "http", "", "Serve streamable HTTP on this address (e.g. :8080) instead of stdio")
	return cmd
}

func serveCommand(cmd *cobra.Command, args []string) error {
	s, cleanup, err := octoserver.New(cfg, octoserver.Options{Hosted: serveHosted})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !serveHosted {
		go checkForUpdates(ctx)
	}

	if serveHTTP == "" {
		return server.ServeStdio(s)
	}

	httpServer := server.NewStreamableHTTPServer(s)
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", serveHTTP).Info("serving MCP over streamable HTTP")
		errCh <- httpServer.Start(serveHTTP)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// checkForUpdates logs a notice when a newer release exists. Best-effort:
// failures are silent.
func checkForUpdates(ctx context.Context) {
	st := release.Check(ctx, octoserver.Version)
	if st.UpdateAvailable {
		logrus.WithFields(logrus.Fields{
			"current": st.CurrentVersion,
			"latest":  st.LatestVersion,
			"release": st.ReleaseURL,
		}).Info("update available")
	}
}
