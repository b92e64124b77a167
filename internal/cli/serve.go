package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/anatomaps/flatmap/internal/server"
	"github.com/anatomaps/flatmap/pkg/export"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve command is interrupted.
const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command for running the control API.
func (c *CLI) serveCommand() *cobra.Command {
	flags := &viewerFlags{}
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve [map-id]",
		Short: "Serve a map's control API over HTTP",
		Long: `Serve a map's control API over HTTP.

The serve command loads one map and exposes its state engine as a JSON
API: legend and system toggles, taxon and centreline filters, feature
visibility and selection, SCKAN filtering, and connectivity graph
export. The server runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], flags, addr, noCache)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", defaultServeAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the export cache")

	return cmd
}

// runServe loads the map and serves the control API until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, mapID string, flags *viewerFlags, addr string, noCache bool) error {
	logger := loggerFromContext(ctx)

	m, err := c.loadMap(ctx, mapID, flags)
	if err != nil {
		return err
	}
	printSuccess("Map %s ready", mapID)
	printStats(m.NumPaths(), m.NumFeatures(), false)

	exporter := export.NewExporter(newExportCache(noCache))
	srv := server.New(m, exporter, logger)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("control API listening", "addr", addr, "map", mapID)
		errCh <- httpSrv.ListenAndServe()
	}()

	printInfo("Listening on %s", addr)
	printNextStep("Inspect the map", fmt.Sprintf("curl http://%s/map", addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}
