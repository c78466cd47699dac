package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/api"
)

var (
	servePort    int
	serveDevMode bool
	serveUIDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API server",
	Long: `Start the HTTP API on localhost. The API exposes the full workbench:
import, profiling, relation inference, reshape, cleaning, and export.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, cfg, logger, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		opts := []api.Option{api.WithDevMode(serveDevMode)}
		if serveUIDir != "" {
			opts = append(opts, api.WithStaticFS(os.DirFS(serveUIDir)))
		}
		srv := api.New(cat, cfg, logger, port, opts...)

		// Graceful shutdown on signals
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "Tablewright API: http://localhost:%d\n", port)

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port for the API server (default from config)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS for development mode")
	serveCmd.Flags().StringVar(&serveUIDir, "ui", "", "directory with a built web UI to serve")
	rootCmd.AddCommand(serveCmd)
}
