package analyst

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	engine "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/server"
)

func newServeCmd() *cobra.Command {
	var (
		host  string
		port  int
		mode  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP server to provide REST access to the knowledge graph.

The server provides endpoints for:
- Answering questions, singly or in batches
- Looking up entities, neighbors, bounded contexts and paths
- Ingesting exchange batches and saving snapshots
- Graph statistics and communities
- Health checks and Prometheus metrics

With --watch the data file is re-applied whenever it changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			flags := cmd.Flags()
			if flags.Changed("host") {
				a.cfg.Server.Host = host
			}
			if flags.Changed("port") {
				a.cfg.Server.Port = port
			}
			if flags.Changed("mode") {
				a.cfg.Server.Mode = mode
			}
			if flags.Changed("watch") {
				a.cfg.Graph.Watch = watch
			}
			if err := validateServerConfig(a.cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if a.cfg.Graph.Watch {
				go func() {
					if err := a.engine.Watch(ctx, a.cfg.Graph.DataPath); err != nil && !errors.Is(err, context.Canceled) {
						a.logger.Error("data file watch stopped", "path", a.cfg.Graph.DataPath, "error", err)
					}
				}()
			}

			srv := server.New(a.cfg, a.engine, a.logger.With("component", "server"))
			srv.Setup()

			serverErr := make(chan error, 1)
			go func() { serverErr <- srv.Start() }()

			select {
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
				a.logger.Info("received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown error: %w", err)
			}
			if _, err := a.engine.Persist(shutdownCtx); err != nil && !errors.Is(err, engine.ErrNoSnapshotStore) {
				a.logger.Error("failed to persist snapshot on shutdown", "error", err)
			}
			a.logger.Info("server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Server host")
	cmd.Flags().IntVar(&port, "port", 8080, "Server port")
	cmd.Flags().StringVar(&mode, "mode", "debug", "Server mode (debug, release, test)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-apply the data file when it changes")
	return cmd
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Graph.Watch && cfg.Graph.DataPath == "" {
		return errors.New("watch requires a data file")
	}
	return nil
}
