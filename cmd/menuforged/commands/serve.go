package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/menuforge/menuforge/pkg/api"
	"github.com/menuforge/menuforge/pkg/catalog"
	"github.com/menuforge/menuforge/pkg/config"
	"github.com/menuforge/menuforge/pkg/orchestrator"
	"github.com/menuforge/menuforge/pkg/store"
	"github.com/menuforge/menuforge/pkg/telemetry"
	"github.com/menuforge/menuforge/pkg/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the planning service daemon",
		Long: `Start the HTTP API, connect to the shared store, and serve plan
requests until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := telemetry.NewLogger(cfg.Logging)
	metrics := telemetry.NewMetrics("menuforge")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer client.Close()

	gateway := store.NewGateway(client, cfg.StoreRetry, log)

	var runner worker.Runner = worker.InProcessRunner{}
	if cfg.Worker.BinPath != "" {
		runner = worker.NewProcessRunner(cfg.Worker.BinPath, log)
	}
	pool := worker.NewPool(cfg.Worker.PoolSize, runner)

	orch := orchestrator.New(gateway, pool, orchestrator.SystemSampler{}, cfg.Orchestrator, log, metrics)

	var source api.CatalogSource
	if cfg.Catalog.BaseURL != "" {
		source = catalog.NewProvider(cfg.Catalog, gateway, log)
	}

	server := api.NewServer(orch, source, gateway, metrics, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Int("workers", pool.Size()).
			Msg("menuforged listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
