package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lblod/entity-linker/internal/api"
	"github.com/lblod/entity-linker/internal/config"
	"github.com/lblod/entity-linker/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	servePort    string
	serveNoTasks bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the MCP endpoint and the task coordinator",
	Long: `Run the service: the HTTP API (health, delta, agent queries, stats),
the MCP streamable HTTP endpoint at /mcp and the coordinator that
processes scheduled named-entity-linking tasks.

Examples:
  entity-linker serve
  entity-linker serve --port 8080
  entity-linker serve --no-tasks`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (default $PORT)")
	serveCmd.Flags().BoolVar(&serveNoTasks, "no-tasks", false, "do not process tasks")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := cfg.Port
	if servePort != "" {
		port = servePort
	}

	logger.Info("entity-linker starting",
		"version", Version,
		"sparql_endpoint", cfg.SPARQLEndpoint,
		"vector_store", cfg.VectorStoreType,
		"llm_provider", cfg.LLMProvider,
	)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := api.Options{
		Agent:       a.agent,
		MCP:         a.mcp.Handler(),
		Metrics:     a.metrics,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}

	g, gctx := errgroup.WithContext(ctx)

	if !serveNoTasks {
		coordinator := service.NewCoordinator(a.store, a.executor, a.sparql, coordinatorOptions(cfg), logger)
		opts.Trigger = coordinator
		g.Go(func() error {
			return coordinator.Run(gctx)
		})
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           api.NewHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

func coordinatorOptions(cfg config.Config) service.CoordinatorOptions {
	return service.CoordinatorOptions{
		PollInterval: cfg.PollInterval,
		TaskDelay:    cfg.TaskDelay,
		StartupDelay: cfg.StartupDelay,
	}
}
