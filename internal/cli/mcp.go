package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/server"
	"github.com/lblod/entity-linker/internal/tools"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the linking tools over MCP stdio",
	Long: `Serve search_sparql_docs, execute_sparql_query and search_location to an
MCP client over stdin/stdout. No agent or task processing is started.

Logs go to stderr (and LOG_FILE when set) so stdout stays reserved for
the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector()
	kb, closeKB, err := openKnowledgeBase(ctx, cfg, m, logger)
	if err != nil {
		return fmt.Errorf("init knowledge base: %w", err)
	}
	defer closeKB()

	if err := kb.Initialize(ctx); err != nil {
		logger.Error("knowledge base initialization failed", "error", err)
	}

	srv := server.New(&tools.Dependencies{
		Knowledge: kb,
		SPARQL:    newSPARQLClient(cfg, m, logger),
		Geocoder:  newGeocoder(cfg),
		Logger:    logger,
	}, Version, logger)
	srv.Setup()

	logger.Info("server ready, awaiting connections")

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
