// Package cli provides the command-line interface for the entity linker.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lblod/entity-linker/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and logger
	cfg           config.Config
	logger        *slog.Logger
	loggerCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "entity-linker",
	Short: "Link recognized entities to canonical URIs",
	Long: `entity-linker picks up named-entity-linking tasks from a SPARQL
triplestore, asks an LLM agent to find the canonical URI of each recognized
entity and writes an enriched annotation back.

The agent answers with the help of a retrieval knowledge base built from
SPARQL query examples and VoID class shapes, a SPARQL executor and a
geocoder. All of them are also exposed as MCP tools.

Configuration is read from the environment (MU_SPARQL_ENDPOINT,
VECTOR_STORE_TYPE, LLM_PROVIDER, ...).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, loggerCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if loggerCleanup != nil {
			if err := loggerCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(taskCmd)
}
