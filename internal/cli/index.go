package cli

import (
	"context"
	"fmt"

	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/spf13/cobra"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge base from the configured endpoints",
	Long: `Load the SPARQL query examples and VoID class shapes of every configured
endpoint and index them in the store selected by VECTOR_STORE_TYPE.

A remote collection that already holds documents is left alone unless
--force is given.

Examples:
  entity-linker index
  entity-linker index --force
  ENDPOINTS_FILE=endpoints.yml entity-linker index`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "recreate the collection even if it holds documents")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c := cfg
	c.ForceIndex = c.ForceIndex || indexForce
	c.AutoInit = true

	m := metrics.NewCollector()
	kb, closeKB, err := openKnowledgeBase(ctx, c, m, logger)
	if err != nil {
		return err
	}
	defer closeKB()

	if err := kb.Initialize(ctx); err != nil {
		return fmt.Errorf("index documents: %w", err)
	}

	snap := m.Snapshot()
	fmt.Printf("Indexed knowledge base (store: %s)\n", c.VectorStoreType)
	if snap.Embedding != nil {
		fmt.Printf("  embedding calls: %d, total %dms\n", snap.Embedding.Count, snap.Embedding.TotalTimeMs)
	}
	return nil
}
