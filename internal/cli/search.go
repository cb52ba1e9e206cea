package cli

import (
	"context"
	"fmt"

	"github.com/lblod/entity-linker/internal/knowledge"
	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	searchClasses []string
	searchSteps   []string
	searchLimit   int
)

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Search the knowledge base without the agent",
	Long: `Retrieve the query examples and class shapes the agent would see for a
question. Results are printed in the same format the search_sparql_docs
tool returns.

Examples:
  entity-linker search "Who is the mayor of Gent?"
  entity-linker search "mandatarissen" --class besluit:Bestuurseenheid
  entity-linker search "list municipalities" --step "find all Bestuurseenheden" -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchClasses, "class", "c", nil, "potential ontology classes")
	searchCmd.Flags().StringSliceVarP(&searchSteps, "step", "s", nil, "question decomposition steps")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "documents per category (default $DEFAULT_RETRIEVED_DOCS)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx := context.Background()

	c := cfg
	if searchLimit > 0 {
		c.RetrievedDocs = searchLimit
	}

	kb, closeKB, err := openKnowledgeBase(ctx, c, metrics.NewCollector(), logger)
	if err != nil {
		return err
	}
	defer closeKB()

	if err := kb.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize knowledge base: %w", err)
	}

	docs, err := kb.Search(ctx, question, searchClasses, searchSteps)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	fmt.Println(knowledge.Prompt(docs))
	return nil
}
