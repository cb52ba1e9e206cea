package tools

import (
	"context"
	"fmt"

	"github.com/lblod/entity-linker/internal/knowledge"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchDocsInput defines the input schema for the search_sparql_docs tool.
type SearchDocsInput struct {
	Question         string   `json:"question" jsonschema:"The question to be answered with a SPARQL query"`
	PotentialClasses []string `json:"potential_classes" jsonschema:"High level concepts and potential classes that could be found in the SPARQL endpoints"`
	Steps            []string `json:"steps" jsonschema:"Split the question in standalone smaller parts if relevant"`
}

// NewSearchDocsHandler retrieves query examples and class schemas from the
// knowledge base and wraps them in query-writing instructions.
func NewSearchDocsHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchDocsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocsInput) (*mcp.CallToolResult, any, error) {
		if input.Question == "" {
			return ErrorResult("question is required", "Provide the question the query should answer"), nil, nil
		}
		if deps == nil || deps.Knowledge == nil {
			return ErrorResult("knowledge base not configured", ""), nil, nil
		}

		deps.logger().Debug("search_sparql_docs called",
			"question", input.Question,
			"classes", input.PotentialClasses,
			"steps", input.Steps)

		docs, err := deps.Knowledge.Search(ctx, input.Question, input.PotentialClasses, input.Steps)
		if err != nil {
			return ErrorResult(fmt.Sprintf("knowledge base search failed: %v", err), "Try again with fewer or simpler steps"), nil, nil
		}
		return TextResult(knowledge.Prompt(docs)), nil, nil
	}
}
