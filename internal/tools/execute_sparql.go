package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lblod/entity-linker/internal/sparql"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MaxResultRows caps the rows returned to the model.
const MaxResultRows = 50

// fixQueryPrompt nudges the model to relax a failing or empty query.
const fixQueryPrompt = `Please fix the query, and try again.
We suggest you to make the query less restricted, e.g. use a broader regex for string matching instead of exact match,
ignore case, make sure you are not overriding an existing variable with BIND, or break down your query in smaller parts
and check them one by one.`

const endpointComment = "#+ endpoint:"

// ExecuteQueryInput defines the input schema for the execute_sparql_query tool.
type ExecuteQueryInput struct {
	SPARQLQuery string `json:"sparql_query" jsonschema:"A valid SPARQL query string"`
	EndpointURL string `json:"endpoint_url,omitempty" jsonschema:"The SPARQL endpoint URL to execute the query against"`
}

// NewExecuteQueryHandler runs a generated query against a public endpoint.
// Empty results and endpoint errors are reported as text so the model can
// revise the query.
func NewExecuteQueryHandler(deps *Dependencies) mcp.ToolHandlerFor[ExecuteQueryInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ExecuteQueryInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.SPARQLQuery) == "" {
			return ErrorResult("sparql_query is required", ""), nil, nil
		}
		if deps == nil || deps.SPARQL == nil {
			return ErrorResult("SPARQL client not configured", ""), nil, nil
		}

		endpoint := input.EndpointURL
		if endpoint == "" {
			endpoint = endpointFromQuery(input.SPARQLQuery)
		}
		if endpoint == "" {
			return ErrorResult("endpoint_url is required", "Pass it explicitly or start the query with '#+ endpoint: <url>'"), nil, nil
		}

		deps.logger().Debug("execute_sparql_query called", "endpoint", endpoint)

		res, err := deps.SPARQL.WithEndpoint(endpoint).Query(ctx, sparql.StripComments(input.SPARQLQuery))
		if err != nil {
			deps.logger().Warn("generated query failed", "endpoint", endpoint, "error", err)
		}
		return TextResult(formatExecution(endpoint, input.SPARQLQuery, res, err)), nil, nil
	}
}

func formatExecution(endpoint, query string, res *sparql.Results, err error) string {
	if err != nil {
		return fmt.Sprintf("SPARQL query returned error: %v. %s\n```sparql\n%s\n```", err, fixQueryPrompt, query)
	}

	rows := res.Bindings()
	if len(rows) == 0 {
		return fmt.Sprintf("SPARQL query returned no results. %s\n```sparql\n%s\n```", fixQueryPrompt, query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results of SPARQL query execution on %s", endpoint)
	if len(rows) > MaxResultRows {
		rows = rows[:MaxResultRows]
		fmt.Fprintf(&b, " (showing first %d results)", MaxResultRows)
	}

	payload := map[string]any{"results": map[string]any{"bindings": rows}}
	out, merr := json.MarshalIndent(payload, "", "  ")
	if merr != nil {
		return fmt.Sprintf("SPARQL query returned error: %v. %s\n```sparql\n%s\n```", merr, fixQueryPrompt, query)
	}
	fmt.Fprintf(&b, ":\n```\n%s\n```", out)
	return b.String()
}

// endpointFromQuery reads the "#+ endpoint: <url>" header of a query.
func endpointFromQuery(query string) string {
	for _, line := range strings.Split(query, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, endpointComment); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
