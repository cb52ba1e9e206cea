package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names as exposed over MCP and to the agent.
const (
	ToolSearchDocs     = "search_sparql_docs"
	ToolExecuteQuery   = "execute_sparql_query"
	ToolSearchLocation = "search_location"
)

// Server identity advertised to MCP clients.
const (
	ServerName         = "Decide MCP Server"
	ServerInstructions = "Provide tools that help users access Linked Data resources (SPARQL), general web info, and location services."
)

// NewServer creates an MCP server with every tool registered.
func NewServer(deps *Dependencies, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: ServerInstructions,
	})
	RegisterAll(server, deps)
	return server
}

// RegisterAll registers all tools with the MCP server.
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchDocs,
		Description: "Assist users in writing SPARQL queries to access resources by retrieving relevant examples and classes schema",
	}, NewSearchDocsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolExecuteQuery,
		Description: "Execute a SPARQL query against a SPARQL endpoint and return the results in JSON format",
	}, NewExecuteQueryHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchLocation,
		Description: "Search for a location based on a query, city, and country. Returns the geocoded result including OpenStreetMap URI, address and coordinates",
	}, NewSearchLocationHandler(deps))
}

// Connect runs server over an in-memory transport and returns a connected
// client session. Closing the session shuts down both ends.
func Connect(ctx context.Context, server *mcp.Server) (*mcp.ClientSession, error) {
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		return nil, fmt.Errorf("connect server: %w", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "entity-linker-agent", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect client: %w", err)
	}
	return session, nil
}
