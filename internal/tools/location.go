package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Defaults applied when the model leaves the search area empty.
const (
	DefaultCity    = "Gent"
	DefaultCountry = "BE"
)

// SearchLocationInput defines the input schema for the search_location tool.
type SearchLocationInput struct {
	Query   string `json:"query" jsonschema:"The location query string"`
	City    string `json:"city,omitempty" jsonschema:"The city to narrow down the search (default Gent)"`
	Country string `json:"country,omitempty" jsonschema:"The country code to narrow down the search (default BE)"`
}

// NewSearchLocationHandler geocodes a place name through Nominatim.
func NewSearchLocationHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchLocationInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchLocationInput) (*mcp.CallToolResult, any, error) {
		if deps == nil || deps.Geocoder == nil {
			return ErrorResult("geocoder not configured", ""), nil, nil
		}
		if input.City == "" {
			input.City = DefaultCity
		}
		if input.Country == "" {
			input.Country = DefaultCountry
		}

		place, err := deps.Geocoder.Search(ctx, input.Query, input.City, input.Country)
		if err != nil {
			deps.logger().Warn("geocoding failed", "query", input.Query, "error", err)
			return ErrorResult(fmt.Sprintf("geocoding failed: %v", err), "Try again with a shorter query"), nil, nil
		}
		if place == nil {
			return TextResult("No results found"), nil, nil
		}

		out, err := json.Marshal(place)
		if err != nil {
			return ErrorResult(fmt.Sprintf("encode result: %v", err), ""), nil, nil
		}
		return TextResult(string(out)), nil, nil
	}
}
