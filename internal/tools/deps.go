// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/lblod/entity-linker/internal/knowledge"
	"github.com/lblod/entity-linker/internal/sparql"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Knowledge knowledge.Base
	SPARQL    *sparql.Client // base client; queries go through WithEndpoint
	Geocoder  *Geocoder
	Logger    *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d == nil || d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
