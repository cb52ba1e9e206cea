package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lblod/entity-linker/internal/config"
	"github.com/lblod/entity-linker/internal/models"
)

// EndpointLoader reads query examples and VoID class shapes for each
// configured endpoint. An endpoint without files contributes nothing.
type EndpointLoader struct {
	Endpoints []config.Endpoint
	Logger    *slog.Logger
}

var _ Loader = (*EndpointLoader)(nil)

// Load parses all endpoint files concurrently and returns the documents in
// endpoint order, examples before shapes.
func (l *EndpointLoader) Load(ctx context.Context) ([]models.Document, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	perEndpoint := make([][]models.Document, len(l.Endpoints))
	g, _ := errgroup.WithContext(ctx)
	for i, ep := range l.Endpoints {
		g.Go(func() error {
			var docs []models.Document
			if ep.ExamplesFile != "" {
				examples, err := loadExamples(ep.URL, ep.ExamplesFile)
				if err != nil {
					return fmt.Errorf("endpoint %s examples: %w", ep.URL, err)
				}
				docs = append(docs, examples...)
			}
			if ep.VoidFile != "" {
				shapes, err := loadVoidShapes(ep.URL, ep.VoidFile)
				if err != nil {
					return fmt.Errorf("endpoint %s void: %w", ep.URL, err)
				}
				docs = append(docs, shapes...)
			}
			logger.Debug("loaded endpoint documents", "endpoint", ep.URL, "count", len(docs))
			perEndpoint[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.Document
	for _, docs := range perEndpoint {
		all = append(all, docs...)
	}
	return all, nil
}
