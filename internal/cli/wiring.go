package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lblod/entity-linker/internal/config"
	"github.com/lblod/entity-linker/internal/db"
	"github.com/lblod/entity-linker/internal/embedding"
	"github.com/lblod/entity-linker/internal/knowledge"
	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/sparql"
	"github.com/lblod/entity-linker/internal/tools"
)

// nominatimRateLimit keeps requests within the public Nominatim usage policy.
const nominatimRateLimit = time.Second

func newSPARQLClient(cfg config.Config, m *metrics.Collector, logger *slog.Logger) *sparql.Client {
	return sparql.NewClient(sparql.Config{
		QueryURL:   cfg.SPARQLEndpoint,
		UpdateURL:  cfg.SPARQLUpdateURL,
		Timeout:    cfg.SPARQLTimeout,
		LogQueries: cfg.LogSPARQLQueries,
		LogUpdates: cfg.LogSPARQLUpdates,
	}, logger).WithMetrics(m)
}

func newGeocoder(cfg config.Config) *tools.Geocoder {
	return tools.NewGeocoder(tools.GeocoderConfig{
		BaseURL:   cfg.NominatimEndpoint,
		RateLimit: nominatimRateLimit,
		UserAgent: "entity-linker/" + Version,
	})
}

func embeddingConfig(cfg config.Config) embedding.Config {
	return embedding.Config{
		Provider:       embedding.ProviderType(cfg.EmbeddingProvider),
		Model:          cfg.EmbeddingModel,
		Dimension:      cfg.EmbeddingDimension,
		OllamaHost:     cfg.OllamaHost,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIEndpoint: cfg.OpenAIEndpoint,
		GenAIAPIKey:    cfg.GenAIAPIKey,
	}
}

func dbConfig(cfg config.Config) db.Config {
	return db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
}

// openKnowledgeBase builds the backend selected by VECTOR_STORE_TYPE. The
// returned close function releases the database connection, if any.
func openKnowledgeBase(ctx context.Context, cfg config.Config, m *metrics.Collector, logger *slog.Logger) (knowledge.Base, func(), error) {
	endpoints, err := config.LoadEndpoints(cfg.EndpointsFile)
	if err != nil {
		return nil, nil, err
	}
	loader := &knowledge.EndpointLoader{Endpoints: endpoints, Logger: logger}
	opts := knowledge.OptionsFromConfig(cfg, m)
	closeFn := func() {}

	var embedder embedding.Embedder
	if opts.StoreType != config.StoreMemory {
		e, err := embedding.New(ctx, embeddingConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("init embedder: %w", err)
		}
		embedder = embedding.WithMetrics(e, m)
		logger.Info("embedder initialized", "model", e.Model(), "dimension", e.Dimension())
	}

	// A nil *db.Client must not reach knowledge.New as a non-nil interface.
	var index knowledge.VectorIndex
	if opts.StoreType == config.StoreSurreal {
		client, err := db.NewClient(ctx, dbConfig(cfg), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to vector database: %w", err)
		}
		index = client
		closeFn = func() {
			logger.Info("closing database connection")
			_ = client.Close(context.Background())
		}
	}

	kb, err := knowledge.New(opts, loader, embedder, index, logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.Info("knowledge base created", "store", opts.StoreType, "endpoints", len(endpoints))
	return kb, closeFn, nil
}
