package knowledge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lblod/entity-linker/internal/config"
	"github.com/lblod/entity-linker/internal/embedding"
	"github.com/lblod/entity-linker/internal/metrics"
)

// ErrUnknownStore is returned for an unsupported VECTOR_STORE_TYPE.
var ErrUnknownStore = errors.New("unknown vector store type")

// Options selects and configures a backend.
type Options struct {
	StoreType  string
	Collection string
	TopK       int
	ForceIndex bool
	AutoInit   bool
	Metrics    *metrics.Collector
}

// OptionsFromConfig maps environment configuration onto backend options.
func OptionsFromConfig(cfg config.Config, m *metrics.Collector) Options {
	return Options{
		StoreType:  cfg.VectorStoreType,
		Collection: cfg.CollectionName,
		TopK:       cfg.RetrievedDocs,
		ForceIndex: cfg.ForceIndex,
		AutoInit:   cfg.AutoInit,
		Metrics:    m,
	}
}

// New builds the backend named by opts.StoreType. The embedder is required
// for the embedding backends and the index for the remote one.
func New(opts Options, loader Loader, embedder embedding.Embedder, index VectorIndex, logger *slog.Logger) (Base, error) {
	var base Base
	switch opts.StoreType {
	case config.StoreMemory:
		base = NewMemory(loader, logger)
	case config.StoreMemoryEmbedding:
		if embedder == nil {
			return nil, fmt.Errorf("%s store requires an embedder", opts.StoreType)
		}
		base = NewEmbedded(loader, embedder, opts.TopK, logger)
	case config.StoreSurreal:
		if embedder == nil || index == nil {
			return nil, fmt.Errorf("%s store requires an embedder and a vector index", opts.StoreType)
		}
		base = NewRemote(index, loader, embedder, RemoteOptions{
			Collection: opts.Collection,
			TopK:       opts.TopK,
			ForceIndex: opts.ForceIndex,
			AutoInit:   opts.AutoInit,
			Metrics:    opts.Metrics,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, opts.StoreType)
	}
	return WithMetrics(base, opts.Metrics), nil
}
