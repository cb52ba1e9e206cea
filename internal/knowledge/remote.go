package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lblod/entity-linker/internal/db"
	"github.com/lblod/entity-linker/internal/embedding"
	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/models"
)

// VectorIndex is the remote collection API used by RemoteBase.
// *db.Client implements it.
type VectorIndex interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CountPoints(ctx context.Context, name string) (int, error)
	RecreateCollection(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, name string, records []db.VectorRecord) error
	SearchNearest(ctx context.Context, name string, vector []float32, limit int, filter db.DocTypeFilter) ([]db.VectorMatch, error)
}

var _ VectorIndex = (*db.Client)(nil)

// RemoteOptions configures a RemoteBase.
type RemoteOptions struct {
	Collection string
	TopK       int
	ForceIndex bool
	AutoInit   bool
	Metrics    *metrics.Collector
}

// RemoteBase stores documents in a remote vector index.
type RemoteBase struct {
	index    VectorIndex
	loader   Loader
	embedder embedding.Embedder
	opts     RemoteOptions
	logger   *slog.Logger
}

var _ Base = (*RemoteBase)(nil)

// NewRemote creates a backend over a remote vector index.
func NewRemote(index VectorIndex, loader Loader, embedder embedding.Embedder, opts RemoteOptions, logger *slog.Logger) *RemoteBase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteBase{index: index, loader: loader, embedder: embedder, opts: opts, logger: logger}
}

// Initialize rebuilds the collection when it is missing, empty or a rebuild
// is forced. With AutoInit disabled it only warns.
func (r *RemoteBase) Initialize(ctx context.Context) error {
	name := r.opts.Collection

	count := 0
	exists, err := r.index.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		if count, err = r.index.CountPoints(ctx, name); err != nil {
			return fmt.Errorf("count collection: %w", err)
		}
	}

	if !r.opts.ForceIndex && count > 0 {
		r.logger.Info("collection already indexed, skipping initialization", "collection", name, "points", count)
		return nil
	}
	if !r.opts.AutoInit {
		r.logger.Warn("collection does not exist or is empty, run the index command", "collection", name)
		return nil
	}

	r.logger.Info("initializing remote knowledge base", "collection", name, "force", r.opts.ForceIndex)

	docs, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	start := time.Now()
	if err := r.index.RecreateCollection(ctx, name, r.embedder.Dimension()); err != nil {
		return err
	}
	if len(docs) == 0 {
		r.logger.Info("no documents found to index")
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	records := make([]db.VectorRecord, len(docs))
	for i, d := range docs {
		records[i] = db.VectorRecord{Content: d.Content, Metadata: d.Metadata, Embedding: vectors[i]}
	}
	if err := r.index.Upsert(ctx, name, records); err != nil {
		return err
	}

	r.logger.Info("done indexing documents", "count", len(docs), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Search issues two nearest-neighbour lookups per search term (examples and
// everything else), each capped at TopK, keeping the first document seen
// for each answer.
func (r *RemoteBase) Search(ctx context.Context, question string, potentialClasses, steps []string) ([]models.ScoredDocument, error) {
	terms := searchTerms(question, potentialClasses, steps)
	if len(terms) == 0 {
		return nil, nil
	}

	queryVectors, err := r.embedder.EmbedBatch(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("embed search terms: %w", err)
	}

	filters := []db.DocTypeFilter{
		{DocType: models.DocTypeQueryExample},
		{DocType: models.DocTypeQueryExample, Exclude: true},
	}

	seen := answerSet{}
	var results []models.ScoredDocument
	for _, qv := range queryVectors {
		for _, filter := range filters {
			start := time.Now()
			matches, err := r.index.SearchNearest(ctx, r.opts.Collection, qv, r.opts.TopK, filter)
			r.opts.Metrics.RecordTiming(metrics.OpVectorSearch, time.Since(start))
			if err != nil {
				return nil, fmt.Errorf("vector search: %w", err)
			}
			for _, m := range matches {
				doc := models.Document{Content: m.Content, Metadata: m.Metadata}
				if !seen.admit(doc.Answer()) {
					continue
				}
				score := m.Score
				results = append(results, models.ScoredDocument{Document: doc, Score: &score})
			}
		}
	}
	return results, nil
}
