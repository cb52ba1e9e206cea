package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lblod/entity-linker/internal/embedding"
	"github.com/lblod/entity-linker/internal/models"
)

type embeddedDoc struct {
	doc    models.Document
	vector []float32
}

// EmbeddedBase keeps (document, vector) pairs in memory and ranks them by
// cosine similarity.
type EmbeddedBase struct {
	loader   Loader
	embedder embedding.Embedder
	topK     int
	logger   *slog.Logger

	mu   sync.RWMutex
	docs []embeddedDoc
}

var _ Base = (*EmbeddedBase)(nil)

// NewEmbedded creates an in-memory embedding backend returning at most topK
// documents per category for each search call.
func NewEmbedded(loader Loader, embedder embedding.Embedder, topK int, logger *slog.Logger) *EmbeddedBase {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddedBase{loader: loader, embedder: embedder, topK: topK, logger: logger}
}

// Initialize embeds every loaded document once.
func (e *EmbeddedBase) Initialize(ctx context.Context) error {
	e.logger.Info("initializing in-memory embedding knowledge base")

	docs, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		e.logger.Info("no documents found to index")
		return nil
	}

	e.logger.Info("generating embeddings", "count", len(docs))
	start := time.Now()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	pairs := make([]embeddedDoc, len(docs))
	for i := range docs {
		pairs[i] = embeddedDoc{doc: docs[i], vector: vectors[i]}
	}

	e.mu.Lock()
	e.docs = pairs
	e.mu.Unlock()

	e.logger.Info("done generating embeddings", "count", len(docs), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

type candidate struct {
	doc   models.Document
	score float64
}

// Search embeds each search term and walks the ranked candidates per term,
// emitting examples first and then other documents. Each category is capped
// at topK for the whole call and answers are deduplicated across terms.
func (e *EmbeddedBase) Search(ctx context.Context, question string, potentialClasses, steps []string) ([]models.ScoredDocument, error) {
	terms := searchTerms(question, potentialClasses, steps)
	if len(terms) == 0 {
		return nil, nil
	}

	queryVectors, err := e.embedder.EmbedBatch(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("embed search terms: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := answerSet{}
	budget := map[bool]int{true: e.topK, false: e.topK}
	var results []models.ScoredDocument

	for _, qv := range queryVectors {
		ranked := make([]candidate, len(e.docs))
		for i, d := range e.docs {
			ranked[i] = candidate{doc: d.doc, score: CosineSimilarity(qv, d.vector)}
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

		for _, examples := range []bool{true, false} {
			for _, c := range ranked {
				if budget[examples] == 0 {
					break
				}
				if c.doc.IsQueryExample() != examples || !seen.admit(c.doc.Answer()) {
					continue
				}
				score := c.score
				results = append(results, models.ScoredDocument{Document: c.doc, Score: &score})
				budget[examples]--
			}
		}
	}
	return results, nil
}
