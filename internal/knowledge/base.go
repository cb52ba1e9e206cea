// Package knowledge provides retrieval of SPARQL query examples and class
// schemas used to ground the linking agent.
package knowledge

import (
	"context"
	"time"

	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/models"
)

// Base is the retrieval contract shared by every backend.
type Base interface {
	// Initialize loads documents into the backing store. Safe to call when
	// the store already holds data; backends may skip work in that case.
	Initialize(ctx context.Context) error

	// Search returns documents relevant to a question, its decomposition into
	// steps and the ontology classes it hints at. No two results share the
	// same non-empty answer.
	Search(ctx context.Context, question string, potentialClasses, steps []string) ([]models.ScoredDocument, error)
}

// Loader produces the documents a backend indexes.
type Loader interface {
	Load(ctx context.Context) ([]models.Document, error)
}

// StaticLoader serves a fixed document set.
type StaticLoader []models.Document

// Load returns the documents unchanged.
func (s StaticLoader) Load(context.Context) ([]models.Document, error) {
	return s, nil
}

// searchTerms returns [question] + steps + potentialClasses with empty entries removed.
func searchTerms(question string, potentialClasses, steps []string) []string {
	terms := make([]string, 0, 1+len(steps)+len(potentialClasses))
	for _, t := range append(append([]string{question}, steps...), potentialClasses...) {
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// answerSet tracks answers already emitted during one search call.
type answerSet map[string]struct{}

// admit reports whether a document with this answer may be emitted and
// records it. Documents without an answer are never deduplicated.
func (s answerSet) admit(answer string) bool {
	if answer == "" {
		return true
	}
	if _, ok := s[answer]; ok {
		return false
	}
	s[answer] = struct{}{}
	return true
}

type timedBase struct {
	Base
	metrics *metrics.Collector
}

// WithMetrics records each search under metrics.OpKBSearch.
func WithMetrics(b Base, m *metrics.Collector) Base {
	if m == nil {
		return b
	}
	return &timedBase{Base: b, metrics: m}
}

func (t *timedBase) Search(ctx context.Context, question string, potentialClasses, steps []string) ([]models.ScoredDocument, error) {
	start := time.Now()
	defer func() { t.metrics.RecordTiming(metrics.OpKBSearch, time.Since(start)) }()
	return t.Base.Search(ctx, question, potentialClasses, steps)
}
