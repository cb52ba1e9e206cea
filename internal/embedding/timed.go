package embedding

import (
	"context"
	"time"

	"github.com/lblod/entity-linker/internal/metrics"
)

// timed records every embedding call in a metrics collector.
type timed struct {
	Embedder
	metrics *metrics.Collector
}

// WithMetrics wraps e so each call is recorded under metrics.OpEmbedding.
func WithMetrics(e Embedder, m *metrics.Collector) Embedder {
	if m == nil {
		return e
	}
	return &timed{Embedder: e, metrics: m}
}

func (t *timed) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer func() { t.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start)) }()
	return t.Embedder.Embed(ctx, text)
}

func (t *timed) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	defer func() { t.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start)) }()
	return t.Embedder.EmbedBatch(ctx, texts)
}
