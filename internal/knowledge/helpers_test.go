package knowledge

import (
	"context"
	"errors"
	"sort"

	"github.com/lblod/entity-linker/internal/db"
	"github.com/lblod/entity-linker/internal/models"
)

// fakeEmbedder returns fixed vectors per text, or fallback for unknown text.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = f.fallback
		}
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 2 }

func doc(content, docType, answer string) models.Document {
	meta := map[string]string{models.MetaDocType: docType}
	if answer != "" {
		meta[models.MetaAnswer] = answer
	}
	return models.Document{Content: content, Metadata: meta}
}

func example(content, answer string) models.Document {
	return doc(content, models.DocTypeQueryExample, answer)
}

func schema(content, answer string) models.Document {
	return doc(content, models.DocTypeClassSchema, answer)
}

func answers(docs []models.ScoredDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Answer()
	}
	return out
}

type failingLoader struct{}

func (failingLoader) Load(context.Context) ([]models.Document, error) {
	return nil, errors.New("loader exploded")
}

// fakeIndex is an in-memory VectorIndex.
type fakeIndex struct {
	exists    bool
	records   []db.VectorRecord
	recreated int
	dimension int
	searches  []db.DocTypeFilter
	err       error
}

func (f *fakeIndex) CollectionExists(context.Context, string) (bool, error) {
	return f.exists, f.err
}

func (f *fakeIndex) CountPoints(context.Context, string) (int, error) {
	return len(f.records), f.err
}

func (f *fakeIndex) RecreateCollection(_ context.Context, _ string, dimension int) error {
	if f.err != nil {
		return f.err
	}
	f.exists = true
	f.records = nil
	f.recreated++
	f.dimension = dimension
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, _ string, records []db.VectorRecord) error {
	f.records = append(f.records, records...)
	return f.err
}

func (f *fakeIndex) SearchNearest(_ context.Context, _ string, vector []float32, limit int, filter db.DocTypeFilter) ([]db.VectorMatch, error) {
	f.searches = append(f.searches, filter)
	if f.err != nil {
		return nil, f.err
	}
	var matches []db.VectorMatch
	for _, r := range f.records {
		isType := r.Metadata[models.MetaDocType] == filter.DocType
		if isType == filter.Exclude {
			continue
		}
		matches = append(matches, db.VectorMatch{
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    CosineSimilarity(vector, r.Embedding),
		})
	}
	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func sortMatches(m []db.VectorMatch) {
	sort.SliceStable(m, func(i, j int) bool { return m[i].Score > m[j].Score })
}
