package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/entity-linker/internal/models"
)

func newTestMemory(t *testing.T, docs ...models.Document) *MemoryBase {
	t.Helper()
	m := NewMemory(StaticLoader(docs), nil)
	require.NoError(t, m.Initialize(context.Background()))
	return m
}

func TestMemorySearch(t *testing.T) {
	m := newTestMemory(t,
		example("Find a Bestuurseenheid by name", "SELECT 1"),
		schema("Mandataris", "mandaat:Mandataris {}"),
		schema("Werkingsgebied", "prov:Location {}"),
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		classes []string
		steps   []string
		want    []string
	}{
		{"no hints returns everything", nil, nil, []string{"SELECT 1", "mandaat:Mandataris {}", "prov:Location {}"}},
		{"class matches content case-insensitively", []string{"bestuurseenheid"}, nil, []string{"SELECT 1"}},
		{"class matches metadata", []string{"PROV:location"}, nil, []string{"prov:Location {}"}},
		{"steps without classes match nothing", nil, []string{"look it up"}, []string{}},
		{"unknown class", []string{"Zebra"}, nil, []string{}},
		{"empty class matches everything", []string{""}, nil, []string{"SELECT 1", "mandaat:Mandataris {}", "prov:Location {}"}},
		{"empty class alongside steps", []string{"", "Zebra"}, []string{"look it up"}, []string{"SELECT 1", "mandaat:Mandataris {}", "prov:Location {}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Search(ctx, "question", tt.classes, tt.steps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, answers(got))
			for _, d := range got {
				assert.Nil(t, d.Score, "naive backend does not score")
			}
		})
	}
}

func TestMemorySearchDeduplicatesAnswers(t *testing.T) {
	m := newTestMemory(t,
		example("first", "SELECT 1"),
		example("second", "SELECT 1"),
		doc("no answer", models.DocTypeClassSchema, ""),
		doc("no answer either", models.DocTypeClassSchema, ""),
	)

	got, err := m.Search(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
}

func TestMemoryInitializeLoaderError(t *testing.T) {
	m := NewMemory(failingLoader{}, nil)
	err := m.Initialize(context.Background())
	assert.ErrorContains(t, err, "loader exploded")
}
