package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lblod/entity-linker/internal/models"
)

func TestFormatDoc(t *testing.T) {
	tests := []struct {
		name string
		doc  models.Document
		want string
	}{
		{
			name: "query example with endpoint",
			doc: models.Document{Content: "List mandatarissen", Metadata: map[string]string{
				models.MetaDocType:     models.DocTypeQueryExample,
				models.MetaAnswer:      "SELECT ?m",
				models.MetaEndpointURL: "https://x.example.org/sparql",
			}},
			want: "List mandatarissen:\n\n```sparql\n#+ endpoint: https://x.example.org/sparql\nSELECT ?m\n```",
		},
		{
			name: "query example without endpoint",
			doc:  example("Count", "ASK {}"),
			want: "Count:\n\n```sparql\n#+ endpoint: undefined\nASK {}\n```",
		},
		{
			name: "class schema",
			doc:  schema("Concept", "skos:Concept {}"),
			want: "Concept:\n\n```shex\nskos:Concept {}\n```",
		},
		{
			name: "answer with unknown type",
			doc:  doc("Other", "notes", "text"),
			want: "Other:\n\n```\ntext\n```",
		},
		{
			name: "no answer lists metadata",
			doc:  models.Document{Content: "plain", Metadata: map[string]string{"b": "2", "a": "1"}},
			want: "  a='1' b='2'\nplain\n",
		},
		{
			name: "no answer and no metadata",
			doc:  models.Document{Content: "bare"},
			want: "\nbare\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDoc(tt.doc))
		})
	}
}

func TestPrompt(t *testing.T) {
	docs := []models.ScoredDocument{
		{Document: schema("A", "a {}")},
		{Document: schema("B", "b {}")},
	}

	p := Prompt(docs)
	assert.Contains(t, p, "The following 2 documents contain relevant query examples")
	assert.Contains(t, p, "A:\n\n```shex\na {}\n```\nB:\n\n```shex\nb {}\n```")
	assert.Contains(t, p, "#+ endpoint: http://example.org/sparql")

	assert.Contains(t, Prompt(nil), "The following 0 documents")
}
