package knowledge

import (
	"strings"

	"github.com/lblod/entity-linker/internal/models"
)

// queryPredicates maps SHACL executable predicates to the query type they carry.
var queryPredicates = []struct {
	predicate string
	queryType string
}{
	{shNS + "select", "SelectQuery"},
	{shNS + "ask", "AskQuery"},
	{shNS + "construct", "ConstructQuery"},
	{shNS + "describe", "DescribeQuery"},
}

// loadExamples reads sh:SPARQLExecutable resources from a Turtle file.
// Each becomes a document whose content is the rdfs:comment question and
// whose answer is the query text.
func loadExamples(endpointURL, path string) ([]models.Document, error) {
	g, err := readTurtle(path)
	if err != nil {
		return nil, err
	}
	return examplesFromGraph(g, endpointURL), nil
}

func examplesFromGraph(g *graph, endpointURL string) []models.Document {
	var docs []models.Document
	for _, subject := range g.subject {
		if !g.hasType(subject,
			shNS+"SPARQLExecutable",
			shNS+"SPARQLSelectExecutable",
			shNS+"SPARQLAskExecutable",
			shNS+"SPARQLConstructExecutable",
			shNS+"SPARQLDescribeExecutable") {
			continue
		}

		question := strings.TrimSpace(g.literal(subject, rdfsComment))
		if question == "" {
			continue
		}

		for _, qp := range queryPredicates {
			query := g.first(subject, qp.predicate)
			if query == "" {
				continue
			}
			endpoint := endpointURL
			if target := g.first(subject, schemaTarget); target != "" {
				endpoint = target
			}
			docs = append(docs, models.Document{
				Content: question,
				Metadata: map[string]string{
					models.MetaDocType:     models.DocTypeQueryExample,
					models.MetaAnswer:      strings.TrimSpace(query),
					models.MetaEndpointURL: endpoint,
					models.MetaQueryType:   qp.queryType,
					"question":             question,
				},
			})
			break
		}
	}
	return docs
}
