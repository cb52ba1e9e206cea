package knowledge

import (
	"fmt"
	"strings"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/sparql"
)

type classShape struct {
	class      string
	properties []string            // first-seen order
	objects    map[string][]string // property -> class / datatype tokens
}

func (s *classShape) add(property, token string) {
	existing, ok := s.objects[property]
	if !ok {
		s.properties = append(s.properties, property)
	}
	for _, t := range existing {
		if t == token {
			return
		}
	}
	if token != "" {
		s.objects[property] = append(existing, token)
	} else if !ok {
		s.objects[property] = nil
	}
}

// loadVoidShapes derives one ShEx-style shape per class from a VoID
// description (void:classPartition / void:propertyPartition).
func loadVoidShapes(endpointURL, path string) ([]models.Document, error) {
	g, err := readTurtle(path)
	if err != nil {
		return nil, err
	}
	return shapesFromGraph(g, endpointURL), nil
}

func shapesFromGraph(g *graph, endpointURL string) []models.Document {
	shapes := map[string]*classShape{}
	var order []string

	for _, partition := range g.subject {
		class := g.first(partition, voidNS+"class")
		if class == "" {
			continue
		}
		pps := g.objects(partition, voidNS+"propertyPartition")
		if len(pps) == 0 {
			continue
		}

		shape, ok := shapes[class]
		if !ok {
			shape = &classShape{class: class, objects: map[string][]string{}}
			shapes[class] = shape
			order = append(order, class)
		}

		for _, ppTerm := range pps {
			pp := ppTerm.String()
			property := g.first(pp, voidNS+"property")
			if property == "" || property == rdfType {
				continue
			}
			found := false
			for _, cp := range g.objects(pp, voidNS+"classPartition") {
				if target := g.first(cp.String(), voidNS+"class"); target != "" {
					shape.add(property, "[ "+sparql.Compact(target)+" ]")
					found = true
				}
			}
			for _, dp := range g.objects(pp, voidNS+"datatypePartition") {
				if dt := g.first(dp.String(), voidNS+"datatype"); dt != "" {
					shape.add(property, sparql.Compact(dt))
					found = true
				}
			}
			if !found {
				shape.add(property, "")
			}
		}
	}

	docs := make([]models.Document, 0, len(order))
	for _, class := range order {
		shape := shapes[class]
		label := g.literal(class, rdfsLabel)
		if label == "" {
			label = sparql.Compact(class)
		}
		docs = append(docs, models.Document{
			Content: label,
			Metadata: map[string]string{
				models.MetaDocType:     models.DocTypeClassSchema,
				models.MetaAnswer:      renderShape(shape),
				models.MetaEndpointURL: endpointURL,
				models.MetaIRI:         class,
			},
		})
	}
	return docs
}

func renderShape(s *classShape) string {
	name := compactOrIRI(s.class)

	lines := []string{fmt.Sprintf("  a [ %s ]", name)}
	for _, p := range s.properties {
		value := "."
		if tokens := s.objects[p]; len(tokens) > 0 {
			value = strings.Join(tokens, " OR ")
		}
		lines = append(lines, fmt.Sprintf("  %s %s", compactOrIRI(p), value))
	}
	return fmt.Sprintf("%s {\n%s\n}", name, strings.Join(lines, " ;\n"))
}

func compactOrIRI(iri string) string {
	if c := sparql.Compact(iri); c != iri {
		return c
	}
	return "<" + iri + ">"
}
