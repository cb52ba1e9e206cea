package knowledge

import (
	"fmt"
	"os"

	"github.com/knakk/rdf"
)

const (
	rdfType      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	rdfsLabel    = "http://www.w3.org/2000/01/rdf-schema#label"
	rdfsComment  = "http://www.w3.org/2000/01/rdf-schema#comment"
	shNS         = "http://www.w3.org/ns/shacl#"
	voidNS       = "http://rdfs.org/ns/void#"
	xsdNS        = "http://www.w3.org/2001/XMLSchema#"
	schemaTarget = "https://schema.org/target"
)

// graph is a subject -> predicate -> objects index over a parsed Turtle file.
type graph struct {
	out     map[string]map[string][]rdf.Term
	subject []string // subjects in first-seen order
}

func readTurtle(path string) (*graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	triples, err := rdf.NewTripleDecoder(f, rdf.Turtle).DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return newGraph(triples), nil
}

func newGraph(triples []rdf.Triple) *graph {
	g := &graph{out: make(map[string]map[string][]rdf.Term)}
	for _, t := range triples {
		s := t.Subj.String()
		preds, ok := g.out[s]
		if !ok {
			preds = make(map[string][]rdf.Term)
			g.out[s] = preds
			g.subject = append(g.subject, s)
		}
		p := t.Pred.String()
		preds[p] = append(preds[p], t.Obj)
	}
	return g
}

func (g *graph) objects(subject, predicate string) []rdf.Term {
	return g.out[subject][predicate]
}

// first returns the lexical value of the first object, or "".
func (g *graph) first(subject, predicate string) string {
	objs := g.objects(subject, predicate)
	if len(objs) == 0 {
		return ""
	}
	return objs[0].String()
}

// literal prefers an English or untagged literal over other languages.
func (g *graph) literal(subject, predicate string) string {
	var fallback string
	for _, o := range g.objects(subject, predicate) {
		lit, ok := o.(rdf.Literal)
		if !ok {
			continue
		}
		if lang := lit.Lang(); lang == "" || lang == "en" {
			return lit.String()
		}
		if fallback == "" {
			fallback = lit.String()
		}
	}
	return fallback
}

func (g *graph) hasType(subject string, types ...string) bool {
	for _, o := range g.objects(subject, rdfType) {
		for _, t := range types {
			if o.String() == t {
				return true
			}
		}
	}
	return false
}
