package sparql

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Namespaces used across the service's queries.
var Namespaces = map[string]string{
	"adms":    "http://www.w3.org/ns/adms#",
	"dct":     "http://purl.org/dc/terms/",
	"dcterms": "http://purl.org/dc/terms/",
	"eli":     "http://data.europa.eu/eli/ontology#",
	"foaf":    "http://xmlns.com/foaf/0.1/",
	"locn":    "http://www.w3.org/ns/locn#",
	"mu":      "http://mu.semte.ch/vocabularies/core/",
	"nfo":     "http://www.semanticdesktop.org/ontologies/2007/03/22/nfo#",
	"nie":     "http://www.semanticdesktop.org/ontologies/2007/01/19/nie#",
	"oa":      "http://www.w3.org/ns/oa#",
	"oslc":    "http://open-services.net/ns/core#",
	"prov":    "http://www.w3.org/ns/prov#",
	"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
	"schema":  "https://schema.org/",
	"sh":      "http://www.w3.org/ns/shacl#",
	"skos":    "http://www.w3.org/2004/02/skos/core#",
	"task":    "http://redpencil.data.gift/vocabularies/tasks/",
	"void":    "http://rdfs.org/ns/void#",
	"xsd":     "http://www.w3.org/2001/XMLSchema#",
}

// Prefixes renders PREFIX declarations for the given names. Unknown names are
// skipped; an error is returned only when none of them are known.
func Prefixes(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		ns, ok := Namespaces[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", name, ns)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no known prefixes in %v", names)
	}
	return b.String(), nil
}

// MustPrefixes is Prefixes for statically known names.
func MustPrefixes(names ...string) string {
	p, err := Prefixes(names...)
	if err != nil {
		panic(err)
	}
	return p
}

// Compact shortens iri to prefix:local when a known namespace matches.
func Compact(iri string) string {
	names := make([]string, 0, len(Namespaces))
	for name := range Namespaces {
		names = append(names, name)
	}
	// Longest namespace first, alphabetical for ties
	sort.Slice(names, func(i, j int) bool {
		a, b := Namespaces[names[i]], Namespaces[names[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		if local, ok := strings.CutPrefix(iri, Namespaces[name]); ok && local != "" {
			return name + ":" + local
		}
	}
	return iri
}

// iriEscapes percent-encodes characters that are not allowed in an IRIREF.
var iriEscapes = strings.NewReplacer(
	" ", "%20",
	"<", "%3C",
	">", "%3E",
	`"`, "%22",
	"{", "%7B",
	"}", "%7D",
	"|", "%7C",
	"^", "%5E",
	"`", "%60",
	`\`, "%5C",
	"\n", "%0A",
	"\r", "%0D",
	"\t", "%09",
)

// EscapeURI renders value as an IRI reference.
func EscapeURI(value string) string {
	return "<" + iriEscapes.Replace(value) + ">"
}

var stringEscapes = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// EscapeString renders value as a plain string literal.
func EscapeString(value string) string {
	return `"` + stringEscapes.Replace(value) + `"`
}

// EscapeDateTime renders t as an xsd:dateTime literal.
func EscapeDateTime(t time.Time) string {
	return `"` + t.UTC().Format(time.RFC3339) + `"^^<http://www.w3.org/2001/XMLSchema#dateTime>`
}
