package models

import (
	"fmt"
	"sort"
	"strings"
)

// Document types produced by the loaders.
const (
	DocTypeQueryExample = "SPARQL endpoints query examples"
	DocTypeClassSchema  = "SPARQL endpoints classes schema"
)

// Well-known metadata keys.
const (
	MetaDocType     = "doc_type"
	MetaAnswer      = "answer"
	MetaEndpointURL = "endpoint_url"
	MetaQueryType   = "query_type"
	MetaIRI         = "iri"
)

// Document is an immutable piece of retrievable context.
type Document struct {
	Content  string            `json:"page_content"`
	Metadata map[string]string `json:"metadata"`
}

// DocType returns the doc_type metadata.
func (d Document) DocType() string {
	return d.Metadata[MetaDocType]
}

// Answer returns the answer metadata, used as the dedup key.
func (d Document) Answer() string {
	return d.Metadata[MetaAnswer]
}

// IsQueryExample reports whether the document is an example query.
func (d Document) IsQueryExample() bool {
	return d.DocType() == DocTypeQueryExample
}

// MetadataString renders metadata as sorted key=value pairs for substring matching.
func (d Document) MetadataString() string {
	keys := make([]string, 0, len(d.Metadata))
	for k := range d.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, d.Metadata[k]))
	}
	return strings.Join(parts, " ")
}

// ScoredDocument is a retrieval result. Score is nil for unranked backends.
type ScoredDocument struct {
	Document
	Score *float64 `json:"score,omitempty"`
}
