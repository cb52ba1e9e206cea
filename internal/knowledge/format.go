package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lblod/entity-linker/internal/models"
)

const promptTemplate = "Formulate a precise SPARQL query to access specific linked data resources and answer the user's question.\n\n" +
	"## SPARQL Query Guidelines\n" +
	"- **Always include the endpoint URL** as a comment at the start: `#+ endpoint: http://example.org/sparql`\n" +
	"- **Use only ONE endpoint** per query\n" +
	"- **Base your query on the provided context** - never create generic or unsupported queries\n" +
	"- **Use appropriate prefixes** and class names from the schema documentation\n\n" +
	"## Knowledge Base\n" +
	"The following %d documents contain relevant query examples, and classes schemas to help you construct an accurate response:\n\n" +
	"%s\n"

// FormatDoc renders one document for inclusion in an LLM prompt. Documents
// with an answer become a fenced code block; others list their metadata.
func FormatDoc(doc models.Document) string {
	if answer := doc.Answer(); answer != "" {
		lang := ""
		docType := strings.ToLower(doc.DocType())
		switch {
		case strings.Contains(docType, "query"):
			endpoint := doc.Metadata[models.MetaEndpointURL]
			if endpoint == "" {
				endpoint = "undefined"
			}
			lang = "sparql\n#+ endpoint: " + endpoint
		case strings.Contains(docType, "schema"):
			lang = "shex"
		}
		return fmt.Sprintf("%s:\n\n```%s\n%s\n```", doc.Content, lang, answer)
	}

	keys := make([]string, 0, len(doc.Metadata))
	for k := range doc.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var meta strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&meta, " %s='%s'", k, doc.Metadata[k])
	}
	m := meta.String()
	if m != "" {
		m = " " + m
	}
	return fmt.Sprintf("%s\n%s\n", m, doc.Content)
}

// FormatDocs joins formatted documents with newlines.
func FormatDocs(docs []models.ScoredDocument) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = FormatDoc(d.Document)
	}
	return strings.Join(parts, "\n")
}

// Prompt wraps the retrieved documents in the query-writing instructions
// returned by the documentation search tool.
func Prompt(docs []models.ScoredDocument) string {
	return fmt.Sprintf(promptTemplate, len(docs), FormatDocs(docs))
}
