package db

import (
	"context"
	"fmt"
	"regexp"

	"github.com/surrealdb/surrealdb.go"
)

// insertBatchSize bounds the number of records per INSERT statement.
const insertBatchSize = 100

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// VectorRecord is one indexed document.
type VectorRecord struct {
	Content   string            `json:"page_content"`
	Metadata  map[string]string `json:"metadata"`
	Embedding []float32         `json:"embedding"`
}

// VectorMatch is a search hit with its cosine similarity.
type VectorMatch struct {
	Content  string            `json:"page_content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// DocTypeFilter restricts a search to documents whose metadata.doc_type
// equals (or, with Exclude, differs from) DocType.
type DocTypeFilter struct {
	DocType string
	Exclude bool
}

func checkName(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// CollectionExists reports whether the table is defined in the current database.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}

	res, err := surrealdb.Query[map[string]any](ctx, c.db, "INFO FOR DB;", nil)
	if err != nil {
		return false, fmt.Errorf("info for db: %w", wrapQueryError(err))
	}
	if res == nil || len(*res) == 0 {
		return false, nil
	}

	tables, _ := (*res)[0].Result["tables"].(map[string]any)
	_, ok := tables[name]
	return ok, nil
}

// CountPoints returns the number of records in the collection.
func (c *Client) CountPoints(ctx context.Context, name string) (int, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}

	type countRow struct {
		Count int `json:"count"`
	}
	sql := fmt.Sprintf("SELECT count() AS count FROM %s GROUP ALL;", name)
	res, err := surrealdb.Query[[]countRow](ctx, c.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, wrapQueryError(err))
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return 0, nil
	}
	return (*res)[0].Result[0].Count, nil
}

// RecreateCollection drops the collection and defines it again with an HNSW
// cosine index of the given dimension. The index rejects vectors of any other size.
func (c *Client) RecreateCollection(ctx context.Context, name string, dimension int) error {
	if err := checkName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	sql := fmt.Sprintf(`
REMOVE TABLE IF EXISTS %[1]s;
DEFINE TABLE %[1]s SCHEMALESS;
DEFINE FIELD embedding ON %[1]s TYPE array<float>;
DEFINE INDEX %[1]s_embedding ON %[1]s FIELDS embedding HNSW DIMENSION %[2]d DIST COSINE;
DEFINE INDEX %[1]s_doc_type ON %[1]s FIELDS metadata.doc_type;
`, name, dimension)

	c.logger.Info("recreating vector collection", "collection", name, "dimension", dimension)
	if err := c.exec(ctx, sql, nil); err != nil {
		return fmt.Errorf("recreate %s: %w", name, err)
	}
	return nil
}

// Upsert inserts records in batches.
func (c *Client) Upsert(ctx context.Context, name string, records []VectorRecord) error {
	if err := checkName(name); err != nil {
		return err
	}

	sql := fmt.Sprintf("INSERT INTO %s $records RETURN NONE;", name)
	for start := 0; start < len(records); start += insertBatchSize {
		end := min(start+insertBatchSize, len(records))
		if err := c.exec(ctx, sql, map[string]any{"records": records[start:end]}); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return nil
}

// SearchNearest returns up to limit records ordered by cosine similarity to vector.
func (c *Client) SearchNearest(ctx context.Context, name string, vector []float32, limit int, filter DocTypeFilter) ([]VectorMatch, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	op := "="
	if filter.Exclude {
		op = "!="
	}
	sql := fmt.Sprintf(`
SELECT page_content, metadata, vector::similarity::cosine(embedding, $vector) AS score
FROM %s
WHERE metadata.doc_type %s $doc_type
ORDER BY score DESC
LIMIT %d;`, name, op, limit)

	res, err := surrealdb.Query[[]VectorMatch](ctx, c.db, sql, map[string]any{
		"vector":   vector,
		"doc_type": filter.DocType,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, wrapQueryError(err))
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}
