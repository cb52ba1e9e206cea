package task

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/sparql"
)

// ResultsBatchSize bounds how many result containers one update attaches.
const ResultsBatchSize = 50

// Resource URI bases for everything this service creates.
const (
	AnnotationBase = "http://data.lblod.info/id/annotations/"
	ContainerBase  = "http://data.lblod.info/id/data-container/"
	ErrorBase      = "http://data.lblod.info/id/jobs-error/"
)

// Querier is the subset of the SPARQL client the store needs.
type Querier interface {
	Query(ctx context.Context, query string) (*sparql.Results, error)
	Update(ctx context.Context, update string) error
}

var _ Querier = (*sparql.Client)(nil)

// SPARQLStore keeps tasks in a triplestore graph. Every request should run
// in trusted mode; pass a client obtained from (*sparql.Client).Sudo.
type SPARQLStore struct {
	db     Querier
	graph  string
	logger *slog.Logger

	newID func() string
	now   func() time.Time
}

var _ Store = (*SPARQLStore)(nil)

// NewSPARQLStore creates a store writing to graph.
func NewSPARQLStore(db Querier, graph string, logger *slog.Logger) *SPARQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SPARQLStore{
		db:     db,
		graph:  graph,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

func (s *SPARQLStore) g() string {
	return sparql.EscapeURI(s.graph)
}

func (s *SPARQLStore) OperationOf(ctx context.Context, uri string) (models.Operation, error) {
	q := sparql.MustPrefixes("task") + fmt.Sprintf(`
SELECT ?task ?taskType WHERE {
  BIND(%s AS ?task)
  ?task task:operation ?taskType .
}`, sparql.EscapeURI(uri))

	res, err := s.db.Query(ctx, q)
	if err != nil {
		return "", fmt.Errorf("read operation of %s: %w", uri, err)
	}
	for _, row := range res.Bindings() {
		if op, ok := row.Value("taskType"); ok {
			return models.Operation(op), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTaskNotFound, uri)
}

func (s *SPARQLStore) Load(ctx context.Context, uri string) (*models.Task, error) {
	subject := sparql.EscapeURI(uri)
	q := sparql.MustPrefixes("mu", "dct", "adms", "task") + fmt.Sprintf(`
SELECT DISTINCT ?id ?job ?jobId ?created ?modified ?status ?index ?operation ?error WHERE {
  GRAPH %s {
    %s a task:Task ;
      dct:isPartOf ?job ;
      mu:uuid ?id ;
      dct:created ?created ;
      dct:modified ?modified ;
      adms:status ?status ;
      task:index ?index ;
      task:operation ?operation .
    ?job mu:uuid ?jobId .
    OPTIONAL { %s task:error ?error . }
  }
}`, s.g(), subject, subject)

	res, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", uri, err)
	}

	rows := res.Bindings()
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, uri)
	case 1:
	default:
		return nil, fmt.Errorf("load task %s: expected one row, got %d", uri, len(rows))
	}

	row := rows[0]
	return &models.Task{
		URI:       uri,
		ID:        row.ValueOr("id", ""),
		JobURI:    row.ValueOr("job", ""),
		JobID:     row.ValueOr("jobId", ""),
		Status:    models.TaskStatus(row.ValueOr("status", "")),
		Operation: models.Operation(row.ValueOr("operation", "")),
		Index:     row.ValueOr("index", ""),
		Error:     row.ValueOr("error", ""),
		Created:   parseTime(row.ValueOr("created", "")),
		Modified:  parseTime(row.ValueOr("modified", "")),
	}, nil
}

func (s *SPARQLStore) Claim(ctx context.Context, uri, workerID string) error {
	subject := sparql.EscapeURI(uri)
	u := sparql.MustPrefixes("dct", "adms", "task") + fmt.Sprintf(`
DELETE {
  GRAPH %[1]s {
    ?task adms:status %[3]s ;
      dct:modified ?modified ;
      task:claimedBy ?previous .
  }
}
INSERT {
  GRAPH %[1]s {
    ?task adms:status %[4]s ;
      dct:modified %[5]s ;
      task:claimedBy %[6]s .
  }
}
WHERE {
  GRAPH %[1]s {
    BIND(%[2]s AS ?task)
    ?task adms:status %[3]s .
    OPTIONAL { ?task dct:modified ?modified . }
    OPTIONAL { ?task task:claimedBy ?previous . }
  }
}`, s.g(), subject,
		sparql.EscapeURI(string(models.StatusScheduled)),
		sparql.EscapeURI(string(models.StatusBusy)),
		sparql.EscapeDateTime(s.now()),
		sparql.EscapeString(workerID))

	if err := s.db.Update(ctx, u); err != nil {
		return fmt.Errorf("claim %s: %w", uri, err)
	}

	q := sparql.MustPrefixes("adms", "task") + fmt.Sprintf(`
SELECT ?status ?worker WHERE {
  GRAPH %s {
    %s adms:status ?status .
    OPTIONAL { %s task:claimedBy ?worker . }
  }
}`, s.g(), subject, subject)

	res, err := s.db.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrClaimUnverified, uri, err)
	}
	for _, row := range res.Bindings() {
		if row.ValueOr("status", "") == string(models.StatusBusy) && row.ValueOr("worker", "") == workerID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotClaimed, uri)
}

func (s *SPARQLStore) ChangeStatus(ctx context.Context, uri string, status models.TaskStatus) error {
	u := sparql.MustPrefixes("dct", "adms") + fmt.Sprintf(`
DELETE {
  GRAPH %[1]s {
    ?task adms:status ?oldStatus ;
      dct:modified ?modified .
  }
}
INSERT {
  GRAPH %[1]s {
    ?task adms:status %[3]s ;
      dct:modified %[4]s .
  }
}
WHERE {
  GRAPH %[1]s {
    BIND(%[2]s AS ?task)
    OPTIONAL { ?task adms:status ?oldStatus . }
    OPTIONAL { ?task dct:modified ?modified . }
  }
}`, s.g(), sparql.EscapeURI(uri), sparql.EscapeURI(string(status)), sparql.EscapeDateTime(s.now()))

	if err := s.db.Update(ctx, u); err != nil {
		return fmt.Errorf("change status of %s to %s: %w", uri, status.Short(), err)
	}
	return nil
}

func (s *SPARQLStore) AttachResults(ctx context.Context, uri string, containers []string) error {
	for start := 0; start < len(containers); start += ResultsBatchSize {
		batch := containers[start:min(start+ResultsBatchSize, len(containers))]

		objects := make([]string, len(batch))
		for i, c := range batch {
			objects[i] = sparql.EscapeURI(c)
		}

		u := sparql.MustPrefixes("task") + fmt.Sprintf(`
INSERT DATA {
  GRAPH %s {
    %s task:resultsContainer %s .
  }
}`, s.g(), sparql.EscapeURI(uri), strings.Join(objects, " ,\n      "))

		if err := s.db.Update(ctx, u); err != nil {
			return fmt.Errorf("attach results to %s: %w", uri, err)
		}
	}
	return nil
}

func (s *SPARQLStore) RecordError(ctx context.Context, uri, message string) error {
	id := s.newID()
	errURI := ErrorBase + id

	u := sparql.MustPrefixes("mu", "dct", "oslc", "task") + fmt.Sprintf(`
INSERT DATA {
  GRAPH %s {
    %s a oslc:Error ;
      mu:uuid %s ;
      oslc:message %s ;
      dct:created %s .
    %s task:error %s .
  }
}`, s.g(), sparql.EscapeURI(errURI), sparql.EscapeString(id), sparql.EscapeString(message),
		sparql.EscapeDateTime(s.now()), sparql.EscapeURI(uri), sparql.EscapeURI(errURI))

	if err := s.db.Update(ctx, u); err != nil {
		return fmt.Errorf("record error on %s: %w", uri, err)
	}
	return nil
}

func (s *SPARQLStore) FetchInput(ctx context.Context, uri string) (*models.EntityInput, error) {
	q := sparql.MustPrefixes("task", "oa", "rdf", "rdfs", "dct") + fmt.Sprintf(`
SELECT ?annotation ?entityClass ?entityLabel ?location WHERE {
  GRAPH %s {
    %s task:inputContainer ?container .
    ?container task:hasResource ?annotation .
    ?annotation oa:hasBody ?statement .

    ?statement rdf:predicate ?predicate ;
      rdf:object ?entity .

    ?entity a ?entityClass ;
      rdfs:label ?entityLabel .

    OPTIONAL { ?entity dct:spatial ?location . }
  }
}
LIMIT 1`, s.g(), sparql.EscapeURI(uri))

	res, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch input of %s: %w", uri, err)
	}
	rows := res.Bindings()
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, uri)
	}

	row := rows[0]
	return &models.EntityInput{
		Annotation:  row.ValueOr("annotation", ""),
		EntityClass: row.ValueOr("entityClass", ""),
		EntityLabel: row.ValueOr("entityLabel", ""),
		Location:    row.ValueOr("location", models.UnknownLocation),
	}, nil
}

func (s *SPARQLStore) CopyAnnotation(ctx context.Context, annotation, match string) (string, error) {
	id := s.newID()
	newURI := AnnotationBase + id

	u := sparql.MustPrefixes("mu", "skos", "oa", "rdf") + fmt.Sprintf(`
INSERT {
  GRAPH %[1]s {
    %[3]s a oa:Annotation ;
      mu:uuid %[4]s ;
      ?p ?o .

    ?statement ?pS ?oS .
    ?entity ?pE ?oE .
    ?entity skos:exactMatch %[5]s .
  }
}
WHERE {
  GRAPH %[1]s {
    BIND(%[2]s AS ?prevAnnotation)
    ?prevAnnotation ?p ?o ;
      oa:hasBody ?statement .
    ?statement ?pS ?oS ;
      rdf:object ?entity .
    ?entity ?pE ?oE .
  }
}`, s.g(), sparql.EscapeURI(annotation), sparql.EscapeURI(newURI), sparql.EscapeString(id), sparql.EscapeURI(match))

	if err := s.db.Update(ctx, u); err != nil {
		return "", fmt.Errorf("copy annotation %s: %w", annotation, err)
	}
	return newURI, nil
}

func (s *SPARQLStore) CreateOutputContainer(ctx context.Context, resource string) (string, error) {
	id := s.newID()
	containerURI := ContainerBase + id

	u := sparql.MustPrefixes("task", "nfo", "mu") + fmt.Sprintf(`
INSERT DATA {
  GRAPH %s {
    %s a nfo:DataContainer ;
      mu:uuid %s ;
      task:hasResource %s .
  }
}`, s.g(), sparql.EscapeURI(containerURI), sparql.EscapeString(id), sparql.EscapeURI(resource))

	if err := s.db.Update(ctx, u); err != nil {
		return "", fmt.Errorf("create output container: %w", err)
	}
	return containerURI, nil
}

func (s *SPARQLStore) FailBusy(ctx context.Context, operations []models.Operation) (int, error) {
	if len(operations) == 0 {
		return 0, nil
	}
	pattern := fmt.Sprintf(`
    ?task a task:Task ;
      dct:isPartOf ?job ;
      task:operation ?operation ;
      adms:status ?status .
    VALUES ?operation { %s }
    VALUES ?status { %s }`, values(operations), sparql.EscapeURI(string(models.StatusBusy)))

	q := sparql.MustPrefixes("dct", "adms", "task") + fmt.Sprintf(`
SELECT (COUNT(DISTINCT ?task) AS ?count) WHERE {
  GRAPH %s {%s
  }
}`, s.g(), pattern)

	res, err := s.db.Query(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count busy tasks: %w", err)
	}
	count := 0
	if rows := res.Bindings(); len(rows) > 0 {
		if count, err = strconv.Atoi(rows[0].ValueOr("count", "0")); err != nil {
			return 0, fmt.Errorf("parse busy task count: %w", err)
		}
	}
	if count == 0 {
		return 0, nil
	}
	s.logger.Info("failing busy tasks", "count", count)

	u := sparql.MustPrefixes("dct", "adms", "task") + fmt.Sprintf(`
DELETE {
  GRAPH %[1]s {
    ?task adms:status ?status .
  }
}
INSERT {
  GRAPH %[1]s {
    ?task adms:status %[2]s .
  }
}
WHERE {
  GRAPH %[1]s {%[3]s
  }
}`, s.g(), sparql.EscapeURI(string(models.StatusFailed)), pattern)

	if err := s.db.Update(ctx, u); err != nil {
		return 0, fmt.Errorf("fail busy tasks: %w", err)
	}
	return count, nil
}

func (s *SPARQLStore) NextScheduled(ctx context.Context, operations []models.Operation) (string, error) {
	if len(operations) == 0 {
		return "", nil
	}
	q := sparql.MustPrefixes("adms", "task") + fmt.Sprintf(`
SELECT ?task WHERE {
  GRAPH %s {
    ?task adms:status %s ;
      task:operation ?operation .
    VALUES ?operation { %s }
  }
}
LIMIT 1`, s.g(), sparql.EscapeURI(string(models.StatusScheduled)), values(operations))

	res, err := s.db.Query(ctx, q)
	if err != nil {
		return "", fmt.Errorf("find open task: %w", err)
	}
	for _, row := range res.Bindings() {
		if uri, ok := row.Value("task"); ok {
			return uri, nil
		}
	}
	return "", nil
}

func values(operations []models.Operation) string {
	parts := make([]string, len(operations))
	for i, op := range operations {
		parts[i] = sparql.EscapeURI(string(op))
	}
	return strings.Join(parts, " ")
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
