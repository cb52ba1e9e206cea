package task_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/sparql"
	"github.com/lblod/entity-linker/internal/task"
)

const testGraph = "http://mu.semte.ch/graphs/jobs"

// triplestore records requests and answers queries with canned JSON.
type triplestore struct {
	mu      sync.Mutex
	queries []string
	updates []string
	sudo    []string
	answer  func(query string) string
}

func (ts *triplestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	ts.mu.Lock()
	ts.sudo = append(ts.sudo, r.Header.Get("mu-auth-sudo"))
	if u := r.PostForm.Get("update"); u != "" {
		ts.updates = append(ts.updates, u)
		ts.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	q := r.PostForm.Get("query")
	ts.queries = append(ts.queries, q)
	ts.mu.Unlock()

	body := `{"head":{"vars":[]},"results":{"bindings":[]}}`
	if ts.answer != nil {
		if a := ts.answer(q); a != "" {
			body = a
		}
	}
	w.Header().Set("Content-Type", "application/sparql-results+json")
	_, _ = io.WriteString(w, body)
}

func rows(bindings ...string) string {
	return `{"head":{"vars":[]},"results":{"bindings":[` + strings.Join(bindings, ",") + `]}}`
}

func newTestStore(t *testing.T, answer func(string) string) (*task.SPARQLStore, *triplestore) {
	t.Helper()
	ts := &triplestore{answer: answer}
	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)

	client := sparql.NewClient(sparql.Config{QueryURL: srv.URL}, testLogger()).Sudo()
	store := task.NewSPARQLStore(client, testGraph, testLogger())
	ids := 0
	store.SetIdentity(func() string {
		ids++
		return "id-" + strconv.Itoa(ids)
	}, func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	})
	return store, ts
}

func TestSPARQLStoreOperationOf(t *testing.T) {
	store, ts := newTestStore(t, func(q string) string {
		if strings.Contains(q, "<"+taskURI+">") {
			return rows(`{"task":{"type":"uri","value":"` + taskURI + `"},"taskType":{"type":"uri","value":"` + string(models.OperationNamedEntityLinking) + `"}}`)
		}
		return ""
	})
	ctx := context.Background()

	op, err := store.OperationOf(ctx, taskURI)
	require.NoError(t, err)
	assert.Equal(t, models.OperationNamedEntityLinking, op)
	assert.Equal(t, "true", ts.sudo[0])

	_, err = store.OperationOf(ctx, "http://data.lblod.info/id/tasks/missing")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestSPARQLStoreLoad(t *testing.T) {
	row := `{
	  "id":{"type":"literal","value":"t1"},
	  "job":{"type":"uri","value":"http://data.lblod.info/id/jobs/1"},
	  "jobId":{"type":"literal","value":"j1"},
	  "created":{"type":"literal","value":"2024-04-30T10:00:00Z"},
	  "modified":{"type":"literal","value":"2024-04-30T11:00:00.5Z"},
	  "status":{"type":"uri","value":"` + string(models.StatusFailed) + `"},
	  "index":{"type":"literal","value":"0"},
	  "operation":{"type":"uri","value":"` + string(models.OperationNamedEntityLinking) + `"},
	  "error":{"type":"uri","value":"http://data.lblod.info/id/jobs-error/e1"}
	}`
	store, ts := newTestStore(t, func(q string) string {
		if strings.Contains(q, "<"+taskURI+">") {
			return rows(row)
		}
		return ""
	})

	got, err := store.Load(context.Background(), taskURI)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "j1", got.JobID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "http://data.lblod.info/id/jobs-error/e1", got.Error)
	assert.Equal(t, time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC), got.Created)
	assert.Contains(t, ts.queries[0], "GRAPH <"+testGraph+">")

	_, err = store.Load(context.Background(), "http://data.lblod.info/id/tasks/missing")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestSPARQLStoreClaim(t *testing.T) {
	owner := "worker-1"
	store, ts := newTestStore(t, func(q string) string {
		return rows(`{"status":{"type":"uri","value":"` + string(models.StatusBusy) + `"},"worker":{"type":"literal","value":"` + owner + `"}}`)
	})
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, taskURI, "worker-1"))
	require.Len(t, ts.updates, 1)
	u := ts.updates[0]
	assert.Contains(t, u, `task:claimedBy "worker-1"`)
	assert.Contains(t, u, "?task adms:status <"+string(models.StatusScheduled)+"> .", "claim only matches scheduled tasks")
	assert.Contains(t, u, `"2024-05-01T12:00:00Z"^^<http://www.w3.org/2001/XMLSchema#dateTime>`)

	owner = "worker-2"
	err := store.Claim(ctx, taskURI, "worker-1")
	assert.ErrorIs(t, err, task.ErrNotClaimed)
}

func TestSPARQLStoreClaimUnverified(t *testing.T) {
	store, ts := newTestStore(t, func(string) string { return "not json" })

	err := store.Claim(context.Background(), taskURI, "worker-1")
	assert.ErrorIs(t, err, task.ErrClaimUnverified)
	assert.NotErrorIs(t, err, task.ErrNotClaimed)
	assert.Len(t, ts.updates, 1, "the claim update itself was sent")
}

func TestSPARQLStoreChangeStatus(t *testing.T) {
	store, ts := newTestStore(t, nil)

	require.NoError(t, store.ChangeStatus(context.Background(), taskURI, models.StatusSuccess))
	require.Len(t, ts.updates, 1)
	u := ts.updates[0]
	assert.Contains(t, u, "DELETE")
	assert.Contains(t, u, "adms:status <"+string(models.StatusSuccess)+">")
	assert.Contains(t, u, "BIND(<"+taskURI+"> AS ?task)")
}

func TestSPARQLStoreAttachResultsBatches(t *testing.T) {
	store, ts := newTestStore(t, nil)

	containers := make([]string, 120)
	for i := range containers {
		containers[i] = task.ContainerBase + strings.Repeat("c", i+1)
	}
	require.NoError(t, store.AttachResults(context.Background(), taskURI, containers))

	require.Len(t, ts.updates, 3)
	assert.Equal(t, 50, strings.Count(ts.updates[0], task.ContainerBase))
	assert.Equal(t, 50, strings.Count(ts.updates[1], task.ContainerBase))
	assert.Equal(t, 20, strings.Count(ts.updates[2], task.ContainerBase))

	require.NoError(t, store.AttachResults(context.Background(), taskURI, nil))
	assert.Len(t, ts.updates, 3, "nothing to attach")
}

func TestSPARQLStoreRecordError(t *testing.T) {
	store, ts := newTestStore(t, nil)

	require.NoError(t, store.RecordError(context.Background(), taskURI, `agent said "no"`))
	require.Len(t, ts.updates, 1)
	u := ts.updates[0]
	assert.Contains(t, u, "<"+task.ErrorBase+"id-1> a oslc:Error")
	assert.Contains(t, u, `oslc:message "agent said \"no\""`)
	assert.Contains(t, u, "<"+taskURI+"> task:error <"+task.ErrorBase+"id-1>")
}

func TestSPARQLStoreFetchInput(t *testing.T) {
	store, _ := newTestStore(t, func(q string) string {
		if strings.Contains(q, "<"+taskURI+">") {
			return rows(`{
			  "annotation":{"type":"uri","value":"` + annotationURI + `"},
			  "entityClass":{"type":"uri","value":"Person"},
			  "entityLabel":{"type":"literal","value":"Jane Doe"}
			}`)
		}
		return ""
	})

	in, err := store.FetchInput(context.Background(), taskURI)
	require.NoError(t, err)
	assert.Equal(t, &models.EntityInput{
		Annotation:  annotationURI,
		EntityClass: "Person",
		EntityLabel: "Jane Doe",
		Location:    models.UnknownLocation,
	}, in)

	_, err = store.FetchInput(context.Background(), "http://data.lblod.info/id/tasks/empty")
	assert.ErrorIs(t, err, task.ErrInputNotFound)
}

func TestSPARQLStoreCopyAndContainer(t *testing.T) {
	store, ts := newTestStore(t, nil)
	ctx := context.Background()

	copyURI, err := store.CopyAnnotation(ctx, annotationURI, "http://data.lblod.info/id/persons/jane")
	require.NoError(t, err)
	assert.Equal(t, task.AnnotationBase+"id-1", copyURI)

	containerURI, err := store.CreateOutputContainer(ctx, copyURI)
	require.NoError(t, err)
	assert.Equal(t, task.ContainerBase+"id-2", containerURI)

	require.Len(t, ts.updates, 2)
	assert.Contains(t, ts.updates[0], "?entity skos:exactMatch <http://data.lblod.info/id/persons/jane>")
	assert.Contains(t, ts.updates[0], "BIND(<"+annotationURI+"> AS ?prevAnnotation)")
	assert.Contains(t, ts.updates[1], "<"+containerURI+"> a nfo:DataContainer")
	assert.Contains(t, ts.updates[1], "task:hasResource <"+copyURI+">")
}

func TestSPARQLStoreFailBusy(t *testing.T) {
	count := "2"
	store, ts := newTestStore(t, func(q string) string {
		return rows(`{"count":{"type":"literal","value":"` + count + `"}}`)
	})
	ctx := context.Background()
	ops := []models.Operation{models.OperationNamedEntityLinking}

	n, err := store.FailBusy(ctx, ops)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, ts.updates, 1)
	assert.Contains(t, ts.updates[0], "VALUES ?status { <"+string(models.StatusBusy)+"> }")
	assert.Contains(t, ts.updates[0], "?task adms:status <"+string(models.StatusFailed)+">")

	count = "0"
	n, err = store.FailBusy(ctx, ops)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, ts.updates, 1, "no update without busy tasks")
}

func TestSPARQLStoreNextScheduled(t *testing.T) {
	open := true
	store, ts := newTestStore(t, func(q string) string {
		if open {
			return rows(`{"task":{"type":"uri","value":"` + taskURI + `"}}`)
		}
		return ""
	})
	ctx := context.Background()
	ops := []models.Operation{models.OperationNamedEntityLinking}

	uri, err := store.NextScheduled(ctx, ops)
	require.NoError(t, err)
	assert.Equal(t, taskURI, uri)
	assert.Contains(t, ts.queries[0], "LIMIT 1")
	assert.Contains(t, ts.queries[0], "<"+string(models.OperationNamedEntityLinking)+">")

	open = false
	uri, err = store.NextScheduled(ctx, ops)
	require.NoError(t, err)
	assert.Empty(t, uri)

	uri, err = store.NextScheduled(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, uri)
	assert.Len(t, ts.queries, 2, "no query without operations")
}
