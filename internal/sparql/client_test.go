package sparql_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/sparql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const selectResult = `{
  "head": {"vars": ["task", "status"]},
  "results": {"bindings": [
    {"task": {"type": "uri", "value": "http://data.lblod.info/id/tasks/1"},
     "status": {"type": "uri", "value": "http://redpencil.data.gift/id/concept/JobStatus/scheduled"}}
  ]}
}`

func TestQuery(t *testing.T) {
	var gotSudo, gotAccept, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotSudo = r.Header.Get("mu-auth-sudo")
		gotAccept = r.Header.Get("Accept")
		gotQuery = r.PostForm.Get("query")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = io.WriteString(w, selectResult)
	}))
	defer srv.Close()

	collector := metrics.NewCollector()
	client := sparql.NewClient(sparql.Config{QueryURL: srv.URL}, testLogger()).WithMetrics(collector)

	res, err := client.Sudo().Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)

	assert.Equal(t, "true", gotSudo, "sudo client should send mu-auth-sudo")
	assert.Equal(t, "application/sparql-results+json", gotAccept)
	assert.Equal(t, "SELECT * WHERE { ?s ?p ?o }", gotQuery)

	rows := res.Bindings()
	require.Len(t, rows, 1)
	task, ok := rows[0].Value("task")
	assert.True(t, ok)
	assert.Equal(t, "http://data.lblod.info/id/tasks/1", task)
	_, ok = rows[0].Value("error")
	assert.False(t, ok, "unbound variable should report absence")
	assert.Equal(t, "fallback", rows[0].ValueOr("error", "fallback"))

	snap := collector.Snapshot()
	require.NotNil(t, snap.SPARQLQuery)
	assert.Equal(t, int64(1), snap.SPARQLQuery.Count)

	// Plain client must not send the header
	_, err = client.Query(context.Background(), "ASK { ?s ?p ?o }")
	require.NoError(t, err)
	assert.Empty(t, gotSudo)
}

func TestUpdateUsesUpdateEndpoint(t *testing.T) {
	var hits atomic.Int32
	var gotUpdate string
	update := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		gotUpdate = form.Get("update")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer update.Close()

	client := sparql.NewClient(sparql.Config{QueryURL: "http://127.0.0.1:1/unused", UpdateURL: update.URL}, testLogger())
	err := client.Update(context.Background(), "INSERT DATA { <a> <b> <c> }")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "INSERT DATA { <a> <b> <c> }", gotUpdate)
}

func TestRequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Virtuoso 37000 Error SP030: syntax error", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := sparql.NewClient(sparql.Config{QueryURL: srv.URL}, testLogger())

	_, err := client.Query(context.Background(), "SELEC")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sparql.ErrRequestFailed), "non-2xx should wrap ErrRequestFailed")
	assert.Contains(t, err.Error(), "syntax error")

	err = client.Update(context.Background(), "INSERT")
	assert.ErrorIs(t, err, sparql.ErrRequestFailed)
}

func TestWithEndpointDropsSudo(t *testing.T) {
	var gotSudo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSudo = r.Header.Get("mu-auth-sudo")
		_, _ = io.WriteString(w, `{"head":{"vars":[]},"results":{"bindings":[]}}`)
	}))
	defer srv.Close()

	client := sparql.NewClient(sparql.Config{QueryURL: "http://127.0.0.1:1/unused"}, testLogger()).Sudo()
	remote := client.WithEndpoint(srv.URL)

	res, err := remote.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	assert.Empty(t, res.Bindings())
	assert.Empty(t, gotSudo, "remote endpoints never get trusted access")
	assert.Equal(t, srv.URL, remote.Endpoint())
}

func TestWaitReady(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			http.Error(w, "starting", http.StatusServiceUnavailable)
		case 2:
			_, _ = io.WriteString(w, `{"head":{"vars":["s"]},"results":{"bindings":[]}}`)
		default:
			_, _ = io.WriteString(w, `{"head":{"vars":["s"]},"results":{"bindings":[{"s":{"type":"uri","value":"http://x"}}]}}`)
		}
	}))
	defer srv.Close()

	client := sparql.NewClient(sparql.Config{QueryURL: srv.URL}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.WaitReady(ctx, 10*time.Millisecond))
	assert.Equal(t, int32(3), calls.Load(), "should retry until a row is returned")
}

func TestWaitReadyContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := sparql.NewClient(sparql.Config{QueryURL: srv.URL}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.WaitReady(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
